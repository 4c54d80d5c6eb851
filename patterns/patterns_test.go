package patterns

import (
	"reflect"
	"testing"
)

// The alternation order decides which header shape wins when several match
// at the same offset. These cases pin the current priority.
func TestReplyBoundaryPriority(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "original message with from beats bare delimiter",
			text: "-----Original Message-----\nFrom: A\nSent: B\n",
			want: "-----Original Message-----\nFrom: A\n",
		},
		{
			name: "bare original message delimiter",
			text: "-----Original Message-----\nbody",
			want: "-----Original Message-----",
		},
		{
			name: "from sent pair",
			text: "From: A\nSent: B\nTo: C\n",
			want: "From: A\nSent: B\n",
		},
		{
			name: "from date beats from to",
			text: "From: A\nDate: B\nTo: C\n",
			want: "From: A\nDate: B\n",
		},
		{
			name: "from to pair",
			text: "From: A\nTo: C\nSubject: x\n",
			want: "From: A\nTo: C\n",
		},
		{
			name: "subject first block",
			text: "Subject: S\nDate: D\nFrom: A\nTo: C\n",
			want: "Subject: S\nDate: D\nFrom: A\nTo: C\n",
		},
		{
			name: "on wrote",
			text: "On Mon, Jan 1, 2020, Jane <j@x.com> wrote:\n> hi",
			want: "On Mon, Jan 1, 2020, Jane <j@x.com> wrote:",
		},
		{
			name: "forwarded message with date",
			text: "---------- Forwarded message ---------\nDate: Mon\nFrom: x",
			want: "---------- Forwarded message ---------\nDate: Mon\n",
		},
		{
			name: "french header pair",
			text: "Expéditeur: Jean\nDate: lundi\nObjet: x",
			want: "Expéditeur: Jean\nDate: lundi\n",
		},
		{
			name: "case insensitive",
			text: "FROM: A\nsent: B\n",
			want: "FROM: A\nsent: B\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReplyBoundary.FindString(tt.text); got != tt.want {
				t.Errorf("ReplyBoundary.FindString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeaderLineFrenchRecipient(t *testing.T) {
	for _, text := range []string{"Destinataire: Marie", "Destinaire: Marie"} {
		if got := HeaderLine.FindString(text); got != text {
			t.Errorf("HeaderLine.FindString(%q) = %q", text, got)
		}
	}
}

func TestSignatureOpener(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "body\n\nBest regards,\nJane", want: "\n\nBest regards,"},
		{text: "body\nKind  regards, all", want: "\nKind  regards, all"},
		{text: "body\n  Thankyou!\nJo", want: "\n  Thankyou!"},
		{text: "Thanks for that", want: ""},
	}
	for _, tt := range tests {
		if got := SignatureOpener.FindString(tt.text); got != tt.want {
			t.Errorf("SignatureOpener.FindString(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestFieldValue(t *testing.T) {
	m := FieldValue("Reply-To").FindStringSubmatch("x\nreply-to: a@b.c\n")
	if m == nil || m[1] != " a@b.c" {
		t.Fatalf("FieldValue(Reply-To) submatch = %q", m)
	}
	if FieldValue("a.b").MatchString("axb: c") {
		t.Error("field name must be matched literally")
	}
	if FieldValue("Sent") != FieldValue("Sent") {
		t.Error("FieldValue(Sent) compiled a new pattern on the second call")
	}
	if FieldValue("Sent") == FieldValue("sent") {
		t.Error("different field names must not share a cache entry")
	}
}

func TestSpans(t *testing.T) {
	got := Spans(Links, "a <x> b <y>")
	want := []Span{{Start: 2, End: 11}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Spans() = %v, want %v", got, want)
	}
	if got := Spans(Links, "none"); len(got) != 0 {
		t.Errorf("Spans() on no match = %v", got)
	}
}

func TestReplace(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		spans []Span
		want  string
	}{
		{name: "no spans", text: "abc", want: "abc"},
		{name: "single", text: "abcdef", spans: []Span{{1, 3}}, want: "a def"},
		{name: "adjacent", text: "abcdef", spans: []Span{{0, 2}, {2, 4}}, want: "  ef"},
		{name: "whole", text: "abc", spans: []Span{{0, 3}}, want: " "},
		{name: "empty span inserts", text: "ab", spans: []Span{{1, 1}}, want: "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Replace(tt.text, tt.spans, " "); got != tt.want {
				t.Errorf("Replace() = %q, want %q", got, tt.want)
			}
		})
	}
}

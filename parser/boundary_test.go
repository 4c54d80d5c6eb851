package parser

import (
	"strings"
	"testing"
)

const outlookChain = "Thanks, see below.\n\n" +
	"-----Original Message-----\n" +
	"From: a@b.com\n" +
	"Sent: Monday, Jan 1, 2020 9:00 AM\n" +
	"To: c@d.com\n\n" +
	"Hi"

const threeMessageChain = "Top reply\n\n" +
	"On Tue, Feb 2, 2021 at 8:00 AM, Bob <bob@x.com> wrote:\nMiddle\n\n" +
	"-----Original Message-----\nFrom: Carol\nSent: Jan 1, 2021\nTo: Bob\n\nBottom"

func TestMostRecent(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "outlook original message",
			text: outlookChain,
			want: "Thanks, see below.\n\n",
		},
		{
			name: "gmail on wrote",
			text: "Sounds good.\n\nOn Mon, Jan 1, 2020 at 9:00 AM, Jane Doe <jane@example.com> wrote:\n> earlier",
			want: "Sounds good.\n\n",
		},
		{
			name: "forwarded message",
			text: "FYI\n\n---------- Forwarded message ---------\nDate: Mon, Jan 1, 2020\nFrom: Jane\nSubject: x\n",
			want: "FYI\n\n",
		},
		{
			name: "french headers",
			text: "Voir ci-dessous.\n\nExpéditeur: Jean\nDate: 3 mars 2021\nObjet: test\n",
			want: "Voir ci-dessous.\n\n",
		},
		{
			name: "no boundary",
			text: "Just a plain note.\nNothing quoted here.",
			want: "Just a plain note.\nNothing quoted here.",
		},
		{
			name: "empty",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MostRecent(tt.text)
			if got != tt.want {
				t.Errorf("MostRecent() = %q, want %q", got, tt.want)
			}
			if !strings.HasPrefix(tt.text, got) {
				t.Errorf("MostRecent() = %q is not a prefix of the input", got)
			}
			if again := MostRecent(got); again != got {
				t.Errorf("MostRecent() not idempotent: %q then %q", got, again)
			}
		})
	}
}

func TestSplitReplies(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "no boundaries",
			text: "One message only.\nRegards",
			want: []string{"One message only.\nRegards"},
		},
		{
			name: "empty text",
			text: "",
			want: []string{""},
		},
		{
			name: "three messages",
			text: threeMessageChain,
			want: []string{
				"Top reply\n\n",
				"On Tue, Feb 2, 2021 at 8:00 AM, Bob <bob@x.com> wrote:\nMiddle\n\n",
				"-----Original Message-----\nFrom: Carol\nSent: Jan 1, 2021\nTo: Bob\n\nBottom",
			},
		},
		{
			name: "boundary at start",
			text: "From: a\nTo: b\nbody",
			want: []string{"", "From: a\nTo: b\nbody"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitReplies(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitReplies() returned %d segments %q, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("segment %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitRepliesLossless(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		outlookChain,
		threeMessageChain,
		"a\r\nFrom: x\r\nSent: y\r\nTo: z\r\n\r\nb\r\nOn day, Z wrote:\r\nc",
		"From: a\nDate: b\nFrom: c\nDate: d\nFrom: e\nTo: f\n",
	}
	for _, text := range inputs {
		if got := strings.Join(SplitReplies(text), ""); got != text {
			t.Errorf("joined segments = %q, want %q", got, text)
		}
	}
}

func TestCleanSegments(t *testing.T) {
	got := CleanSegments(threeMessageChain)
	if len(got) != 3 {
		t.Fatalf("CleanSegments() returned %d segments, want 3", len(got))
	}
	if got[0] != "Top reply\n\n" {
		t.Errorf("segment 0 = %q", got[0])
	}
	if strings.Contains(got[1], "wrote:") {
		t.Errorf("segment 1 still carries the reply header: %q", got[1])
	}
	for _, header := range []string{"Original Message", "From:", "Sent:", "To:"} {
		if strings.Contains(got[2], header) {
			t.Errorf("segment 2 still contains %q: %q", header, got[2])
		}
	}
	if !strings.HasSuffix(got[2], "Bottom") {
		t.Errorf("segment 2 lost its body: %q", got[2])
	}
}

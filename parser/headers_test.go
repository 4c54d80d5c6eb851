package parser

import "testing"

func TestRemoveHeaders(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "outlook header block",
			text: "From: Jane\nSent: Monday\nTo: Bob\nSubject: Hi\n\nBody text",
			want: " \n \n \n \n\nBody text",
		},
		{
			name: "french header block",
			text: "Expéditeur: Jean\nDestinataire: Marie\nObjet: Réunion\n\nBonjour",
			want: " \n \n \n\nBonjour",
		},
		{
			name: "structural markers",
			text: "-----Original Message-----\nbody\n---------- Forwarded message ---------\nmore",
			want: " \nbody\n \nmore",
		},
		{
			name: "on wrote line",
			text: "On Mon, Jan 1, 2020, Jane wrote:\n> quoted",
			want: " \n> quoted",
		},
		{
			name: "repeated text replaced span by span",
			text: "To: a\nnot a header To: a b",
			want: " \nnot a header  ",
		},
		{
			name: "clean text unchanged",
			text: "Please review the attached file.\nThanks",
			want: "Please review the attached file.\nThanks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemoveHeaders(tt.text); got != tt.want {
				t.Errorf("RemoveHeaders() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRemoveHeadersIdempotentOnCleanText(t *testing.T) {
	clean := []string{
		"",
		"Hello,\n\nThe numbers look right.\n\nBest,\nAnna",
		"Bonjour,\nle document est prêt.",
	}
	for _, text := range clean {
		once := RemoveHeaders(text)
		if once != text {
			t.Errorf("RemoveHeaders(%q) = %q, want unchanged", text, once)
		}
		if twice := RemoveHeaders(once); twice != once {
			t.Errorf("RemoveHeaders not idempotent: %q then %q", once, twice)
		}
	}
}

func TestHeaderField(t *testing.T) {
	text := "From: Jane Doe <jane@example.com>\nSent: March 3, 2021 10:00 AM\nSubject:   \n"

	tests := []struct {
		field  string
		want   string
		wantOK bool
	}{
		{field: "From", want: "Jane Doe <jane@example.com>", wantOK: true},
		{field: "sent", want: "March 3, 2021 10:00 AM", wantOK: true},
		{field: "Subject", want: "", wantOK: true},
		{field: "Cc", want: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, ok := HeaderField(text, tt.field)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("HeaderField(%q) = (%q, %v), want (%q, %v)", tt.field, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRemoveLinksBreaks(t *testing.T) {
	text := "See <http://example.com>\nnext"
	if got, want := RemoveLinksBreaks(text, true), "See   next"; got != want {
		t.Errorf("RemoveLinksBreaks(breaks) = %q, want %q", got, want)
	}
	if got, want := RemoveLinksBreaks(text, false), "See  \nnext"; got != want {
		t.Errorf("RemoveLinksBreaks(no breaks) = %q, want %q", got, want)
	}
}

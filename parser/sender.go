package parser

import (
	"strings"

	"github.com/dhcgn/mailbody/patterns"
)

// Sender identifies who wrote a forwarded or quoted message. Either field
// may be empty when it could not be recovered.
type Sender struct {
	Name  string
	Email string
}

// ForwardedSender reads the sender from a "From:" field or, failing that,
// from an "On <date>, <name> wrote:" line. It reports false when text has
// neither.
func ForwardedSender(text string) (Sender, bool) {
	header, ok := HeaderField(text, "From")
	if !ok {
		m := patterns.OnWrote.FindString(text)
		if m == "" {
			return Sender{}, false
		}
		if i := strings.LastIndexByte(m, ','); i >= 0 {
			m = m[i+1:]
		}
		header = strings.TrimSpace(patterns.WroteMarker.ReplaceAllLiteralString(m, ""))
	}

	s := Sender{Name: header}
	if email := patterns.EmailAddress.FindString(header); email != "" {
		s.Email = strings.TrimSpace(email)
	}
	if loc := patterns.Brackets.FindStringIndex(header); loc != nil {
		s.Name = strings.TrimSpace(header[:loc[0]] + header[loc[1]:])
	}
	return s, true
}

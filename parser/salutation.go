package parser

import (
	"github.com/dhcgn/mailbody/patterns"
)

// Salutation returns the greeting at the very start of text, such as
// "Hi John,\n\n", including the trailing whitespace. At most five words may
// follow the opener before the terminating punctuation, so a sentence that
// merely starts with "Hi" is not taken for a greeting.
func Salutation(text string) (string, bool) {
	loc := patterns.Salutation.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	return text[loc[0]:loc[1]], true
}

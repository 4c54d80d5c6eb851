// Package classifier defines the boundary to the statistical signature
// classifier and ships a line-heuristic implementation of it.
package classifier

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Classifier splits text into body and trailing signature. An empty
// signature means none was found. Implementations must accept partial
// message prefixes and must not panic on malformed input.
type Classifier interface {
	Extract(text, sender string) (body, signature string)
}

// Func adapts a plain function to the Classifier interface.
type Func func(text, sender string) (body, signature string)

// Extract calls f(text, sender).
func (f Func) Extract(text, sender string) (string, string) {
	return f(text, sender)
}

// Nop never reports a signature.
type Nop struct{}

// Extract returns text unchanged with no signature.
func (Nop) Extract(text, _ string) (string, string) {
	return text, ""
}

const (
	defaultMaxLines      = 15
	defaultMaxLineLength = 60
)

var (
	delimiterLine = regexp.MustCompile(`(?i)^\s*(?:--+|__+|==+)\s*[\p{L} .]*$`)
	sentFromLine  = regexp.MustCompile(`(?i)^\s*(?:sent from my|sent from|get outlook for|envoyé de mon|envoyé depuis)\b`)
	senderSplit   = regexp.MustCompile(`[\s._\-+]+`)
)

// Bruteforce scans the tail of a message for signature markers: a dash or
// underscore delimiter line, a "Sent from my ..." line, or a short line
// naming the sender. The signature starts at the earliest marker within the
// last MaxLines non-empty lines.
type Bruteforce struct {
	MaxLines      int
	MaxLineLength int
}

// NewBruteforce returns a Bruteforce with the default window.
func NewBruteforce() *Bruteforce {
	return &Bruteforce{MaxLines: defaultMaxLines, MaxLineLength: defaultMaxLineLength}
}

// Extract cuts text at the earliest signature marker in its tail. Blank
// text and text without a marker come back unchanged.
func (b *Bruteforce) Extract(text, sender string) (string, string) {
	if strings.TrimSpace(text) == "" {
		return text, ""
	}

	maxLines := b.MaxLines
	if maxLines <= 0 {
		maxLines = defaultMaxLines
	}
	maxLen := b.MaxLineLength
	if maxLen <= 0 {
		maxLen = defaultMaxLineLength
	}

	lines := strings.Split(text, "\n")
	start := windowStart(lines, maxLines)
	names := senderTokens(sender)

	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || utf8.RuneCountInString(line) > maxLen {
			continue
		}
		if !delimiterLine.MatchString(line) && !sentFromLine.MatchString(line) && !namesSender(line, names) {
			continue
		}
		body := strings.Join(lines[:i], "\n")
		if strings.TrimSpace(body) == "" {
			return text, ""
		}
		return body, strings.Join(lines[i:], "\n")
	}
	return text, ""
}

// windowStart returns the index of the first line among the last n
// non-empty lines.
func windowStart(lines []string, n int) int {
	seen := 0
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		seen++
		if seen == n {
			return i
		}
	}
	return 0
}

// senderTokens turns "john.smith@example.com" or "John Smith" into the
// lower-cased name parts worth looking for.
func senderTokens(sender string) []string {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return nil
	}
	if at := strings.IndexByte(sender, '@'); at >= 0 {
		sender = sender[:at]
	}
	var tokens []string
	for _, part := range senderSplit.Split(strings.ToLower(sender), -1) {
		if utf8.RuneCountInString(part) >= 3 {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// namesSender reports whether a short line is mostly the sender's name.
func namesSender(line string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	words := strings.Fields(strings.ToLower(line))
	if len(words) == 0 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		w = strings.Trim(w, ",.;:-")
		for _, tok := range tokens {
			if w == tok {
				return true
			}
		}
	}
	return false
}

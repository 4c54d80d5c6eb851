package parser

import (
	"strings"

	"github.com/dhcgn/mailbody/patterns"
)

// RemoveHeaders replaces every header field line and forwarding marker with
// a single space. It expects one already-isolated message, as produced by
// SplitReplies.
func RemoveHeaders(text string) string {
	return patterns.Replace(text, patterns.Spans(patterns.HeaderLine, text), " ")
}

// HeaderField returns the trimmed rest of the line after the first
// case-insensitive "<field>:" in text.
func HeaderField(text, field string) (string, bool) {
	m := patterns.FieldValue(field).FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// RemoveLinksBreaks replaces angle-bracketed links with a space and, when
// removeBreaks is set, every line break too.
func RemoveLinksBreaks(text string, removeBreaks bool) string {
	re := patterns.Links
	if removeBreaks {
		re = patterns.LinksBreaks
	}
	return patterns.Replace(text, patterns.Spans(re, text), " ")
}

package parser

import (
	"github.com/dhcgn/mailbody/patterns"
)

// MostRecent returns the text above the first reply or forward header, or
// text unchanged when there is none.
func MostRecent(text string) string {
	loc := patterns.ReplyBoundary.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]]
}

// SplitReplies cuts text at every reply or forward header. Header lines stay
// at the top of the message they introduce, and joining the segments gives
// back text exactly. A header at offset 0 yields an empty first segment.
func SplitReplies(text string) []string {
	spans := patterns.Spans(patterns.ReplyBoundary, text)
	segments := make([]string, 0, len(spans)+1)
	start := 0
	for _, span := range spans {
		segments = append(segments, text[start:span.Start])
		start = span.Start
	}
	return append(segments, text[start:])
}

// CleanSegments splits text into messages and strips the header lines from
// each one.
func CleanSegments(text string) []string {
	segments := SplitReplies(text)
	for i, seg := range segments {
		segments[i] = RemoveHeaders(seg)
	}
	return segments
}

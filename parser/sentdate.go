package parser

import (
	"time"

	"github.com/dhcgn/mailbody/patterns"
)

// SentDate finds when a forwarded or quoted message was sent, reading the
// "Sent:" field or else the "On ... wrote:" or "Forwarded message" line.
// When the finder yields several dates the last one is used: earlier
// candidates tend to be fragments of the full date.
func (p *Parser) SentDate(text string) (time.Time, bool) {
	header, ok := HeaderField(text, "Sent")
	if !ok {
		header = patterns.SentFallback.FindString(text)
		if header == "" {
			return time.Time{}, false
		}
	}

	dates := p.dates.FindDates(header)
	if len(dates) == 0 {
		return time.Time{}, false
	}
	return dates[len(dates)-1], true
}

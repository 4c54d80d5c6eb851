// Package nativedate converts date values owned by a mail store client into
// Go timestamps. Anything with a String method qualifies; the textual form is
// what gets parsed.
package nativedate

import (
	"fmt"
	"time"

	"github.com/dhcgn/mailbody/datefinder"
	"github.com/dhcgn/mailbody/patterns"
)

// ToTimestamp stringifies native and returns the last date the finder sees
// in it. A nil finder uses datefinder.Default.
func ToTimestamp(native fmt.Stringer, f datefinder.Finder) (time.Time, bool) {
	if native == nil {
		return time.Time{}, false
	}
	if f == nil {
		f = datefinder.Default{}
	}
	dates := f.FindDates(native.String())
	if len(dates) == 0 {
		return time.Time{}, false
	}
	return dates[len(dates)-1], true
}

// ToTimeOfDay returns the first "HH:MM:SS" in the textual form of native.
func ToTimeOfDay(native fmt.Stringer) (string, bool) {
	if native == nil {
		return "", false
	}
	tod := patterns.TimeOfDay.FindString(native.String())
	return tod, tod != ""
}

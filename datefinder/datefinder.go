// Package datefinder locates natural-language dates inside free text such
// as "Sent: Monday, Jan 1, 2020 9:00 AM" or "Le 3 mars 2021 à 10:00".
package datefinder

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Finder yields every date it can recognise in text, in text order.
type Finder interface {
	FindDates(text string) []time.Time
}

// FinderFunc adapts a plain function to the Finder interface.
type FinderFunc func(text string) []time.Time

// FindDates calls f(text).
func (f FinderFunc) FindDates(text string) []time.Time {
	return f(text)
}

var months = map[string]time.Month{
	"jan": time.January, "january": time.January, "janv": time.January, "janvier": time.January,
	"feb": time.February, "february": time.February, "fév": time.February, "fev": time.February,
	"févr": time.February, "fevr": time.February, "février": time.February, "fevrier": time.February,
	"mar": time.March, "march": time.March, "mars": time.March,
	"apr": time.April, "april": time.April, "avr": time.April, "avril": time.April,
	"may": time.May, "mai": time.May,
	"jun": time.June, "june": time.June, "juin": time.June,
	"jul": time.July, "july": time.July, "juil": time.July, "juillet": time.July,
	"aug": time.August, "august": time.August, "août": time.August, "aout": time.August,
	"sep": time.September, "sept": time.September, "september": time.September, "septembre": time.September,
	"oct": time.October, "october": time.October, "octobre": time.October,
	"nov": time.November, "november": time.November, "novembre": time.November,
	"dec": time.December, "december": time.December, "déc": time.December, "décembre": time.December, "decembre": time.December,
}

// monthAlternation lists month names longest first so "janvier" is not
// cut short by "jan".
var monthAlternation = `janvier|january|janv|jan|` +
	`février|fevrier|february|févr|fevr|fév|fev|feb|` +
	`march|mars|mar|` +
	`avril|april|avr|apr|` +
	`may|mai|` +
	`june|juin|jun|` +
	`juillet|july|juil|jul|` +
	`august|août|aout|aug|` +
	`septembre|september|sept|sep|` +
	`octobre|october|oct|` +
	`novembre|november|nov|` +
	`décembre|decembre|december|déc|dec`

const clock = `\d{1,2}[:h]\d{2}(?::\d{2})?(?:\s*[ap]\.?m\.?)?`

var (
	candidates = regexp.MustCompile(`(?i)` +
		`\b(?P<m1>` + monthAlternation + `)(?:\.|\b)\s*(?P<d1>\d{1,2})(?:st|nd|rd|th)?,?\s+(?P<y1>\d{4})(?:,?\s+(?:at\s+|à\s+)?(?P<t1>` + clock + `))?` +
		`|\b(?P<d2>\d{1,2})(?:er)?\s+(?P<m2>` + monthAlternation + `)(?:\.|\b),?\s+(?P<y2>\d{4})(?:,?\s+(?:at\s+|à\s+)?(?P<t2>` + clock + `))?` +
		`|\b(?P<iso>\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2})?)?)` +
		`|\b(?P<dd>\d{1,2})[.-](?P<dm>\d{1,2})[.-](?P<dy>\d{4}|\d{2})\b(?:,?\s+(?:at\s+|à\s+)?(?P<dt>` + clock + `))?` +
		`|\b(?P<num>\d{1,2}/\d{1,2}/\d{2,4}(?:\s+` + clock + `)?)`)

	clockParts = regexp.MustCompile(`(?i)(\d{1,2})[:h](\d{2})(?::(\d{2}))?\s*(?:([ap])\.?m\.?)?`)
)

var isoLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Default locates date-shaped substrings with regexes and resolves each one
// with explicit layouts, falling back to dateparse for slash dates. Dates
// carry Location, or UTC when nil.
type Default struct {
	Location *time.Location
}

// Find runs the default finder in UTC.
func Find(text string) []time.Time {
	return Default{}.FindDates(text)
}

// FindDates returns every date in text that resolves to a valid calendar day,
// in text order.
func (d Default) FindDates(text string) []time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}

	var found []time.Time
	names := candidates.SubexpNames()
	for _, match := range candidates.FindAllStringSubmatch(text, -1) {
		groups := make(map[string]string, len(names))
		for i, name := range names {
			if name != "" && match[i] != "" {
				groups[name] = match[i]
			}
		}

		var (
			t  time.Time
			ok bool
		)
		switch {
		case groups["m1"] != "":
			t, ok = fromParts(groups["y1"], groups["m1"], groups["d1"], groups["t1"], loc)
		case groups["m2"] != "":
			t, ok = fromParts(groups["y2"], groups["m2"], groups["d2"], groups["t2"], loc)
		case groups["iso"] != "":
			t, ok = parseISO(groups["iso"], loc)
		case groups["dd"] != "":
			t, ok = fromNumbers(groups["dd"], groups["dm"], groups["dy"], groups["dt"], loc)
		case groups["num"] != "":
			t, ok = parseLoose(groups["num"], loc)
		}
		if ok {
			found = append(found, t)
		}
	}
	return found
}

func fromParts(year, month, day, clock string, loc *time.Location) (time.Time, bool) {
	m, ok := months[strings.ToLower(month)]
	if !ok {
		return time.Time{}, false
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, false
	}
	return build(y, m, d, clock, loc)
}

// fromNumbers resolves dotted and dashed dates such as "25.12.2021", which
// are written day first. "12-31-2021" is read month first because 31 cannot
// be a month. Two-digit years follow Go's "06" rule.
func fromNumbers(first, second, year, clock string, loc *time.Location) (time.Time, bool) {
	d, err := strconv.Atoi(first)
	if err != nil {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(second)
	if err != nil {
		return time.Time{}, false
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	if m > 12 && d <= 12 {
		d, m = m, d
	}
	if m < 1 || m > 12 {
		return time.Time{}, false
	}
	if len(year) == 2 {
		if y >= 69 {
			y += 1900
		} else {
			y += 2000
		}
	}
	return build(y, time.Month(m), d, clock, loc)
}

func build(y int, m time.Month, d int, clock string, loc *time.Location) (time.Time, bool) {
	if d < 1 || d > 31 {
		return time.Time{}, false
	}

	var (
		hour, minute, second int
		ok                   bool
	)
	if clock != "" {
		hour, minute, second, ok = parseClock(clock)
		if !ok {
			return time.Time{}, false
		}
	}

	t := time.Date(y, m, d, hour, minute, second, 0, loc)
	if t.Day() != d {
		// time.Date normalises Feb 30 into March.
		return time.Time{}, false
	}
	return t, true
}

func parseClock(s string) (hour, minute, second int, ok bool) {
	parts := clockParts.FindStringSubmatch(s)
	if parts == nil {
		return 0, 0, 0, false
	}
	hour, _ = strconv.Atoi(parts[1])
	minute, _ = strconv.Atoi(parts[2])
	if parts[3] != "" {
		second, _ = strconv.Atoi(parts[3])
	}
	switch strings.ToLower(parts[4]) {
	case "a":
		if hour == 12 {
			hour = 0
		}
	case "p":
		if hour < 12 {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 || second > 59 {
		return 0, 0, 0, false
	}
	return hour, minute, second, true
}

func parseISO(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseLoose hands numeric forms such as "3/1/2014 10:00" to dateparse,
// which resolves them month-first.
func parseLoose(s string, loc *time.Location) (time.Time, bool) {
	t, err := dateparse.ParseIn(s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

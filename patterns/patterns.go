// Package patterns holds the regular expressions used to segment email
// bodies: reply/forward boundaries, header field lines, salutation openers
// and signature openers, in English and French.
package patterns

import (
	"regexp"
	"strings"
	"sync"
)

// Span is a half-open byte range [Start, End) inside a message text.
type Span struct {
	Start int
	End   int
}

// lineBreak matches one line separator as mail clients emit them, including
// a newline followed by indentation of the next header line.
const lineBreak = `(?:\n|\r\n|\n\s)`

// word is a Unicode-aware \w so accented names count as one word.
const word = `[\p{L}\p{N}_]`

// space also accepts Unicode spaces such as the no-break space Outlook puts
// after a greeting; RE2's \s is ASCII only.
const space = `[\s\p{Zs}]`

// Order matters: at a given offset the first alternative that matches wins,
// so compound header shapes are listed before the simpler ones they contain.
var replyBoundaries = []string{
	`(?:-| )*Original Message(?:-| )*` + lineBreak + `*[ \t]*From:.*` + lineBreak,
	`(?:-| )*Original Message(?:-| )*`,
	`From:.*` + lineBreak + `*[ \t]*Sent:.*` + lineBreak,
	`On\s(?:.+?)wrote:`,
	`From:.*` + lineBreak + `*[ \t]*Date:.*` + lineBreak,
	`From:.*` + lineBreak + `*[ \t]*To:.*` + lineBreak,
	`Subject:.*` + lineBreak + `*[ \t]*Date:.*` + lineBreak + `*[ \t]*From:.*` + lineBreak + `*[ \t]*To:.*` + lineBreak,
	`(?:-| )*Forwarded message.*(?:-| )*` + lineBreak + `*[ \t]*Date:.*` + lineBreak,
	`Expéditeur:.*` + lineBreak + `*[ \t]*Date:.*` + lineBreak,
}

var headerLines = []string{
	`From:.*`,
	`Date:.*`,
	`To:.*`,
	`Cc:.*`,
	`Subject:.*`,
	`Importance:.*`,
	`Sent:.*`,
	`Reply-To:.*`,
	`-(?:-| )*Forwarded message.*-(?:-| )*`,
	`-(?:-| )*Original Message-(?:-| )*`,
	`On\s(?:.+?)wrote:`,
	`Expéditeur:.*`,
	`Destina(?:ta)?ire:.*`,
	`Objet:.*`,
	`-(?:-| )*Original Appointment-(?:-| )*`,
	`(?:-| )*Begin forwarded message:(?:-| )*`,
	`(?:-| )*End forwarded message(?:-| )*`,
}

// SalutationOpeners are the greeting keywords a salutation may start with.
var SalutationOpeners = []string{
	"hi",
	"dear",
	"to",
	"hey",
	"hello",
	"good morning",
	"good afternoon",
	"good evening",
}

// SignatureOpeners are the sign-off phrases that start a signature block.
var SignatureOpeners = []string{
	`(?:\pL+\s+)?regards,`,
	"cheers",
	"many thanks",
	"thanks",
	"sincerely",
	"ciao",
	"best",
	"thank you",
	"thankyou",
	"talk soon",
	"cordially",
	"yours truly",
	"thanking you",
	"best wishes",
}

// maxSalutationWords bounds the words between the opener and the terminator.
const maxSalutationWords = 5

var (
	// ReplyBoundary finds the start of a quoted reply or forwarded message.
	ReplyBoundary = regexp.MustCompile(`(?i)` + strings.Join(replyBoundaries, "|"))

	// HeaderLine matches a single header field line or structural marker.
	HeaderLine = regexp.MustCompile(`(?i)` + strings.Join(headerLines, "|"))

	// Salutation matches a short greeting anchored at the start of the text.
	Salutation = regexp.MustCompile(`(?i)^` + space + `*(?:` + strings.Join(SalutationOpeners, "|") + `)+` +
		strings.Repeat(`(?:`+space+`*`+word+`*)`, maxSalutationWords) + `[.,:â]+` + space + `*`)

	// SignatureOpener matches a sign-off line preceded by at least one newline.
	SignatureOpener = regexp.MustCompile(`(?i)\n+\s*(?:` + strings.Join(SignatureOpeners, "|") + `).*`)

	EmailAddress = regexp.MustCompile(`[\w.-]+@[\w.-]+(?:\.\w+)+`)
	Brackets     = regexp.MustCompile(`<.*>|\[.*\]`)
	OnWrote      = regexp.MustCompile(`(?i)On.*wrote:`)
	WroteMarker  = regexp.MustCompile(`(?i)wrote:`)
	SentFallback = regexp.MustCompile(`(?i)On.*wrote:|-(?:-| )*Forwarded message.*-(?:-| )*`)
	TimeOfDay    = regexp.MustCompile(`[0-9][0-9]:[0-9][0-9]:[0-9][0-9]`)
	Links        = regexp.MustCompile(`<.*>`)
	LinksBreaks  = regexp.MustCompile(`<.*>|\n|\r`)
)

// fieldValues caches FieldValue patterns by field name.
var fieldValues sync.Map

// FieldValue returns a pattern whose first group captures the rest of the
// line following "<name>:", matched case-insensitively. Patterns are
// compiled once per name.
func FieldValue(name string) *regexp.Regexp {
	if re, ok := fieldValues.Load(name); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := fieldValues.LoadOrStore(name, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(name)+`:(.*)`))
	return re.(*regexp.Regexp)
}

// Spans returns every non-overlapping match of re in text, left to right.
func Spans(re *regexp.Regexp, text string) []Span {
	locs := re.FindAllStringIndex(text, -1)
	spans := make([]Span, 0, len(locs))
	for _, loc := range locs {
		spans = append(spans, Span{Start: loc[0], End: loc[1]})
	}
	return spans
}

// Replace builds a new string in one pass, substituting repl for every span.
// Spans must be sorted and non-overlapping, as Spans returns them.
func Replace(text string, spans []Span, repl string) string {
	if len(spans) == 0 {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text))
	prev := 0
	for _, span := range spans {
		sb.WriteString(text[prev:span.Start])
		sb.WriteString(repl)
		prev = span.End
	}
	sb.WriteString(text[prev:])
	return sb.String()
}

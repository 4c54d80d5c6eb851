// Package parser extracts the human-authored content of a plain-text email
// body: it splits reply chains, strips forwarding headers, bounds the
// salutation and removes the trailing signature. Forwarded sender identity
// and sent timestamps are recovered from embedded headers.
//
// Every function is a pure function of its input; a Parser only carries the
// injected classifier, date finder and logger and is safe for concurrent use.
package parser

import (
	"log/slog"
	"time"

	"github.com/dhcgn/mailbody/classifier"
	"github.com/dhcgn/mailbody/datefinder"
)

// Parser runs the operations that depend on external collaborators.
type Parser struct {
	classifier classifier.Classifier
	dates      datefinder.Finder
	logger     *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithClassifier sets the signature classifier used when no sign-off phrase
// is found. A nil classifier disables the fallback.
func WithClassifier(c classifier.Classifier) Option {
	return func(p *Parser) {
		p.classifier = c
	}
}

// WithDateFinder replaces the default date finder.
func WithDateFinder(f datefinder.Finder) Option {
	return func(p *Parser) {
		if f != nil {
			p.dates = f
		}
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// New returns a Parser. Without options it uses the brute-force classifier
// and the default UTC date finder.
func New(opts ...Option) *Parser {
	p := &Parser{
		classifier: classifier.NewBruteforce(),
		dates:      datefinder.Default{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BodyOptions selects the cleaning steps Body applies.
type BodyOptions struct {
	CheckReplyText  bool
	CheckSalutation bool
	CheckSignature  bool
	Sender          string
	RemovePhrase    bool
}

// DefaultBodyOptions removes the signature only, keeping the sign-off phrase.
func DefaultBodyOptions() BodyOptions {
	return BodyOptions{CheckSignature: true}
}

// Body composes MostRecent, Salutation and RemoveSignature as selected by
// opts, in that order.
func (p *Parser) Body(text string, opts BodyOptions) string {
	body, _ := p.body(text, opts)
	return body
}

func (p *Parser) body(text string, opts BodyOptions) (string, bool) {
	if opts.CheckReplyText {
		text = MostRecent(text)
	}
	if opts.CheckSalutation {
		if sal, ok := Salutation(text); ok {
			text = text[len(sal):]
		}
	}
	var found bool
	if opts.CheckSignature {
		body, ok := p.removeSignature(text, SignatureOptions{RemovePhrase: opts.RemovePhrase, Sender: opts.Sender})
		if body != "" {
			text, found = body, ok
		}
	}
	return text, found
}

// Extraction is everything the parser can recover from one message.
type Extraction struct {
	Body           string
	Salutation     string
	Segments       []string
	Sender         Sender
	SenderFound    bool
	SentAt         time.Time
	SentAtFound    bool
	SignatureFound bool
}

// Extract runs every extractor over text once. The body honours opts; the
// metadata is read from the unmodified text.
func (p *Parser) Extract(text string, opts BodyOptions) Extraction {
	var ex Extraction
	ex.Body, ex.SignatureFound = p.body(text, opts)
	ex.Segments = SplitReplies(text)
	ex.Salutation, _ = Salutation(text)
	ex.Sender, ex.SenderFound = ForwardedSender(text)
	ex.SentAt, ex.SentAtFound = p.SentDate(text)
	return ex
}

func (p *Parser) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

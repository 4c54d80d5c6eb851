package parser

import (
	"strings"

	"github.com/dhcgn/mailbody/patterns"
)

// SignatureOptions controls RemoveSignature.
type SignatureOptions struct {
	// RemovePhrase drops the sign-off line ("Best regards,") along with the
	// signature. Otherwise the sign-off line is kept.
	RemovePhrase bool
	// Sender is the sender's name or address, passed to the classifier.
	Sender string
}

// RemoveSignature returns text without its trailing signature.
//
// The last sign-off phrase after a line break marks the signature; the
// salutation is set aside first so a greeting word never counts. When that
// finds nothing, or would leave nothing of the body, the classifier is asked
// about every line-terminated prefix of text and the first prefix it reports
// a signature for gives the body. The result is never empty for non-empty
// input: when nothing is found text is returned unchanged.
func (p *Parser) RemoveSignature(text string, opts SignatureOptions) string {
	body, _ := p.removeSignature(text, opts)
	return body
}

func (p *Parser) removeSignature(text string, opts SignatureOptions) (string, bool) {
	if body, ok := removeSignOff(text, opts.RemovePhrase); ok {
		p.debug("signature removed by sign-off phrase", "removed", len(text)-len(body))
		return body, true
	}
	if body, ok := p.classify(text, opts.Sender); ok {
		p.debug("signature removed by classifier", "removed", len(text)-len(body))
		return body, true
	}
	return text, false
}

// removeSignOff is the rule-based pass. It reports false when no sign-off
// phrase is found or when cutting there would empty the body.
func removeSignOff(text string, removePhrase bool) (string, bool) {
	salutation, _ := Salutation(text)
	body := text[len(salutation):]

	spans := patterns.Spans(patterns.SignatureOpener, body)
	if len(spans) == 0 {
		return text, false
	}
	// The last sign-off wins.
	last := spans[len(spans)-1]
	if removePhrase {
		body = body[:last.Start]
	} else {
		body = body[:last.End]
	}
	if body == "" {
		return text, false
	}
	return salutation + body, true
}

// classify feeds the classifier one more line at a time and adopts the body
// of the first prefix it finds a signature in.
func (p *Parser) classify(text, sender string) (string, bool) {
	if p.classifier == nil {
		return text, false
	}
	offset := 0
	for {
		i := strings.IndexByte(text[offset:], '\n')
		if i < 0 {
			return text, false
		}
		end := offset + i
		// An empty body would swallow the message; treat it as no signature.
		if body, sig := p.classifier.Extract(text[:end], sender); sig != "" && body != "" {
			return body, true
		}
		offset = end + 1
	}
}

package api

import (
	"net/http"

	"github.com/dhcgn/mailbody/extract"
	"github.com/dhcgn/mailbody/mailtext"
	"github.com/dhcgn/mailbody/model"
	"github.com/dhcgn/mailbody/parser"
)

type bodyRequest struct {
	Text            string `json:"text"`
	Sender          string `json:"sender"`
	CheckReplyText  *bool  `json:"check_reply_text"`
	CheckSalutation *bool  `json:"check_salutation"`
	CheckSignature  *bool  `json:"check_signature"`
	RemovePhrase    *bool  `json:"remove_phrase"`
}

// options starts from the parser defaults and applies the fields present
// in the request.
func (req bodyRequest) options() parser.BodyOptions {
	opts := parser.DefaultBodyOptions()
	opts.Sender = req.Sender
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&opts.CheckReplyText, req.CheckReplyText)
	set(&opts.CheckSalutation, req.CheckSalutation)
	set(&opts.CheckSignature, req.CheckSignature)
	set(&opts.RemovePhrase, req.RemovePhrase)
	return opts
}

type bodyResponse struct {
	Body string `json:"body"`
}

type splitRequest struct {
	Text         string `json:"text"`
	StripHeaders bool   `json:"strip_headers"`
}

type splitResponse struct {
	Segments []string `json:"segments"`
}

type extractRequest struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

func handleBody(p *parser.Parser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bodyRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		body := p.Body(mailtext.Normalize(req.Text), req.options())
		writeJSON(w, http.StatusOK, bodyResponse{Body: body})
	}
}

func handleSplit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req splitRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		text := mailtext.Normalize(req.Text)
		split := parser.SplitReplies
		if req.StripHeaders {
			split = parser.CleanSegments
		}
		segments := split(text)
		writeJSON(w, http.StatusOK, splitResponse{Segments: segments})
	}
}

func handleExtract(e *extract.Extractor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req extractRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		msg := model.Message{
			ID:   model.NewID(),
			Hash: mailtext.Hash([]byte(req.Text)),
			From: req.Sender,
			Text: mailtext.Normalize(req.Text),
		}
		res, _ := e.Result(msg)
		writeJSON(w, http.StatusOK, res)
	}
}

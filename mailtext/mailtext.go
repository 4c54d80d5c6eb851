// Package mailtext turns a raw RFC 5322 message into a model.Message whose
// Text is the plain-text body the parser works on.
package mailtext

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/unicode/norm"

	"github.com/dhcgn/mailbody/model"
)

// maxTextBytes caps the plain-text part read per message.
const maxTextBytes = 1 << 20

// Decode parses raw and picks its first text/plain part. A message without
// a Message-Id gets a generated one so it can still be tracked.
func Decode(raw []byte) (model.Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return model.Message{}, fmt.Errorf("read header: %w", err)
	}
	defer mr.Close()

	msg := model.Message{
		Hash: Hash(raw),
		Size: int64(len(raw)),
		Raw:  raw,
	}

	h := mr.Header
	msg.ID, _ = h.MessageID()
	msg.ID = strings.Trim(strings.TrimSpace(msg.ID), "<>")
	if msg.ID == "" {
		msg.ID = model.NewID()
	}
	if date, err := h.Date(); err == nil {
		msg.ReceivedAt = date
	}
	if subject, err := h.Subject(); err == nil {
		msg.Subject = subject
	}
	msg.From = formatFrom(h)

	text, err := firstPlainText(mr)
	if err != nil {
		return msg, err
	}
	msg.Text = Normalize(text)
	return msg, nil
}

// Normalize converts CRLF line endings to LF and composes text to NFC so
// accented characters compare equal whatever the sending client produced.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return norm.NFC.String(text)
}

// Hash is the identity used to skip messages already extracted.
func Hash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func firstPlainText(mr *mail.Reader) (string, error) {
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			return "", fmt.Errorf("read part: %w", err)
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := h.ContentType()
		if err != nil {
			// A part without Content-Type is text/plain by default.
			contentType = "text/plain"
		}
		if contentType != "text/plain" {
			continue
		}

		body, err := io.ReadAll(io.LimitReader(p.Body, maxTextBytes))
		if err != nil {
			return "", fmt.Errorf("read text part: %w", err)
		}
		return string(body), nil
	}
}

func formatFrom(h mail.Header) string {
	addrs, err := h.AddressList("From")
	if err != nil || len(addrs) == 0 {
		return strings.TrimSpace(h.Get("From"))
	}
	addr := addrs[0]
	if addr.Name == "" {
		return addr.Address
	}
	return addr.Name + " <" + addr.Address + ">"
}

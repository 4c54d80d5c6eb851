package model

import (
	"time"

	"github.com/google/uuid"
)

// Message is one decoded email, read from an mbox archive or an IMAP folder.
type Message struct {
	ID         string
	Hash       string
	ReceivedAt time.Time
	From       string
	Subject    string
	Size       int64
	Raw        []byte
	// Text is the first text/plain part, decoded to UTF-8 and NFC.
	Text string
}

// Envelope wraps a message alongside an optional error encountered while decoding.
type Envelope struct {
	Message Message
	Err     error
}

// Result is what the extractor recovers from one message.
type Result struct {
	MessageID      string     `json:"message_id"`
	Hash           string     `json:"hash"`
	From           string     `json:"from,omitempty"`
	Subject        string     `json:"subject,omitempty"`
	ReceivedAt     *time.Time `json:"received_at,omitempty"`
	Body           string     `json:"body"`
	Salutation     string     `json:"salutation,omitempty"`
	SignatureFound bool       `json:"signature_found"`
	Segments       int        `json:"segments"`
	ForwardedName  string     `json:"forwarded_name,omitempty"`
	ForwardedEmail string     `json:"forwarded_email,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ExtractedAt    time.Time  `json:"extracted_at"`
}

// NewID generates a UUIDv7 (time-ordered) identifier.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

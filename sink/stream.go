package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dhcgn/mailbody/model"
)

// JSONL writes one JSON object per line.
type JSONL struct {
	enc    *json.Encoder
	closer io.Closer
}

// NewJSONL writes to w and closes closer, when not nil, on Close.
func NewJSONL(w io.Writer, closer io.Closer) *JSONL {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONL{enc: enc, closer: closer}
}

func (j *JSONL) Write(_ context.Context, res model.Result) error {
	return j.enc.Encode(res)
}

func (j *JSONL) Close() error {
	if j.closer == nil {
		return nil
	}
	return j.closer.Close()
}

var csvHeader = []string{
	"message_id", "hash", "from", "subject", "received_at", "sent_at",
	"forwarded_name", "forwarded_email", "signature_found", "segments",
	"salutation", "body", "extracted_at",
}

// CSV writes a header row followed by one row per result.
type CSV struct {
	w      *csv.Writer
	closer io.Closer
}

func NewCSV(w io.Writer, closer io.Closer) (*CSV, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return &CSV{w: cw, closer: closer}, nil
}

func (c *CSV) Write(_ context.Context, res model.Result) error {
	return c.w.Write([]string{
		res.MessageID,
		res.Hash,
		res.From,
		res.Subject,
		formatTime(res.ReceivedAt),
		formatTime(res.SentAt),
		res.ForwardedName,
		res.ForwardedEmail,
		strconv.FormatBool(res.SignatureFound),
		strconv.Itoa(res.Segments),
		res.Salutation,
		res.Body,
		res.ExtractedAt.Format(time.RFC3339),
	})
}

func (c *CSV) Close() error {
	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

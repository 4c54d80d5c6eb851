package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/dhcgn/mailbody/classifier"
	"github.com/dhcgn/mailbody/config"
	"github.com/dhcgn/mailbody/model"
	"github.com/dhcgn/mailbody/parser"
	"github.com/dhcgn/mailbody/runner"
	"github.com/dhcgn/mailbody/state"
)

const forwarded = "Hi Ana,\n\nSee below.\n\nThanks,\nLeo\n\n" +
	"-----Original Message-----\nFrom: Jane Roe <jane@corp.example>\nSent: March 3, 2021 10:00 AM\nTo: Leo\n\nOriginal text"

func TestExtractor_Result(t *testing.T) {
	e := New(parser.New(parser.WithClassifier(nil)), parser.BodyOptions{
		CheckReplyText:  true,
		CheckSalutation: true,
		CheckSignature:  true,
		RemovePhrase:    true,
	})
	fixed := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	received := time.Date(2021, time.March, 3, 11, 0, 0, 0, time.UTC)
	res, ex := e.Result(model.Message{
		ID:         "m1@x",
		Hash:       "h1",
		From:       "Leo <leo@x>",
		Subject:    "FW: report",
		ReceivedAt: received,
		Text:       forwarded,
	})

	if res.Body != "See below." {
		t.Errorf("Body = %q", res.Body)
	}
	if !res.SignatureFound || !ex.SignatureFound {
		t.Error("SignatureFound = false")
	}
	if res.Segments != 2 {
		t.Errorf("Segments = %d, want 2", res.Segments)
	}
	if res.ForwardedName != "Jane Roe" || res.ForwardedEmail != "jane@corp.example" {
		t.Errorf("forwarded sender = %q <%q>", res.ForwardedName, res.ForwardedEmail)
	}
	wantSent := time.Date(2021, time.March, 3, 10, 0, 0, 0, time.UTC)
	if res.SentAt == nil || !res.SentAt.Equal(wantSent) {
		t.Errorf("SentAt = %v, want %v", res.SentAt, wantSent)
	}
	if res.ReceivedAt == nil || !res.ReceivedAt.Equal(received) {
		t.Errorf("ReceivedAt = %v", res.ReceivedAt)
	}
	if res.MessageID != "m1@x" || res.Hash != "h1" || res.Subject != "FW: report" || !res.ExtractedAt.Equal(fixed) {
		t.Errorf("message fields not copied: %+v", res)
	}
}

func TestExtractor_SenderDefaultsToFrom(t *testing.T) {
	var senders []string
	c := classifier.Func(func(text, sender string) (string, string) {
		senders = append(senders, sender)
		return text, ""
	})

	e := New(parser.New(parser.WithClassifier(c)), parser.DefaultBodyOptions())
	e.Result(model.Message{ID: "x", From: "Ann <ann@x>", Text: "one\ntwo"})
	if len(senders) == 0 || senders[0] != "Ann <ann@x>" {
		t.Errorf("classifier senders = %q, want From", senders)
	}

	senders = nil
	e = New(parser.New(parser.WithClassifier(c)), parser.BodyOptions{CheckSignature: true, Sender: "override"})
	e.Result(model.Message{ID: "x", From: "Ann <ann@x>", Text: "one\ntwo"})
	if len(senders) == 0 || senders[0] != "override" {
		t.Errorf("classifier senders = %q, want override", senders)
	}
}

func TestStage(t *testing.T) {
	const n = 25
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := runner.NewWithTracker(config.Config{}, state.NewMemoryTracker(), logger)

	r.AddStage("source", func(ctx context.Context) error {
		defer r.CloseSource()
		for i := 0; i < n; i++ {
			msg := model.Message{ID: fmt.Sprintf("%02d@x", i), Hash: fmt.Sprint(i), Text: "Body\n\nCheers,\nMe"}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case r.SourceWriter() <- model.Envelope{Message: msg}:
			}
		}
		return nil
	})

	NewStage(New(nil, parser.BodyOptions{CheckSignature: true, RemovePhrase: true}), 4, r, logger)

	var ids []string
	r.AddStage("sink", func(ctx context.Context) error {
		for res := range r.Results() {
			if res.Body != "Body" {
				return fmt.Errorf("message %s: body %q", res.MessageID, res.Body)
			}
			ids = append(ids, res.MessageID)
		}
		return nil
	})

	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(ids) != n {
		t.Fatalf("got %d results, want %d", len(ids), n)
	}
	sort.Strings(ids)
	for i, id := range ids {
		if want := fmt.Sprintf("%02d@x", i); id != want {
			t.Errorf("ids[%d] = %q, want %q", i, id, want)
		}
	}
}

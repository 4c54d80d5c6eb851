package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/dhcgn/mailbody/stats"
)

func TestBarCountsWithoutDrawing(t *testing.T) {
	bar := New(10, 2, false)
	if bar.pb != nil {
		t.Fatal("disabled bar should not draw")
	}

	events := make(chan stats.Event, 8)
	for _, typ := range []stats.EventType{
		stats.EventTypeScanned,
		stats.EventTypeScanned,
		stats.EventTypeExtracted,
		stats.EventTypeDuplicate,
		stats.EventTypeError,
	} {
		events <- stats.Event{Type: typ, Err: errors.New("x")}
	}
	close(events)

	if err := bar.Subscriber(context.Background(), events); err != nil {
		t.Fatalf("Subscriber() error = %v", err)
	}
	scanned, extracted := bar.Counts()
	if scanned != 2 || extracted != 1 {
		t.Errorf("Counts() = (%d, %d), want (2, 1)", scanned, extracted)
	}
}

func TestBarNeedsTotal(t *testing.T) {
	if bar := New(0, 0, true); bar.enabled {
		t.Error("bar without a total should stay disabled")
	}
}

type recordingStream struct {
	names []string
}

func (s *recordingStream) SubscribeStats(name string, _ func(context.Context, <-chan stats.Event) error) {
	s.names = append(s.names, name)
}

func TestReporterSubscribesOnlyWhenDrawing(t *testing.T) {
	stream := &recordingStream{}
	r := NewReporter(stream, New(5, 0, false), nil)
	if r.Enabled() || len(stream.names) != 0 {
		t.Errorf("disabled reporter subscribed %v", stream.names)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 40); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("abcdefghij", 8); got != "abcde..." {
		t.Errorf("truncate() = %q", got)
	}
}

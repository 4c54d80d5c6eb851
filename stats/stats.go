package stats

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type Stage string

const (
	StageSource  Stage = "source"
	StageExtract Stage = "extract"
	StageSink    Stage = "sink"
)

type EventType string

const (
	EventTypeScanned   EventType = "scanned"
	EventTypeDuplicate EventType = "duplicate"
	EventTypeEnqueued  EventType = "enqueued"
	EventTypeExtracted EventType = "extracted"
	EventTypeSignature EventType = "signature_found"
	EventTypeForwarded EventType = "forwarded_sender_found"
	EventTypeWritten   EventType = "written"
	EventTypeDryRun    EventType = "dry_run_skipped"
	EventTypeError     EventType = "error"
)

type Event struct {
	Stage     Stage
	Type      EventType
	MessageID string
	Err       error
	Detail    string
}

type Summary struct {
	Scanned    int
	Duplicates int
	Enqueued   int
	Extracted  int
	Signatures int
	Forwarded  int
	Written    int
	DryRun     int
	Errors     int
	LastError  error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"scanned", s.Scanned,
		"duplicates", s.Duplicates,
		"enqueued", s.Enqueued,
		"extracted", s.Extracted,
		"signatures", s.Signatures,
		"forwarded", s.Forwarded,
		"written", s.Written,
		"dryRun", s.DryRun,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

// Run consumes events until the channel closes or ctx is done.
func (c *Collector) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			c.Apply(evt)
		}
	}
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

func (c *Collector) Apply(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Type {
	case EventTypeScanned:
		c.summary.Scanned++
	case EventTypeDuplicate:
		c.summary.Duplicates++
	case EventTypeEnqueued:
		c.summary.Enqueued++
	case EventTypeExtracted:
		c.summary.Extracted++
	case EventTypeSignature:
		c.summary.Signatures++
	case EventTypeForwarded:
		c.summary.Forwarded++
	case EventTypeWritten:
		c.summary.Written++
	case EventTypeDryRun:
		c.summary.DryRun++
	case EventTypeError:
		c.summary.Errors++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	}
}

type EventStream interface {
	SubscribeStats(name string, fn func(context.Context, <-chan Event) error)
}

// Reporter logs a summary line once the event stream closes.
type Reporter struct {
	collector *Collector
	logger    *slog.Logger
	started   time.Time
}

func NewReporter(stream EventStream, logger *slog.Logger) *Reporter {
	reporter := &Reporter{
		collector: NewCollector(),
		logger:    logger,
		started:   time.Now(),
	}
	stream.SubscribeStats("stats-reporter", reporter.consume)
	return reporter
}

func (r *Reporter) consume(ctx context.Context, events <-chan Event) error {
	r.collector.Run(ctx, events)
	attrs := append(r.collector.Snapshot().LogAttrs(), "duration", time.Since(r.started))
	if ctx.Err() != nil {
		if r.logger != nil {
			r.logger.Debug("stats collection stopped", append(attrs, "err", ctx.Err())...)
		}
		return ctx.Err()
	}
	if r.logger != nil {
		r.logger.Info("stats summary", attrs...)
	}
	return nil
}

func (r *Reporter) Summary() Summary {
	return r.collector.Snapshot()
}

// Count is one tallied value.
type Count struct {
	Value string
	Count int
}

// Top returns up to limit entries of m, most frequent first. Ties are
// ordered by value so output is stable.
func Top(m map[string]int, limit int) []Count {
	counts := make([]Count, 0, len(m))
	for k, v := range m {
		counts = append(counts, Count{Value: k, Count: v})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Value < counts[j].Value
	})
	if limit >= 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

// PrintTop writes the top N most frequent items in m as a numbered list.
func PrintTop(w io.Writer, m map[string]int, limit int) {
	for i, c := range Top(m, limit) {
		fmt.Fprintf(w, "%d. %s (%d)\n", i+1, c.Value, c.Count)
	}
}

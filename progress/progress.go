// Package progress renders a pterm progress bar and summary for a run.
package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/dhcgn/mailbody/stats"
)

// Bar tracks scanned messages against a known total.
type Bar struct {
	pb          *pterm.ProgressbarPrinter
	total       int
	alreadyDone int
	scanned     int
	extracted   int
	mu          sync.Mutex
	enabled     bool
}

// New creates a bar. With enabled false, or no known total, the bar only
// counts and draws nothing.
func New(total int, alreadyDone int, enabled bool) *Bar {
	bar := &Bar{
		total:       total,
		alreadyDone: alreadyDone,
		enabled:     enabled && total > 0,
	}

	if bar.enabled {
		pb, _ := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Extracting bodies").
			Start()
		bar.pb = pb

		pterm.Info.Printf("Total messages: %d\n", total)
		pterm.Info.Printf("Already extracted: %d\n", alreadyDone)
		pterm.Println()
	}

	return bar
}

func (b *Bar) Update(evt stats.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch evt.Type {
	case stats.EventTypeScanned:
		b.scanned++
		if b.pb == nil {
			return
		}
		b.pb.Increment()
		if evt.MessageID != "" {
			b.pb.UpdateTitle("Extracting: " + truncate(evt.MessageID, 40))
		}
	case stats.EventTypeExtracted:
		b.extracted++
	case stats.EventTypeError:
		if b.pb != nil && evt.Err != nil {
			pterm.Error.Printf("Error: %v\n", evt.Err)
		}
	}
}

// Counts returns the scanned and extracted tallies seen so far.
func (b *Bar) Counts() (scanned, extracted int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scanned, b.extracted
}

func (b *Bar) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pb == nil {
		return
	}

	if b.pb.Current < b.total {
		b.pb.Current = b.total
	}
	b.pb.Stop()
	b.pb = nil
	pterm.Success.Println("Extraction complete!")
}

func (b *Bar) Subscriber(ctx context.Context, events <-chan stats.Event) error {
	defer b.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			b.Update(evt)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// Reporter prints a pterm summary once the run ends.
type Reporter struct {
	bar       *Bar
	collector *stats.Collector
	logger    *slog.Logger
	started   time.Time
}

// NewReporter subscribes the bar and a summary collector to stream when
// the bar is drawing. Otherwise it does nothing and the plain stats
// reporter is expected to log the summary.
func NewReporter(stream stats.EventStream, bar *Bar, logger *slog.Logger) *Reporter {
	reporter := &Reporter{
		bar:       bar,
		collector: stats.NewCollector(),
		logger:    logger,
		started:   time.Now(),
	}

	if bar != nil && bar.enabled {
		stream.SubscribeStats("progress-bar", bar.Subscriber)
		stream.SubscribeStats("progress-stats", reporter.collectStats)
	}

	return reporter
}

func (r *Reporter) Enabled() bool {
	return r.bar != nil && r.bar.enabled
}

func (r *Reporter) collectStats(ctx context.Context, events <-chan stats.Event) error {
	r.collector.Run(ctx, events)

	summary := r.collector.Snapshot()
	if r.logger != nil {
		r.logger.Debug("progress summary", summary.LogAttrs()...)
	}

	pterm.Println()
	pterm.DefaultSection.Println("Summary")
	pterm.Info.Printf("Duration: %v\n", time.Since(r.started).Round(time.Millisecond))
	pterm.Info.Printf("Scanned: %d\n", summary.Scanned)
	pterm.Info.Printf("Duplicates (skipped): %d\n", summary.Duplicates)
	pterm.Info.Printf("Extracted: %d\n", summary.Extracted)
	pterm.Info.Printf("Signatures found: %d\n", summary.Signatures)
	pterm.Info.Printf("Forwarded senders found: %d\n", summary.Forwarded)
	pterm.Info.Printf("Written: %d\n", summary.Written)
	if summary.DryRun > 0 {
		pterm.Info.Printf("Dry-run skipped: %d\n", summary.DryRun)
	}
	pterm.Info.Printf("Errors: %d\n", summary.Errors)
	if summary.LastError != nil {
		pterm.Error.Printf("Last error: %v\n", summary.LastError)
	}
	return nil
}

// Package runner wires the extraction pipeline: a source stage feeds
// envelopes, the bridge drops messages already extracted, extract workers
// turn messages into results and a sink stage stores them. Every stage runs
// in its own goroutine and the first failure cancels the rest.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dhcgn/mailbody/config"
	"github.com/dhcgn/mailbody/model"
	"github.com/dhcgn/mailbody/state"
	"github.com/dhcgn/mailbody/stats"
)

type StageFunc func(context.Context) error

type Runner struct {
	cfg    config.Config
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	envelopes chan model.Envelope
	pending   chan model.Message
	results   chan model.Result
	events    chan stats.Event

	subsMu      sync.Mutex
	subscribers []chan stats.Event

	tracker state.Tracker

	workWG  sync.WaitGroup
	statsWG sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSourceOnce  sync.Once
	closePendingOnce sync.Once
	closeResultsOnce sync.Once
	closeEventsOnce  sync.Once
}

// New builds a runner backed by the file tracker in cfg.StateDir. In dry-run
// mode the tracker is read but never written.
func New(cfg config.Config, logger *slog.Logger) (*Runner, error) {
	tracker, err := state.NewFileTracker(cfg.StateDir, !cfg.DryRun)
	if err != nil {
		return nil, fmt.Errorf("state tracker: %w", err)
	}
	return NewWithTracker(cfg, tracker, logger), nil
}

// NewWithTracker builds a runner around an existing tracker.
func NewWithTracker(cfg config.Config, tracker state.Tracker, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		cfg:       cfg,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		envelopes: make(chan model.Envelope, 32),
		pending:   make(chan model.Message, 32),
		results:   make(chan model.Result, 32),
		events:    make(chan stats.Event, 128),
		tracker:   tracker,
	}
	r.AddStage("bridge", r.bridge)
	return r
}

func (r *Runner) Config() config.Config {
	return r.cfg
}

func (r *Runner) Logger() *slog.Logger {
	return r.logger
}

func (r *Runner) Context() context.Context {
	return r.ctx
}

func (r *Runner) Tracker() state.Tracker {
	return r.tracker
}

// SourceWriter is where the source stage sends decoded messages.
func (r *Runner) SourceWriter() chan<- model.Envelope {
	return r.envelopes
}

func (r *Runner) CloseSource() {
	r.closeSourceOnce.Do(func() {
		close(r.envelopes)
	})
}

// Pending yields new messages awaiting extraction.
func (r *Runner) Pending() <-chan model.Message {
	return r.pending
}

func (r *Runner) ResultWriter() chan<- model.Result {
	return r.results
}

func (r *Runner) CloseResults() {
	r.closeResultsOnce.Do(func() {
		close(r.results)
	})
}

func (r *Runner) Results() <-chan model.Result {
	return r.results
}

func (r *Runner) EmitEvent(evt stats.Event) {
	select {
	case <-r.ctx.Done():
	case r.events <- evt:
	}
}

// SubscribeStats registers fn to receive every event. Subscribe before
// calling Start.
func (r *Runner) SubscribeStats(name string, fn func(context.Context, <-chan stats.Event) error) {
	ch := make(chan stats.Event, 128)
	r.subsMu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.subsMu.Unlock()

	r.statsWG.Add(1)
	go func() {
		defer r.statsWG.Done()
		if err := fn(r.ctx, ch); err != nil && !errors.Is(err, context.Canceled) {
			r.fail(fmt.Errorf("%s stats: %w", name, err))
		}
	}()
}

func (r *Runner) AddStage(name string, fn StageFunc) {
	r.workWG.Add(1)
	go func() {
		defer r.workWG.Done()
		if err := fn(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.fail(fmt.Errorf("%s stage: %w", name, err))
		}
	}()
}

// Fail records err as the run's failure and cancels every stage.
func (r *Runner) Fail(err error) {
	r.fail(err)
}

// Start blocks until every stage and subscriber has finished.
func (r *Runner) Start() error {
	started := time.Now()

	dispatched := make(chan struct{})
	go r.dispatch(dispatched)

	r.workWG.Wait()
	r.closeEvents()
	<-dispatched
	r.statsWG.Wait()

	if err := r.tracker.Close(); err != nil {
		r.fail(fmt.Errorf("close state: %w", err))
	}
	r.cancel()

	r.errMu.Lock()
	err := r.err
	r.errMu.Unlock()

	duration := time.Since(started)
	if err != nil {
		r.logger.Error("pipeline failed", "duration", duration, "err", err)
		return err
	}
	r.logger.Info("pipeline completed", "duration", duration, "extracted", r.tracker.Snapshot().Extracted)
	return nil
}

// dispatch copies every event to each subscriber.
func (r *Runner) dispatch(done chan<- struct{}) {
	defer close(done)

	r.subsMu.Lock()
	subs := append([]chan stats.Event(nil), r.subscribers...)
	r.subsMu.Unlock()
	defer func() {
		for _, ch := range subs {
			close(ch)
		}
	}()

	for evt := range r.events {
		for _, ch := range subs {
			select {
			case ch <- evt:
			case <-r.ctx.Done():
			}
		}
	}
}

func (r *Runner) bridge(ctx context.Context) error {
	defer r.closePending()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case envelope, ok := <-r.envelopes:
			if !ok {
				return nil
			}

			if envelope.Err != nil {
				r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeError, Err: envelope.Err})
				r.logger.Warn("skipping undecodable message", "err", envelope.Err)
				continue
			}

			msg := envelope.Message
			r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeScanned, MessageID: msg.ID})

			if r.tracker.Seen(msg.Hash) {
				r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeDuplicate, MessageID: msg.ID})
				continue
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case r.pending <- msg:
				r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeEnqueued, MessageID: msg.ID})
			}
		}
	}
}

func (r *Runner) closePending() {
	r.closePendingOnce.Do(func() {
		close(r.pending)
	})
}

func (r *Runner) closeEvents() {
	r.closeEventsOnce.Do(func() {
		close(r.events)
	})
}

func (r *Runner) fail(err error) {
	if err == nil {
		return
	}
	r.errMu.Lock()
	if r.err == nil {
		r.err = err
		r.cancel()
	}
	r.errMu.Unlock()
}

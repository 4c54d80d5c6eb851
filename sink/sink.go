// Package sink stores extraction results as JSON lines, CSV, a SQLite
// table or a Redis list.
package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dhcgn/mailbody/config"
	"github.com/dhcgn/mailbody/model"
	"github.com/dhcgn/mailbody/runner"
	"github.com/dhcgn/mailbody/stats"
)

// Writer stores results. Implementations need not be safe for concurrent
// use; the sink stage writes from a single goroutine.
type Writer interface {
	Write(ctx context.Context, res model.Result) error
	Close() error
}

// Options selects and configures a Writer.
type Options struct {
	Format        string
	Output        string
	RedisAddr     string
	RedisKey      string
	RedisPassword string
	// Stdout receives jsonl and csv output when Output is "-" or empty.
	Stdout io.Writer
}

// OptionsFromConfig picks the sink settings out of cfg.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Format:        cfg.Format,
		Output:        cfg.Output,
		RedisAddr:     cfg.RedisAddr,
		RedisKey:      cfg.RedisKey,
		RedisPassword: cfg.RedisPassword,
	}
}

// Open creates the writer for opts.Format.
func Open(ctx context.Context, opts Options) (Writer, error) {
	switch opts.Format {
	case config.FormatJSONL, "":
		w, closer, err := openStream(opts)
		if err != nil {
			return nil, err
		}
		return NewJSONL(w, closer), nil
	case config.FormatCSV:
		w, closer, err := openStream(opts)
		if err != nil {
			return nil, err
		}
		return NewCSV(w, closer)
	case config.FormatSQLite:
		return OpenSQLite(ctx, opts.Output)
	case config.FormatRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisKey)
	default:
		return nil, fmt.Errorf("unknown sink format %q", opts.Format)
	}
}

func openStream(opts Options) (io.Writer, io.Closer, error) {
	if opts.Output == "" || opts.Output == "-" {
		if opts.Stdout != nil {
			return opts.Stdout, nil, nil
		}
		return os.Stdout, nil, nil
	}
	file, err := os.Create(opts.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return file, file, nil
}

// Stage writes every result the runner produces and records it as
// extracted. In dry-run mode results are counted and dropped.
type Stage struct {
	writer Writer
	dryRun bool
	runner *runner.Runner
	logger *slog.Logger
}

func NewStage(w Writer, r *runner.Runner, logger *slog.Logger) *Stage {
	s := &Stage{writer: w, dryRun: r.Config().DryRun, runner: r, logger: logger}
	r.AddStage("sink", s.run)
	return s
}

func (s *Stage) run(ctx context.Context) (err error) {
	defer func() {
		if cerr := s.writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close sink: %w", cerr)
		}
	}()

	results := s.runner.Results()
	tracker := s.runner.Tracker()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-results:
			if !ok {
				return nil
			}

			if s.dryRun {
				s.runner.EmitEvent(stats.Event{Stage: stats.StageSink, Type: stats.EventTypeDryRun, MessageID: res.MessageID})
				continue
			}

			if err := s.writer.Write(ctx, res); err != nil {
				err = fmt.Errorf("write result %s: %w", res.MessageID, err)
				s.runner.EmitEvent(stats.Event{Stage: stats.StageSink, Type: stats.EventTypeError, MessageID: res.MessageID, Err: err})
				return err
			}
			if err := tracker.Record(res.Hash, res.MessageID); err != nil {
				s.runner.EmitEvent(stats.Event{Stage: stats.StageSink, Type: stats.EventTypeError, MessageID: res.MessageID, Err: err})
				return err
			}

			s.runner.EmitEvent(stats.Event{Stage: stats.StageSink, Type: stats.EventTypeWritten, MessageID: res.MessageID})
			if s.logger != nil {
				s.logger.Debug("result written", "messageID", res.MessageID, "hash", res.Hash)
			}
		}
	}
}

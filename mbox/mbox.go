// Package mbox reads messages from an mbox file and feeds them to the
// extraction pipeline.
package mbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	mboxlib "github.com/emersion/go-mbox"

	"github.com/dhcgn/mailbody/filter"
	"github.com/dhcgn/mailbody/mailtext"
	"github.com/dhcgn/mailbody/model"
	"github.com/dhcgn/mailbody/runner"
)

type Options struct {
	Path string
	// Filter drops messages before decoding. Nil lets everything through.
	Filter *filter.Filter
}

type Reader interface {
	Stream(ctx context.Context, out chan<- model.Envelope) error
}

func NewReader(opts Options, logger *slog.Logger) (Reader, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, fmt.Errorf("mbox path is empty")
	}
	return &fileReader{path: path, filter: opts.Filter, logger: logger}, nil
}

type fileReader struct {
	path   string
	filter *filter.Filter
	logger *slog.Logger
}

func (f *fileReader) Stream(ctx context.Context, out chan<- model.Envelope) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()
	return f.stream(ctx, file, out)
}

func (f *fileReader) stream(ctx context.Context, src io.Reader, out chan<- model.Envelope) error {
	reader := mboxlib.NewReader(src)
	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			// The mbox framing is broken; nothing after this point can be trusted.
			return f.emitError(ctx, out, fmt.Errorf("message %d: %w", idx, err))
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			return f.emitError(ctx, out, fmt.Errorf("message %d read: %w", idx, err))
		}

		if f.filter != nil && !f.filter.AllowsRaw(raw) {
			continue
		}

		msg, err := mailtext.Decode(raw)
		if err != nil {
			if err := f.emitError(ctx, out, fmt.Errorf("message %d decode: %w", idx, err)); err != nil {
				return err
			}
			continue
		}

		if err := emitEnvelope(ctx, out, model.Envelope{Message: msg}); err != nil {
			return err
		}
	}
}

func (f *fileReader) emitError(ctx context.Context, out chan<- model.Envelope, err error) error {
	if f.logger != nil {
		f.logger.Error("mbox stream error", "path", f.path, "err", err)
	}
	return emitEnvelope(ctx, out, model.Envelope{Err: err})
}

func emitEnvelope(ctx context.Context, out chan<- model.Envelope, env model.Envelope) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- env:
		return nil
	}
}

// Producer is the pipeline's mbox source stage.
type Producer struct {
	reader Reader
	runner *runner.Runner
}

func NewProducer(opts Options, r *runner.Runner, logger *slog.Logger) (*Producer, error) {
	reader, err := NewReader(opts, logger)
	if err != nil {
		return nil, err
	}
	producer := &Producer{reader: reader, runner: r}
	r.AddStage("mbox", producer.run)
	return producer, nil
}

func (p *Producer) run(ctx context.Context) error {
	defer p.runner.CloseSource()
	return p.reader.Stream(ctx, p.runner.SourceWriter())
}

// Read decodes every message in the mbox at path and passes it to
// callback. Messages that fail to decode are skipped.
func Read(path string, callback func(msg model.Message) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()
	return readFrom(file, callback)
}

func readFrom(src io.Reader, callback func(msg model.Message) error) error {
	reader := mboxlib.NewReader(src)
	for {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			continue
		}
		msg, err := mailtext.Decode(raw)
		if err != nil {
			continue
		}

		if err := callback(msg); err != nil {
			return err
		}
	}
}

// CountMessages counts the messages in an mbox file without decoding them.
func CountMessages(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()
	return countFrom(file)
}

func countFrom(src io.Reader) (int, error) {
	reader := mboxlib.NewReader(src)
	count := 0
	for {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return 0, err
		}
		// A short read still counts as a message.
		_, _ = io.Copy(io.Discard, msgReader)
		count++
	}
}

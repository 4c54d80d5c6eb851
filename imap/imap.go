// Package imap reads a mailbox folder over IMAP and feeds its messages to
// the extraction pipeline.
package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/dhcgn/mailbody/filter"
	"github.com/dhcgn/mailbody/mailtext"
	"github.com/dhcgn/mailbody/model"
	"github.com/dhcgn/mailbody/runner"
)

// fetchBatch is the number of messages requested per FETCH command.
const fetchBatch = 100

type Options struct {
	Host               string
	Port               int
	Username           string
	Password           string
	UseTLS             bool
	InsecureSkipVerify bool
	Folder             string
	Filter             *filter.Filter
}

func (o Options) validate() error {
	if o.Host == "" {
		return fmt.Errorf("imap host is empty")
	}
	if o.Port <= 0 {
		return fmt.Errorf("imap port must be positive")
	}
	if o.Username == "" {
		return fmt.Errorf("imap user is empty")
	}
	return nil
}

func (o Options) folder() string {
	if o.Folder == "" {
		return "INBOX"
	}
	return o.Folder
}

// Source is the pipeline's IMAP source stage. The folder is opened
// read-only and bodies are fetched with PEEK so flags stay untouched.
type Source struct {
	opts   Options
	runner *runner.Runner
	logger *slog.Logger
}

func NewSource(opts Options, r *runner.Runner, logger *slog.Logger) (*Source, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	source := &Source{opts: opts, runner: r, logger: logger}
	r.AddStage("imap", source.run)
	return source, nil
}

func (s *Source) run(ctx context.Context) error {
	defer s.runner.CloseSource()

	client, cleanup, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	folder := s.opts.folder()
	selected, err := client.Select(folder, &imapv2.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return fmt.Errorf("select %s: %w", folder, err)
	}
	if s.logger != nil {
		s.logger.Info("imap folder selected", "folder", folder, "messages", selected.NumMessages)
	}

	out := s.runner.SourceWriter()
	for _, batch := range batches(selected.NumMessages, fetchBatch) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.fetch(ctx, client, batch, out); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) fetch(ctx context.Context, client *imapclient.Client, seqSet imapv2.SeqSet, out chan<- model.Envelope) error {
	section := &imapv2.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(seqSet, &imapv2.FetchOptions{
		UID:          true,
		InternalDate: true,
		BodySection:  []*imapv2.FetchItemBodySection{section},
	})

	err := s.drain(ctx, fetchCmd, section, out)
	if closeErr := fetchCmd.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("fetch: %w", closeErr)
	}
	return err
}

func (s *Source) drain(ctx context.Context, fetchCmd *imapclient.FetchCommand, section *imapv2.FetchItemBodySection, out chan<- model.Envelope) error {
	for {
		data := fetchCmd.Next()
		if data == nil {
			break
		}
		buf, err := data.Collect()
		if err != nil {
			return fmt.Errorf("collect message %d: %w", data.SeqNum, err)
		}

		raw := buf.FindBodySection(section)
		if raw == nil {
			err := fmt.Errorf("message uid %d: empty body section", buf.UID)
			if err := s.emit(ctx, out, model.Envelope{Err: err}); err != nil {
				return err
			}
			continue
		}
		if s.opts.Filter != nil && !s.opts.Filter.AllowsRaw(raw) {
			continue
		}

		msg, err := mailtext.Decode(raw)
		if err != nil {
			err = fmt.Errorf("message uid %d decode: %w", buf.UID, err)
			if err := s.emit(ctx, out, model.Envelope{Err: err}); err != nil {
				return err
			}
			continue
		}
		if msg.ReceivedAt.IsZero() {
			msg.ReceivedAt = buf.InternalDate
		}

		if err := s.emit(ctx, out, model.Envelope{Message: msg}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) emit(ctx context.Context, out chan<- model.Envelope, env model.Envelope) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- env:
		return nil
	}
}

func (s *Source) dial(ctx context.Context) (*imapclient.Client, func(), error) {
	address := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	options := &imapclient.Options{}

	var (
		client *imapclient.Client
		err    error
	)
	if s.opts.UseTLS {
		options.TLSConfig = &tls.Config{
			ServerName:         s.opts.Host,
			InsecureSkipVerify: s.opts.InsecureSkipVerify,
		}
		client, err = imapclient.DialTLS(address, options)
	} else {
		client, err = imapclient.DialInsecure(address, options)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("dial imap %s: %w", address, err)
	}

	if err := client.Login(s.opts.Username, s.opts.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("imap login failed: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("imap connection established", "address", address, "user", s.opts.Username, "tls", s.opts.UseTLS)
	}

	stopClose := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})

	cleanup := func() {
		stopClose()
		if ctx.Err() == nil {
			if err := client.Logout().Wait(); err != nil && s.logger != nil {
				s.logger.Warn("imap logout failed", "err", err)
			}
		}
		if err := client.Close(); err != nil && s.logger != nil {
			s.logger.Debug("imap connection closed", "err", err)
		}
	}

	return client, cleanup, nil
}

// batches splits sequence numbers 1..total into ranges of at most size.
func batches(total uint32, size uint32) []imapv2.SeqSet {
	if total == 0 || size == 0 {
		return nil
	}
	var sets []imapv2.SeqSet
	for start := uint32(1); start <= total; start += size {
		stop := start + size - 1
		if stop > total {
			stop = total
		}
		var set imapv2.SeqSet
		set.AddRange(start, stop)
		sets = append(sets, set)
	}
	return sets
}

// Package extract runs the parser over pipeline messages with a bounded
// pool of workers.
package extract

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dhcgn/mailbody/model"
	"github.com/dhcgn/mailbody/parser"
	"github.com/dhcgn/mailbody/runner"
	"github.com/dhcgn/mailbody/stats"
)

// Extractor turns a message into a result.
type Extractor struct {
	parser *parser.Parser
	opts   parser.BodyOptions
	now    func() time.Time
}

func New(p *parser.Parser, opts parser.BodyOptions) *Extractor {
	if p == nil {
		p = parser.New()
	}
	return &Extractor{parser: p, opts: opts, now: time.Now}
}

// Result extracts msg. Without a configured sender the message's own From
// is handed to the classifier.
func (e *Extractor) Result(msg model.Message) (model.Result, parser.Extraction) {
	opts := e.opts
	if opts.Sender == "" {
		opts.Sender = msg.From
	}
	ex := e.parser.Extract(msg.Text, opts)

	res := model.Result{
		MessageID:      msg.ID,
		Hash:           msg.Hash,
		From:           msg.From,
		Subject:        msg.Subject,
		Body:           ex.Body,
		Salutation:     ex.Salutation,
		SignatureFound: ex.SignatureFound,
		Segments:       len(ex.Segments),
		ExtractedAt:    e.now().UTC(),
	}
	if !msg.ReceivedAt.IsZero() {
		t := msg.ReceivedAt
		res.ReceivedAt = &t
	}
	if ex.SenderFound {
		res.ForwardedName = ex.Sender.Name
		res.ForwardedEmail = ex.Sender.Email
	}
	if ex.SentAtFound {
		t := ex.SentAt
		res.SentAt = &t
	}
	return res, ex
}

// Stage consumes the runner's pending messages.
type Stage struct {
	extractor *Extractor
	workers   int
	runner    *runner.Runner
	logger    *slog.Logger
}

func NewStage(e *Extractor, workers int, r *runner.Runner, logger *slog.Logger) *Stage {
	if workers < 1 {
		workers = 1
	}
	s := &Stage{extractor: e, workers: workers, runner: r, logger: logger}
	r.AddStage("extract", s.run)
	return s
}

func (s *Stage) run(ctx context.Context) error {
	defer s.runner.CloseResults()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	pending := s.runner.Pending()
loop:
	for {
		select {
		case <-gctx.Done():
			break loop
		case msg, ok := <-pending:
			if !ok {
				break loop
			}
			g.Go(func() error {
				return s.handle(gctx, msg)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Stage) handle(ctx context.Context, msg model.Message) error {
	res, ex := s.extractor.Result(msg)

	s.runner.EmitEvent(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeExtracted, MessageID: msg.ID})
	if ex.SignatureFound {
		s.runner.EmitEvent(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeSignature, MessageID: msg.ID})
	}
	if ex.SenderFound {
		s.runner.EmitEvent(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeForwarded, MessageID: msg.ID})
	}
	if s.logger != nil {
		s.logger.Debug("message extracted", "messageID", msg.ID, "bodyLen", len(res.Body), "segments", res.Segments, "signature", res.SignatureFound)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.runner.ResultWriter() <- res:
		return nil
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhcgn/mailbody/cmd"
	"github.com/dhcgn/mailbody/config"
	"github.com/dhcgn/mailbody/extract"
	"github.com/dhcgn/mailbody/filter"
	"github.com/dhcgn/mailbody/imap"
	"github.com/dhcgn/mailbody/mbox"
	"github.com/dhcgn/mailbody/parser"
	"github.com/dhcgn/mailbody/progress"
	"github.com/dhcgn/mailbody/runner"
	"github.com/dhcgn/mailbody/sink"
	"github.com/dhcgn/mailbody/stats"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mailbody",
		Short: "Extract the new text of email messages from mbox archives or IMAP folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd)
			if err != nil {
				return err
			}

			logger, cleanup, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			slog.SetDefault(logger)
			logger.Info("starting mailbody", "mbox", cfg.MboxPath, "imap", cfg.IMAPHost, "format", cfg.Format, "output", cfg.Output, "dryRun", cfg.DryRun)

			return run(cmd.Context(), cfg, logger)
		},
	}

	config.RegisterPersistentFlags(rootCmd)
	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}
	cmd.Register(rootCmd, setupLogger)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	f, err := filter.New(filter.Options{
		IncludeHeader: cfg.IncludeHeader,
		IncludeBody:   cfg.IncludeBody,
		ExcludeHeader: cfg.ExcludeHeader,
		ExcludeBody:   cfg.ExcludeBody,
	})
	if err != nil {
		return fmt.Errorf("filter.New: %w", err)
	}

	writer, err := sink.Open(ctx, sink.OptionsFromConfig(cfg))
	if err != nil {
		return fmt.Errorf("sink.Open: %w", err)
	}

	r, err := runner.New(cfg, logger)
	if err != nil {
		_ = writer.Close()
		return fmt.Errorf("runner.New: %w", err)
	}

	// The bar draws on stdout, so it stays off when results go there.
	drawBar := cfg.LogLevel == "info" && cfg.Output != "-" && cfg.Output != ""
	total := 0
	if drawBar && cfg.MboxPath != "" {
		if total, err = mbox.CountMessages(cfg.MboxPath); err != nil {
			logger.Warn("counting messages failed", "err", err)
		}
	}
	bar := progress.New(total, r.Tracker().Snapshot().Extracted, drawBar)
	if !progress.NewReporter(r, bar, logger).Enabled() {
		stats.NewReporter(r, logger)
	}

	if cfg.MboxPath != "" {
		if _, err := mbox.NewProducer(mbox.Options{Path: cfg.MboxPath, Filter: f}, r, logger); err != nil {
			r.Fail(fmt.Errorf("mbox.NewProducer: %w", err))
		}
	} else {
		sourceOpts := imap.Options{
			Host:               cfg.IMAPHost,
			Port:               cfg.IMAPPort,
			Username:           cfg.IMAPUser,
			Password:           cfg.IMAPPass,
			UseTLS:             cfg.UseTLS,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			Folder:             cfg.Folder,
			Filter:             f,
		}
		if _, err := imap.NewSource(sourceOpts, r, logger); err != nil {
			r.Fail(fmt.Errorf("imap.NewSource: %w", err))
		}
	}

	// Stages already running drain on failure; Start reports the error.
	extractor := extract.New(parser.New(parser.WithLogger(logger)), cfg.BodyOptions())
	extract.NewStage(extractor, cfg.Workers, r, logger)

	sink.NewStage(writer, r, logger)

	return r.Start()
}

func setupLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	// Results may be written to stdout, so logs go to stderr.
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf("mailbody-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stderr, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	return slog.New(handler), cleanup, nil
}

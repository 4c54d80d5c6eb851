// Package cmd holds the mailbody subcommands.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhcgn/mailbody/config"
)

// LoggerFunc builds the process logger from the logging flags. The returned
// cleanup closes any log file.
type LoggerFunc func(cfg config.Config) (*slog.Logger, func() error, error)

// Register adds every subcommand to root.
func Register(root *cobra.Command, setupLogger LoggerFunc) {
	root.AddCommand(
		newBodyCmd(setupLogger),
		newSplitCmd(),
		newMetaCmd(),
		newMboxStatsCmd(),
		newServeCmd(setupLogger),
	)
}

// withLogger loads the logging flags and runs fn with the resulting logger.
func withLogger(cmd *cobra.Command, setupLogger LoggerFunc, fn func(*slog.Logger) error) error {
	cfg, err := config.LoadLogConfig(cmd)
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
	return fn(logger)
}

// readInput returns the named file, or stdin when no file or "-" is given.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}

package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhcgn/mailbody/config"
	"github.com/dhcgn/mailbody/mailtext"
	"github.com/dhcgn/mailbody/nativedate"
	"github.com/dhcgn/mailbody/parser"
)

func newBodyCmd(setupLogger LoggerFunc) *cobra.Command {
	var stripLinks bool

	cmd := &cobra.Command{
		Use:   "body [file]",
		Short: "Print the cleaned body of a message read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			// The config file is applied by withLogger, so flags are read inside.
			return withLogger(cmd, setupLogger, func(logger *slog.Logger) error {
				opts, err := bodyOptions(cmd)
				if err != nil {
					return err
				}
				body := parser.New(parser.WithLogger(logger)).Body(mailtext.Normalize(text), opts)
				if stripLinks {
					body = parser.RemoveLinksBreaks(body, false)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), body)
				return err
			})
		},
	}

	config.RegisterExtractionFlags(cmd.Flags())
	cmd.Flags().BoolVar(&stripLinks, "strip-links", false, "Replace <...> links in the result with a space")
	return cmd
}

// bodyOptions reads the extraction flags registered on cmd.
func bodyOptions(cmd *cobra.Command) (parser.BodyOptions, error) {
	flags := cmd.Flags()
	var opts parser.BodyOptions
	var err error
	if opts.CheckReplyText, err = flags.GetBool("check-reply-text"); err != nil {
		return opts, err
	}
	if opts.CheckSalutation, err = flags.GetBool("check-salutation"); err != nil {
		return opts, err
	}
	if opts.CheckSignature, err = flags.GetBool("check-signature"); err != nil {
		return opts, err
	}
	if opts.RemovePhrase, err = flags.GetBool("remove-phrase"); err != nil {
		return opts, err
	}
	if opts.Sender, err = flags.GetString("sender"); err != nil {
		return opts, err
	}
	return opts, nil
}

func newSplitCmd() *cobra.Command {
	var (
		stripHeaders bool
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "split [file]",
		Short: "Split a thread into its individual messages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			text = mailtext.Normalize(text)

			segments := parser.SplitReplies(text)
			if stripHeaders {
				segments = parser.CleanSegments(text)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(segments)
			}
			for i, seg := range segments {
				fmt.Fprintf(out, "--- message %d ---\n%s\n", i+1, strings.TrimRight(seg, "\n"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stripHeaders, "strip-headers", false, "Remove header lines from each message")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the messages as a JSON array")
	return cmd
}

type metaOutput struct {
	ForwardedName  string     `json:"forwarded_name,omitempty"`
	ForwardedEmail string     `json:"forwarded_email,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	SentTime       string     `json:"sent_time,omitempty"`
	Salutation     string     `json:"salutation,omitempty"`
}

func newMetaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "meta [file]",
		Short: "Print the forwarded sender and sent date of a message as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			text = mailtext.Normalize(text)

			var out metaOutput
			if sender, ok := parser.ForwardedSender(text); ok {
				out.ForwardedName = sender.Name
				out.ForwardedEmail = sender.Email
			}
			if sent, ok := parser.New().SentDate(text); ok {
				out.SentAt = &sent
				out.SentTime, _ = nativedate.ToTimeOfDay(sent)
			}
			out.Salutation, _ = parser.Salutation(text)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

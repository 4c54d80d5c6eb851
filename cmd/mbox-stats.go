package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhcgn/mailbody/filter"
	"github.com/dhcgn/mailbody/mbox"
	"github.com/dhcgn/mailbody/model"
	"github.com/dhcgn/mailbody/parser"
	"github.com/dhcgn/mailbody/patterns"
	"github.com/dhcgn/mailbody/stats"
)

const (
	categoryFrom       = "From"
	categorySignOff    = "Sign-off"
	categorySalutation = "Salutation"
	categoryForwarded  = "Forwarded-From"
)

var statsCategories = []string{categoryFrom, categorySignOff, categorySalutation, categoryForwarded}

// mboxReport tallies what the parser recognises across an archive.
type mboxReport struct {
	counter  map[string]map[string]int
	messages int
	skipped  int
}

func newMboxReport() *mboxReport {
	r := &mboxReport{counter: make(map[string]map[string]int)}
	for _, c := range statsCategories {
		r.counter[c] = make(map[string]int)
	}
	return r
}

func (r *mboxReport) add(msg model.Message) {
	r.messages++
	if msg.From != "" {
		r.counter[categoryFrom][msg.From]++
	}
	if phrase := lastSignOff(msg.Text); phrase != "" {
		r.counter[categorySignOff][phrase]++
	}
	if sal, ok := parser.Salutation(msg.Text); ok {
		r.counter[categorySalutation][normalizePhrase(sal)]++
	}
	if sender, ok := parser.ForwardedSender(msg.Text); ok {
		key := sender.Email
		if key == "" {
			key = sender.Name
		}
		r.counter[categoryForwarded][key]++
	}
}

// lastSignOff returns the final sign-off phrase in text, as the signature
// step would cut at it.
func lastSignOff(text string) string {
	matches := patterns.SignatureOpener.FindAllString(text, -1)
	if len(matches) == 0 {
		return ""
	}
	return normalizePhrase(matches[len(matches)-1])
}

func normalizePhrase(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func newMboxStatsCmd() *cobra.Command {
	var (
		reportDir     string
		topN          int
		includeHeader []string
		includeBody   []string
		excludeHeader []string
		excludeBody   []string
	)

	cmd := &cobra.Command{
		Use:   "mbox-stats [mbox file]",
		Short: "Analyse an mbox file: top senders, sign-offs, salutations and forwarded senders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mboxPath := args[0]
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Analyzing mbox file:", mboxPath)

			f, err := filter.New(filter.Options{
				IncludeHeader: includeHeader,
				IncludeBody:   includeBody,
				ExcludeHeader: excludeHeader,
				ExcludeBody:   excludeBody,
			})
			if err != nil {
				return fmt.Errorf("create filter: %w", err)
			}

			report := newMboxReport()
			printStats := func() {
				// Clear the screen and move the cursor home.
				fmt.Fprint(out, "\033[H\033[2J")
				report.print(out, f.GetStats(), topN)
			}

			err = mbox.Read(mboxPath, func(msg model.Message) error {
				if !f.AllowsRaw(msg.Raw) {
					report.skipped++
					return nil
				}
				report.add(msg)
				if report.messages%250 == 0 {
					printStats()
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("error reading mbox file: %w", err)
			}

			printStats()

			if err := saveCSVReports(report.counter, statsCategories, reportDir, 1000); err != nil {
				return fmt.Errorf("error saving CSV reports: %w", err)
			}
			fmt.Fprintf(out, "\nReports saved to directory: %s\n", reportDir)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&reportDir, "output", "o", ".", "Output directory for CSV reports")
	flags.IntVarP(&topN, "top", "t", 10, "Number of top items to display in statistics")
	flags.StringArrayVar(&includeHeader, "include-header", nil, "Regex allow-list applied to message headers (mutually exclusive with exclude flags)")
	flags.StringArrayVar(&includeBody, "include-body", nil, "Regex allow-list applied to message bodies (mutually exclusive with exclude flags)")
	flags.StringArrayVar(&excludeHeader, "exclude-header", nil, "Regex block-list applied to message headers (mutually exclusive with include flags)")
	flags.StringArrayVar(&excludeBody, "exclude-body", nil, "Regex block-list applied to message bodies (mutually exclusive with include flags)")
	return cmd
}

func (r *mboxReport) print(w io.Writer, filterStats filter.Stats, topN int) {
	total := r.messages + r.skipped
	var filterPercent float64
	if total > 0 {
		filterPercent = float64(r.skipped) / float64(total) * 100
	}
	fmt.Fprintf(w, "Processed %d messages (skipped %d by filters, %.2f%%)...\n\n", r.messages, r.skipped, filterPercent)

	sections := []struct {
		title    string
		patterns []string
		hits     map[string]int
	}{
		{"Include Header Filters", filterStats.IncludeHeaderPatterns, filterStats.IncludeHeaderHits},
		{"Include Body Filters", filterStats.IncludeBodyPatterns, filterStats.IncludeBodyHits},
		{"Exclude Header Filters", filterStats.ExcludeHeaderPatterns, filterStats.ExcludeHeaderHits},
		{"Exclude Body Filters", filterStats.ExcludeBodyPatterns, filterStats.ExcludeBodyHits},
	}
	hasFilterStats := false
	for _, s := range sections {
		if len(s.patterns) == 0 {
			continue
		}
		hasFilterStats = true
		fmt.Fprintf(w, "%s:\n", s.title)
		printFilterHits(w, s.patterns, s.hits)
		fmt.Fprintln(w)
	}
	if hasFilterStats {
		fmt.Fprint(w, "---\n\n")
	}

	for _, category := range statsCategories {
		fmt.Fprintf(w, "Top %d %s:\n", topN, category)
		stats.PrintTop(w, r.counter[category], topN)
		fmt.Fprintln(w)
	}
}

func printFilterHits(w io.Writer, sources []string, hits map[string]int) {
	counts := make(map[string]int, len(sources))
	for _, p := range sources {
		counts[p] = hits[p]
	}
	for _, c := range stats.Top(counts, -1) {
		if c.Count > 0 {
			fmt.Fprintf(w, "  ✓ %s: %d hits\n", c.Value, c.Count)
		} else {
			fmt.Fprintf(w, "  ✗ %s: 0 hits\n", c.Value)
		}
	}
}

func saveCSVReports(counter map[string]map[string]int, categories []string, dir string, limit int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, category := range categories {
		filePath := filepath.Join(dir, fmt.Sprintf("report_%s.csv", reportFileName(category)))
		if err := writeCSVReport(filePath, stats.Top(counter[category], limit)); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVReport(path string, counts []stats.Count) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"Value", "Count"}); err != nil {
		return err
	}
	for _, c := range counts {
		if err := writer.Write([]string{c.Value, strconv.Itoa(c.Count)}); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

func reportFileName(category string) string {
	name := strings.ToLower(category)
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bluedeer/waterbill/internal/database"
	"github.com/bluedeer/waterbill/internal/model"
	"github.com/bluedeer/waterbill/internal/report"
	"github.com/spf13/cobra"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the bill summary",
		Long: `Report prints the bill summary dashboard from the stored bills: total
outstanding, status breakdown, overdue and due-soon properties.

Examples:
  waterbill report
  waterbill report --format markdown -o summary.md
  waterbill report --format json
  waterbill report --format text,markdown`,
		RunE: runReportCmd,
	}

	cmd.Flags().StringSliceP("format", "f", []string{"text"}, "Output formats: text, markdown or json")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().Bool("all", false, "List every property in text output")

	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	formats, err := cmd.Flags().GetStringSlice("format")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	bills, err := store.ListLatestBills(ctx)
	if err != nil {
		return err
	}
	var last *model.ScrapeLog
	if l, err := store.LatestScrape(ctx); err == nil {
		last = l
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output) //nolint:gosec // path comes from the user
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		w = f
	}

	writers := make([]report.Writer, 0, len(formats))
	for _, format := range formats {
		writer, err := newReportWriter(w, format, all)
		if err != nil {
			return err
		}
		writers = append(writers, writer)
	}
	var writer report.Writer = report.NewMultiWriter(writers...)
	if len(writers) == 1 {
		writer = writers[0]
	}
	_, err = writer.Write(report.NewDashboard(bills, last, clock(cfg)()))
	return err
}

// newReportWriter selects the writer for format.
func newReportWriter(w io.Writer, format string, all bool) (report.Writer, error) {
	switch strings.TrimSpace(format) {
	case "text", "":
		return report.NewSimpleWriter(w, report.WithVerbose(all)), nil
	case "markdown", "md":
		return report.NewMarkdownWriter(w), nil
	case "json":
		return report.NewJSONWriter(w, report.WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("unknown report format %q: must be text, markdown or json", format)
	}
}

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/bluedeer/waterbill/internal/model"
	"github.com/bluedeer/waterbill/internal/notify"
)

const ruleWidth = 70

// SimpleWriter outputs the dashboard as plain text for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether empty sections are shown.
	showEmpty bool

	// verbose lists every property, not only those needing attention.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose adds the full property list.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the dashboard in human-readable format.
func (w *SimpleWriter) Write(d *Dashboard) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, d)
	w.writeSummary(&sb, d)
	w.writeBills(&sb, "OVERDUE", d.Summary.Overdue)
	w.writeBills(&sb, "DUE SOON", d.Summary.DueSoon)
	if w.verbose {
		w.writeBills(&sb, "ALL PROPERTIES", d.Bills)
	}
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, d *Dashboard) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                      WATER BILL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Generated:   %s\n", d.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Last scrape: %s\n\n", scrapeText(d.LastScrape))
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, d *Dashboard) {
	s := d.Summary
	w.writeSection(sb, "SUMMARY")

	fmt.Fprintf(sb, "  Properties:        %d\n", s.Properties)
	fmt.Fprintf(sb, "  Total outstanding: %s\n", notify.Money(s.TotalDue))
	if len(s.Overdue) > 0 {
		fmt.Fprintf(sb, "  Overdue total:     %s\n", notify.Money(s.OverdueTotal()))
	}
	sb.WriteString("\n")
	for _, c := range d.StatusCounts() {
		fmt.Fprintf(sb, "  %s %-9s %d\n", c.Status.Emoji(), c.Label+":", c.Count)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeBills(sb *strings.Builder, title string, bills []model.PropertyBill) {
	if len(bills) == 0 && !w.showEmpty {
		return
	}
	w.writeSection(sb, title)

	if len(bills) == 0 {
		sb.WriteString("  None\n\n")
		return
	}
	for _, pb := range bills {
		fmt.Fprintf(sb, "  %s %s\n", pb.StatusEmoji(), pb.Property.Address)
		fmt.Fprintf(sb, "    Account: %s\n", pb.Property.AccountNumber)
		fmt.Fprintf(sb, "    Due:     %s on %s\n", amountText(pb.Latest), dueText(pb.Latest))
	}
	sb.WriteString("\n")
}

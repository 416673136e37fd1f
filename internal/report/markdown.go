package report

import (
	"io"
	"strconv"

	"github.com/bluedeer/waterbill/internal/model"
	"github.com/bluedeer/waterbill/internal/notify"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs the dashboard in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the dashboard in Markdown format.
func (w *MarkdownWriter) Write(d *Dashboard) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, d)
	w.writeSummary(md, d)
	w.writeAttention(md, "🔴 Overdue", d.Summary.Overdue)
	w.writeAttention(md, "🟡 Due Soon", d.Summary.DueSoon)
	w.writeProperties(md, d)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated %s*", d.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, d *Dashboard) {
	md.H1("Water Bill Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Item", "Value"},
		Rows: [][]string{
			{"Properties", strconv.Itoa(d.Summary.Properties)},
			{"Total Outstanding", notify.Money(d.Summary.TotalDue)},
			{"Overdue Total", notify.Money(d.Summary.OverdueTotal())},
			{"Last Scrape", scrapeText(d.LastScrape)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, d *Dashboard) {
	md.H2("Status Breakdown")
	md.PlainText("")

	counts := d.StatusCounts()
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Status.Emoji() + " " + c.Label, strconv.Itoa(c.Count)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Properties"},
		Rows:   rows,
	})
	md.PlainText("")

	if d.Summary.Properties > 0 {
		w.writePieChart(md, counts)
	}
	w.writeAlert(md, d)
}

// writePieChart writes a mermaid pie chart of the status breakdown.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts []StatusCount) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Bill Status"),
		piechart.WithShowData(true),
	)
	for _, c := range counts {
		if c.Count > 0 {
			chart.LabelAndIntValue(c.Label, uint64(c.Count))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, d *Dashboard) {
	s := d.Summary
	switch {
	case len(s.Overdue) > 0:
		md.Cautionf("%d overdue bill(s) totaling %s.", len(s.Overdue), notify.Money(s.OverdueTotal()))
	case len(s.DueSoon) > 0:
		md.Warningf("%d bill(s) due within %d days.", len(s.DueSoon), model.DueSoonDays)
	case s.Properties == 0:
		md.Note("No properties are being tracked.")
	default:
		md.Tip("All bills are current.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeAttention(md *markdown.Markdown, title string, bills []model.PropertyBill) {
	if len(bills) == 0 {
		return
	}
	md.H2(title)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Address", "Account", "Amount", "Due"},
		Rows:   billRows(bills),
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeProperties(md *markdown.Markdown, d *Dashboard) {
	md.H2("Properties")
	md.PlainText("")
	if len(d.Bills) == 0 {
		md.PlainText("No properties tracked yet.")
		md.PlainText("")
		return
	}

	rows := billRows(d.Bills)
	for i, pb := range d.Bills {
		rows[i] = append([]string{pb.StatusEmoji()}, rows[i]...)
	}
	md.Table(markdown.TableSet{
		Header: []string{"", "Address", "Account", "Amount", "Due"},
		Rows:   rows,
	})
	md.PlainText("")
}

func billRows(bills []model.PropertyBill) [][]string {
	rows := make([][]string, len(bills))
	for i, pb := range bills {
		rows[i] = []string{
			truncateString(pb.Property.Address, 40),
			"`" + pb.Property.AccountNumber + "`",
			amountText(pb.Latest),
			dueText(pb.Latest),
		}
	}
	return rows
}

package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bluedeer/waterbill/internal/model"
)

var generated = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func bill(id int64, address, account string, amount model.Cents, due time.Time, status model.BillStatus) model.PropertyBill {
	return model.PropertyBill{
		Property: model.Property{ID: id, Address: address, AccountNumber: account, Active: true},
		Latest: &model.WaterBill{
			PropertyID: id,
			AmountDue:  amount,
			DueDate:    due,
			Status:     status,
		},
	}
}

// createTestDashboard creates a dashboard with one property in each status.
func createTestDashboard() *Dashboard {
	bills := []model.PropertyBill{
		bill(1, "3040 ALVINA, Warren, MI", "302913026", 11697,
			time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), model.StatusOverdue),
		bill(2, "12 ELM, Warren, MI", "100200300", 4550,
			time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC), model.StatusDueSoon),
		bill(3, "77 OAK, Warren, MI", "400500600", 123456,
			time.Date(2025, time.April, 20, 0, 0, 0, 0, time.UTC), model.StatusCurrent),
		bill(4, "9 PINE, Warren, MI", "700800900", 0, time.Time{}, model.StatusPaid),
		{Property: model.Property{ID: 5, Address: "Pending - 555", AccountNumber: "555", Active: true}},
	}
	scrape := &model.ScrapeLog{StartedAt: generated.Add(-3 * time.Hour), Success: true, PropertiesScraped: 4}
	return NewDashboard(bills, scrape, generated)
}

func TestNewDashboard(t *testing.T) {
	t.Parallel()

	d := createTestDashboard()

	if d.Bills[0].Property.Address != "12 ELM, Warren, MI" {
		t.Errorf("expected bills sorted by address, first is %q", d.Bills[0].Property.Address)
	}
	if d.Summary.Properties != 5 {
		t.Errorf("Properties = %d, expected 5", d.Summary.Properties)
	}
	if want := model.Cents(11697 + 4550 + 123456); d.Summary.TotalDue != want {
		t.Errorf("TotalDue = %d, expected %d", d.Summary.TotalDue, want)
	}

	counts := map[model.BillStatus]int{}
	for _, c := range d.StatusCounts() {
		counts[c.Status] = c.Count
	}
	for status, want := range map[model.BillStatus]int{
		model.StatusOverdue: 1, model.StatusDueSoon: 1, model.StatusCurrent: 1,
		model.StatusPaid: 1, model.StatusUnknown: 1,
	} {
		if counts[status] != want {
			t.Errorf("%s count = %d, expected %d", status, counts[status], want)
		}
	}

	t.Run("empty dashboard has no nil slices", func(t *testing.T) {
		t.Parallel()
		d := NewDashboard(nil, nil, generated)
		if d.Bills == nil {
			t.Error("expected empty, non-nil bills")
		}
	})
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestDashboard()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"WATER BILL SUMMARY",
			"Last scrape: Mar 10, 2025 06:30 (success)",
			"Total outstanding: $1,397.03",
			"Overdue total:     $116.97",
			"OVERDUE",
			"3040 ALVINA, Warren, MI",
			"Due:     $116.97 on Mar 01, 2025",
			"DUE SOON",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
		if strings.Contains(output, "ALL PROPERTIES") {
			t.Error("property list should only appear in verbose mode")
		}
	})

	t.Run("verbose lists every property", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))
		if _, err := w.Write(createTestDashboard()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "ALL PROPERTIES") || !strings.Contains(output, "Pending - 555") {
			t.Errorf("expected full property list\n%s", output)
		}
	})

	t.Run("show empty sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithShowEmpty(true))
		if _, err := w.Write(NewDashboard(nil, nil, generated)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "None") {
			t.Error("expected empty sections to be shown")
		}
		if !strings.Contains(output, "Last scrape: never") {
			t.Error("expected missing scrape to read never")
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables, chart and alert", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestDashboard()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Water Bill Summary",
			"## Status Breakdown",
			"```mermaid",
			"pie",
			"[!CAUTION]",
			"1 overdue bill(s) totaling $116.97.",
			"## 🔴 Overdue",
			"`302913026`",
			"## Properties",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("empty dashboard", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(NewDashboard(nil, nil, generated)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no chart without properties")
		}
		if !strings.Contains(output, "No properties tracked yet.") {
			t.Error("expected empty property notice")
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestDashboard()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected compact output on a single line")
		}

		var decoded struct {
			Summary struct {
				Properties int   `json:"properties"`
				TotalDue   int64 `json:"total_due"`
			} `json:"summary"`
			Bills []json.RawMessage `json:"bills"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Summary.Properties != 5 || decoded.Summary.TotalDue != 139703 || len(decoded.Bills) != 5 {
			t.Errorf("unexpected decoded summary: %+v, %d bills", decoded.Summary, len(decoded.Bills))
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestDashboard()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"summary\"") {
			t.Error("expected indented output")
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write(*Dashboard) (int, error) { return 0, errors.New("boom") }

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		n, err := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b)).Write(createTestDashboard())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != a.Len()+b.Len() {
			t.Errorf("n = %d, expected %d", n, a.Len()+b.Len())
		}
	})

	t.Run("stops at first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		_, err := NewMultiWriter(failingWriter{}, NewSimpleWriter(&buf)).Write(createTestDashboard())
		if err == nil {
			t.Fatal("expected error")
		}
		if buf.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	if got := truncateString("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncateString("a long street address", 10); got != "a long ..." {
		t.Errorf("got %q", got)
	}
	if got := truncateString("abcdef", 2); got != "ab" {
		t.Errorf("got %q", got)
	}
}

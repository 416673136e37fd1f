package database

import (
	"strconv"
	"strings"
	"time"

	"github.com/bluedeer/waterbill/internal/model"
)

// rebind rewrites "?" placeholders to the driver's style.
func rebind(driver Driver, query string) string {
	if driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timestampLayout is fixed width so lexical order equals time order in SQLite.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// formatTimestamp renders t for storage.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// nullTimestamp renders t for storage, or NULL for the zero time.
func nullTimestamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTimestamp(t)
}

// nullDate renders the calendar date of t, or NULL for the zero time.
func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(model.DateLayout)
}

// nullCents stores an optional amount.
func nullCents(c *model.Cents) any {
	if c == nil {
		return nil
	}
	return int64(*c)
}

// timestampFormats contains the layouts either backend may return.
// SQLite returns what was stored; the pgx stdlib driver returns time.Time,
// which database/sql formats as RFC3339Nano when scanning into a string.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00", // modernc time format
	"2006-01-02 15:04:05",                 // SQLite CURRENT_TIMESTAMP
	"2006-01-02T15:04:05",
	model.DateLayout,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseDate parses a stored calendar date into UTC midnight.
func parseDate(s string) time.Time {
	t := parseTimestamp(s)
	if t.IsZero() {
		return t
	}
	return model.Date(t)
}

package notify

import (
	"fmt"
	"time"

	"github.com/bluedeer/waterbill/internal/model"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Money formats cents with a dollar sign and thousands separators.
func Money(c model.Cents) string {
	if c < 0 {
		return "-" + Money(-c)
	}
	return printer.Sprintf("$%.2f", c.Dollars())
}

// wholeMoney drops the cents when they are zero, e.g. "$100".
func wholeMoney(c model.Cents) string {
	if c%100 == 0 {
		return printer.Sprintf("$%d", int64(c/100))
	}
	return Money(c)
}

// Date formats a calendar date as "Mar 05, 2025", or "N/A" when unknown.
func Date(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("Jan 02, 2006")
}

// shortDate formats a calendar date as "Mar 05", or "Unknown".
func shortDate(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Format("Jan 02")
}

// days renders "1 day" or "n days".
func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

package model

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Cents is a monetary amount in US cents.
type Cents int64

// ErrInvalidAmount is returned when a string cannot be parsed as a dollar amount.
var ErrInvalidAmount = errors.New("invalid amount")

// amountPattern accepts "1234", "1,234.5", "1234.56", "100.555" and "116."
// after the currency symbol and whitespace have been removed.
var amountPattern = regexp.MustCompile(`^(\d[\d,]*)?(?:\.(\d*))?$`)

// printer formats the dollar part with thousands separators.
var printer = message.NewPrinter(language.AmericanEnglish)

// ParseCents parses a dollar amount such as "$1,234.56", "-$5.00" or "(5.00)".
// Parentheses denote a credit, as on printed statements. More than two
// decimals are rounded to the nearest cent.
func ParseCents(s string) (Cents, error) {
	raw := strings.TrimSpace(s)
	negative := false

	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		negative = true
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
	}
	if strings.HasPrefix(raw, "-") {
		negative = !negative
		raw = strings.TrimSpace(raw[1:])
	}
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "$"))

	m := amountPattern.FindStringSubmatch(raw)
	if m == nil || (m[1] == "" && m[2] == "") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	var dollars int64
	if m[1] != "" {
		d, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		dollars = d
	}

	// Fractions beyond cents round half up.
	frac := m[2] + "00"
	cents, _ := strconv.ParseInt(frac[:2], 10, 64) //nolint:errcheck // regexp guarantees digits
	if len(m[2]) > 2 && m[2][2] >= '5' {
		cents++
	}

	v := Cents(dollars*100 + cents)
	if negative {
		v = -v
	}
	return v, nil
}

// Dollars returns the amount as a float, for JSON output and comparisons
// against configured float thresholds.
func (c Cents) Dollars() float64 {
	return float64(c) / 100
}

// FromDollars converts a float dollar amount to cents, rounding to the nearest cent.
func FromDollars(d float64) Cents {
	if d < 0 {
		return Cents(d*100 - 0.5)
	}
	return Cents(d*100 + 0.5)
}

// String formats the amount as "$1,234.56".
func (c Cents) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + printer.Sprintf("%d", v/100) + fmt.Sprintf(".%02d", v%100)
}

// Plain formats the amount without grouping, e.g. "1234.56".
func (c Cents) Plain() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

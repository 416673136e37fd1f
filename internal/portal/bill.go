package portal

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bluedeer/waterbill/internal/model"
)

// MaxRawData is how much of the page text is kept with a bill.
const MaxRawData = 5000

// Bill is the data read from a payment page.
type Bill struct {
	AccountNumber    string       `json:"account_number"`
	Address          string       `json:"address"`
	City             string       `json:"city,omitempty"`
	State            string       `json:"state,omitempty"`
	ZipCode          string       `json:"zip_code,omitempty"`
	OwnerName        string       `json:"owner_name,omitempty"`
	AmountDue        model.Cents  `json:"amount_due"`
	DueDate          time.Time    `json:"due_date,omitzero"`
	StatementDate    time.Time    `json:"statement_date,omitzero"`
	PreviousBalance  *model.Cents `json:"previous_balance,omitempty"`
	CurrentCharges   *model.Cents `json:"current_charges,omitempty"`
	LateFees         *model.Cents `json:"late_fees,omitempty"`
	PaymentsReceived *model.Cents `json:"payments_received,omitempty"`
	UsageGallons     *int64       `json:"usage_gallons,omitempty"`
	Charges          []Charge     `json:"charges,omitempty"`
	RawData          string       `json:"-"`
}

// Charge is one named line of the billing breakdown.
type Charge struct {
	Name   string      `json:"name"`
	Amount model.Cents `json:"amount"`
}

// WaterBill converts the lookup into a bill snapshot for a property.
// The status is computed against today.
func (b *Bill) WaterBill(propertyID int64, today time.Time) *model.WaterBill {
	return &model.WaterBill{
		PropertyID:       propertyID,
		AmountDue:        b.AmountDue,
		PreviousBalance:  b.PreviousBalance,
		CurrentCharges:   b.CurrentCharges,
		LateFees:         b.LateFees,
		PaymentsReceived: b.PaymentsReceived,
		StatementDate:    b.StatementDate,
		DueDate:          b.DueDate,
		UsageGallons:     b.UsageGallons,
		Status:           model.CalculateStatus(b.AmountDue, b.DueDate, today),
		RawData:          b.RawData,
	}
}

var (
	streetRegex   = regexp.MustCompile(`^\d+\s+[A-Z]`)
	dollarRegex   = regexp.MustCompile(`\$([\d,]+\.?\d*)`)
	chargeRegex   = regexp.MustCompile(`^([A-Z\s]+?)\s*\$?([\d,]+\.\d{2})$`)
	cityLineRegex = regexp.MustCompile(`^(.+?),\s*([A-Z]{2})\s+(\d{5}(?:-\d{4})?)$`)

	dueDateRegex   = regexp.MustCompile(`(?i)(?:Due\s*Date|Payment\s*Due)[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)
	statementRegex = regexp.MustCompile(`(?i)(?:Statement\s*Date|Bill\s*Date)[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)
	previousRegex  = regexp.MustCompile(`(?i)Previous\s*Balance[:\s]*\$?([\d,]+\.?\d*)`)
	lateFeeRegex   = regexp.MustCompile(`(?i)(?:Late\s*Fee|Penalty)[:\s]*\$?([\d,]+\.?\d*)`)
	paymentsRegex  = regexp.MustCompile(`(?i)Payments?\s*Received[:\s]*\$?([\d,]+\.?\d*)`)
	usageRegex     = regexp.MustCompile(`(?i)(?:Usage|Consumption)[:\s]*([\d,]+)\s*(?:gal|gallons)?`)
)

// ParseBill reads a payment page's visible text. city is the municipality
// name that identifies the city/state/zip line below the street line.
func ParseBill(text, city string) *Bill {
	lines := splitLines(text)
	b := &Bill{RawData: truncate(text, MaxRawData)}

	for _, line := range lines {
		if rest, ok := strings.CutPrefix(line, "Account:"); ok {
			b.AccountNumber = strings.TrimSpace(rest)
			break
		}
	}

	for i, line := range lines {
		upper := strings.ToUpper(line)
		if strings.Contains(upper, "OCCUPANT") {
			b.OwnerName = line
			continue
		}
		if streetRegex.MatchString(upper) && !strings.Contains(line, city) {
			if i+1 < len(lines) && strings.Contains(lines[i+1], city) {
				cityLine := lines[i+1]
				b.Address = line + ", " + cityLine
				if m := cityLineRegex.FindStringSubmatch(cityLine); m != nil {
					b.City, b.State, b.ZipCode = m[1], m[2], m[3]
				}
				break
			}
		}
	}

	for i, line := range lines {
		if !strings.Contains(line, "Amount to Pay") {
			continue
		}
		m := dollarRegex.FindStringSubmatch(line)
		if m == nil && i+1 < len(lines) {
			m = dollarRegex.FindStringSubmatch(lines[i+1])
		}
		if m != nil {
			if c, err := model.ParseCents(m[1]); err == nil {
				b.AmountDue = c
			}
		}
		break
	}

	var total model.Cents
	for _, line := range lines {
		if !strings.ContainsAny(line, "\t$") {
			continue
		}
		m := chargeRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		c, err := model.ParseCents(m[2])
		if err != nil {
			continue
		}
		b.Charges = append(b.Charges, Charge{Name: strings.Join(strings.Fields(m[1]), " "), Amount: c})
		total += c
	}
	if len(b.Charges) > 0 {
		b.CurrentCharges = &total
	}

	if m := dueDateRegex.FindStringSubmatch(text); m != nil {
		b.DueDate, _ = ParseDate(m[1]) //nolint:errcheck // zero time means unknown
	}
	if m := statementRegex.FindStringSubmatch(text); m != nil {
		b.StatementDate, _ = ParseDate(m[1]) //nolint:errcheck // zero time means unknown
	}
	b.PreviousBalance = findCents(previousRegex, text)
	b.LateFees = findCents(lateFeeRegex, text)
	b.PaymentsReceived = findCents(paymentsRegex, text)
	if m := usageRegex.FindStringSubmatch(text); m != nil {
		if n, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64); err == nil {
			b.UsageGallons = &n
		}
	}

	return b
}

func findCents(re *regexp.Regexp, text string) *model.Cents {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	c, err := model.ParseCents(m[1])
	if err != nil {
		return nil
	}
	return &c
}

// dateFormats are the layouts the portal uses for dates.
var dateFormats = []string{
	"01/02/2006", "1/2/2006", "01-02-2006", "1-2-2006",
	"01/02/06", "1/2/06", "01-02-06", "1-2-06",
	"2006-01-02",
}

// ParseDate parses a portal date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range dateFormats {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func splitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

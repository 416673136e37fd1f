package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bluedeer/waterbill/internal/model"
)

const billColumns = `b.id, b.property_id, b.amount_due, b.previous_balance, b.current_charges,
	b.late_fees, b.payments_received, b.statement_date, b.due_date,
	b.water_usage_gallons, b.status, b.scraped_at, b.raw_data`

// billRow holds the nullable form of a bill row. It is used for plain bill
// queries and for the LEFT JOIN in ListLatestBills.
type billRow struct {
	id, propertyID             sql.NullInt64
	amountDue                  sql.NullInt64
	previous, current          sql.NullInt64
	lateFees, payments         sql.NullInt64
	statementDate, dueDate     sql.NullString
	usage                      sql.NullInt64
	status, scrapedAt, rawData sql.NullString
}

func (r *billRow) dest() []any {
	return []any{
		&r.id, &r.propertyID, &r.amountDue, &r.previous, &r.current,
		&r.lateFees, &r.payments, &r.statementDate, &r.dueDate,
		&r.usage, &r.status, &r.scrapedAt, &r.rawData,
	}
}

// bill converts the row, returning nil when the join found no bill.
func (r *billRow) bill() *model.WaterBill {
	if !r.id.Valid {
		return nil
	}

	optCents := func(n sql.NullInt64) *model.Cents {
		if !n.Valid {
			return nil
		}
		c := model.Cents(n.Int64)
		return &c
	}

	b := &model.WaterBill{
		ID:               r.id.Int64,
		PropertyID:       r.propertyID.Int64,
		AmountDue:        model.Cents(r.amountDue.Int64),
		PreviousBalance:  optCents(r.previous),
		CurrentCharges:   optCents(r.current),
		LateFees:         optCents(r.lateFees),
		PaymentsReceived: optCents(r.payments),
		Status:           model.BillStatus(r.status.String),
		ScrapedAt:        parseTimestamp(r.scrapedAt.String),
		RawData:          r.rawData.String,
	}
	if r.statementDate.Valid {
		b.StatementDate = parseDate(r.statementDate.String)
	}
	if r.dueDate.Valid {
		b.DueDate = parseDate(r.dueDate.String)
	}
	if r.usage.Valid {
		u := r.usage.Int64
		b.UsageGallons = &u
	}
	if !b.Status.Valid() {
		b.Status = model.StatusUnknown
	}
	return b
}

// InsertBill records a bill snapshot and sets its ID. ScrapedAt defaults to now.
func (s *SQLStore) InsertBill(ctx context.Context, b *model.WaterBill) error {
	if b.ScrapedAt.IsZero() {
		b.ScrapedAt = s.now()
	}
	if !b.Status.Valid() {
		b.Status = model.StatusUnknown
	}

	var usage any
	if b.UsageGallons != nil {
		usage = *b.UsageGallons
	}

	id, err := s.insert(ctx, `
	INSERT INTO water_bills (property_id, amount_due, previous_balance, current_charges,
		late_fees, payments_received, statement_date, due_date, water_usage_gallons,
		status, scraped_at, raw_data)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.PropertyID, int64(b.AmountDue), nullCents(b.PreviousBalance), nullCents(b.CurrentCharges),
		nullCents(b.LateFees), nullCents(b.PaymentsReceived), nullDate(b.StatementDate), nullDate(b.DueDate),
		usage, string(b.Status), formatTimestamp(b.ScrapedAt), b.RawData,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}
	b.ID = id
	return nil
}

// LatestBill returns the most recently scraped bill of a property.
func (s *SQLStore) LatestBill(ctx context.Context, propertyID int64) (*model.WaterBill, error) {
	var r billRow
	err := s.queryRow(ctx, `
	SELECT `+billColumns+` FROM water_bills b
	WHERE b.property_id = ?
	ORDER BY b.scraped_at DESC, b.id DESC
	LIMIT 1`, propertyID).Scan(r.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bill for property %d: %w", propertyID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest bill: %w", err)
	}
	return r.bill(), nil
}

// ListLatestBills returns every active property with its most recent bill,
// ordered by address. Properties without a bill have a nil Latest.
func (s *SQLStore) ListLatestBills(ctx context.Context) ([]model.PropertyBill, error) {
	rows, err := s.query(ctx, `
	SELECT `+propertyColumns+`, `+billColumns+`
	FROM properties p
	LEFT JOIN water_bills b ON b.id = (
		SELECT b2.id FROM water_bills b2
		WHERE b2.property_id = p.id
		ORDER BY b2.scraped_at DESC, b2.id DESC
		LIMIT 1
	)
	WHERE p.is_active
	ORDER BY p.address`)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest bills: %w", err)
	}
	defer rows.Close()

	var out []model.PropertyBill
	for rows.Next() {
		var r billRow
		p, err := scanProperty(rows, r.dest()...)
		if err != nil {
			return nil, fmt.Errorf("failed to scan latest bill: %w", err)
		}
		out = append(out, model.PropertyBill{Property: *p, Latest: r.bill()})
	}
	return out, rows.Err()
}

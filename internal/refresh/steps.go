package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bluedeer/waterbill/internal/database"
	"github.com/bluedeer/waterbill/internal/model"
	"github.com/bluedeer/waterbill/internal/portal"
)

// Searcher looks up an account on the portal. *portal.Client implements it.
type Searcher interface {
	SearchByAccount(ctx context.Context, accountNumber string) (*portal.Bill, error)
}

// Store is the part of database.Store the steps and the Refresher use.
type Store interface {
	ListActiveProperties(ctx context.Context) ([]model.Property, error)
	UpdatePropertyDetails(ctx context.Context, id int64, d database.PropertyDetails) error
	InsertBill(ctx context.Context, b *model.WaterBill) error
	StartScrape(ctx context.Context, l *model.ScrapeLog) error
	FinishScrape(ctx context.Context, l *model.ScrapeLog) error
}

// LookupStep fetches the bill for the job's account.
type LookupStep struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewLookupStep creates a lookup step.
func NewLookupStep(searcher Searcher, logger *slog.Logger) *LookupStep {
	return &LookupStep{searcher: searcher, logger: logger}
}

// Name returns the step name.
func (s *LookupStep) Name() string {
	return "lookup"
}

// Do searches the portal. An unknown account marks the job not found.
func (s *LookupStep) Do(ctx context.Context, job *Job) error {
	bill, err := s.searcher.SearchByAccount(ctx, job.Property.AccountNumber)
	if errors.Is(err, portal.ErrNoRecords) {
		s.logger.Info("account not found on portal", "account", job.Property.AccountNumber)
		job.Outcome = OutcomeNotFound
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup %s: %w", job.Property.AccountNumber, err)
	}
	job.Bill = bill
	return nil
}

// DetailsStep copies the portal's address and owner onto the property.
// The address only replaces a pending placeholder.
type DetailsStep struct {
	store Store
}

// NewDetailsStep creates a details step.
func NewDetailsStep(store Store) *DetailsStep {
	return &DetailsStep{store: store}
}

// Name returns the step name.
func (s *DetailsStep) Name() string {
	return "update_details"
}

// Do updates the stored property when the portal told us something new.
func (s *DetailsStep) Do(ctx context.Context, job *Job) error {
	if job.Bill == nil {
		return nil
	}

	var d database.PropertyDetails
	if job.Bill.Address != "" && strings.HasPrefix(job.Property.Address, "Pending") {
		d.Address = job.Bill.Address
		d.City = job.Bill.City
		d.State = job.Bill.State
		d.ZipCode = job.Bill.ZipCode
	}
	if job.Bill.OwnerName != "" && job.Bill.OwnerName != job.Property.OwnerName {
		d.OwnerName = job.Bill.OwnerName
	}
	if d == (database.PropertyDetails{}) {
		return nil
	}

	if err := s.store.UpdatePropertyDetails(ctx, job.Property.ID, d); err != nil {
		return err
	}
	if d.Address != "" {
		job.Property.Address = d.Address
		job.Property.City = d.City
		job.Property.State = d.State
		job.Property.ZipCode = d.ZipCode
	}
	if d.OwnerName != "" {
		job.Property.OwnerName = d.OwnerName
	}
	return nil
}

// RecordStep stores a bill snapshot with its status.
type RecordStep struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewRecordStep creates a record step. now supplies the date the bill
// status is computed against.
func NewRecordStep(store Store, now func() time.Time, logger *slog.Logger) *RecordStep {
	return &RecordStep{store: store, now: now, logger: logger}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record_bill"
}

// Do inserts the bill.
func (s *RecordStep) Do(ctx context.Context, job *Job) error {
	if job.Bill == nil {
		return nil
	}

	now := s.now()
	bill := job.Bill.WaterBill(job.Property.ID, now)
	bill.ScrapedAt = now
	if err := s.store.InsertBill(ctx, bill); err != nil {
		return err
	}
	job.Recorded = bill

	s.logger.Info("scraped",
		"address", job.Property.Address,
		"amount_due", bill.AmountDue.String(),
		"status", bill.Status,
	)
	return nil
}

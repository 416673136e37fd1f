package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bluedeer/waterbill/internal/model"
	"github.com/google/uuid"
)

// StartScrape records the start of a refresh run and sets l.ID.
func (s *SQLStore) StartScrape(ctx context.Context, l *model.ScrapeLog) error {
	if l.RunID == uuid.Nil {
		l.RunID = uuid.New()
	}
	if l.StartedAt.IsZero() {
		l.StartedAt = s.now()
	}

	id, err := s.insert(ctx,
		`INSERT INTO scraping_logs (run_id, started_at, success) VALUES (?, ?, ?)`,
		l.RunID.String(), formatTimestamp(l.StartedAt), false)
	if err != nil {
		return fmt.Errorf("failed to start scrape log: %w", err)
	}
	l.ID = id
	return nil
}

// FinishScrape stores the outcome of a run started with StartScrape.
func (s *SQLStore) FinishScrape(ctx context.Context, l *model.ScrapeLog) error {
	if l.CompletedAt.IsZero() {
		l.CompletedAt = s.now()
	}

	details, err := json.Marshal(l.Details)
	if err != nil {
		return fmt.Errorf("failed to serialize scrape details: %w", err)
	}

	_, err = s.exec(ctx, `
	UPDATE scraping_logs SET completed_at = ?, success = ?, properties_scraped = ?,
		error_message = ?, details = ?
	WHERE id = ?`,
		formatTimestamp(l.CompletedAt), l.Success, l.PropertiesScraped,
		l.ErrorMessage, string(details), l.ID)
	if err != nil {
		return fmt.Errorf("failed to finish scrape log: %w", err)
	}
	return nil
}

// LatestScrape returns the most recently started run.
func (s *SQLStore) LatestScrape(ctx context.Context) (*model.ScrapeLog, error) {
	var (
		l         model.ScrapeLog
		runID     string
		started   string
		completed sql.NullString
		details   string
	)
	err := s.queryRow(ctx, `
	SELECT id, run_id, started_at, completed_at, success, properties_scraped, error_message, details
	FROM scraping_logs
	ORDER BY started_at DESC, id DESC
	LIMIT 1`).Scan(&l.ID, &runID, &started, &completed, &l.Success,
		&l.PropertiesScraped, &l.ErrorMessage, &details)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scrape log: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest scrape: %w", err)
	}

	l.RunID, _ = uuid.Parse(runID) //nolint:errcheck // a malformed run id leaves uuid.Nil
	l.StartedAt = parseTimestamp(started)
	if completed.Valid {
		l.CompletedAt = parseTimestamp(completed.String)
	}
	if details != "" {
		if err := json.Unmarshal([]byte(details), &l.Details); err != nil {
			l.Details = model.ScrapeDetails{}
		}
	}
	return &l, nil
}

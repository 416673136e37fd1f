package model

import (
	"time"

	"github.com/google/uuid"
)

// ScrapeLog records one refresh run.
type ScrapeLog struct {
	ID                int64         `json:"id"`
	RunID             uuid.UUID     `json:"run_id"`
	StartedAt         time.Time     `json:"started_at"`
	CompletedAt       time.Time     `json:"completed_at,omitzero"`
	Success           bool          `json:"success"`
	PropertiesScraped int           `json:"properties_scraped"`
	ErrorMessage      string        `json:"error_message,omitempty"`
	Details           ScrapeDetails `json:"details"`
}

// ScrapeDetails lists per-property outcomes that did not produce a bill.
type ScrapeDetails struct {
	NotFound []string `json:"not_found,omitempty"`
	Failed   []string `json:"failed,omitempty"`
}

// NewScrapeLog returns a log for a run starting at now with a fresh run ID.
func NewScrapeLog(now time.Time) *ScrapeLog {
	return &ScrapeLog{
		RunID:     uuid.New(),
		StartedAt: now,
	}
}

// TelegramUser is a chat user who has talked to the bot.
type TelegramUser struct {
	TelegramID           int64     `json:"telegram_id"`
	Username             string    `json:"username,omitempty"`
	FirstName            string    `json:"first_name,omitempty"`
	IsAdmin              bool      `json:"is_admin"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	CreatedAt            time.Time `json:"created_at"`
}

package config

import "errors"

// Configuration validation errors.
// Validate joins them, so callers can test for each with errors.Is.
var (
	// ErrMissingToken is returned when the bot is started without TELEGRAM_BOT_TOKEN.
	ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN is required")

	// ErrMissingMunicipality is returned when BSA_MUNICIPALITY_UID is empty or not numeric.
	ErrMissingMunicipality = errors.New("invalid BSA_MUNICIPALITY_UID: must be a number")

	// ErrInvalidScrapeInterval is returned when SCRAPE_INTERVAL_HOURS is not positive.
	ErrInvalidScrapeInterval = errors.New("invalid SCRAPE_INTERVAL_HOURS: must be positive")

	// ErrInvalidThreshold is returned when WATER_BILL_THRESHOLD is negative.
	ErrInvalidThreshold = errors.New("invalid WATER_BILL_THRESHOLD: must be non-negative")

	// ErrInvalidReminderDays is returned when RECERT_REMINDER_DAYS is negative.
	ErrInvalidReminderDays = errors.New("invalid RECERT_REMINDER_DAYS: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRequestDelay is returned when the request delay is negative.
	ErrInvalidRequestDelay = errors.New("invalid request delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidTimezone is returned when TZ_NAME is not a known IANA zone.
	ErrInvalidTimezone = errors.New("invalid TZ_NAME")

	// ErrInvalidBaseURL is returned when the portal base URL is not absolute.
	ErrInvalidBaseURL = errors.New("invalid portal base URL")

	// ErrInvalidProxy is returned when PORTAL_PROXY is not host:port.
	ErrInvalidProxy = errors.New("invalid PORTAL_PROXY: must be host:port")

	// ErrInvalidEnv is returned when an environment variable cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")
)

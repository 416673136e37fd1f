package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/bluedeer/waterbill/internal/database"
	"github.com/bluedeer/waterbill/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "waterbill"

	// DefaultBaseURL is the root of the BS&A Online payment portal.
	DefaultBaseURL = "https://bsaonline.com"

	// DefaultMunicipalityUID identifies the City of Warren on BS&A Online.
	DefaultMunicipalityUID = "305"

	// DefaultScrapeInterval runs the refresh once a day.
	DefaultScrapeInterval = 24 * time.Hour

	// DefaultWaterBillThreshold is the balance above which a threshold alert is sent.
	DefaultWaterBillThreshold model.Cents = 10000

	// DefaultRecertReminderDays is how far ahead recertification reminders look.
	DefaultRecertReminderDays = 30

	// DefaultTimezone is the zone the schedule and due dates are evaluated in.
	DefaultTimezone = "America/Detroit"

	// DefaultTimeout bounds a single portal request or browser action.
	DefaultTimeout = 60 * time.Second

	// DefaultRequestDelay is the pause between two properties during a refresh.
	// The portal rate limits aggressive clients.
	DefaultRequestDelay = 2 * time.Second

	// DefaultUserAgent mimics a desktop Chrome so the portal serves its normal pages.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultMaxBodySize limits how much of a portal response is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultScreenshotDir holds debug screenshots taken by the browser.
	DefaultScreenshotDir = "screenshots"

	// DefaultDiscoveryDir holds the output of the discover command.
	DefaultDiscoveryDir = "discovery_results"

	// DatabaseFile is the SQLite file name used when DATABASE_URL is empty.
	DatabaseFile = "waterbill.db"
)

// Schedule job names.
const (
	JobRefresh   = "refresh"
	JobRecert    = "recert"
	JobThreshold = "threshold"
	JobDueSoon   = "due_soon"
	JobOverdue   = "overdue"
)

// DefaultSchedule returns the cron expressions for every scheduled job.
// The refresh runs early so the alerts that follow see fresh data.
func DefaultSchedule() map[string]string {
	return map[string]string{
		JobRefresh:   "0 6 * * *",
		JobRecert:    "0 8 * * *",
		JobThreshold: "0 9 * * *",
		JobDueSoon:   "30 9 * * *",
		JobOverdue:   "0 10 * * *",
	}
}

// Config holds all configuration options for the bot and its commands.
// It is populated once at startup and passed down explicitly.
type Config struct {
	// TelegramToken is the bot token issued by BotFather (TELEGRAM_BOT_TOKEN).
	TelegramToken string

	// DatabaseURL selects the store (DATABASE_URL). A postgres:// URL uses
	// PostgreSQL, anything else is treated as a SQLite path.
	DatabaseURL string

	// PortalUsername and PortalPassword are the BS&A Online credentials
	// (BSA_USERNAME, BSA_PASSWORD). The public search does not need them.
	PortalUsername string
	PortalPassword string

	// MunicipalityUID is the BS&A municipality identifier (BSA_MUNICIPALITY_UID).
	MunicipalityUID string

	// EncryptionKey opens "enc:" values in the other secrets (ENCRYPTION_KEY).
	EncryptionKey string

	// ScrapeInterval is how often the refresh job runs (SCRAPE_INTERVAL_HOURS).
	ScrapeInterval time.Duration

	// HeadlessBrowser runs Chrome without a window (HEADLESS_BROWSER).
	HeadlessBrowser bool

	// BrowserPath overrides Chrome discovery (BROWSER_PATH).
	BrowserPath string

	// WaterBillThreshold triggers a threshold alert when exceeded (WATER_BILL_THRESHOLD).
	WaterBillThreshold model.Cents

	// RecertReminderDays is the recertification look-ahead window (RECERT_REMINDER_DAYS).
	RecertReminderDays int

	// AdminTelegramID receives every alert even before using /start (ADMIN_TELEGRAM_ID).
	AdminTelegramID int64

	// Timezone is an IANA zone name (TZ_NAME).
	Timezone string

	// BaseURL is the portal root.
	BaseURL string

	// PortalProxy routes portal and browser traffic through a SOCKS5
	// proxy given as host:port (PORTAL_PROXY). Empty means direct.
	PortalProxy string

	// UserAgent is sent with every portal request.
	UserAgent string

	// RequestDelay is the pause between properties during a refresh.
	RequestDelay time.Duration

	// Timeout bounds a single portal request or browser action.
	Timeout time.Duration

	// MaxBodySize is the maximum portal response size in bytes.
	MaxBodySize int64

	// Schedule maps job names to cron expressions.
	Schedule map[string]string

	// ScreenshotDir and DiscoveryDir are the output directories created by setup.
	ScreenshotDir string
	DiscoveryDir  string

	// DataDir is where the default SQLite database lives.
	DataDir string

	// ConfigFilePath is an explicit YAML config path. When empty the tool
	// searches for .waterbill.yaml in the current and home directories.
	ConfigFilePath string

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MunicipalityUID:    DefaultMunicipalityUID,
		ScrapeInterval:     DefaultScrapeInterval,
		HeadlessBrowser:    true,
		WaterBillThreshold: DefaultWaterBillThreshold,
		RecertReminderDays: DefaultRecertReminderDays,
		Timezone:           DefaultTimezone,
		BaseURL:            DefaultBaseURL,
		UserAgent:          DefaultUserAgent,
		RequestDelay:       DefaultRequestDelay,
		Timeout:            DefaultTimeout,
		MaxBodySize:        DefaultMaxBodySize,
		Schedule:           DefaultSchedule(),
		ScreenshotDir:      DefaultScreenshotDir,
		DiscoveryDir:       DefaultDiscoveryDir,
		DataDir:            XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for the application.
// On Linux: ~/.local/share/waterbill
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for the application.
// On Linux: ~/.config/waterbill
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DatabaseDSN returns DatabaseURL, or a SQLite path in DataDir when it is unset.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return filepath.Join(c.DataDir, DatabaseFile)
}

// MunicipalityURL is the landing page of the configured municipality.
func (c *Config) MunicipalityURL() string {
	return c.BaseURL + "/?uid=" + url.QueryEscape(c.MunicipalityUID)
}

// UtilitySearchURL is the utility billing search page of the configured municipality.
func (c *Config) UtilitySearchURL() string {
	return c.BaseURL + "/OnlinePayment/OnlinePaymentSearch?PaymentApplicationType=10&uid=" +
		url.QueryEscape(c.MunicipalityUID)
}

// Location loads Timezone. It falls back to UTC when the zone is unknown,
// which Validate already reports.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RefreshSpec returns the cron expression for the refresh job. A custom
// scrape interval overrides the daily default.
func (c *Config) RefreshSpec() string {
	if c.ScrapeInterval > 0 && c.ScrapeInterval != DefaultScrapeInterval {
		return "@every " + c.ScrapeInterval.String()
	}
	if spec, ok := c.Schedule[JobRefresh]; ok && spec != "" {
		return spec
	}
	return DefaultSchedule()[JobRefresh]
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.MunicipalityUID == "" {
		errs = append(errs, ErrMissingMunicipality)
	} else if _, err := strconv.Atoi(c.MunicipalityUID); err != nil {
		errs = append(errs, fmt.Errorf("%w: %q", ErrMissingMunicipality, c.MunicipalityUID))
	}
	if c.ScrapeInterval <= 0 {
		errs = append(errs, ErrInvalidScrapeInterval)
	}
	if c.WaterBillThreshold < 0 {
		errs = append(errs, ErrInvalidThreshold)
	}
	if c.RecertReminderDays < 0 {
		errs = append(errs, ErrInvalidReminderDays)
	}
	if c.Timeout <= 0 {
		errs = append(errs, ErrInvalidTimeout)
	}
	if c.RequestDelay < 0 {
		errs = append(errs, ErrInvalidRequestDelay)
	}
	if c.MaxBodySize < 0 {
		errs = append(errs, ErrInvalidMaxBodySize)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidTimezone, c.Timezone))
	}
	if c.DatabaseURL != "" {
		if _, err := database.ParseDSN(c.DatabaseURL); err != nil {
			errs = append(errs, fmt.Errorf("invalid DATABASE_URL: %w", err))
		}
	}
	if c.PortalProxy != "" && !validProxyAddress(c.PortalProxy) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidProxy, c.PortalProxy))
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL))
	}

	return errors.Join(errs...)
}

// validProxyAddress reports whether address is host:port with a port in 1-65535.
func validProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// ValidateBot checks what the Telegram bot needs on top of Validate.
func (c *Config) ValidateBot() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.TelegramToken == "" {
		errs = append(errs, ErrMissingToken)
	}
	return errors.Join(errs...)
}

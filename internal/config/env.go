package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bluedeer/waterbill/internal/model"
	"github.com/bluedeer/waterbill/internal/secret"
	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvTelegramToken      = "TELEGRAM_BOT_TOKEN"
	EnvDatabaseURL        = "DATABASE_URL"
	EnvPortalUsername     = "BSA_USERNAME"
	EnvPortalPassword     = "BSA_PASSWORD"
	EnvMunicipalityUID    = "BSA_MUNICIPALITY_UID"
	EnvEncryptionKey      = "ENCRYPTION_KEY"
	EnvScrapeInterval     = "SCRAPE_INTERVAL_HOURS"
	EnvHeadlessBrowser    = "HEADLESS_BROWSER"
	EnvBrowserPath        = "BROWSER_PATH"
	EnvWaterBillThreshold = "WATER_BILL_THRESHOLD"
	EnvRecertReminderDays = "RECERT_REMINDER_DAYS"
	EnvAdminTelegramID    = "ADMIN_TELEGRAM_ID"
	EnvTimezone           = "TZ_NAME"
	EnvPortalProxy        = "PORTAL_PROXY"
)

// DefaultEnvFile is the dotenv file read at startup.
const DefaultEnvFile = ".env"

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads path into the process environment. Variables that are
// already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment. Every malformed variable
// is reported.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str(EnvTelegramToken, &c.TelegramToken)
	str(EnvDatabaseURL, &c.DatabaseURL)
	str(EnvPortalUsername, &c.PortalUsername)
	str(EnvPortalPassword, &c.PortalPassword)
	str(EnvMunicipalityUID, &c.MunicipalityUID)
	str(EnvEncryptionKey, &c.EncryptionKey)
	str(EnvBrowserPath, &c.BrowserPath)
	str(EnvTimezone, &c.Timezone)
	str(EnvPortalProxy, &c.PortalProxy)

	var errs []error
	invalid := func(key, value string) {
		errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidEnv, key, value))
	}

	if v, ok := lookup(EnvScrapeInterval); ok && v != "" {
		hours, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			invalid(EnvScrapeInterval, v)
		} else {
			c.ScrapeInterval = time.Duration(hours) * time.Hour
		}
	}
	if v, ok := lookup(EnvHeadlessBrowser); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			invalid(EnvHeadlessBrowser, v)
		} else {
			c.HeadlessBrowser = b
		}
	}
	if v, ok := lookup(EnvWaterBillThreshold); ok && v != "" {
		cents, err := model.ParseCents(v)
		if err != nil {
			invalid(EnvWaterBillThreshold, v)
		} else {
			c.WaterBillThreshold = cents
		}
	}
	if v, ok := lookup(EnvRecertReminderDays); ok && v != "" {
		days, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			invalid(EnvRecertReminderDays, v)
		} else {
			c.RecertReminderDays = days
		}
	}
	if v, ok := lookup(EnvAdminTelegramID); ok && v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			invalid(EnvAdminTelegramID, v)
		} else {
			c.AdminTelegramID = id
		}
	}

	return errors.Join(errs...)
}

// RevealSecrets opens sealed credentials in place using EncryptionKey.
func (c *Config) RevealSecrets() error {
	fields := []struct {
		name string
		dst  *string
	}{
		{EnvTelegramToken, &c.TelegramToken},
		{EnvDatabaseURL, &c.DatabaseURL},
		{EnvPortalPassword, &c.PortalPassword},
	}

	for _, f := range fields {
		plain, err := secret.Reveal(c.EncryptionKey, *f.dst)
		if err != nil {
			return fmt.Errorf("failed to decrypt %s: %w", f.name, err)
		}
		*f.dst = plain
	}
	return nil
}

// Load builds the configuration: defaults, then the YAML file, then the
// dotenv file and process environment. Sealed secrets are opened last.
func Load(envFile, configFile string) (*Config, error) {
	cfg := NewConfig()
	cfg.ConfigFilePath = configFile

	if path := FindConfigFile(configFile); path != "" {
		cf, err := LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		if err := cf.Apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
		cfg.ConfigFilePath = path
	} else if configFile != "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configFile)
	}

	if err := LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.RevealSecrets(); err != nil {
		return nil, err
	}
	return cfg, nil
}

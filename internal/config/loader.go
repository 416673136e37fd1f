package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bluedeer/waterbill/internal/model"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".waterbill.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the YAML configuration file. Every field is optional; secrets
// belong in the environment, not here.
//
// Example:
//
//	portal:
//	  municipality_uid: "305"
//	  request_delay: 3s
//	schedule:
//	  refresh: "0 5 * * *"
//	alerts:
//	  threshold: 150
//	  recert_reminder_days: 45
//	  admin_telegram_id: 123456789
//	paths:
//	  screenshots: /var/lib/waterbill/screenshots
type File struct {
	Portal   PortalSection     `yaml:"portal"`
	Schedule map[string]string `yaml:"schedule"`
	Alerts   AlertSection      `yaml:"alerts"`
	Paths    PathSection       `yaml:"paths"`
	Timezone string            `yaml:"timezone"`
}

// PortalSection configures the BS&A scraper.
type PortalSection struct {
	BaseURL         string `yaml:"base_url"`
	MunicipalityUID string `yaml:"municipality_uid"`
	UserAgent       string `yaml:"user_agent"`
	RequestDelay    string `yaml:"request_delay"`
	Timeout         string `yaml:"timeout"`
	Headless        *bool  `yaml:"headless"`
	BrowserPath     string `yaml:"browser_path"`
	Proxy           string `yaml:"proxy"`
}

// AlertSection configures the notification thresholds.
type AlertSection struct {
	Threshold          *float64 `yaml:"threshold"`
	RecertReminderDays *int     `yaml:"recert_reminder_days"`
	AdminTelegramID    int64    `yaml:"admin_telegram_id"`
}

// PathSection configures output locations.
type PathSection struct {
	Screenshots string `yaml:"screenshots"`
	Discovery   string `yaml:"discovery"`
	Data        string `yaml:"data"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	if cf.Schedule == nil {
		cf.Schedule = make(map[string]string)
	}
	return &cf, nil
}

// Apply copies the values set in the file onto cfg.
func (f *File) Apply(cfg *Config) error {
	setString(&cfg.BaseURL, f.Portal.BaseURL)
	setString(&cfg.MunicipalityUID, f.Portal.MunicipalityUID)
	setString(&cfg.UserAgent, f.Portal.UserAgent)
	setString(&cfg.BrowserPath, f.Portal.BrowserPath)
	setString(&cfg.PortalProxy, f.Portal.Proxy)
	setString(&cfg.Timezone, f.Timezone)
	setString(&cfg.ScreenshotDir, f.Paths.Screenshots)
	setString(&cfg.DiscoveryDir, f.Paths.Discovery)
	setString(&cfg.DataDir, f.Paths.Data)

	if f.Portal.Headless != nil {
		cfg.HeadlessBrowser = *f.Portal.Headless
	}
	if err := setDuration(&cfg.RequestDelay, "portal.request_delay", f.Portal.RequestDelay); err != nil {
		return err
	}
	if err := setDuration(&cfg.Timeout, "portal.timeout", f.Portal.Timeout); err != nil {
		return err
	}

	if f.Alerts.Threshold != nil {
		cfg.WaterBillThreshold = model.FromDollars(*f.Alerts.Threshold)
	}
	if f.Alerts.RecertReminderDays != nil {
		cfg.RecertReminderDays = *f.Alerts.RecertReminderDays
	}
	if f.Alerts.AdminTelegramID != 0 {
		cfg.AdminTelegramID = f.Alerts.AdminTelegramID
	}

	for job, spec := range f.Schedule {
		if _, ok := cfg.Schedule[job]; !ok {
			return fmt.Errorf("unknown schedule job %q", job)
		}
		if spec != "" {
			cfg.Schedule[job] = spec
		}
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .waterbill.yaml in the current directory
// 3. Look for config.yaml in the XDG config directory
// 4. Look for .waterbill.yaml in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Connector kinds.
const (
	ConnectorSimulated = "simulated"
	ConnectorGoogle    = "google"
	ConnectorCalDAV    = "caldav"
)

// SimulatedConfig tunes the simulated calendar.
type SimulatedConfig struct {
	ConnectDelay time.Duration `yaml:"connect_delay"`
	PushDelay    time.Duration `yaml:"push_delay"`
	// Fail makes every connect and sync fail; useful to exercise error paths.
	Fail bool `yaml:"fail"`
}

// GoogleConfig selects the Google account and calendar.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	// TokenDir holds credentials.json and token-<account>.json files.
	TokenDir   string `yaml:"token_dir"`
	Account    string `yaml:"account"`
	CalendarID string `yaml:"calendar_id"`
}

// CalDAVConfig points at a CalDAV calendar to publish the feed to.
type CalDAVConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Calendar string `yaml:"calendar"`
}

// Config is the top-level application configuration.
type Config struct {
	// Database is the path of the local store. Empty means the XDG data dir.
	Database string `yaml:"database"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Timezone is the IANA zone used for calendar days ("Local" for the
	// system zone).
	Timezone string `yaml:"timezone"`

	// UpcomingDays is the default window of the upcoming view.
	UpcomingDays int `yaml:"upcoming_days"`

	// RefreshCron is the schedule of periodic syncs in watch mode.
	RefreshCron string `yaml:"refresh"`

	// Connector selects the external calendar: simulated, google or caldav.
	Connector string `yaml:"connector"`

	Simulated SimulatedConfig `yaml:"simulated"`
	Google    GoogleConfig    `yaml:"google"`
	CalDAV    CalDAVConfig    `yaml:"caldav"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		Timezone:     "Local",
		UpcomingDays: 7,
		RefreshCron:  "*/15 * * * *",
		Connector:    ConnectorSimulated,
		Simulated: SimulatedConfig{
			ConnectDelay: 2 * time.Second,
			PushDelay:    1 * time.Second,
		},
		Google: GoogleConfig{
			TokenDir:   ".",
			Account:    "default",
			CalendarID: "primary",
		},
	}
}

// Normalize fills in missing/zero values with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = def.LogLevel
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.UpcomingDays <= 0 {
		c.UpcomingDays = def.UpcomingDays
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	switch c.Connector {
	case ConnectorSimulated, ConnectorGoogle, ConnectorCalDAV:
	default:
		c.Connector = def.Connector
	}
	if c.Simulated.ConnectDelay < 0 {
		c.Simulated.ConnectDelay = 0
	}
	if c.Simulated.PushDelay < 0 {
		c.Simulated.PushDelay = 0
	}
	if c.Google.TokenDir == "" {
		c.Google.TokenDir = def.Google.TokenDir
	}
	if c.Google.Account == "" {
		c.Google.Account = def.Google.Account
	}
	if c.Google.CalendarID == "" {
		c.Google.CalendarID = def.Google.CalendarID
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	return loc, nil
}

// ApplyEnv overrides fields with the environment variables that are set.
func (c *Config) ApplyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.Database, "LIFECAL_DB")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Timezone, "LIFECAL_TIMEZONE")
	setString(&c.Connector, "LIFECAL_CONNECTOR")
	setString(&c.RefreshCron, "LIFECAL_REFRESH")
	setString(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&c.Google.TokenDir, "GOOGLE_TOKEN_DIR")
	setString(&c.Google.Account, "GOOGLE_ACCOUNT")
	setString(&c.Google.CalendarID, "GOOGLE_CALENDAR_ID")
	setString(&c.CalDAV.URL, "CALDAV_URL")
	setString(&c.CalDAV.Username, "CALDAV_USERNAME")
	setString(&c.CalDAV.Password, "CALDAV_PASSWORD")
	setString(&c.CalDAV.Calendar, "CALDAV_CALENDAR")
	if v := os.Getenv("LIFECAL_UPCOMING_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.UpcomingDays = n
		}
	}
	c.Normalize()
}

// DefaultPath returns the config file location under the XDG config dir.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "lifecal", "config.yaml"), nil
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there with 0600
// permissions and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically via a temp file and rename. The file is
// left with 0600 permissions since it may hold credentials.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".lifecal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

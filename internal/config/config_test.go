package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lifecal", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected config file to be written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if *again != *cfg {
		t.Fatalf("expected the written defaults to load back, got %+v", again)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
log_level: DEBUG
timezone: Europe/Berlin
upcoming_days: -3
connector: carrier-pigeon
refresh: "0 * * * *"
simulated:
  connect_delay: 250ms
  push_delay: -1s
caldav:
  url: https://dav.example.com/
  username: alice
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.LogLevel)
	}
	if cfg.UpcomingDays != 7 {
		t.Errorf("expected invalid upcoming_days to fall back to 7, got %d", cfg.UpcomingDays)
	}
	if cfg.Connector != ConnectorSimulated {
		t.Errorf("expected unknown connector to fall back to simulated, got %q", cfg.Connector)
	}
	if cfg.RefreshCron != "0 * * * *" {
		t.Errorf("unexpected refresh %q", cfg.RefreshCron)
	}
	if cfg.Simulated.ConnectDelay != 250*time.Millisecond || cfg.Simulated.PushDelay != 0 {
		t.Errorf("unexpected simulated delays %+v", cfg.Simulated)
	}
	if cfg.CalDAV.URL != "https://dav.example.com/" || cfg.CalDAV.Username != "alice" {
		t.Errorf("unexpected caldav config %+v", cfg.CalDAV)
	}
	if cfg.Google.CalendarID != "primary" {
		t.Errorf("expected google defaults to be kept, got %+v", cfg.Google)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected a parse error")
	}
	if _, err := Load(""); err == nil {
		t.Fatalf("expected an error for an empty path")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LIFECAL_DB", "/tmp/x.db")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LIFECAL_CONNECTOR", "google")
	t.Setenv("GOOGLE_CALENDAR_ID", "family")
	t.Setenv("CALDAV_PASSWORD", "secret")
	t.Setenv("LIFECAL_UPCOMING_DAYS", "14")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Database != "/tmp/x.db" || cfg.LogLevel != "warn" || cfg.Connector != ConnectorGoogle {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Google.CalendarID != "family" || cfg.CalDAV.Password != "secret" || cfg.UpcomingDays != 14 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv("LIFECAL_UPCOMING_DAYS", "soon")
	cfg = DefaultConfig()
	cfg.ApplyEnv()
	if cfg.UpcomingDays != 7 {
		t.Fatalf("expected an unparsable value to be ignored, got %d", cfg.UpcomingDays)
	}
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Fatalf("expected time.Local, got %v, %v", loc, err)
	}

	cfg.Timezone = "UTC"
	if loc, err := cfg.Location(); err != nil || loc.String() != "UTC" {
		t.Fatalf("expected UTC, got %v, %v", loc, err)
	}

	cfg.Timezone = "Mars/Olympus"
	if _, err := cfg.Location(); err == nil {
		t.Fatalf("expected an error for an unknown zone")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("Server.Address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.Database.Driver != "mongo" {
		t.Errorf("Database.Driver = %q, want mongo", cfg.Database.Driver)
	}
	if cfg.JWT.Expiration != time.Hour {
		t.Errorf("JWT.Expiration = %v, want 1h", cfg.JWT.Expiration)
	}
	if cfg.Scheduling.MaxRecurrenceCount != 365 {
		t.Errorf("Scheduling.MaxRecurrenceCount = %d, want 365", cfg.Scheduling.MaxRecurrenceCount)
	}
	if cfg.Scheduling.DefaultWindowDays != 30 {
		t.Errorf("Scheduling.DefaultWindowDays = %d, want 30", cfg.Scheduling.DefaultWindowDays)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("database:\n  driver: sqlite\n  sqlite_path: /tmp/x.db\nscheduling:\n  timezone: Europe/Berlin\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("SCHEDULING_MAX_RECURRENCE_COUNT", "52")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.SQLitePath != "/tmp/x.db" {
		t.Errorf("Database = %+v, want sqlite at /tmp/x.db", cfg.Database)
	}
	if cfg.JWT.Secret != "from-env" {
		t.Errorf("JWT.Secret = %q, want from-env", cfg.JWT.Secret)
	}
	if cfg.Scheduling.MaxRecurrenceCount != 52 {
		t.Errorf("MaxRecurrenceCount = %d, want 52", cfg.Scheduling.MaxRecurrenceCount)
	}
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if loc.String() != "Europe/Berlin" {
		t.Errorf("Location() = %s, want Europe/Berlin", loc)
	}
}

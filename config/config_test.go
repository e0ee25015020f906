package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PollIntervalMs != 1000 {
		t.Fatalf("expected default poll_interval_ms 1000, got %d", cfg.PollIntervalMs)
	}
	if cfg.BatchSize != 100 {
		t.Fatalf("expected default batch_size 100, got %d", cfg.BatchSize)
	}
	if cfg.CleanupCron != "0 2 * * *" {
		t.Fatalf("unexpected default cleanup_cron: %q", cfg.CleanupCron)
	}
}

func TestLoadFromTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eventsched.toml")
	contents := `
batch_size = 250
retention_days = 14
cleanup_cron = "30 3 * * *"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BatchSize != 250 {
		t.Fatalf("expected batch_size 250 from file, got %d", cfg.BatchSize)
	}
	if cfg.RetentionDays != 14 {
		t.Fatalf("expected retention_days 14 from file, got %d", cfg.RetentionDays)
	}
	if cfg.PollIntervalMs != 1000 {
		t.Fatalf("expected untouched keys to keep their default, got %d", cfg.PollIntervalMs)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("EVENTSCHED_BATCH_SIZE", "500")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BatchSize != 500 {
		t.Fatalf("expected env override to win, got %d", cfg.BatchSize)
	}
}

func TestValidateRejectsBadMaxRetries(t *testing.T) {
	cfg := &Config{
		PollIntervalMs:    1000,
		BatchSize:         10,
		LeaseDurationMin:  5,
		CleanupCron:       "0 2 * * *",
		MaxRetriesDefault: 11,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected max_retries_default > 10 to fail validation")
	}
}

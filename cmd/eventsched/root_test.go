package main

import (
	"log/slog"
	"testing"
)

func TestNewRootCmdRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()

	want := map[string]bool{"serve": false, "migrate": false, "cleanup": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected subcommand %q to be registered", name)
		}
	}
}

func TestVerboseFlagRaisesLogLevel(t *testing.T) {
	defer func() { logLevel = slog.LevelInfo }()
	logLevel = slog.LevelInfo

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--verbose", "migrate", "--config", "/nonexistent/path/does/not/matter.toml"})

	// runMigrate will fail fast trying to open a database that doesn't
	// exist; we only care that PersistentPreRun raised logLevel first.
	_ = cmd.Execute()

	if logLevel != slog.LevelDebug {
		t.Fatalf("expected --verbose to raise logLevel to Debug, got %v", logLevel)
	}
}

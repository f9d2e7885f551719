package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// offlineConfig is a complete configuration with all optional backends
// disabled, pointing Home Assistant at an unreachable local port so the
// service starts without external dependencies.
func offlineConfig(dbPath string) string {
	return `
site:
  id: test-site

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

homeassistant:
  base_url: "http://127.0.0.1:59123"
  token: "test-token"
  timeout: 1
  retry_attempts: 1
  retry_backoff: 10

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: 18095
  timeouts:
    read: 30
    write: 60
    idle: 120
`
}

func setConfigEnv(t *testing.T, path string) {
	t.Helper()
	originalEnv := os.Getenv("HOMESYNTH_CONFIG")
	t.Cleanup(func() { os.Setenv("HOMESYNTH_CONFIG", originalEnv) })
	os.Setenv("HOMESYNTH_CONFIG", path)
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	setConfigEnv(t, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
site:
  id: test-site

database:
  path: ""

homeassistant:
  token: "test-token"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	setConfigEnv(t, configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_OfflineStartupAndShutdown verifies the service starts with all
// optional backends disabled and shuts down cleanly on context cancel.
// The unreachable runtime downgrades to warnings, never startup failure.
func TestRun_OfflineStartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	if err := os.WriteFile(configPath, []byte(offlineConfig(dbPath)), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	setConfigEnv(t, configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v, want clean shutdown", err)
	}

	// Database file created and migrated
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("HOMESYNTH_CONFIG")
	defer os.Setenv("HOMESYNTH_CONFIG", originalEnv)

	os.Unsetenv("HOMESYNTH_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	setConfigEnv(t, expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

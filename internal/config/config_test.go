package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  name: localpix
  user: localpix
  password: secret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d; want 8080", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8082 {
		t.Errorf("metrics port = %d; want 8082", cfg.Server.MetricsPort)
	}
	if cfg.Ingest.WorkerCount != 4 {
		t.Errorf("worker count = %d; want 4", cfg.Ingest.WorkerCount)
	}
	if cfg.Ingest.QueueSize != 64 {
		t.Errorf("queue size = %d; want 64", cfg.Ingest.QueueSize)
	}
	if cfg.Ingest.ExtractTimeout != 30*time.Second {
		t.Errorf("extract timeout = %v; want 30s", cfg.Ingest.ExtractTimeout)
	}
	if cfg.Search.Threshold != 0.65 {
		t.Errorf("threshold = %v; want 0.65", cfg.Search.Threshold)
	}
	if cfg.Search.TopK != 20 {
		t.Errorf("top_k = %d; want 20", cfg.Search.TopK)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %s/%s; want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  metrics_port: 9102
  api_key: kiosk-key
search:
  threshold: 0.8
  top_k: 5
ingest:
  worker_count: 2
  queue_size: 16
  extract_timeout: 5s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port = %d; want 9090", cfg.Server.Port)
	}
	if cfg.Server.APIKey != "kiosk-key" {
		t.Errorf("api key = %q; want kiosk-key", cfg.Server.APIKey)
	}
	if cfg.Server.MetricsPort != 9102 {
		t.Errorf("metrics port = %d; want 9102", cfg.Server.MetricsPort)
	}
	if cfg.Search.Threshold != 0.8 {
		t.Errorf("threshold = %v; want 0.8", cfg.Search.Threshold)
	}
	if cfg.Search.TopK != 5 {
		t.Errorf("top_k = %d; want 5", cfg.Search.TopK)
	}
	if cfg.Ingest.ExtractTimeout != 5*time.Second {
		t.Errorf("extract timeout = %v; want 5s", cfg.Ingest.ExtractTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
database:
  host: filehost
`)

	t.Setenv("LOCALPIX_SERVER_PORT", "7070")
	t.Setenv("LOCALPIX_DB_HOST", "envhost")
	t.Setenv("LOCALPIX_API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("server port = %d; want env override 7070", cfg.Server.Port)
	}
	if cfg.Database.Host != "envhost" {
		t.Errorf("db host = %q; want env override envhost", cfg.Database.Host)
	}
	if cfg.Server.APIKey != "env-key" {
		t.Errorf("api key = %q; want env override", cfg.Server.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load succeeded on a missing file; want error")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	if _, err := Load(path); err == nil {
		t.Error("Load succeeded on malformed yaml; want error")
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, Name: "localpix", User: "app", Password: "pw"}
	want := "postgres://app:pw@db:5433/localpix?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN = %q; want %q", got, want)
	}
}

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
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}

	if cfg.Download.Directory != "." {
		t.Errorf("directory = %q, want %q", cfg.Download.Directory, ".")
	}
	if cfg.Download.Concurrency != 32 {
		t.Errorf("concurrency = %d, want 32", cfg.Download.Concurrency)
	}
	if cfg.Download.Retries != 0 {
		t.Errorf("retries = %d, want 0", cfg.Download.Retries)
	}
	if !cfg.Download.Resume {
		t.Error("resume must default to true")
	}
	if !cfg.History.Enabled {
		t.Error("history must default to enabled")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("logging defaults = %s/%s, want info/text", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
download:
  directory: /data/downloads
  concurrency: 8
  retries: 3
  resume: false
  headers:
    User-Agent: bulkget-test
  progress_interval: 5s
history:
  enabled: false
  path: /data/history.db
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Download.Directory != "/data/downloads" {
		t.Errorf("directory = %q", cfg.Download.Directory)
	}
	if cfg.Download.Concurrency != 8 {
		t.Errorf("concurrency = %d, want 8", cfg.Download.Concurrency)
	}
	if cfg.Download.Retries != 3 {
		t.Errorf("retries = %d, want 3", cfg.Download.Retries)
	}
	if cfg.Download.Resume {
		t.Error("resume = true, want false")
	}
	if cfg.Download.Headers["user-agent"] != "bulkget-test" {
		t.Errorf("headers = %v, want User-Agent entry", cfg.Download.Headers)
	}
	if got := cfg.Download.GetProgressInterval(); got != 5*time.Second {
		t.Errorf("progress interval = %v, want 5s", got)
	}
	if cfg.History.Enabled || cfg.History.Path != "/data/history.db" {
		t.Errorf("history = %+v", cfg.History)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %s/%s, want debug/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "concurrency out of range",
			content: `
download:
  concurrency: 300
`,
		},
		{
			name: "negative retries",
			content: `
download:
  retries: -1
`,
		},
		{
			name: "bad progress interval",
			content: `
download:
  progress_interval: soon
`,
		},
		{
			name: "unknown log level",
			content: `
logging:
  level: loud
`,
		},
		{
			name: "unknown log format",
			content: `
logging:
  format: xml
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load() accepted an invalid configuration")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() with a missing explicit config file must fail")
	}
}

func TestGetBufferSize(t *testing.T) {
	cfg := DownloadConfig{BufferSizeKB: 512}
	if got := cfg.GetBufferSize(); got != 512*1024 {
		t.Errorf("GetBufferSize() = %d, want %d", got, 512*1024)
	}

	cfg.BufferSizeKB = 0
	if got := cfg.GetBufferSize(); got != 256*1024 {
		t.Errorf("GetBufferSize() fallback = %d, want %d", got, 256*1024)
	}
}

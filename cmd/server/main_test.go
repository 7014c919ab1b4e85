package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-quest/internal/platform/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		wantDebug bool
		wantWarn  bool
		wantJSON  bool
	}{
		{"default info json", config.LogConfig{Level: "info", Format: "json"}, false, true, true},
		{"debug", config.LogConfig{Level: "DEBUG", Format: "json"}, true, true, true},
		{"error hides warn", config.LogConfig{Level: "error", Format: "json"}, false, false, true},
		{"unknown level is info", config.LogConfig{Level: "loud", Format: "json"}, false, true, true},
		{"text", config.LogConfig{Level: "info", Format: "text"}, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.cfg)
			ctx := context.Background()

			if got := logger.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := logger.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("warn enabled = %v, want %v", got, tt.wantWarn)
			}

			logger.Error("probe", "learner_id", "ana")
			isJSON := json.Valid(bytes.TrimSpace(buf.Bytes()))
			if isJSON != tt.wantJSON {
				t.Errorf("json output = %v, want %v (%q)", isJSON, tt.wantJSON, buf.String())
			}
		})
	}
}

func TestRun_MissingCatalog(t *testing.T) {
	cfg := &config.Config{
		CatalogPath: filepath.Join(t.TempDir(), "missing.yaml"),
		Progress:    config.ProgressConfig{UnlockThreshold: 70, Storage: config.StorageMemory},
	}
	err := run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "loading catalog") {
		t.Fatalf("run() error = %v, want catalog load failure", err)
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, []byte("regions:\n  - id: meadow\nconcepts:\n  - id: c1\n    region: meadow\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Server:      config.ServerConfig{Host: "127.0.0.1", Port: 0},
		CatalogPath: path,
		Progress:    config.ProgressConfig{UnlockThreshold: 70, Storage: config.StorageMemory},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := run(ctx, cfg); err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

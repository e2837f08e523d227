package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	elerrors "github.com/vango-dev/elements/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q", cfg.Metrics.Namespace)
	}
	if cfg.Ledger.Lossy {
		t.Error("Ledger.Lossy should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path() != "" {
		t.Errorf("Path = %q, want empty", cfg.Path())
	}
	if cfg.Loader.Concurrency != 8 {
		t.Errorf("Loader.Concurrency = %d, want default", cfg.Loader.Concurrency)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "elements.yaml")
	content := `sources:
  - ./components
  - s3://bucket/elements/
ledger:
  lossy: true
sheets:
  root: styles
  cacheTTL: 1m
server:
  addr: ":9000"
  burst: 5
watch:
  debounce: 50ms
log:
  level: debug
  format: text
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatal(err)
	}

	if len(cfg.Sources) != 2 || cfg.Sources[1] != "s3://bucket/elements/" {
		t.Errorf("Sources = %v", cfg.Sources)
	}
	if !cfg.Ledger.Lossy {
		t.Error("Ledger.Lossy should be true")
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.Burst != 5 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.RateLimit != 20 {
		t.Errorf("Server.RateLimit = %v, want default", cfg.Server.RateLimit)
	}
	if cfg.Sheets.CacheTTL != time.Minute || cfg.Watch.Debounce != 50*time.Millisecond {
		t.Errorf("durations = %v, %v", cfg.Sheets.CacheTTL, cfg.Watch.Debounce)
	}
	if cfg.SheetsRoot() != filepath.Join(dir, "styles") {
		t.Errorf("SheetsRoot = %q", cfg.SheetsRoot())
	}
	if cfg.Path() != path {
		t.Errorf("Path = %q, want %q", cfg.Path(), path)
	}
}

func TestLoad_FindsFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "elements.json"), []byte(`{"server":{"addr":":7000"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ELEMENTS_SERVER_ADDR", ":9999")
	t.Setenv("ELEMENTS_LEDGER_LOSSY", "true")

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("Server.Addr = %q, want env override", cfg.Server.Addr)
	}
	if !cfg.Ledger.Lossy {
		t.Error("Ledger.Lossy should be overridden by env")
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("log:\n  level: chatty\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		code string
	}{
		{name: "missing explicit file", path: filepath.Join(dir, "missing.yaml"), code: "E226"},
		{name: "malformed file", path: bad, code: "E226"},
		{name: "invalid value", path: invalid, code: "E225"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(viper.New(), tt.path)
			if !elerrors.HasCode(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "zero concurrency", modify: func(c *Config) { c.Loader.Concurrency = 0 }},
		{name: "zero rate", modify: func(c *Config) { c.Server.RateLimit = 0 }},
		{name: "zero burst", modify: func(c *Config) { c.Server.Burst = 0 }},
		{name: "negative ttl", modify: func(c *Config) { c.Sheets.CacheTTL = -time.Second }},
		{name: "bad format", modify: func(c *Config) { c.Log.Format = "xml" }},
		{name: "bad exporter", modify: func(c *Config) { c.Tracing.Exporter = "jaeger" }},
		{name: "empty source", modify: func(c *Config) { c.Sources = []string{" "} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			if err := cfg.Validate(); !elerrors.HasCode(err, "E225") {
				t.Errorf("Validate() = %v, want E225", err)
			}
		})
	}
}

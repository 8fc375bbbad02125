package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	URL     string        `envconfig:"URL" required:"true"`
	TopK    int           `split_words:"true" default:"4"`
	Timeout time.Duration `split_words:"true" default:"5s"`
}

func TestNewReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("CFGTEST_URL=postgres://example\nCFGTEST_TOP_K=7\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() {
		SetEnvFile("")
		os.Unsetenv("CFGTEST_URL")
		os.Unsetenv("CFGTEST_TOP_K")
	})

	SetEnvFile(path)
	cfg, err := New[sampleConfig]("CFGTEST")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.URL != "postgres://example" {
		t.Fatalf("URL = %q, want %q", cfg.URL, "postgres://example")
	}
	if cfg.TopK != 7 {
		t.Fatalf("TopK = %d, want 7", cfg.TopK)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("Timeout = %v, want 5s", cfg.Timeout)
	}
}

func TestNewEnvironmentWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.env")
	if err := os.WriteFile(path, []byte("CFGOVR_URL=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CFGOVR_URL", "from-env")
	t.Cleanup(func() { SetEnvFile("") })

	SetEnvFile(path)
	cfg, err := New[sampleConfig]("CFGOVR")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.URL != "from-env" {
		t.Fatalf("URL = %q, want %q", cfg.URL, "from-env")
	}
}

func TestNewMissingRequired(t *testing.T) {
	t.Cleanup(func() { SetEnvFile("") })
	SetEnvFile("")

	if _, err := New[sampleConfig]("CFGMISSING"); err == nil {
		t.Fatal("expected error for missing required field")
	}
}

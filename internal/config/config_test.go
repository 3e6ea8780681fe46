package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NotFound(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected no error for missing config, got: %v", err)
	}
	if cfg.Store.Path != "corpusvault.db" {
		t.Errorf("expected default store path, got %q", cfg.Store.Path)
	}
	if cfg.Pipeline.Workers <= 0 {
		t.Errorf("expected positive default worker count, got %d", cfg.Pipeline.Workers)
	}
}

func TestLoad_Valid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `
store:
  path: custom.db
rainbow:
  wordlist_dir: wl
  watch: true
pipeline:
  workers: 4
  queue_size: 10
email_aliases:
  - canonical: gmail.com
    alternates: ["googlemail.com", "gmail.co"]
`
	path := filepath.Join(dir, ".corpusvault.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Path != "custom.db" {
		t.Errorf("expected custom.db, got %q", cfg.Store.Path)
	}
	if !cfg.Rainbow.Watch {
		t.Error("expected rainbow.watch = true")
	}
	if cfg.Pipeline.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Pipeline.Workers)
	}
	if len(cfg.EmailAlias) != 1 || len(cfg.EmailAlias[0].Alternates) != 2 {
		t.Errorf("expected 1 alias with 2 alternates, got %+v", cfg.EmailAlias)
	}
}

func TestLoad_ZeroValuesFallBackToDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ".corpusvault.yaml")
	if err := os.WriteFile(path, []byte("store:\n  path: x.db\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.Workers <= 0 {
		t.Errorf("expected fallback worker count, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Enrichment.TimeoutMillis != 5000 {
		t.Errorf("expected default timeout, got %d", cfg.Enrichment.TimeoutMillis)
	}
}

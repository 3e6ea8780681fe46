// Package config loads the .corpusvault.yaml project configuration: a
// single yaml.v3-decoded struct with defaults applied after unmarshal.
// The resulting Config is immutable after Load returns.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// EmailAlias maps an alternate email domain to its canonical substitute,
// e.g. "googlemail.com" -> "gmail.com".
type EmailAlias struct {
	Canonical  string   `yaml:"canonical"`
	Alternates []string `yaml:"alternates"`
}

// StoreConfig controls the Persistence Core's on-disk file.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// RainbowConfig controls the wordlist directory backing the rainbow table.
type RainbowConfig struct {
	WordlistDir string `yaml:"wordlist_dir"`
	Watch       bool   `yaml:"watch"`
}

// PipelineConfig controls worker-pool sizing and queue depth.
type PipelineConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// EnrichmentConfig configures the optional external enrichment
// collaborators. Empty BaseURL disables the corresponding client.
type EnrichmentConfig struct {
	BreachBaseURL string `yaml:"breach_base_url"`
	BreachAPIKey  string `yaml:"breach_api_key"`
	EmbedBaseURL  string `yaml:"embed_base_url"`
	EmbedModel    string `yaml:"embed_model"`
	TimeoutMillis int    `yaml:"timeout_millis"`
}

// Config is the top-level .corpusvault.yaml shape.
type Config struct {
	Store       StoreConfig       `yaml:"store"`
	Rainbow     RainbowConfig     `yaml:"rainbow"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Enrichment  EnrichmentConfig  `yaml:"enrichment"`
	EmailAlias  []EmailAlias      `yaml:"email_aliases"`
	WorkingCopy WorkingCopyConfig `yaml:"working_copy"`
}

// WorkingCopyConfig controls the Working-Copy Manager.
type WorkingCopyConfig struct {
	Dir          string `yaml:"dir"`
	SecureDelete bool   `yaml:"secure_delete"`
}

// Default returns a Config with sensible defaults, the same values Load
// applies when a field is left unset in the YAML file.
func Default() Config {
	return Config{
		Store:   StoreConfig{Path: "corpusvault.db"},
		Rainbow: RainbowConfig{WordlistDir: "wordlists"},
		Pipeline: PipelineConfig{
			Workers:   runtime.NumCPU(),
			QueueSize: 256,
		},
		Enrichment: EnrichmentConfig{TimeoutMillis: 5000},
		EmailAlias: []EmailAlias{
			{Canonical: "gmail.com", Alternates: []string{"googlemail.com"}},
		},
		WorkingCopy: WorkingCopyConfig{Dir: os.TempDir()},
	}
}

// Load reads path and merges it over Default(). A missing file is not an
// error: Default() is returned unchanged, since the project config is
// optional.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = runtime.NumCPU()
	}
	if cfg.Pipeline.QueueSize <= 0 {
		cfg.Pipeline.QueueSize = 256
	}
	if cfg.Enrichment.TimeoutMillis <= 0 {
		cfg.Enrichment.TimeoutMillis = 5000
	}
	return cfg, nil
}

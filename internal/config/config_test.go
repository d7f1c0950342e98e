package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad fetcher type", func(c *Config) { c.Fetcher.Type = "curl" }},
		{"bad storage type", func(c *Config) { c.Storage.Type = "redis" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Type = "postgres" }},
		{"zero timeout", func(c *Config) { c.Engine.RequestTimeout = 0 }},
		{"page format without verb", func(c *Config) { c.Catalog.PagePathFormat = "/page" }},
		{"bad color strategy", func(c *Config) { c.Normalize.ColorStrategy = "guess" }},
		{"bad output format", func(c *Config) { c.Normalize.OutputFormat = "xlsx" }},
		{"bad root url", func(c *Config) { c.Catalog.RootURL = "ftp://example.com" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCollectionNameDefaultsToModel(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.CollectionName(); got != "focus" {
		t.Errorf("expected focus, got %q", got)
	}
	cfg.Storage.Collection = "focus_2024"
	if got := cfg.CollectionName(); got != "focus_2024" {
		t.Errorf("expected override, got %q", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "carharvest.yaml")
	content := `
catalog:
  model: mondeo
  root_url: https://www.hasznaltauto.hu/auto/ford/mondeo
engine:
  request_timeout: 5s
storage:
  type: memory
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Catalog.Model != "mondeo" {
		t.Errorf("expected model mondeo, got %q", cfg.Catalog.Model)
	}
	if cfg.Engine.RequestTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.Engine.RequestTimeout)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("expected memory storage, got %q", cfg.Storage.Type)
	}
	// Untouched sections keep their defaults.
	if cfg.Catalog.ResultItemClass != "talalati_lista_head" {
		t.Errorf("expected default result class, got %q", cfg.Catalog.ResultItemClass)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CARHARVEST_NORMALIZE_COLOR_STRATEGY", "split")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Normalize.ColorStrategy != "split" {
		t.Errorf("expected env override, got %q", cfg.Normalize.ColorStrategy)
	}
}

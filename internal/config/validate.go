package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Catalog.Model == "" {
		return fmt.Errorf("catalog.model must not be empty")
	}
	if cfg.Catalog.RootURL != "" {
		if err := ValidateURL(cfg.Catalog.RootURL); err != nil {
			return fmt.Errorf("catalog.root_url: %w", err)
		}
	}
	if cfg.Catalog.LinkFile == "" {
		return fmt.Errorf("catalog.link_file must not be empty")
	}
	if !strings.Contains(cfg.Catalog.PagePathFormat, "%d") {
		return fmt.Errorf("catalog.page_path_format must contain %%d, got %q", cfg.Catalog.PagePathFormat)
	}
	if cfg.Catalog.LastPageTitle == "" || cfg.Catalog.ResultItemClass == "" {
		return fmt.Errorf("catalog.last_page_title and catalog.result_item_class must be set")
	}
	if cfg.Catalog.TitleSelector == "" || cfg.Catalog.DetailsTableSelector == "" {
		return fmt.Errorf("catalog.title_selector and catalog.details_table_selector must be set")
	}

	if cfg.Engine.RequestTimeout <= 0 {
		return fmt.Errorf("engine.request_timeout must be > 0")
	}
	if cfg.Engine.Limit < 0 {
		return fmt.Errorf("engine.limit must be >= 0, got %d", cfg.Engine.Limit)
	}

	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.UserAgent == "" {
		return fmt.Errorf("fetcher.user_agent must not be empty")
	}

	switch cfg.Storage.Type {
	case "mongo":
		if cfg.Storage.URI == "" || cfg.Storage.Database == "" {
			return fmt.Errorf("storage.uri and storage.database are required for mongo")
		}
	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.type %q is not supported (valid: mongo, postgres, memory)", cfg.Storage.Type)
	}
	if cfg.Storage.Timeout <= 0 {
		return fmt.Errorf("storage.timeout must be > 0")
	}

	if cfg.Normalize.OutputFormat != "csv" && cfg.Normalize.OutputFormat != "jsonl" {
		return fmt.Errorf("normalize.output_format must be 'csv' or 'jsonl', got %q", cfg.Normalize.OutputFormat)
	}
	if cfg.Normalize.ColorStrategy != "regex" && cfg.Normalize.ColorStrategy != "split" {
		return fmt.Errorf("normalize.color_strategy must be 'regex' or 'split', got %q", cfg.Normalize.ColorStrategy)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is usable as a catalog address.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

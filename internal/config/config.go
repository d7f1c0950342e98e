package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for carharvest.
type Config struct {
	Catalog   CatalogConfig   `mapstructure:"catalog"   yaml:"catalog"`
	Engine    EngineConfig    `mapstructure:"engine"    yaml:"engine"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"   yaml:"fetcher"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Normalize NormalizeConfig `mapstructure:"normalize" yaml:"normalize"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// CatalogConfig describes the listing catalog and its page layout.
type CatalogConfig struct {
	Model                string `mapstructure:"model"                  yaml:"model"`
	RootURL              string `mapstructure:"root_url"               yaml:"root_url"`
	LinkFile             string `mapstructure:"link_file"              yaml:"link_file"`
	PagePathFormat       string `mapstructure:"page_path_format"       yaml:"page_path_format"`
	LastPageTitle        string `mapstructure:"last_page_title"        yaml:"last_page_title"`
	ResultItemClass      string `mapstructure:"result_item_class"      yaml:"result_item_class"`
	TitleSelector        string `mapstructure:"title_selector"         yaml:"title_selector"`
	DetailsTableSelector string `mapstructure:"details_table_selector" yaml:"details_table_selector"`
}

// EngineConfig controls the crawl controller.
type EngineConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	Limit          int           `mapstructure:"limit"           yaml:"limit"`
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"`
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	Stealth         bool          `mapstructure:"stealth"           yaml:"stealth"`
}

// StorageConfig selects and configures the record store.
type StorageConfig struct {
	Type        string        `mapstructure:"type"         yaml:"type"`
	URI         string        `mapstructure:"uri"          yaml:"uri"`
	Database    string        `mapstructure:"database"     yaml:"database"`
	Collection  string        `mapstructure:"collection"   yaml:"collection"`
	PostgresDSN string        `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
	Timeout     time.Duration `mapstructure:"timeout"      yaml:"timeout"`
}

// NormalizeConfig controls the normalization pass and its output artifact.
type NormalizeConfig struct {
	TranslationFile string `mapstructure:"translation_file" yaml:"translation_file"`
	OutputPath      string `mapstructure:"output_path"      yaml:"output_path"`
	OutputFormat    string `mapstructure:"output_format"    yaml:"output_format"`
	ColorStrategy   string `mapstructure:"color_strategy"   yaml:"color_strategy"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level      string `mapstructure:"level"       yaml:"level"`
	Format     string `mapstructure:"format"      yaml:"format"`
	Output     string `mapstructure:"output"      yaml:"output"`
	FailureLog string `mapstructure:"failure_log" yaml:"failure_log"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// CollectionName returns the store collection, which defaults to the model name.
func (c *Config) CollectionName() string {
	if c.Storage.Collection != "" {
		return c.Storage.Collection
	}
	return c.Catalog.Model
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Model:                "focus",
			RootURL:              "https://www.hasznaltauto.hu/auto/ford/focus",
			LinkFile:             "links.txt",
			PagePathFormat:       "/page%d",
			LastPageTitle:        "Utolsó oldal",
			ResultItemClass:      "talalati_lista_head",
			TitleSelector:        `span[property="p:name"]`,
			DetailsTableSelector: "table.hirdetesadatok",
		},
		Engine: EngineConfig{
			RequestTimeout: 30 * time.Second,
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_12_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/59.0.3071.115 Safari/537.36",
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    10,
		},
		Storage: StorageConfig{
			Type:     "mongo",
			URI:      "mongodb://localhost:27017",
			Database: "cars",
			Timeout:  10 * time.Second,
		},
		Normalize: NormalizeConfig{
			TranslationFile: "dictionary.json",
			OutputPath:      "used_ford_focuses.csv",
			OutputFormat:    "csv",
			ColorStrategy:   "regex",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FailureLog: "scrape.log",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

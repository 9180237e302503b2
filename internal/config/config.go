package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for mlwatch.
type Config struct {
	Site    SiteConfig    `mapstructure:"site"    yaml:"site"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Collect CollectConfig `mapstructure:"collect" yaml:"collect"`
	Pacing  PacingConfig  `mapstructure:"pacing"  yaml:"pacing"`
	Stores  StoresConfig  `mapstructure:"stores"  yaml:"stores"`
	Output  OutputConfig  `mapstructure:"output"  yaml:"output"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// SiteConfig locates the marketplace being watched.
type SiteConfig struct {
	// SearchBase is the listing-search URL prefix; the escaped term is
	// appended to it.
	SearchBase string `mapstructure:"search_base" yaml:"search_base"`

	// PageSize is the number of results the site serves per listing
	// page, used to compute pagination offsets.
	PageSize int `mapstructure:"page_size" yaml:"page_size"`
}

// BrowserConfig controls the browsing session.
type BrowserConfig struct {
	Headless      bool          `mapstructure:"headless"       yaml:"headless"`
	Bin           string        `mapstructure:"bin"            yaml:"bin"`
	NavTimeout    time.Duration `mapstructure:"nav_timeout"    yaml:"nav_timeout"`
	SearchRetries int           `mapstructure:"search_retries" yaml:"search_retries"`
	DetailRetries int           `mapstructure:"detail_retries" yaml:"detail_retries"`
}

// CollectConfig controls the per-term collection run.
type CollectConfig struct {
	// DesiredCount is how many deduplicated results to capture per term.
	DesiredCount int `mapstructure:"desired_count" yaml:"desired_count"`

	// EnrichLimit caps how many records per term get a detail-page
	// visit; 0 enriches all of them.
	EnrichLimit int `mapstructure:"enrich_limit" yaml:"enrich_limit"`

	// BlockThreshold is how many consecutive blocked terms abort the
	// whole run.
	BlockThreshold int `mapstructure:"block_threshold" yaml:"block_threshold"`
}

// DelayRange bounds one randomized pacing delay.
type DelayRange struct {
	Min time.Duration `mapstructure:"min" yaml:"min"`
	Max time.Duration `mapstructure:"max" yaml:"max"`
}

// PacingConfig controls anti-detection pacing.
type PacingConfig struct {
	BetweenTerms DelayRange `mapstructure:"between_terms" yaml:"between_terms"`
	BetweenPages DelayRange `mapstructure:"between_pages" yaml:"between_pages"`
	BeforeDetail DelayRange `mapstructure:"before_detail" yaml:"before_detail"`

	// Scroll enables humanized scrolling on loaded pages.
	Scroll bool `mapstructure:"scroll" yaml:"scroll"`
}

// StoresConfig names the seller accounts the caller controls.
type StoresConfig struct {
	Own []string `mapstructure:"own" yaml:"own"`
}

// MongoConfig optionally mirrors results to MongoDB.
type MongoConfig struct {
	Enabled    bool   `mapstructure:"enabled"    yaml:"enabled"`
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// OutputConfig controls report and sink output.
type OutputConfig struct {
	Path    string      `mapstructure:"path"    yaml:"path"`
	Format  string      `mapstructure:"format"  yaml:"format"` // xlsx, json, jsonl
	Columns []string    `mapstructure:"columns" yaml:"columns"`
	Mongo   MongoConfig `mapstructure:"mongo"   yaml:"mongo"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			SearchBase: "https://lista.mercadolivre.com.br/",
			PageSize:   50,
		},
		Browser: BrowserConfig{
			Headless:      true,
			NavTimeout:    30 * time.Second,
			SearchRetries: 2,
			DetailRetries: 2,
		},
		Collect: CollectConfig{
			DesiredCount:   5,
			EnrichLimit:    0,
			BlockThreshold: 3,
		},
		Pacing: PacingConfig{
			BetweenTerms: DelayRange{Min: 2500 * time.Millisecond, Max: 5500 * time.Millisecond},
			BetweenPages: DelayRange{Min: 1 * time.Second, Max: 3 * time.Second},
			BeforeDetail: DelayRange{Min: 600 * time.Millisecond, Max: 1600 * time.Millisecond},
			Scroll:       true,
		},
		Output: OutputConfig{
			Path:   "./mlwatch-report.xlsx",
			Format: "xlsx",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

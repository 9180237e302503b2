package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values. Any error here
// is fatal at run start; no partial run is attempted.
func Validate(cfg *Config) error {
	if cfg.Site.SearchBase == "" {
		return fmt.Errorf("site.search_base must not be empty")
	}
	if u, err := url.Parse(cfg.Site.SearchBase); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site.search_base %q is not an absolute URL", cfg.Site.SearchBase)
	}
	if cfg.Site.PageSize < 1 {
		return fmt.Errorf("site.page_size must be >= 1, got %d", cfg.Site.PageSize)
	}

	if cfg.Browser.NavTimeout <= 0 {
		return fmt.Errorf("browser.nav_timeout must be > 0")
	}
	if cfg.Browser.SearchRetries < 0 {
		return fmt.Errorf("browser.search_retries must be >= 0, got %d", cfg.Browser.SearchRetries)
	}
	if cfg.Browser.DetailRetries < 0 {
		return fmt.Errorf("browser.detail_retries must be >= 0, got %d", cfg.Browser.DetailRetries)
	}

	if cfg.Collect.DesiredCount < 1 {
		return fmt.Errorf("collect.desired_count must be >= 1, got %d", cfg.Collect.DesiredCount)
	}
	if cfg.Collect.EnrichLimit < 0 {
		return fmt.Errorf("collect.enrich_limit must be >= 0, got %d", cfg.Collect.EnrichLimit)
	}
	if cfg.Collect.BlockThreshold < 1 {
		return fmt.Errorf("collect.block_threshold must be >= 1, got %d", cfg.Collect.BlockThreshold)
	}

	for name, r := range map[string]DelayRange{
		"pacing.between_terms": cfg.Pacing.BetweenTerms,
		"pacing.between_pages": cfg.Pacing.BetweenPages,
		"pacing.before_detail": cfg.Pacing.BeforeDetail,
	} {
		if r.Min < 0 {
			return fmt.Errorf("%s.min must be >= 0", name)
		}
		if r.Max < r.Min {
			return fmt.Errorf("%s.max must be >= min", name)
		}
	}

	for _, s := range cfg.Stores.Own {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("stores.own contains a blank entry")
		}
	}

	switch cfg.Output.Format {
	case "xlsx", "json", "jsonl":
	default:
		return fmt.Errorf("output.format %q is not supported (valid: xlsx, json, jsonl)", cfg.Output.Format)
	}
	if cfg.Output.Path == "" {
		return fmt.Errorf("output.path must not be empty")
	}

	if cfg.Output.Mongo.Enabled {
		if cfg.Output.Mongo.URI == "" {
			return fmt.Errorf("output.mongo.uri must be set when mongo is enabled")
		}
		if cfg.Output.Mongo.Database == "" || cfg.Output.Mongo.Collection == "" {
			return fmt.Errorf("output.mongo.database and output.mongo.collection must be set when mongo is enabled")
		}
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

	return nil
}

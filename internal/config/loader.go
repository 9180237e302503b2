package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("MLWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("mlwatch")
		v.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".mlwatch"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing config file is fine when not explicitly requested.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("site.search_base", cfg.Site.SearchBase)
	v.SetDefault("site.page_size", cfg.Site.PageSize)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.nav_timeout", cfg.Browser.NavTimeout)
	v.SetDefault("browser.search_retries", cfg.Browser.SearchRetries)
	v.SetDefault("browser.detail_retries", cfg.Browser.DetailRetries)

	v.SetDefault("collect.desired_count", cfg.Collect.DesiredCount)
	v.SetDefault("collect.enrich_limit", cfg.Collect.EnrichLimit)
	v.SetDefault("collect.block_threshold", cfg.Collect.BlockThreshold)

	v.SetDefault("pacing.between_terms.min", cfg.Pacing.BetweenTerms.Min)
	v.SetDefault("pacing.between_terms.max", cfg.Pacing.BetweenTerms.Max)
	v.SetDefault("pacing.between_pages.min", cfg.Pacing.BetweenPages.Min)
	v.SetDefault("pacing.between_pages.max", cfg.Pacing.BetweenPages.Max)
	v.SetDefault("pacing.before_detail.min", cfg.Pacing.BeforeDetail.Min)
	v.SetDefault("pacing.before_detail.max", cfg.Pacing.BeforeDetail.Max)
	v.SetDefault("pacing.scroll", cfg.Pacing.Scroll)

	v.SetDefault("output.path", cfg.Output.Path)
	v.SetDefault("output.format", cfg.Output.Format)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}

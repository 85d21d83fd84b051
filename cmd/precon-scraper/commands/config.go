package commands

import (
	"errors"
	"fmt"
	"os"
	"precon-scraper/internal/configutil"
	"precon-scraper/internal/pipeline"
	"precon-scraper/internal/scrapers/precons"
	"time"

	"github.com/spf13/pflag"
)

const defaultConfigPath = "precons.json5"

// Config is read from precons.json5 (and precons.local.json5), flags that are
// set explicitly take precedence over both files.
type Config struct {
	SourceUrl   string  `json:"sourceUrl"`
	OutDir      string  `json:"outDir"`
	TempDir     string  `json:"tempDir"`
	Clean       bool    `json:"clean"`
	Debug       bool    `json:"debug"`
	Concurrency int     `json:"concurrency"`
	Timeout     string  `json:"timeout"`
	Retries     int     `json:"retries"`
	Rate        float64 `json:"rate"`

	Selectors struct {
		SetGroup      string `json:"setGroup"`
		DecklistGroup string `json:"decklistGroup"`
		Entry         string `json:"entry"`
	} `json:"selectors"`
}

func defaultConfig() Config {
	cfg := Config{
		SourceUrl:   "https://mtg.wtf/deck",
		OutDir:      "./decks",
		TempDir:     "./temp",
		Concurrency: pipeline.DefaultConcurrency,
		Timeout:     "30s",
		Retries:     2,
		Rate:        2,
	}
	cfg.Selectors.SetGroup = precons.DefaultSetGroupSelector
	cfg.Selectors.DecklistGroup = precons.DefaultDecklistGroupSelector
	cfg.Selectors.Entry = precons.DefaultEntrySelector
	return cfg
}

func (c Config) timeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parse timeout '%s': %w", c.Timeout, err)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return timeout, nil
}

func (c Config) validate() error {
	if c.SourceUrl == "" {
		return fmt.Errorf("sourceUrl must not be empty")
	}
	if c.OutDir == "" || c.TempDir == "" {
		return fmt.Errorf("outDir and tempDir must not be empty")
	}
	if c.Concurrency < 1 || c.Concurrency > pipeline.MaxConcurrency {
		return fmt.Errorf("concurrency must be within [1, %d], got %d", pipeline.MaxConcurrency, c.Concurrency)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if c.Rate < 0 {
		return fmt.Errorf("rate must not be negative, got %g", c.Rate)
	}
	_, err := c.timeout()
	return err
}

// resolveConfig merges defaults < config file < local config file < flags.
// A missing config file is only an error if its path was given explicitly.
func resolveConfig(path string, explicitPath bool, flags *pflag.FlagSet, fromFlags Config) (Config, error) {
	cfg := defaultConfig()

	fileCfg, err := configutil.ReadConfig[Config](path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if explicitPath {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		cfg, err = configutil.MergeOver(cfg, fileCfg)
		if err != nil {
			return Config{}, err
		}
	}

	changed := func(name string) bool {
		return flags != nil && flags.Changed(name)
	}
	if changed("sourceUrl") {
		cfg.SourceUrl = fromFlags.SourceUrl
	}
	if changed("outDir") {
		cfg.OutDir = fromFlags.OutDir
	}
	if changed("tempDir") {
		cfg.TempDir = fromFlags.TempDir
	}
	if changed("clean") {
		cfg.Clean = fromFlags.Clean
	}
	if changed("debug") {
		cfg.Debug = fromFlags.Debug
	}
	if changed("concurrency") {
		cfg.Concurrency = fromFlags.Concurrency
	}
	if changed("timeout") {
		cfg.Timeout = fromFlags.Timeout
	}
	if changed("retries") {
		cfg.Retries = fromFlags.Retries
	}
	if changed("rate") {
		cfg.Rate = fromFlags.Rate
	}

	return cfg, cfg.validate()
}

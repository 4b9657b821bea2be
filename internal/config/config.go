// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. POLYBOT_PAPER_STARTING_CASH. Every key is
// POLYBOT_<SECTION>_<FIELD> with the field name split on case (ClobWSURL reads CLOB_WSURL).
// Bare names such as STARTING_CASH are never read.
const EnvPrefix = "POLYBOT"

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name" split_words:"true"`
	Env         string `yaml:"env" split_words:"true"`
	MetricsAddr string `yaml:"metrics_addr" split_words:"true"`
	LogLevel    string `yaml:"log_level" split_words:"true"`
}

// Exchange describes the Polymarket endpoints the bot reads from.
type Exchange struct {
	Provider         string `yaml:"provider" split_words:"true"`
	ClobBaseURL      string `yaml:"clob_base_url" split_words:"true"`
	ClobWSURL        string `yaml:"clob_ws_url" split_words:"true"`
	GammaBaseURL     string `yaml:"gamma_base_url" split_words:"true"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms" split_words:"true"`
	TokenID          string `yaml:"token_id" split_words:"true"`
}

// Discovery configures the market search that picks the traded token.
type Discovery struct {
	Query        string `yaml:"query" split_words:"true"`
	MaxHits      int    `yaml:"max_hits" split_words:"true"`
	ListingLimit int    `yaml:"listing_limit" split_words:"true"`
	CacheTTLSecs int    `yaml:"cache_ttl_secs" split_words:"true"`
}

// Poll controls loop cadence and the error budget for structural failures.
type Poll struct {
	IntervalMs          int `yaml:"interval_ms" split_words:"true"`
	RetryIntervalMs     int `yaml:"retry_interval_ms" split_words:"true"`
	IncompleteWaitMs    int `yaml:"incomplete_wait_ms" split_words:"true"`
	MaxStructuralErrors int `yaml:"max_structural_errors" split_words:"true"`
}

// Risk encodes guard-rails for how much size a single paper command may take on.
type Risk struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade" split_words:"true"`
}

// Paper captures paper-trading account settings.
type Paper struct {
	StartingCash float64 `yaml:"starting_cash" split_words:"true"`
	FeeRate      float64 `yaml:"fee_rate" split_words:"true"`
	FillsPath    string  `yaml:"fills_path" split_words:"true"`
	Interactive  bool    `yaml:"interactive" split_words:"true"`
}

// Strategy names the recommendation policy.
type Strategy struct {
	Mode string `yaml:"mode" split_words:"true"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App       `yaml:"app"`
	Exchange  Exchange  `yaml:"exchange"`
	Discovery Discovery `yaml:"discovery"`
	Poll      Poll      `yaml:"poll"`
	Risk      Risk      `yaml:"risk"`
	Paper     Paper     `yaml:"paper"`
	Strategy  Strategy  `yaml:"strategy"`
}

// Default returns the settings used when no file overrides them.
func Default() Config {
	return Config{
		App: App{
			Name:        "polybot",
			Env:         "dev",
			MetricsAddr: ":9102",
			LogLevel:    "info",
		},
		Exchange: Exchange{
			Provider:         "http",
			ClobBaseURL:      "https://clob.polymarket.com",
			ClobWSURL:        "wss://ws-subscriptions-clob.polymarket.com/ws/market",
			GammaBaseURL:     "https://gamma-api.polymarket.com",
			RequestTimeoutMs: 15000,
		},
		Discovery: Discovery{
			MaxHits:      8,
			ListingLimit: 200,
			CacheTTLSecs: 60,
		},
		Poll: Poll{
			IntervalMs:          1000,
			RetryIntervalMs:     2000,
			IncompleteWaitMs:    2000,
			MaxStructuralErrors: 5,
		},
		Paper: Paper{
			StartingCash: 100,
			Interactive:  true,
		},
		Strategy: Strategy{Mode: "spread_momentum"},
	}
}

// Load reads a YAML file on top of Default, applies .env and environment overrides, and validates.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := ApplyEnv(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ApplyEnv overlays POLYBOT_* variables; a missing .env file is not an error.
func ApplyEnv(cfg *Config) error {
	_ = godotenv.Load()
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}
	return nil
}

// Validate rejects settings the loop cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Paper.StartingCash < 0 {
		errs = append(errs, errors.New("paper.starting_cash must be >= 0"))
	}
	if c.Paper.FeeRate < 0 || c.Paper.FeeRate >= 1 {
		errs = append(errs, errors.New("paper.fee_rate must be in [0,1)"))
	}
	if c.Poll.IntervalMs <= 0 {
		errs = append(errs, errors.New("poll.interval_ms must be > 0"))
	}
	if c.Poll.RetryIntervalMs < c.Poll.IntervalMs {
		errs = append(errs, errors.New("poll.retry_interval_ms must be >= poll.interval_ms"))
	}
	if c.Poll.MaxStructuralErrors <= 0 {
		errs = append(errs, errors.New("poll.max_structural_errors must be > 0"))
	}
	if c.Risk.MaxNotionalPerTrade < 0 {
		errs = append(errs, errors.New("risk.max_notional_per_trade must be >= 0"))
	}
	return errors.Join(errs...)
}

// PollInterval is the steady-state pause between cycles.
func (p Poll) PollInterval() time.Duration { return time.Duration(p.IntervalMs) * time.Millisecond }

// RetryInterval is the pause after a failed fetch.
func (p Poll) RetryInterval() time.Duration {
	return time.Duration(p.RetryIntervalMs) * time.Millisecond
}

// IncompleteWait is the pause after a one-sided book.
func (p Poll) IncompleteWait() time.Duration {
	if p.IncompleteWaitMs <= 0 {
		return p.RetryInterval()
	}
	return time.Duration(p.IncompleteWaitMs) * time.Millisecond
}

// RequestTimeout bounds a single HTTP call.
func (e Exchange) RequestTimeout() time.Duration {
	return time.Duration(e.RequestTimeoutMs) * time.Millisecond
}

// CacheTTL is how long a market listing stays fresh.
func (d Discovery) CacheTTL() time.Duration { return time.Duration(d.CacheTTLSecs) * time.Second }

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

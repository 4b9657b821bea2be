package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "polybot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.Exchange.Provider != "stub" {
		t.Fatalf("unexpected provider: %s", cfg.Exchange.Provider)
	}
	if cfg.Exchange.TokenID != "1234567890" {
		t.Fatalf("unexpected token id: %s", cfg.Exchange.TokenID)
	}
	if cfg.Discovery.Query != "bitcoin" || cfg.Discovery.MaxHits != 4 {
		t.Fatalf("unexpected discovery: %+v", cfg.Discovery)
	}
	if cfg.Poll.PollInterval().Milliseconds() != 250 {
		t.Fatalf("unexpected poll interval: %s", cfg.Poll.PollInterval())
	}
	if cfg.Poll.RetryInterval().Milliseconds() != 750 {
		t.Fatalf("unexpected retry interval: %s", cfg.Poll.RetryInterval())
	}
	if cfg.Poll.MaxStructuralErrors != 3 {
		t.Fatalf("unexpected structural budget: %d", cfg.Poll.MaxStructuralErrors)
	}
	if cfg.Risk.MaxNotionalPerTrade != 25 {
		t.Fatalf("unexpected max notional: %.2f", cfg.Risk.MaxNotionalPerTrade)
	}
	if cfg.Paper.StartingCash != 100 {
		t.Fatalf("expected starting cash 100, got %.2f", cfg.Paper.StartingCash)
	}
	if cfg.Paper.FeeRate != 0.002 {
		t.Fatalf("expected fee rate 0.002, got %.4f", cfg.Paper.FeeRate)
	}
	if cfg.Paper.Interactive {
		t.Fatalf("expected interactive disabled")
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Exchange.ClobWSURL != Default().Exchange.ClobWSURL {
		t.Fatalf("expected default ws url, got %q", cfg.Exchange.ClobWSURL)
	}
	if cfg.Discovery.ListingLimit != 200 {
		t.Fatalf("expected default listing limit, got %d", cfg.Discovery.ListingLimit)
	}
	if cfg.Strategy.Mode != "spread_momentum" {
		t.Fatalf("expected default strategy mode, got %q", cfg.Strategy.Mode)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("POLYBOT_PAPER_STARTING_CASH", "250")
	t.Setenv("POLYBOT_EXCHANGE_TOKEN_ID", "999")

	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paper.StartingCash != 250 {
		t.Fatalf("expected env starting cash 250, got %.2f", cfg.Paper.StartingCash)
	}
	if cfg.Exchange.TokenID != "999" {
		t.Fatalf("expected env token id, got %s", cfg.Exchange.TokenID)
	}
}

func TestLoadEnvSplitWords(t *testing.T) {
	t.Setenv("POLYBOT_DISCOVERY_MAX_HITS", "11")
	t.Setenv("POLYBOT_POLL_MAX_STRUCTURAL_ERRORS", "9")

	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Discovery.MaxHits != 11 || cfg.Poll.MaxStructuralErrors != 9 {
		t.Fatalf("expected env overrides, got hits=%d budget=%d", cfg.Discovery.MaxHits, cfg.Poll.MaxStructuralErrors)
	}
}

func TestLoadIgnoresUnprefixedEnv(t *testing.T) {
	for key, val := range map[string]string{
		"STARTING_CASH":  "5",
		"FEE_RATE":       "0.5",
		"PROVIDER":       "ws",
		"TOKEN_ID":       "leaked",
		"QUERY":          "leaked",
		"LOG_LEVEL":      "error",
		"INTERVAL_MS":    "5",
		"MAX_HITS":       "1",
		"PAPER_FEE_RATE": "0.5",
	} {
		t.Setenv(key, val)
	}

	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paper.StartingCash != 100 || cfg.Paper.FeeRate != 0.002 {
		t.Fatalf("paper settings leaked from env: %+v", cfg.Paper)
	}
	if cfg.Exchange.Provider != "stub" || cfg.Exchange.TokenID != "1234567890" {
		t.Fatalf("exchange settings leaked from env: %+v", cfg.Exchange)
	}
	if cfg.Discovery.Query != "bitcoin" || cfg.Discovery.MaxHits != 4 {
		t.Fatalf("discovery settings leaked from env: %+v", cfg.Discovery)
	}
	if cfg.Poll.IntervalMs != 250 {
		t.Fatalf("poll interval leaked from env: %d", cfg.Poll.IntervalMs)
	}
	if cfg.App.LogLevel != "debug" {
		t.Fatalf("log level leaked from env")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateRejectsBadPoll(t *testing.T) {
	cfg := Default()
	cfg.Poll.RetryIntervalMs = 10
	cfg.Poll.IntervalMs = 100
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected retry interval shorter than poll interval to fail")
	}

	cfg = Default()
	cfg.Paper.FeeRate = -0.1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected negative fee rate to fail")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Exchange.TokenID = "42"
	cfg.Paper.FeeRate = 0.01
	if err := Save(path, &cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Exchange.TokenID != "42" || loaded.Paper.FeeRate != 0.01 {
		t.Fatalf("unexpected reloaded config: %+v", loaded)
	}
}

package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "quantpaper-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if len(cfg.App.Symbols) != 2 || cfg.App.Symbols[0] != "600000" {
		t.Fatalf("unexpected symbols: %+v", cfg.App.Symbols)
	}
	if cfg.Provider.Type != ProviderEastmoney {
		t.Fatalf("unexpected provider type: %s", cfg.Provider.Type)
	}
	if cfg.Provider.Eastmoney.MinSpacingMs != 500 {
		t.Fatalf("unexpected min spacing: %d", cfg.Provider.Eastmoney.MinSpacingMs)
	}
	if cfg.Strategy.Params.ShortPeriod != 5 || cfg.Strategy.Params.LongPeriod != 20 {
		t.Fatalf("unexpected MA periods: %+v", cfg.Strategy.Params)
	}
	if cfg.Broker.CashFraction != 0.25 {
		t.Fatalf("unexpected cash fraction: %.2f", cfg.Broker.CashFraction)
	}
	if cfg.Broker.LotSize != 100 {
		t.Fatalf("unexpected lot size: %d", cfg.Broker.LotSize)
	}
	if cfg.Hub.QueueSize != 64 {
		t.Fatalf("unexpected queue size: %d", cfg.Hub.QueueSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Config{App: App{Symbols: []string{"600519"}}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if cfg.Provider.Type != ProviderSimulated {
		t.Fatalf("expected simulated default, got %s", cfg.Provider.Type)
	}
	if cfg.Strategy.Mode != StrategyMACross {
		t.Fatalf("expected ma_cross default, got %s", cfg.Strategy.Mode)
	}
	if cfg.Broker.CashFraction != 0.5 {
		t.Fatalf("expected 0.5 cash fraction default, got %.2f", cfg.Broker.CashFraction)
	}
	if cfg.App.IntervalMs != 1000 {
		t.Fatalf("expected 1000ms interval default, got %d", cfg.App.IntervalMs)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]Config{
		"no symbols":       {},
		"duplicate symbol": {App: App{Symbols: []string{"600000", "600000"}}},
		"bad provider":     {App: App{Symbols: []string{"600000"}}, Provider: Provider{Type: "quandl"}},
		"bad strategy":     {App: App{Symbols: []string{"600000"}}, Strategy: Strategy{Mode: "momentum"}},
		"inverted periods": {App: App{Symbols: []string{"600000"}}, Strategy: Strategy{Mode: StrategyMACross, Params: StrategyParams{ShortPeriod: 30, LongPeriod: 10}}},
		"inverted rsi":     {App: App{Symbols: []string{"600000"}}, Strategy: Strategy{Mode: StrategyRSI, Params: StrategyParams{Oversold: 80, Overbought: 20}}},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

// Package config exposes strongly typed application configuration structs
// loaded from YAML. The pipeline packages only ever see these structs after
// Validate has filled in defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings.
type App struct {
	Name       string   `yaml:"name"`
	ListenAddr string   `yaml:"listen_addr"`
	LogLevel   string   `yaml:"log_level"`
	IntervalMs int      `yaml:"interval_ms"`
	Symbols    []string `yaml:"symbols"`
}

// Simulated configures the deterministic random-walk provider.
type Simulated struct {
	StartPrice float64 `yaml:"start_price"`
	Drift      float64 `yaml:"drift"`
	Volatility float64 `yaml:"volatility"`
	Seed       int64   `yaml:"seed"`
}

// Eastmoney configures the polled HTTP quote provider.
type Eastmoney struct {
	BaseURL      string `yaml:"base_url"`
	TimeoutMs    int    `yaml:"timeout_ms"`
	MinSpacingMs int    `yaml:"min_spacing_ms"`
	Proxy        string `yaml:"proxy"`
}

// Provider selects and parameterizes the tick source.
type Provider struct {
	Type      string    `yaml:"type"`
	Simulated Simulated `yaml:"simulated"`
	Eastmoney Eastmoney `yaml:"eastmoney"`
}

// StrategyParams groups tunable knobs shared by the strategy variants.
type StrategyParams struct {
	ShortPeriod int     `yaml:"short_period"`
	LongPeriod  int     `yaml:"long_period"`
	RSIPeriod   int     `yaml:"rsi_period"`
	Oversold    float64 `yaml:"oversold"`
	Overbought  float64 `yaml:"overbought"`
}

// Strategy specifies which strategy is active along with the parameter bundle.
type Strategy struct {
	Mode   string         `yaml:"mode"`
	Params StrategyParams `yaml:"params"`
}

// Broker captures paper-trading account settings.
type Broker struct {
	StartingCash float64 `yaml:"starting_cash"`
	CashFraction float64 `yaml:"cash_fraction"`
	LotSize      int64   `yaml:"lot_size"`
	OrdersPath   string  `yaml:"orders_path"`
}

// Hub tunes the broadcast layer.
type Hub struct {
	QueueSize          int `yaml:"queue_size"`
	KeepaliveTimeoutMs int `yaml:"keepalive_timeout_ms"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Provider Provider `yaml:"provider"`
	Strategy Strategy `yaml:"strategy"`
	Broker   Broker   `yaml:"broker"`
	Hub      Hub      `yaml:"hub"`
}

// Provider type and strategy mode identifiers accepted in config files.
const (
	ProviderSimulated = "simulated"
	ProviderEastmoney = "eastmoney"

	StrategyMACross = "ma_cross"
	StrategyRSI     = "rsi"
)

// Load reads a YAML file from disk and hydrates a validated Config.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes defaults and rejects configurations the pipeline
// cannot run with.
func (c *Config) Validate() error {
	if c.App.Name == "" {
		c.App.Name = "quantpaper"
	}
	if c.App.ListenAddr == "" {
		c.App.ListenAddr = ":8000"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.IntervalMs <= 0 {
		c.App.IntervalMs = 1000
	}
	if len(c.App.Symbols) == 0 {
		return fmt.Errorf("app.symbols must list at least one symbol")
	}
	seen := make(map[string]struct{}, len(c.App.Symbols))
	for i, sym := range c.App.Symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			return fmt.Errorf("app.symbols[%d] is empty", i)
		}
		if _, dup := seen[sym]; dup {
			return fmt.Errorf("app.symbols lists %q twice", sym)
		}
		seen[sym] = struct{}{}
		c.App.Symbols[i] = sym
	}

	switch c.Provider.Type {
	case "":
		c.Provider.Type = ProviderSimulated
	case ProviderSimulated, ProviderEastmoney:
	default:
		return fmt.Errorf("unknown provider type %q", c.Provider.Type)
	}
	if c.Provider.Simulated.StartPrice <= 0 {
		c.Provider.Simulated.StartPrice = 100
	}
	if c.Provider.Simulated.Volatility <= 0 {
		c.Provider.Simulated.Volatility = 0.01
	}
	if c.Provider.Eastmoney.BaseURL == "" {
		c.Provider.Eastmoney.BaseURL = "https://push2.eastmoney.com"
	}
	if c.Provider.Eastmoney.TimeoutMs <= 0 {
		c.Provider.Eastmoney.TimeoutMs = 5000
	}
	if c.Provider.Eastmoney.MinSpacingMs <= 0 {
		c.Provider.Eastmoney.MinSpacingMs = 200
	}

	switch c.Strategy.Mode {
	case "":
		c.Strategy.Mode = StrategyMACross
	case StrategyMACross, StrategyRSI:
	default:
		return fmt.Errorf("unknown strategy mode %q", c.Strategy.Mode)
	}
	p := &c.Strategy.Params
	if p.ShortPeriod <= 0 {
		p.ShortPeriod = 10
	}
	if p.LongPeriod <= 0 {
		p.LongPeriod = 30
	}
	if p.ShortPeriod >= p.LongPeriod {
		return fmt.Errorf("strategy short_period %d must be below long_period %d", p.ShortPeriod, p.LongPeriod)
	}
	if p.RSIPeriod <= 0 {
		p.RSIPeriod = 14
	}
	if p.Oversold <= 0 {
		p.Oversold = 30
	}
	if p.Overbought <= 0 {
		p.Overbought = 70
	}
	if p.Oversold >= p.Overbought {
		return fmt.Errorf("strategy oversold %.1f must be below overbought %.1f", p.Oversold, p.Overbought)
	}

	if c.Broker.StartingCash <= 0 {
		c.Broker.StartingCash = 100000
	}
	if c.Broker.CashFraction <= 0 || c.Broker.CashFraction > 1 {
		c.Broker.CashFraction = 0.5
	}
	if c.Broker.LotSize <= 0 {
		c.Broker.LotSize = 1
	}

	if c.Hub.QueueSize <= 0 {
		c.Hub.QueueSize = 256
	}
	if c.Hub.KeepaliveTimeoutMs <= 0 {
		c.Hub.KeepaliveTimeoutMs = 90000
	}
	return nil
}

// Interval returns the per-symbol polling cadence.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.App.IntervalMs) * time.Millisecond
}

// KeepaliveTimeout returns how long a silent session survives.
func (c *Config) KeepaliveTimeout() time.Duration {
	return time.Duration(c.Hub.KeepaliveTimeoutMs) * time.Millisecond
}

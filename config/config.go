package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradeguard/risk"
	"github.com/rustyeddy/tradeguard/sim"
	"github.com/rustyeddy/tradeguard/strategies"
)

// Config is the complete replay configuration.
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Guard    GuardConfig    `json:"guard" yaml:"guard"`
	Manage   ManageConfig   `json:"manage" yaml:"manage"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`

	// Symbols carries per-instrument overrides keyed by symbol.
	Symbols map[string]SymbolConfig `json:"symbols,omitempty" yaml:"symbols,omitempty"`
}

// AccountConfig contains account initialization parameters.
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

// GuardConfig contains the drawdown guard limits.
type GuardConfig struct {
	DailyDrawdown        float64 `json:"daily_drawdown" yaml:"daily_drawdown"`
	TotalDrawdown        float64 `json:"total_drawdown" yaml:"total_drawdown"`
	RiskPerTrade         float64 `json:"risk_per_trade" yaml:"risk_per_trade"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses" yaml:"max_consecutive_losses"`
	LossStreakScale      float64 `json:"loss_streak_scale" yaml:"loss_streak_scale"`
}

// ManageConfig contains the in-trade management parameters.
type ManageConfig struct {
	CutoffHour        int     `json:"cutoff_hour" yaml:"cutoff_hour"`
	BreakEvenTriggerR float64 `json:"break_even_trigger_r" yaml:"break_even_trigger_r"`
	BreakEvenBuffer   float64 `json:"break_even_buffer" yaml:"break_even_buffer"`
	TrailMult         float64 `json:"trail_mult" yaml:"trail_mult"`
}

// StrategyConfig selects the entry signal and its parameter overrides.
type StrategyConfig struct {
	Name   string             `json:"name" yaml:"name"`
	Params map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// SymbolConfig contains per-instrument overrides.
type SymbolConfig struct {
	// MaxQuantity caps the sized position; 0 means uncapped.
	MaxQuantity float64 `json:"max_quantity,omitempty" yaml:"max_quantity,omitempty"`

	// Params overlays the strategy's parameters for this symbol only.
	Params map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file, trying YAML first and
// falling back to JSON, then applies TRADEGUARD_* environment
// overrides. A .env file in the working directory is honored.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file, YAML or JSON by extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// applyEnv overlays TRADEGUARD_* environment variables on the loaded
// file. A .env file is loaded first if present; real environment
// variables win over it.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("TRADEGUARD_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Account.Balance = f
		}
	}
	if v := os.Getenv("TRADEGUARD_RISK_PER_TRADE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Guard.RiskPerTrade = f
		}
	}
	if v := os.Getenv("TRADEGUARD_STRATEGY"); v != "" {
		c.Strategy.Name = v
	}
	if v := os.Getenv("TRADEGUARD_JOURNAL_DB"); v != "" {
		c.Journal.Type = "sqlite"
		c.Journal.DBPath = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if err := c.Limits().Validate(); err != nil {
		return fmt.Errorf("guard: %w", err)
	}
	if err := c.BookConfig().Validate(); err != nil {
		return fmt.Errorf("manage: %w", err)
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if _, _, err := c.BuildSignals(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "", "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}
	for sym, sc := range c.Symbols {
		if sc.MaxQuantity < 0 {
			return fmt.Errorf("symbols.%s.max_quantity must not be negative", sym)
		}
	}
	return nil
}

// Limits converts the guard section into risk limits.
func (c *Config) Limits() risk.Limits {
	return risk.Limits{
		DailyDrawdown:        c.Guard.DailyDrawdown,
		TotalDrawdown:        c.Guard.TotalDrawdown,
		BaseRiskFraction:     c.Guard.RiskPerTrade,
		MaxConsecutiveLosses: c.Guard.MaxConsecutiveLosses,
		LossStreakScale:      c.Guard.LossStreakScale,
	}
}

// BookConfig converts the manage section into the simulator's config.
func (c *Config) BookConfig() sim.Config {
	return sim.Config{
		CutoffHour:        c.Manage.CutoffHour,
		BreakEvenTriggerR: c.Manage.BreakEvenTriggerR,
		BreakEvenBuffer:   c.Manage.BreakEvenBuffer,
		TrailMult:         c.Manage.TrailMult,
	}
}

// BuildSignals constructs the configured strategy plus per-symbol
// variants for every symbol that carries parameter overrides. Symbol
// params overlay the global ones.
func (c *Config) BuildSignals() (strategies.Signal, map[string]strategies.Signal, error) {
	base, err := strategies.Build(c.Strategy.Name, c.Strategy.Params)
	if err != nil {
		return nil, nil, err
	}

	var perSymbol map[string]strategies.Signal
	for sym, sc := range c.Symbols {
		if len(sc.Params) == 0 {
			continue
		}
		merged := make(map[string]float64, len(c.Strategy.Params)+len(sc.Params))
		for k, v := range c.Strategy.Params {
			merged[k] = v
		}
		for k, v := range sc.Params {
			merged[k] = v
		}
		sig, err := strategies.Build(c.Strategy.Name, merged)
		if err != nil {
			return nil, nil, fmt.Errorf("symbols.%s: %w", sym, err)
		}
		if perSymbol == nil {
			perSymbol = make(map[string]strategies.Signal)
		}
		perSymbol[sym] = sig
	}
	return base, perSymbol, nil
}

// Clamp builds the quantity clamp from the per-symbol overrides, or nil
// when no symbol carries a cap.
func (c *Config) Clamp() risk.ClampFunc {
	capped := false
	for _, sc := range c.Symbols {
		if sc.MaxQuantity > 0 {
			capped = true
			break
		}
	}
	if !capped {
		return nil
	}
	return func(symbol string, qty float64) float64 {
		sc, ok := c.Symbols[symbol]
		if !ok || sc.MaxQuantity <= 0 {
			return qty
		}
		if qty > sc.MaxQuantity {
			return sc.MaxQuantity
		}
		return qty
	}
}

// Default returns a configuration with the prop-firm defaults.
func Default() *Config {
	limits := risk.DefaultLimits()
	manage := sim.DefaultConfig()

	return &Config{
		Account: AccountConfig{
			ID:       "SIM-001",
			Currency: "USD",
			Balance:  100000,
		},
		Guard: GuardConfig{
			DailyDrawdown:        limits.DailyDrawdown,
			TotalDrawdown:        limits.TotalDrawdown,
			RiskPerTrade:         limits.BaseRiskFraction,
			MaxConsecutiveLosses: limits.MaxConsecutiveLosses,
			LossStreakScale:      limits.LossStreakScale,
		},
		Manage: ManageConfig{
			CutoffHour:        manage.CutoffHour,
			BreakEvenTriggerR: manage.BreakEvenTriggerR,
			BreakEvenBuffer:   manage.BreakEvenBuffer,
			TrailMult:         manage.TrailMult,
		},
		Strategy: StrategyConfig{
			Name: "asian-breakout",
		},
		Journal: JournalConfig{
			Type: "none",
		},
	}
}

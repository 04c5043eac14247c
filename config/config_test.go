package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradeguard/strategies"
)

func TestDefaultValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.InDelta(t, 0.04, cfg.Guard.DailyDrawdown, 1e-9)
	assert.InDelta(t, 0.015, cfg.Guard.RiskPerTrade, 1e-9)
	assert.Equal(t, 16, cfg.Manage.CutoffHour)
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
account:
  balance: 50000
guard:
  daily_drawdown: 0.05
  total_drawdown: 0.10
  risk_per_trade: 0.02
  max_consecutive_losses: 2
  loss_streak_scale: 0.5
manage:
  cutoff_hour: 15
  break_even_trigger_r: 1.0
  break_even_buffer: 0.5
  trail_mult: 0.5
strategy:
  name: trend-following
  params:
    adx_min: 25
journal:
  type: sqlite
  db_path: ./journal.db
symbols:
  XAUUSD:
    max_quantity: 10
    params:
      adx_min: 30
      stop_atr: 2.0
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.InDelta(t, 50000.0, cfg.Account.Balance, 1e-9)
	assert.Equal(t, "trend-following", cfg.Strategy.Name)
	assert.Equal(t, 15, cfg.BookConfig().CutoffHour)
	assert.InDelta(t, 0.05, cfg.Limits().DailyDrawdown, 1e-9)
	assert.Equal(t, 2, cfg.Limits().MaxConsecutiveLosses)

	clamp := cfg.Clamp()
	require.NotNil(t, clamp)
	assert.InDelta(t, 10.0, clamp("XAUUSD", 25), 1e-9)
	assert.InDelta(t, 25.0, clamp("EURUSD", 25), 1e-9)

	base, perSymbol, err := cfg.BuildSignals()
	require.NoError(t, err)
	tf, ok := base.(*strategies.TrendFollowing)
	require.True(t, ok)
	assert.InDelta(t, 25.0, tf.ADXMin, 1e-9)

	gold, ok := perSymbol["XAUUSD"].(*strategies.TrendFollowing)
	require.True(t, ok)
	assert.InDelta(t, 30.0, gold.ADXMin, 1e-9)  // symbol override wins
	assert.InDelta(t, 2.0, gold.StopATR, 1e-9)  // symbol-only param
	assert.InDelta(t, 2.5, tf.StopATR, 1e-9)    // base keeps the default
}

func TestBuildSignalsRejectsBadParams(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Strategy.Name = "trend-following"
	cfg.Strategy.Params = map[string]float64{"bogus": 1}
	assert.Error(t, cfg.Validate())
}

func TestLoadJSONFallback(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"account": {"balance": 25000},
		"strategy": {"name": "mean-reversion"}
	}`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.InDelta(t, 25000.0, cfg.Account.Balance, 1e-9)
	assert.Equal(t, "mean-reversion", cfg.Strategy.Name)
	// Unspecified sections inherit the defaults.
	assert.Equal(t, 16, cfg.Manage.CutoffHour)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"zero balance", `{"account": {"balance": 0}}`},
		{"bad drawdown", `{"guard": {"daily_drawdown": 2}}`},
		{"sqlite without path", `{"journal": {"type": "sqlite"}}`},
		{"unknown journal", `{"journal": {"type": "parquet"}}`},
		{"garbage", `{{{`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := LoadFromFile(path)
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRADEGUARD_BALANCE", "77777")
	t.Setenv("TRADEGUARD_STRATEGY", "liquidity-sweep")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  balance: 50000\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.InDelta(t, 77777.0, cfg.Account.Balance, 1e-9)
	assert.Equal(t, "liquidity-sweep", cfg.Strategy.Name)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Account.Balance = 60000

	for _, name := range []string{"config.yaml", "config.json"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, cfg.SaveToFile(path))

		got, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.InDelta(t, 60000.0, got.Account.Balance, 1e-9, name)
	}
}

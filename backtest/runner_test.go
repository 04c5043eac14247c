package backtest

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradeguard/engine"
	"github.com/rustyeddy/tradeguard/feed"
	"github.com/rustyeddy/tradeguard/market"
	"github.com/rustyeddy/tradeguard/sim"
	"github.com/rustyeddy/tradeguard/strategies"
)

// fixedSignal proposes the same bracket at one scripted time.
type fixedSignal struct {
	at   time.Time
	prop strategies.Proposal
}

func (s *fixedSignal) Name() string { return "fixed" }

func (s *fixedSignal) Evaluate(window []market.Bar) *strategies.Proposal {
	if len(window) == 0 {
		return nil
	}
	last := window[len(window)-1]
	if !last.Time.Equal(s.at) {
		return nil
	}
	p := s.prop
	p.Symbol = last.Symbol
	return &p
}

func bar(hour int, o, h, l, c float64) market.Bar {
	return market.Bar{
		Symbol: "XAUUSD",
		Time:   time.Date(2025, 6, 3, hour, 0, 0, 0, time.UTC),
		Open:   o, High: h, Low: l, Close: c,
	}
}

func TestRunnerWinningReplay(t *testing.T) {
	t.Parallel()

	sig := &fixedSignal{
		at:   time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC),
		prop: strategies.Proposal{Side: sim.Long, Entry: 2000, Stop: 1990, Target: 2020},
	}
	e, err := engine.New(engine.Options{Balance: 100000, Signal: sig})
	require.NoError(t, err)

	r := &Runner{
		Engine: e,
		Feeds: []feed.Feed{feed.NewSliceFeed("XAUUSD", []market.Bar{
			bar(8, 1998, 2002, 1996, 2000),
			bar(9, 2000, 2021, 1999, 2018),
		})},
	}

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Trades)
	assert.Equal(t, 1, res.Wins)
	assert.Zero(t, res.Losses)
	assert.InDelta(t, 1.0, res.WinRate, 1e-9)
	assert.True(t, math.IsInf(res.ProfitFactor, 1))
	assert.InDelta(t, 3000.0, res.NetPnL, 1e-9)
	assert.InDelta(t, 103000.0, res.FinalBalance, 1e-9)
	assert.Equal(t, time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC), res.Start)
	assert.Equal(t, time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC), res.End)

	out := res.String()
	assert.Contains(t, out, "Trades:        1")
	assert.Contains(t, out, "Profit factor: inf")
}

func TestRunnerMixedOutcomes(t *testing.T) {
	t.Parallel()

	sig := &fixedSignal{
		at:   time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC),
		prop: strategies.Proposal{Side: sim.Long, Entry: 2000, Stop: 1990, Target: 2100},
	}
	e, err := engine.New(engine.Options{Balance: 100000, Signal: sig})
	require.NoError(t, err)

	r := &Runner{
		Engine: e,
		Feeds: []feed.Feed{feed.NewSliceFeed("XAUUSD", []market.Bar{
			bar(8, 1998, 2002, 1996, 2000),
			bar(9, 2000, 2001, 1989, 1991), // stop swept
		})},
	}

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Trades)
	assert.Equal(t, 1, res.Losses)
	assert.Zero(t, res.WinRate)
	assert.Zero(t, res.ProfitFactor)
	assert.InDelta(t, -1500.0, res.NetPnL, 1e-9)
	assert.InDelta(t, 0.015, res.MaxDrawdown, 1e-9)
}

func TestRunnerValidation(t *testing.T) {
	t.Parallel()

	_, err := (&Runner{}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Engine"))

	e, err := engine.New(engine.Options{Balance: 100000, Signal: &fixedSignal{}})
	require.NoError(t, err)

	_, err = (&Runner{Engine: e}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "feed"))
}

func TestSummarizeEmptyRun(t *testing.T) {
	t.Parallel()

	e, err := engine.New(engine.Options{Balance: 100000, Signal: &fixedSignal{}})
	require.NoError(t, err)

	res := Summarize(e)
	assert.Zero(t, res.Trades)
	assert.Zero(t, res.ProfitFactor)
	assert.InDelta(t, 100000.0, res.FinalBalance, 1e-9)
	assert.True(t, res.Start.IsZero())
}

package backtest

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rustyeddy/tradeguard/engine"
	"github.com/rustyeddy/tradeguard/sim"
)

// Result is the summary of one replay.
type Result struct {
	Trades     int
	Wins       int
	Losses     int
	BreakEvens int
	TimeExits  int

	WinRate      float64 // wins over decided trades (wins+losses)
	ProfitFactor float64 // gross profit over gross loss; +Inf with no losses

	NetPnL       float64
	FinalBalance float64
	MaxDrawdown  float64

	Start time.Time
	End   time.Time
}

// Summarize computes the replay summary from an engine that has
// finished running.
func Summarize(e *engine.Engine) Result {
	trades := e.Trades()

	var r Result
	r.Trades = len(trades)
	r.FinalBalance = e.State().Balance
	r.MaxDrawdown = e.MaxDrawdown()

	var grossProfit, grossLoss float64
	for _, t := range trades {
		r.NetPnL += t.PnL
		if t.PnL > 0 {
			grossProfit += t.PnL
		} else {
			grossLoss += -t.PnL
		}

		switch t.Outcome {
		case sim.Win:
			r.Wins++
		case sim.Loss:
			r.Losses++
		case sim.BreakEven:
			r.BreakEvens++
		case sim.TimeExit:
			r.TimeExits++
		}

		if r.Start.IsZero() || t.OpenedAt.Before(r.Start) {
			r.Start = t.OpenedAt
		}
		if t.ClosedAt.After(r.End) {
			r.End = t.ClosedAt
		}
	}

	if decided := r.Wins + r.Losses; decided > 0 {
		r.WinRate = float64(r.Wins) / float64(decided)
	}
	switch {
	case grossLoss > 0:
		r.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		r.ProfitFactor = math.Inf(1)
	}

	return r
}

// String renders the summary as a fixed-width report.
func (r Result) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Trades:        %d (W %d / L %d / BE %d / T %d)\n",
		r.Trades, r.Wins, r.Losses, r.BreakEvens, r.TimeExits)
	fmt.Fprintf(&b, "Win rate:      %.1f%%\n", r.WinRate*100)
	if math.IsInf(r.ProfitFactor, 1) {
		fmt.Fprintf(&b, "Profit factor: inf\n")
	} else {
		fmt.Fprintf(&b, "Profit factor: %.2f\n", r.ProfitFactor)
	}
	fmt.Fprintf(&b, "Net PnL:       %.2f\n", r.NetPnL)
	fmt.Fprintf(&b, "Balance:       %.2f\n", r.FinalBalance)
	fmt.Fprintf(&b, "Max drawdown:  %.2f%%\n", r.MaxDrawdown*100)
	if !r.Start.IsZero() {
		fmt.Fprintf(&b, "Period:        %s -> %s\n",
			r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}
	return b.String()
}

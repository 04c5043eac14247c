package ledger

import (
	"fmt"
	"time"

	"github.com/rustyeddy/tradeguard/sim"
)

// State is the complete account bookkeeping state. These five fields are
// sufficient to resume a live run after a restart.
type State struct {
	Balance           float64 `json:"balance"`
	PeakBalance       float64 `json:"peak_balance"`
	DayStartBalance   float64 `json:"day_start_balance"`
	CurrentDay        string  `json:"current_day"` // UTC, "2006-01-02"; empty before the first bar
	ConsecutiveLosses int     `json:"consecutive_losses"`
}

// DailyDrawdown is the fractional decline from the day-start balance.
func (s State) DailyDrawdown() float64 {
	if s.DayStartBalance <= 0 {
		return 0
	}
	dd := (s.DayStartBalance - s.Balance) / s.DayStartBalance
	if dd < 0 {
		return 0
	}
	return dd
}

// TotalDrawdown is the fractional decline from the balance peak.
func (s State) TotalDrawdown() float64 {
	if s.PeakBalance <= 0 {
		return 0
	}
	dd := (s.PeakBalance - s.Balance) / s.PeakBalance
	if dd < 0 {
		return 0
	}
	return dd
}

// EquityPoint is one entry of the equity curve, appended per closed trade.
type EquityPoint struct {
	Time     time.Time
	Balance  float64
	Peak     float64
	Drawdown float64
}

// Ledger is the single source of truth for balance and statistics. No
// other component mutates balance fields; snapshots handed out are
// copies.
type Ledger struct {
	state       State
	curve       []EquityPoint
	maxDrawdown float64
}

// New creates a ledger with the starting balance as both balance and
// peak, before any trading day has opened.
func New(balance float64) (*Ledger, error) {
	if balance <= 0 {
		return nil, fmt.Errorf("ledger: starting balance %v must be positive", balance)
	}
	return &Ledger{
		state: State{
			Balance:         balance,
			PeakBalance:     balance,
			DayStartBalance: balance,
		},
	}, nil
}

// State returns a read-only snapshot of the account state.
func (l *Ledger) State() State {
	return l.state
}

// MaxDrawdown is the high-water max drawdown observed so far. It never
// decreases once a larger value has been recorded.
func (l *Ledger) MaxDrawdown() float64 {
	return l.maxDrawdown
}

// Curve returns a copy of the equity curve.
func (l *Ledger) Curve() []EquityPoint {
	out := make([]EquityPoint, len(l.curve))
	copy(out, l.curve)
	return out
}

// Roll advances the current day if the bar's UTC date differs, snapping
// the day-start balance. It fires exactly once per calendar day, at the
// first bar of that day. Returns true when a rollover happened.
func (l *Ledger) Roll(t time.Time) bool {
	day := t.UTC().Format("2006-01-02")
	if day == l.state.CurrentDay {
		return false
	}
	l.state.CurrentDay = day
	l.state.DayStartBalance = l.state.Balance
	return true
}

// Apply books a closed trade: balance, running peak, loss streak, equity
// curve, and the high-water max drawdown. Returns the updated snapshot.
func (l *Ledger) Apply(t sim.ClosedTrade) State {
	l.state.Balance += t.PnL
	if l.state.Balance > l.state.PeakBalance {
		l.state.PeakBalance = l.state.Balance
	}

	switch {
	case t.PnL > 0:
		l.state.ConsecutiveLosses = 0
	case t.PnL < 0:
		l.state.ConsecutiveLosses++
	}
	// An exact break-even leaves the streak untouched.

	dd := l.state.TotalDrawdown()
	if dd > l.maxDrawdown {
		l.maxDrawdown = dd
	}

	l.curve = append(l.curve, EquityPoint{
		Time:     t.ClosedAt,
		Balance:  l.state.Balance,
		Peak:     l.state.PeakBalance,
		Drawdown: dd,
	})

	return l.state
}

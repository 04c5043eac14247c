package risk

import (
	"fmt"

	"github.com/rustyeddy/tradeguard/ledger"
)

// Limits configures the drawdown guard. The numbers are account or
// prop-firm policy, not code: nothing here hardcodes a vendor's rules.
type Limits struct {
	// DailyDrawdown blocks new entries for the rest of the day once the
	// decline from the day-start balance reaches it (e.g. 0.04).
	DailyDrawdown float64

	// TotalDrawdown blocks new entries permanently once the decline
	// from the balance peak reaches it (e.g. 0.08). Only an explicit
	// Reset clears it.
	TotalDrawdown float64

	// BaseRiskFraction is the per-trade risk before de-risking.
	BaseRiskFraction float64

	// MaxConsecutiveLosses halves risk once the loss streak reaches it.
	MaxConsecutiveLosses int

	// LossStreakScale is the factor applied on a max streak (0.5).
	LossStreakScale float64
}

func (l Limits) Validate() error {
	if l.DailyDrawdown <= 0 || l.DailyDrawdown >= 1 {
		return fmt.Errorf("daily drawdown limit %v out of (0,1)", l.DailyDrawdown)
	}
	if l.TotalDrawdown <= 0 || l.TotalDrawdown >= 1 {
		return fmt.Errorf("total drawdown limit %v out of (0,1)", l.TotalDrawdown)
	}
	if l.BaseRiskFraction <= 0 || l.BaseRiskFraction >= 1 {
		return fmt.Errorf("base risk fraction %v out of (0,1)", l.BaseRiskFraction)
	}
	if l.MaxConsecutiveLosses <= 0 {
		return fmt.Errorf("max consecutive losses %d must be positive", l.MaxConsecutiveLosses)
	}
	if l.LossStreakScale <= 0 || l.LossStreakScale > 1 {
		return fmt.Errorf("loss streak scale %v out of (0,1]", l.LossStreakScale)
	}
	return nil
}

// DefaultLimits mirrors the usual 100k challenge setup.
func DefaultLimits() Limits {
	return Limits{
		DailyDrawdown:        0.04,
		TotalDrawdown:        0.08,
		BaseRiskFraction:     0.015,
		MaxConsecutiveLosses: 3,
		LossStreakScale:      0.5,
	}
}

// Decision is the guard's answer for one prospective entry. It is
// derived state, recomputed fresh on every call.
type Decision struct {
	CanEnter     bool
	RiskFraction float64
	Reason       string
}

// Guard gates new entries and scales risk down under stress. Its only
// inputs are ledger snapshots; it is mutated by trade-close and
// day-rollover events, never by wall-clock polling.
type Guard struct {
	limits       Limits
	dailyTripped bool
	totalTripped bool
}

func NewGuard(l Limits) (*Guard, error) {
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("guard limits: %w", err)
	}
	return &Guard{limits: l}, nil
}

// OnTradeClosed observes the post-trade ledger state and latches any
// limit breach. A tripped daily limit stays tripped for the day even if
// later wins pull the balance back above the line.
func (g *Guard) OnTradeClosed(s ledger.State) {
	g.observe(s)
}

// OnDayRollover clears the daily latch. The total latch survives.
func (g *Guard) OnDayRollover() {
	g.dailyTripped = false
}

// Reset clears both latches. It models an explicit account reset and
// is never called automatically.
func (g *Guard) Reset() {
	g.dailyTripped = false
	g.totalTripped = false
}

func (g *Guard) observe(s ledger.State) {
	if s.DailyDrawdown() >= g.limits.DailyDrawdown {
		g.dailyTripped = true
	}
	if s.TotalDrawdown() >= g.limits.TotalDrawdown {
		g.totalTripped = true
	}
}

// Decide reports whether a new entry is allowed and at what risk
// fraction. De-risking is continuous: past half of either limit the
// fraction tapers linearly to zero at the limit, and a max loss streak
// applies a flat scale on top.
func (g *Guard) Decide(s ledger.State) Decision {
	g.observe(s)

	if g.totalTripped {
		return Decision{Reason: fmt.Sprintf("total drawdown %.2f%% reached limit %.2f%%",
			100*s.TotalDrawdown(), 100*g.limits.TotalDrawdown)}
	}
	if g.dailyTripped {
		return Decision{Reason: fmt.Sprintf("daily drawdown %.2f%% reached limit %.2f%%",
			100*s.DailyDrawdown(), 100*g.limits.DailyDrawdown)}
	}

	rf := g.limits.BaseRiskFraction
	if s.ConsecutiveLosses >= g.limits.MaxConsecutiveLosses {
		rf *= g.limits.LossStreakScale
	}
	rf *= taper(s.DailyDrawdown(), g.limits.DailyDrawdown)
	rf *= taper(s.TotalDrawdown(), g.limits.TotalDrawdown)

	return Decision{CanEnter: true, RiskFraction: rf, Reason: "ok"}
}

// taper returns 1 up to half the limit, then falls linearly to 0 at the
// limit.
func taper(dd, limit float64) float64 {
	half := limit / 2
	if dd <= half {
		return 1
	}
	if dd >= limit {
		return 0
	}
	return (limit - dd) / half
}

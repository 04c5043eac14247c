package sim

import (
	"math"
	"time"
)

// Side: +1 long, -1 short.
type Side int8

const (
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	if s == Short {
		return "SHORT"
	}
	return "LONG"
}

// Outcome classifies how a position terminated.
type Outcome string

const (
	Win       Outcome = "Win"
	Loss      Outcome = "Loss"
	BreakEven Outcome = "BreakEven"
	TimeExit  Outcome = "TimeExit"
)

// Order is a request to open a position. It is what a sized entry
// proposal becomes once the guard and sizer have let it through.
type Order struct {
	Symbol   string
	Side     Side
	Entry    float64
	Stop     float64
	Target   float64
	Quantity float64

	// RangeSize, when non-zero, is used as the base distance for
	// trailing (breakout strategies trail off the session range).
	RangeSize float64

	Time time.Time
}

// Position is one open position. At most one exists per symbol; the Book
// enforces that. The stop moves over the life of the position, everything
// else is fixed at entry.
type Position struct {
	ID          string
	Symbol      string
	Side        Side
	EntryPrice  float64
	Quantity    float64
	InitialStop float64
	Stop        float64 // current stop, monotonic once BreakEvenArmed
	Target      float64
	RangeSize   float64
	OpenedAt    time.Time

	// BreakEvenArmed flips false->true once and never reverts.
	BreakEvenArmed bool
}

// RiskDistance is the initial per-unit risk of the position.
func (p *Position) RiskDistance() float64 {
	return math.Abs(p.EntryPrice - p.InitialStop)
}

// pnlAt returns realized P/L for an exit at the given price.
func (p *Position) pnlAt(exit float64) float64 {
	return float64(p.Side) * (exit - p.EntryPrice) * p.Quantity
}

// ClosedTrade is the immutable record emitted when a position terminates.
// ExitPrice always lies on the boundary the outcome claims: the stop, the
// target, or the bar close at the time cutoff.
type ClosedTrade struct {
	ID         string
	Symbol     string
	Side       Side
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	PnL        float64
	Outcome    Outcome
	OpenedAt   time.Time
	ClosedAt   time.Time
}

package journal

import (
	"time"

	"github.com/rustyeddy/tradeguard/sim"
)

// TradeRecord is one closed trade as persisted.
type TradeRecord struct {
	TradeID    string
	Symbol     string
	Side       string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	PnL        float64
	Outcome    string
}

// EquitySnapshot is the account state after a trade settles.
type EquitySnapshot struct {
	Time     time.Time
	Balance  float64
	Peak     float64
	Drawdown float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// FromClosedTrade converts a simulator result into its journal row.
func FromClosedTrade(t sim.ClosedTrade) TradeRecord {
	side := "long"
	if t.Side == sim.Short {
		side = "short"
	}
	return TradeRecord{
		TradeID:    t.ID,
		Symbol:     t.Symbol,
		Side:       side,
		Quantity:   t.Quantity,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		OpenTime:   t.OpenedAt,
		CloseTime:  t.ClosedAt,
		PnL:        t.PnL,
		Outcome:    string(t.Outcome),
	}
}

// Nop discards everything. Used when no journal is configured.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }

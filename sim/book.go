package sim

import (
	"fmt"

	"github.com/rustyeddy/tradeguard/market"
	"github.com/rustyeddy/tradeguard/pkg/id"
)

// Config holds the position-management parameters shared by every
// position the Book manages.
type Config struct {
	// CutoffHour forces any open position closed at the first bar whose
	// UTC hour reaches it (end of the NY session in the default setup).
	// Set to -1 to disable.
	CutoffHour int

	// BreakEvenTriggerR moves the stop to entry once unrealized profit,
	// measured at the bar's favorable extreme, reaches this multiple of
	// the initial risk distance.
	BreakEvenTriggerR float64

	// BreakEvenBuffer is the absolute offset added past entry when the
	// stop is promoted, so a break-even exit still covers commissions.
	BreakEvenBuffer float64

	// TrailMult scales the trailing distance: RangeSize×TrailMult when
	// the position carries a range, else risk distance×TrailMult.
	TrailMult float64
}

// Validate rejects configurations the Book cannot run with. These are
// fatal at construction time, never silently defaulted.
func (c Config) Validate() error {
	if c.CutoffHour < -1 || c.CutoffHour > 23 {
		return fmt.Errorf("cutoff hour %d out of range [-1,23]", c.CutoffHour)
	}
	if c.BreakEvenTriggerR <= 0 {
		return fmt.Errorf("break-even trigger %v must be positive", c.BreakEvenTriggerR)
	}
	if c.BreakEvenBuffer < 0 {
		return fmt.Errorf("break-even buffer %v must not be negative", c.BreakEvenBuffer)
	}
	if c.TrailMult <= 0 {
		return fmt.Errorf("trail multiple %v must be positive", c.TrailMult)
	}
	return nil
}

// DefaultConfig mirrors the prop-firm setup: forced close at 16:00 UTC,
// break-even at 1R with a $0.50 buffer, trailing at half the range.
func DefaultConfig() Config {
	return Config{
		CutoffHour:        16,
		BreakEvenTriggerR: 1.0,
		BreakEvenBuffer:   0.50,
		TrailMult:         0.5,
	}
}

// Book owns zero-or-one open position per symbol and advances each one
// bar by bar. It is the only component that mutates positions.
type Book struct {
	cfg  Config
	open map[string]*Position
}

func NewBook(cfg Config) (*Book, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("book config: %w", err)
	}
	return &Book{cfg: cfg, open: make(map[string]*Position)}, nil
}

// HasOpen reports whether a position is open on the symbol.
func (b *Book) HasOpen(symbol string) bool {
	_, ok := b.open[symbol]
	return ok
}

// Position returns a copy of the open position on the symbol, if any.
func (b *Book) Position(symbol string) (Position, bool) {
	p, ok := b.open[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// OpenCount returns the number of open positions across all symbols.
func (b *Book) OpenCount() int {
	return len(b.open)
}

// Open creates a position from a sized order.
//
// A zero risk distance is a fatal configuration error: the sizer must
// never emit one, so it is surfaced immediately rather than defaulted.
// Opening on a symbol that already holds a position is a programming
// error and panics; continuing would corrupt the equity curve.
func (b *Book) Open(o Order) (Position, error) {
	if o.Entry == o.Stop {
		return Position{}, fmt.Errorf("open %s: zero risk distance at entry %v", o.Symbol, o.Entry)
	}
	if o.Quantity <= 0 {
		return Position{}, fmt.Errorf("open %s: quantity %v must be positive", o.Symbol, o.Quantity)
	}
	if o.Side == Long && (o.Stop >= o.Entry || o.Target <= o.Entry) {
		return Position{}, fmt.Errorf("open %s: long stop/target not bracketing entry %v", o.Symbol, o.Entry)
	}
	if o.Side == Short && (o.Stop <= o.Entry || o.Target >= o.Entry) {
		return Position{}, fmt.Errorf("open %s: short stop/target not bracketing entry %v", o.Symbol, o.Entry)
	}
	if _, ok := b.open[o.Symbol]; ok {
		panic(fmt.Sprintf("sim: second open position on %s", o.Symbol))
	}

	p := &Position{
		ID:          id.New(),
		Symbol:      o.Symbol,
		Side:        o.Side,
		EntryPrice:  o.Entry,
		Quantity:    o.Quantity,
		InitialStop: o.Stop,
		Stop:        o.Stop,
		Target:      o.Target,
		RangeSize:   o.RangeSize,
		OpenedAt:    o.Time,
	}
	b.open[o.Symbol] = p
	return *p, nil
}

// Advance moves the symbol's open position through one bar, applying the
// checks in fixed order: time cutoff, stop, target, break-even
// promotion, trailing. The first satisfied exit wins; a bar whose range
// covers both stop and target resolves as a stop (worst case for the
// trader). Returns the ClosedTrade if the position terminated.
func (b *Book) Advance(bar market.Bar) *ClosedTrade {
	p, ok := b.open[bar.Symbol]
	if !ok {
		return nil
	}

	// 1. Forced close overrides all in-progress trade management.
	if b.cfg.CutoffHour >= 0 && bar.Hour() >= b.cfg.CutoffHour {
		return b.close(p, bar, bar.Close, TimeExit)
	}

	// 2. Stop touch, checked before target.
	if stopTouched(p, bar) {
		out := Loss
		if p.BreakEvenArmed && stopProtectsEntry(p) {
			out = BreakEven
		}
		return b.close(p, bar, p.Stop, out)
	}

	// 3. Target touch.
	if targetTouched(p, bar) {
		return b.close(p, bar, p.Target, Win)
	}

	// 4. Break-even promotion, measured at the favorable extreme.
	armedAtBarStart := p.BreakEvenArmed
	if !p.BreakEvenArmed {
		if favorableExcursion(p, bar) >= p.RiskDistance()*b.cfg.BreakEvenTriggerR {
			if p.Side == Long {
				p.Stop = p.EntryPrice + b.cfg.BreakEvenBuffer
			} else {
				p.Stop = p.EntryPrice - b.cfg.BreakEvenBuffer
			}
			p.BreakEvenArmed = true
		}
	}

	// 5. Trailing: adopt the candidate only if strictly more favorable.
	// The arming bar itself does not trail; the promoted stop stands
	// until the next bar's extreme produces a better candidate.
	if armedAtBarStart {
		dist := p.RiskDistance() * b.cfg.TrailMult
		if p.RangeSize > 0 {
			dist = p.RangeSize * b.cfg.TrailMult
		}
		if p.Side == Long {
			if cand := bar.High - dist; cand > p.Stop {
				p.Stop = cand
			}
		} else {
			if cand := bar.Low + dist; cand < p.Stop {
				p.Stop = cand
			}
		}
	}

	return nil
}

// ForceClose closes the symbol's position at the given price, used when
// a replay ends with a position still open.
func (b *Book) ForceClose(bar market.Bar) *ClosedTrade {
	p, ok := b.open[bar.Symbol]
	if !ok {
		return nil
	}
	return b.close(p, bar, bar.Close, TimeExit)
}

func (b *Book) close(p *Position, bar market.Bar, exit float64, out Outcome) *ClosedTrade {
	delete(b.open, p.Symbol)
	return &ClosedTrade{
		ID:         p.ID,
		Symbol:     p.Symbol,
		Side:       p.Side,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exit,
		Quantity:   p.Quantity,
		PnL:        p.pnlAt(exit),
		Outcome:    out,
		OpenedAt:   p.OpenedAt,
		ClosedAt:   bar.Time,
	}
}

func stopTouched(p *Position, bar market.Bar) bool {
	if p.Side == Long {
		return bar.Low <= p.Stop
	}
	return bar.High >= p.Stop
}

func targetTouched(p *Position, bar market.Bar) bool {
	if p.Side == Long {
		return bar.High >= p.Target
	}
	return bar.Low <= p.Target
}

// favorableExcursion is unrealized profit per unit at the bar extreme
// that favors the position.
func favorableExcursion(p *Position, bar market.Bar) float64 {
	if p.Side == Long {
		return bar.High - p.EntryPrice
	}
	return p.EntryPrice - bar.Low
}

// stopProtectsEntry reports whether the current stop sits at or beyond
// entry, i.e. an exit there loses nothing on the original capital.
func stopProtectsEntry(p *Position) bool {
	if p.Side == Long {
		return p.Stop >= p.EntryPrice
	}
	return p.Stop <= p.EntryPrice
}

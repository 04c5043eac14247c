package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/tradeguard/journal"
	"github.com/rustyeddy/tradeguard/ledger"
	"github.com/rustyeddy/tradeguard/market"
	"github.com/rustyeddy/tradeguard/risk"
	"github.com/rustyeddy/tradeguard/sim"
	"github.com/rustyeddy/tradeguard/strategies"
)

// Options configures an Engine. Zero-value fields fall back to the
// defaults noted on each field.
type Options struct {
	Book    sim.Config  // position management; DefaultConfig() if zero
	Limits  risk.Limits // guard limits; DefaultLimits() if zero
	Balance float64     // starting balance, required

	Signal strategies.Signal // entry logic, required

	// SymbolSignals overrides Signal per symbol (per-instrument
	// parameter sets). Optional.
	SymbolSignals map[string]strategies.Signal

	// Symbols, when non-empty, is the set of instruments the engine
	// accepts; bars for any other symbol are dropped with a
	// diagnostic. Empty accepts everything.
	Symbols []string

	// Clamp applies instrument quantity limits after risk sizing.
	// Optional.
	Clamp risk.ClampFunc

	// Journal persists closed trades and equity snapshots. Optional;
	// defaults to journal.Nop.
	Journal journal.Journal

	// WindowSize bounds the per-symbol bar window handed to the signal.
	// Defaults to 512.
	WindowSize int

	// KeepOpenAtEnd leaves surviving positions open when a Run
	// finishes. Default is to force-close them on each symbol's last
	// bar.
	KeepOpenAtEnd bool

	Logger *slog.Logger // defaults to slog.Default()
}

// Engine drives the whole round trip for every bar it is fed: settle
// the open position first, then consider a new entry through the guard,
// the signal, and the sizer, in that order. It is single-goroutine;
// callers serialize Step.
type Engine struct {
	book    *sim.Book
	ledger  *ledger.Ledger
	guard   *risk.Guard
	signal  strategies.Signal
	signals map[string]strategies.Signal
	symbols map[string]bool
	clamp   risk.ClampFunc
	jour    journal.Journal
	log     *slog.Logger

	windowSize    int
	entryCutoff   int // hour at/after which no new entries; -1 disables
	keepOpenAtEnd bool

	windows  map[string][]market.Bar
	lastTime map[string]time.Time
	lastBar  map[string]market.Bar

	trades []sim.ClosedTrade
}

func New(opts Options) (*Engine, error) {
	if opts.Signal == nil {
		return nil, fmt.Errorf("engine: Signal is required")
	}
	if opts.Book == (sim.Config{}) {
		opts.Book = sim.DefaultConfig()
	}
	if opts.Limits == (risk.Limits{}) {
		opts.Limits = risk.DefaultLimits()
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = 512
	}
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	book, err := sim.NewBook(opts.Book)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	led, err := ledger.New(opts.Balance)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	guard, err := risk.NewGuard(opts.Limits)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	// Entries stop one hour before the forced close so a fresh position
	// is never cut down on its first bar.
	entryCutoff := -1
	if opts.Book.CutoffHour >= 0 {
		entryCutoff = opts.Book.CutoffHour - 1
	}

	var symbols map[string]bool
	if len(opts.Symbols) > 0 {
		symbols = make(map[string]bool, len(opts.Symbols))
		for _, s := range opts.Symbols {
			symbols[s] = true
		}
	}

	return &Engine{
		book:          book,
		ledger:        led,
		guard:         guard,
		signal:        opts.Signal,
		signals:       opts.SymbolSignals,
		symbols:       symbols,
		clamp:         opts.Clamp,
		jour:          opts.Journal,
		log:           opts.Logger,
		windowSize:    opts.WindowSize,
		entryCutoff:   entryCutoff,
		keepOpenAtEnd: opts.KeepOpenAtEnd,
		windows:       make(map[string][]market.Bar),
		lastTime:      make(map[string]time.Time),
		lastBar:       make(map[string]market.Bar),
	}, nil
}

// Resume is New with the ledger restored from a snapshot instead of a
// fresh balance.
func Resume(opts Options, snapshot []byte) (*Engine, error) {
	e, err := New(opts)
	if err != nil {
		return nil, err
	}
	led, err := ledger.Restore(snapshot)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.ledger = led
	return e, nil
}

// Step processes one bar. Malformed, duplicate, and out-of-order bars
// are dropped with a diagnostic; a failed position open is fatal.
func (e *Engine) Step(bar market.Bar) error {
	if !bar.Valid() {
		e.log.Warn("dropping malformed bar", "symbol", bar.Symbol, "time", bar.Time)
		return nil
	}
	if e.symbols != nil && !e.symbols[bar.Symbol] {
		e.log.Warn("dropping bar for unknown symbol", "symbol", bar.Symbol, "time", bar.Time)
		return nil
	}
	if last, ok := e.lastTime[bar.Symbol]; ok && !bar.Time.After(last) {
		e.log.Warn("dropping out-of-order bar",
			"symbol", bar.Symbol, "time", bar.Time, "last", last)
		return nil
	}
	e.lastTime[bar.Symbol] = bar.Time
	e.lastBar[bar.Symbol] = bar

	if e.ledger.Roll(bar.Time) {
		e.guard.OnDayRollover()
	}

	e.pushWindow(bar)

	// An open position consumes the bar entirely; a close never flips
	// into a fresh entry on the same bar.
	if e.book.HasOpen(bar.Symbol) {
		if ct := e.book.Advance(bar); ct != nil {
			e.settle(*ct)
		}
		return nil
	}

	if e.entryCutoff >= 0 && bar.Hour() >= e.entryCutoff {
		return nil
	}

	state := e.ledger.State()
	decision := e.guard.Decide(state)
	if !decision.CanEnter {
		e.log.Debug("entry blocked", "symbol", bar.Symbol, "reason", decision.Reason)
		return nil
	}

	prop := e.signalFor(bar.Symbol).Evaluate(e.windows[bar.Symbol])
	if prop == nil {
		return nil
	}

	sized := risk.Size(risk.SizeInputs{
		Symbol:       prop.Symbol,
		Balance:      state.Balance,
		RiskFraction: decision.RiskFraction,
		Entry:        prop.Entry,
		Stop:         prop.Stop,
	}, e.clamp)
	if sized.Rejected {
		e.log.Debug("entry rejected by sizing", "symbol", prop.Symbol, "reason", sized.Reason)
		return nil
	}

	pos, err := e.book.Open(sim.Order{
		Symbol:    prop.Symbol,
		Side:      prop.Side,
		Entry:     prop.Entry,
		Stop:      prop.Stop,
		Target:    prop.Target,
		Quantity:  sized.Quantity,
		RangeSize: prop.RangeSize,
		Time:      bar.Time,
	})
	if err != nil {
		return fmt.Errorf("engine: open %s: %w", prop.Symbol, err)
	}

	e.log.Info("opened position",
		"id", pos.ID, "symbol", pos.Symbol, "side", pos.Side,
		"entry", pos.EntryPrice, "stop", pos.Stop, "target", pos.Target,
		"quantity", pos.Quantity, "risk_fraction", decision.RiskFraction)
	return nil
}

func (e *Engine) signalFor(symbol string) strategies.Signal {
	if s, ok := e.signals[symbol]; ok {
		return s
	}
	return e.signal
}

func (e *Engine) settle(ct sim.ClosedTrade) {
	state := e.ledger.Apply(ct)
	e.guard.OnTradeClosed(state)
	e.trades = append(e.trades, ct)

	if err := e.jour.RecordTrade(journal.FromClosedTrade(ct)); err != nil {
		e.log.Error("journal trade write failed", "id", ct.ID, "err", err)
	}
	if err := e.jour.RecordEquity(journal.EquitySnapshot{
		Time:     ct.ClosedAt,
		Balance:  state.Balance,
		Peak:     state.PeakBalance,
		Drawdown: state.TotalDrawdown(),
	}); err != nil {
		e.log.Error("journal equity write failed", "err", err)
	}

	e.log.Info("closed position",
		"id", ct.ID, "symbol", ct.Symbol, "outcome", ct.Outcome,
		"pnl", ct.PnL, "balance", state.Balance)
}

// finish force-closes anything still open, using the last bar seen on
// each symbol.
func (e *Engine) finish() {
	if e.keepOpenAtEnd {
		return
	}
	for symbol, bar := range e.lastBar {
		if !e.book.HasOpen(symbol) {
			continue
		}
		if ct := e.book.ForceClose(bar); ct != nil {
			e.settle(*ct)
		}
	}
}

func (e *Engine) pushWindow(bar market.Bar) {
	w := append(e.windows[bar.Symbol], bar)
	if len(w) > e.windowSize {
		w = w[len(w)-e.windowSize:]
	}
	e.windows[bar.Symbol] = w
}

// Trades returns the closed trades in settlement order.
func (e *Engine) Trades() []sim.ClosedTrade {
	out := make([]sim.ClosedTrade, len(e.trades))
	copy(out, e.trades)
	return out
}

// State returns the current ledger snapshot.
func (e *Engine) State() ledger.State { return e.ledger.State() }

// MaxDrawdown returns the worst total drawdown seen so far.
func (e *Engine) MaxDrawdown() float64 { return e.ledger.MaxDrawdown() }

// Curve returns the equity curve accumulated so far.
func (e *Engine) Curve() []ledger.EquityPoint { return e.ledger.Curve() }

// Snapshot serializes the ledger state for a later Resume.
func (e *Engine) Snapshot() ([]byte, error) { return e.ledger.Snapshot() }

// OpenPositions reports how many positions are currently open.
func (e *Engine) OpenPositions() int { return e.book.OpenCount() }

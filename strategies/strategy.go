package strategies

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rustyeddy/tradeguard/market"
	"github.com/rustyeddy/tradeguard/sim"
)

// Proposal is an entry suggestion for the bar a window ends on. It is
// produced at most once per symbol per bar and consumed at most once;
// the engine discards it if a position is already open on the symbol.
type Proposal struct {
	Symbol string
	Side   sim.Side
	Entry  float64
	Stop   float64
	Target float64

	// RangeSize, when non-zero, feeds the trailing distance (breakout
	// strategies trail off the session range they broke out of).
	RangeSize float64
}

// Signal evaluates a bar window and optionally proposes an entry. It
// must be a pure function of the window: the engine calls it at most
// once per symbol per bar and never retries.
type Signal interface {
	Name() string
	Evaluate(window []market.Bar) *Proposal
}

var (
	regMu    sync.Mutex
	registry = make(map[string]func() Signal)
)

// Register makes a signal constructor available to ByName. Typically
// called from init functions.
func Register(name string, ctor func() Signal) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[strings.ToLower(name)] = ctor
}

// ByName builds a registered signal with its default parameters.
func ByName(name string) (Signal, error) {
	regMu.Lock()
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	regMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// Configurable is implemented by signals whose parameters can be
// overridden from configuration.
type Configurable interface {
	Configure(params map[string]float64) error
}

// Build constructs a registered signal and applies parameter overrides.
// An unknown parameter key is an error so typos surface at startup,
// not as silently-default behavior.
func Build(name string, params map[string]float64) (Signal, error) {
	sig, err := ByName(name)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return sig, nil
	}
	c, ok := sig.(Configurable)
	if !ok {
		return nil, fmt.Errorf("strategy %q takes no parameters", name)
	}
	if err := c.Configure(params); err != nil {
		return nil, fmt.Errorf("strategy %q: %w", name, err)
	}
	return sig, nil
}

// Names lists the registered signal names, sorted.
func Names() []string {
	regMu.Lock()
	defer regMu.Unlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// lastBar returns the bar the window ends on, or false for an empty
// window.
func lastBar(window []market.Bar) (market.Bar, bool) {
	if len(window) == 0 {
		return market.Bar{}, false
	}
	return window[len(window)-1], true
}

// sameDay reports whether the bar falls on the given UTC day.
func sameDay(b market.Bar, day string) bool {
	return b.Day() == day
}

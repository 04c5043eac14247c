package feed

import "github.com/rustyeddy/tradeguard/market"

// Feed yields bars for a single symbol in ascending time order. Next
// returns ok=false once the feed is exhausted; errors are terminal.
type Feed interface {
	Next() (market.Bar, bool, error)
	Symbol() string
	Close() error
}

// SliceFeed replays an in-memory slice of bars. Handy in tests and for
// synthetic data.
type SliceFeed struct {
	symbol string
	bars   []market.Bar
	pos    int
}

func NewSliceFeed(symbol string, bars []market.Bar) *SliceFeed {
	return &SliceFeed{symbol: symbol, bars: bars}
}

func (f *SliceFeed) Symbol() string { return f.symbol }

func (f *SliceFeed) Next() (market.Bar, bool, error) {
	if f.pos >= len(f.bars) {
		return market.Bar{}, false, nil
	}
	b := f.bars[f.pos]
	f.pos++
	if b.Symbol == "" {
		b.Symbol = f.symbol
	}
	return b, true, nil
}

func (f *SliceFeed) Close() error { return nil }

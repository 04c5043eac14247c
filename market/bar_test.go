package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBarDayAndHour(t *testing.T) {
	t.Parallel()

	b := Bar{
		Symbol: "XAUUSD",
		Time:   time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC),
	}

	assert.Equal(t, "2025-03-14", b.Day())
	assert.Equal(t, 15, b.Hour())
	assert.Equal(t, time.Friday, b.Weekday())
}

func TestBarFeature(t *testing.T) {
	t.Parallel()

	b := Bar{Features: map[string]float64{"rsi14": 57.2}}

	v, ok := b.Feature("rsi14")
	assert.True(t, ok)
	assert.InDelta(t, 57.2, v, 1e-12)

	_, ok = b.Feature("adx14")
	assert.False(t, ok)
}

func TestBarValid(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		bar  Bar
		want bool
	}{
		{"ok", Bar{Symbol: "EURUSD", Time: ts, Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15}, true},
		{"no symbol", Bar{Time: ts, Open: 1, High: 1, Low: 1, Close: 1}, false},
		{"zero time", Bar{Symbol: "EURUSD", Open: 1, High: 1, Low: 1, Close: 1}, false},
		{"high below low", Bar{Symbol: "EURUSD", Time: ts, Open: 1.1, High: 1.0, Low: 1.2, Close: 1.1}, false},
		{"close outside range", Bar{Symbol: "EURUSD", Time: ts, Open: 1.1, High: 1.2, Low: 1.0, Close: 1.3}, false},
		{"open outside range", Bar{Symbol: "EURUSD", Time: ts, Open: 0.9, High: 1.2, Low: 1.0, Close: 1.1}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.bar.Valid())
		})
	}
}

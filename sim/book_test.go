package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/tradeguard/market"
)

func testConfig() Config {
	return Config{
		CutoffHour:        16,
		BreakEvenTriggerR: 1.0,
		BreakEvenBuffer:   0.50,
		TrailMult:         0.5,
	}
}

func newTestBook(t *testing.T) *Book {
	t.Helper()
	b, err := NewBook(testConfig())
	assert.NoError(t, err)
	return b
}

func bar(hour int, o, h, l, c float64) market.Bar {
	return market.Bar{
		Symbol: "XAUUSD",
		Time:   time.Date(2025, 6, 3, hour, 0, 0, 0, time.UTC),
		Open:   o,
		High:   h,
		Low:    l,
		Close:  c,
	}
}

func openLong(t *testing.T, b *Book) Position {
	t.Helper()
	p, err := b.Open(Order{
		Symbol:    "XAUUSD",
		Side:      Long,
		Entry:     2000,
		Stop:      1990,
		Target:    2020,
		Quantity:  10,
		RangeSize: 10,
		Time:      time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)
	return p
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(c *Config) {}, true},
		{"cutoff disabled", func(c *Config) { c.CutoffHour = -1 }, true},
		{"cutoff too large", func(c *Config) { c.CutoffHour = 24 }, false},
		{"cutoff too small", func(c *Config) { c.CutoffHour = -2 }, false},
		{"zero trigger", func(c *Config) { c.BreakEvenTriggerR = 0 }, false},
		{"negative buffer", func(c *Config) { c.BreakEvenBuffer = -0.1 }, false},
		{"zero trail", func(c *Config) { c.TrailMult = 0 }, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestOpenRejectsZeroRiskDistance(t *testing.T) {
	t.Parallel()

	b := newTestBook(t)
	_, err := b.Open(Order{Symbol: "XAUUSD", Side: Long, Entry: 2000, Stop: 2000, Target: 2020, Quantity: 1})
	assert.Error(t, err)
	assert.False(t, b.HasOpen("XAUUSD"))
}

func TestOpenRejectsBadBracket(t *testing.T) {
	t.Parallel()

	b := newTestBook(t)

	// Long with stop above entry.
	_, err := b.Open(Order{Symbol: "XAUUSD", Side: Long, Entry: 2000, Stop: 2010, Target: 2020, Quantity: 1})
	assert.Error(t, err)

	// Short with target above entry.
	_, err = b.Open(Order{Symbol: "XAUUSD", Side: Short, Entry: 2000, Stop: 2010, Target: 2005, Quantity: 1})
	assert.Error(t, err)
}

func TestSecondOpenPanics(t *testing.T) {
	t.Parallel()

	b := newTestBook(t)
	openLong(t, b)

	assert.Panics(t, func() {
		_, _ = b.Open(Order{Symbol: "XAUUSD", Side: Long, Entry: 2005, Stop: 1995, Target: 2025, Quantity: 1})
	})
}

func TestStopBeforeTargetSameBar(t *testing.T) {
	t.Parallel()

	b := newTestBook(t)
	openLong(t, b)

	// One bar whose range covers both boundaries resolves as a stop.
	ct := b.Advance(bar(9, 2000, 2025, 1985, 2010))
	assert.NotNil(t, ct)
	assert.Equal(t, Loss, ct.Outcome)
	assert.InDelta(t, 1990.0, ct.ExitPrice, 1e-9)
	assert.InDelta(t, -100.0, ct.PnL, 1e-9) // (1990-2000)*10
	assert.False(t, b.HasOpen("XAUUSD"))
}

func TestTargetHit(t *testing.T) {
	t.Parallel()

	b := newTestBook(t)
	openLong(t, b)

	ct := b.Advance(bar(9, 2005, 2021, 1999, 2018))
	assert.NotNil(t, ct)
	assert.Equal(t, Win, ct.Outcome)
	assert.InDelta(t, 2020.0, ct.ExitPrice, 1e-9)
	assert.InDelta(t, 200.0, ct.PnL, 1e-9)
}

func TestBreakEvenThenTrail(t *testing.T) {
	t.Parallel()

	b := newTestBook(t)
	openLong(t, b) // entry 2000, stop 1990, risk 10, range 10

	// 1R excursion arms break-even: stop moves to entry + buffer.
	ct := b.Advance(bar(9, 2002, 2010, 1998, 2008))
	assert.Nil(t, ct)
	p, ok := b.Position("XAUUSD")
	assert.True(t, ok)
	assert.True(t, p.BreakEvenArmed)
	assert.InDelta(t, 2000.50, p.Stop, 1e-9)

	// Trailing at range*0.5 = 5 behind the high.
	ct = b.Advance(bar(10, 2010, 2019.5, 2006, 2015))
	assert.Nil(t, ct)
	p, _ = b.Position("XAUUSD")
	assert.InDelta(t, 2014.5, p.Stop, 1e-9)

	// A less favorable candidate never loosens the stop.
	ct = b.Advance(bar(11, 2015.6, 2016, 2015.5, 2015.8))
	assert.Nil(t, ct)
	p, _ = b.Position("XAUUSD")
	assert.InDelta(t, 2014.5, p.Stop, 1e-9)

	// Pullback through the trailed stop exits there, classified
	// break-even because the stop protects entry.
	ct = b.Advance(bar(12, 2015, 2015, 2008, 2009))
	assert.NotNil(t, ct)
	assert.Equal(t, BreakEven, ct.Outcome)
	assert.InDelta(t, 2014.5, ct.ExitPrice, 1e-9)
	assert.InDelta(t, 145.0, ct.PnL, 1e-9)
}

func TestNoTrailingOnArmingBar(t *testing.T) {
	t.Parallel()

	b := newTestBook(t)
	_, err := b.Open(Order{
		Symbol:    "XAUUSD",
		Side:      Long,
		Entry:     2000,
		Stop:      1990,
		Target:    2100, // far target so the excursion does not fill
		Quantity:  10,
		RangeSize: 10,
		Time:      time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)

	// High 2030 arms break-even; the promoted stop stands for this bar
	// even though a trailing candidate would sit higher.
	ct := b.Advance(bar(9, 2005, 2030, 2003, 2019.9))
	assert.Nil(t, ct)
	p, _ := b.Position("XAUUSD")
	assert.True(t, p.BreakEvenArmed)
	assert.InDelta(t, 2000.50, p.Stop, 1e-9)

	// The next bar trails off its own high.
	ct = b.Advance(bar(10, 2020, 2030, 2018, 2025))
	assert.Nil(t, ct)
	p, _ = b.Position("XAUUSD")
	assert.InDelta(t, 2025.0, p.Stop, 1e-9)
}

func TestTimeCutoffOverridesStopAndTarget(t *testing.T) {
	t.Parallel()

	b := newTestBook(t)
	openLong(t, b)

	// At the cutoff hour the bar range covers the stop, but the forced
	// close wins and exits at bar close.
	ct := b.Advance(bar(16, 2001, 2005, 1988, 2003))
	assert.NotNil(t, ct)
	assert.Equal(t, TimeExit, ct.Outcome)
	assert.InDelta(t, 2003.0, ct.ExitPrice, 1e-9)
	assert.InDelta(t, 30.0, ct.PnL, 1e-9)
}

func TestCutoffDisabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.CutoffHour = -1
	b, err := NewBook(cfg)
	assert.NoError(t, err)
	openLong(t, b)

	ct := b.Advance(bar(23, 2001, 2003, 1999, 2002))
	assert.Nil(t, ct)
	assert.True(t, b.HasOpen("XAUUSD"))
}

func TestShortSideLifecycle(t *testing.T) {
	t.Parallel()

	b := newTestBook(t)
	_, err := b.Open(Order{
		Symbol:    "XAUUSD",
		Side:      Short,
		Entry:     2000,
		Stop:      2010,
		Target:    1980,
		Quantity:  5,
		RangeSize: 10,
		Time:      time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)

	// 1R move down arms break-even for the short.
	ct := b.Advance(bar(9, 1998, 1999, 1990, 1992))
	assert.Nil(t, ct)
	p, _ := b.Position("XAUUSD")
	assert.True(t, p.BreakEvenArmed)
	assert.InDelta(t, 1999.50, p.Stop, 1e-9)

	// Target touch closes at the target.
	ct = b.Advance(bar(10, 1992, 1994, 1979, 1983))
	assert.NotNil(t, ct)
	assert.Equal(t, Win, ct.Outcome)
	assert.InDelta(t, 1980.0, ct.ExitPrice, 1e-9)
	assert.InDelta(t, 100.0, ct.PnL, 1e-9)
}

func TestStopHitBeforeArmedIsLoss(t *testing.T) {
	t.Parallel()

	b := newTestBook(t)
	openLong(t, b)

	ct := b.Advance(bar(9, 1999, 2001, 1989, 1991))
	assert.NotNil(t, ct)
	assert.Equal(t, Loss, ct.Outcome)
	assert.InDelta(t, 1990.0, ct.ExitPrice, 1e-9)
}

func TestForceClose(t *testing.T) {
	t.Parallel()

	b := newTestBook(t)
	openLong(t, b)

	ct := b.ForceClose(bar(12, 2003, 2006, 2001, 2004))
	assert.NotNil(t, ct)
	assert.Equal(t, TimeExit, ct.Outcome)
	assert.InDelta(t, 2004.0, ct.ExitPrice, 1e-9)
	assert.Equal(t, 0, b.OpenCount())
}

func TestAdvanceFlatSymbolIsNoop(t *testing.T) {
	t.Parallel()

	b := newTestBook(t)
	assert.Nil(t, b.Advance(bar(9, 2000, 2001, 1999, 2000)))
}

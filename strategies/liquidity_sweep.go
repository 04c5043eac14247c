package strategies

import (
	"fmt"

	"github.com/rustyeddy/tradeguard/market"
	"github.com/rustyeddy/tradeguard/sim"
)

func init() {
	Register("liquidity-sweep", func() Signal { return NewLiquiditySweep() })
}

// LiquiditySweep is the ICT-style setup: during the entry window, a wick
// through the pre-session high/low (the liquidity sweep) combined with a
// fair-value gap against the bar two back signals a reversal entry. The
// stop hides behind the sweep wick; the target is a risk multiple.
type LiquiditySweep struct {
	// Pre-session window that defines the liquidity levels, UTC.
	SessionStartHour int
	SessionStartMin  int
	SessionEndHour   int
	SessionEndMin    int

	EntryStartHour int // inclusive
	EntryEndHour   int // exclusive

	StopBufferPct float64 // stop offset past the wick, fraction of price
	TargetR       float64 // target distance in risk multiples
}

func NewLiquiditySweep() *LiquiditySweep {
	return &LiquiditySweep{
		SessionStartHour: 13,
		SessionStartMin:  30,
		SessionEndHour:   15,
		SessionEndMin:    0,
		EntryStartHour:   15,
		EntryEndHour:     16,
		StopBufferPct:    0.0005,
		TargetR:          2.0,
	}
}

func (s *LiquiditySweep) Name() string { return "liquidity-sweep" }

func (s *LiquiditySweep) Configure(params map[string]float64) error {
	for k, v := range params {
		switch k {
		case "entry_start_hour":
			s.EntryStartHour = int(v)
		case "entry_end_hour":
			s.EntryEndHour = int(v)
		case "stop_buffer_pct":
			s.StopBufferPct = v
		case "target_r":
			s.TargetR = v
		default:
			return fmt.Errorf("unknown parameter %q", k)
		}
	}
	return nil
}

func (s *LiquiditySweep) Evaluate(window []market.Bar) *Proposal {
	if len(window) < 3 {
		return nil
	}
	cur := window[len(window)-1]

	hour := cur.Hour()
	if hour < s.EntryStartHour || hour >= s.EntryEndHour {
		return nil
	}

	day := cur.Day()
	var (
		sessionHigh float64
		sessionLow  float64
		sessionBars int
	)
	for _, b := range window {
		if !sameDay(b, day) || !s.inSession(b) {
			continue
		}
		if sessionBars == 0 || b.High > sessionHigh {
			sessionHigh = b.High
		}
		if sessionBars == 0 || b.Low < sessionLow {
			sessionLow = b.Low
		}
		sessionBars++
	}
	if sessionBars == 0 {
		return nil
	}

	// Fair-value gap versus the bar two back.
	prev2 := window[len(window)-3]
	fvgBull := cur.Low > prev2.High
	fvgBear := cur.High < prev2.Low

	sweptHigh := cur.High > sessionHigh
	sweptLow := cur.Low < sessionLow

	switch {
	case sweptLow && fvgBull:
		stop := cur.Low * (1 - s.StopBufferPct)
		risk := cur.Close - stop
		if risk <= 0 {
			return nil
		}
		return &Proposal{
			Symbol:    cur.Symbol,
			Side:      sim.Long,
			Entry:     cur.Close,
			Stop:      stop,
			Target:    cur.Close + risk*s.TargetR,
			RangeSize: sessionHigh - sessionLow,
		}
	case sweptHigh && fvgBear:
		stop := cur.High * (1 + s.StopBufferPct)
		risk := stop - cur.Close
		if risk <= 0 {
			return nil
		}
		return &Proposal{
			Symbol:    cur.Symbol,
			Side:      sim.Short,
			Entry:     cur.Close,
			Stop:      stop,
			Target:    cur.Close - risk*s.TargetR,
			RangeSize: sessionHigh - sessionLow,
		}
	}
	return nil
}

// inSession reports whether the bar opens inside the pre-session window.
func (s *LiquiditySweep) inSession(b market.Bar) bool {
	t := b.Time.UTC()
	minutes := t.Hour()*60 + t.Minute()
	start := s.SessionStartHour*60 + s.SessionStartMin
	end := s.SessionEndHour*60 + s.SessionEndMin
	return minutes >= start && minutes < end
}

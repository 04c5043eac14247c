package strategies

import (
	"fmt"
	"time"

	"github.com/rustyeddy/tradeguard/market"
	"github.com/rustyeddy/tradeguard/sim"
)

func init() {
	Register("asian-breakout", func() Signal { return NewAsianBreakout() })
}

// AsianBreakout trades the London-session break of the Asian session
// range: the high/low built between AsianStart and AsianEnd becomes the
// level, and a close beyond it during the entry window enters in the
// break direction. The stop sits across the range, the target is a
// multiple of the range, and the range itself becomes the trailing base.
type AsianBreakout struct {
	AsianStartHour int // inclusive, UTC
	AsianEndHour   int // exclusive
	EntryStartHour int // inclusive
	EntryEndHour   int // exclusive

	// MaxEntryBars limits how deep into the entry session a break may
	// still be taken.
	MaxEntryBars int

	// MinAsianBars rejects days with too thin an Asian session.
	MinAsianBars int

	StopBufferPct float64 // stop offset past the far side, as a range fraction
	TargetMult    float64 // target distance in range multiples

	MinRange float64 // absolute price units; 0 disables
	MaxRange float64 // absolute price units; 0 disables

	SkipMonday bool
}

func NewAsianBreakout() *AsianBreakout {
	return &AsianBreakout{
		AsianStartHour: 0,
		AsianEndHour:   6,
		EntryStartHour: 7,
		EntryEndHour:   10,
		MaxEntryBars:   4,
		MinAsianBars:   4,
		StopBufferPct:  0.001,
		TargetMult:     2.5,
		MinRange:       10,
		MaxRange:       300,
		SkipMonday:     true,
	}
}

func (s *AsianBreakout) Name() string { return "asian-breakout" }

func (s *AsianBreakout) Configure(params map[string]float64) error {
	for k, v := range params {
		switch k {
		case "asian_start_hour":
			s.AsianStartHour = int(v)
		case "asian_end_hour":
			s.AsianEndHour = int(v)
		case "entry_start_hour":
			s.EntryStartHour = int(v)
		case "entry_end_hour":
			s.EntryEndHour = int(v)
		case "max_entry_bars":
			s.MaxEntryBars = int(v)
		case "min_asian_bars":
			s.MinAsianBars = int(v)
		case "stop_buffer_pct":
			s.StopBufferPct = v
		case "target_mult":
			s.TargetMult = v
		case "min_range":
			s.MinRange = v
		case "max_range":
			s.MaxRange = v
		case "skip_monday":
			s.SkipMonday = v != 0
		default:
			return fmt.Errorf("unknown parameter %q", k)
		}
	}
	return nil
}

func (s *AsianBreakout) Evaluate(window []market.Bar) *Proposal {
	cur, ok := lastBar(window)
	if !ok {
		return nil
	}
	if s.SkipMonday && cur.Weekday() == time.Monday {
		return nil
	}

	hour := cur.Hour()
	if hour < s.EntryStartHour || hour >= s.EntryEndHour {
		return nil
	}

	day := cur.Day()

	var (
		asianHigh  float64
		asianLow   float64
		asianBars  int
		priorEntry int // entry-session bars already seen today
	)

	for _, b := range window {
		if !sameDay(b, day) {
			continue
		}
		h := b.Hour()
		if h >= s.AsianStartHour && h < s.AsianEndHour {
			if asianBars == 0 || b.High > asianHigh {
				asianHigh = b.High
			}
			if asianBars == 0 || b.Low < asianLow {
				asianLow = b.Low
			}
			asianBars++
		}
		if h >= s.EntryStartHour && h < s.EntryEndHour && b.Time.Before(cur.Time) {
			priorEntry++
		}
	}

	if asianBars < s.MinAsianBars {
		return nil
	}
	if priorEntry >= s.MaxEntryBars {
		return nil
	}

	rng := asianHigh - asianLow
	if rng <= 0 {
		return nil
	}
	if s.MinRange > 0 && rng < s.MinRange {
		return nil
	}
	if s.MaxRange > 0 && rng > s.MaxRange {
		return nil
	}

	switch {
	case cur.Close > asianHigh:
		return &Proposal{
			Symbol:    cur.Symbol,
			Side:      sim.Long,
			Entry:     cur.Close,
			Stop:      asianLow - rng*s.StopBufferPct,
			Target:    cur.Close + rng*s.TargetMult,
			RangeSize: rng,
		}
	case cur.Close < asianLow:
		return &Proposal{
			Symbol:    cur.Symbol,
			Side:      sim.Short,
			Entry:     cur.Close,
			Stop:      asianHigh + rng*s.StopBufferPct,
			Target:    cur.Close - rng*s.TargetMult,
			RangeSize: rng,
		}
	}
	return nil
}

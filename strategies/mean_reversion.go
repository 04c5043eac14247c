package strategies

import (
	"fmt"

	"github.com/rustyeddy/tradeguard/market"
	"github.com/rustyeddy/tradeguard/sim"
)

func init() {
	Register("mean-reversion", func() Signal { return NewMeanReversion() })
}

// MeanReversion fades closes outside the Bollinger bands when RSI agrees
// the move is stretched, targeting the middle band.
type MeanReversion struct {
	UpperKey  string
	LowerKey  string
	MiddleKey string
	RSIKey    string
	ATRKey    string

	RSIOversold   float64
	RSIOverbought float64

	StopATR float64 // stop placed this many ATRs beyond the close
}

func NewMeanReversion() *MeanReversion {
	return &MeanReversion{
		UpperKey:      "bb_upper",
		LowerKey:      "bb_lower",
		MiddleKey:     "bb_mid",
		RSIKey:        "rsi14",
		ATRKey:        "atr14",
		RSIOversold:   30,
		RSIOverbought: 70,
		StopATR:       1.5,
	}
}

func (s *MeanReversion) Name() string { return "mean-reversion" }

func (s *MeanReversion) Configure(params map[string]float64) error {
	for k, v := range params {
		switch k {
		case "rsi_oversold":
			s.RSIOversold = v
		case "rsi_overbought":
			s.RSIOverbought = v
		case "stop_atr":
			s.StopATR = v
		default:
			return fmt.Errorf("unknown parameter %q", k)
		}
	}
	return nil
}

func (s *MeanReversion) Evaluate(window []market.Bar) *Proposal {
	cur, ok := lastBar(window)
	if !ok {
		return nil
	}

	upper, okU := cur.Feature(s.UpperKey)
	lower, okL := cur.Feature(s.LowerKey)
	mid, okM := cur.Feature(s.MiddleKey)
	rsi, okR := cur.Feature(s.RSIKey)
	atr, okA := cur.Feature(s.ATRKey)
	if !okU || !okL || !okM || !okR || !okA || atr <= 0 {
		return nil
	}

	switch {
	case cur.Close < lower && rsi < s.RSIOversold && mid > cur.Close:
		return &Proposal{
			Symbol: cur.Symbol,
			Side:   sim.Long,
			Entry:  cur.Close,
			Stop:   cur.Close - atr*s.StopATR,
			Target: mid,
		}
	case cur.Close > upper && rsi > s.RSIOverbought && mid < cur.Close:
		return &Proposal{
			Symbol: cur.Symbol,
			Side:   sim.Short,
			Entry:  cur.Close,
			Stop:   cur.Close + atr*s.StopATR,
			Target: mid,
		}
	}
	return nil
}

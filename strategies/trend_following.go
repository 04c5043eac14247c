package strategies

import (
	"fmt"

	"github.com/rustyeddy/tradeguard/market"
	"github.com/rustyeddy/tradeguard/sim"
)

func init() {
	Register("trend-following", func() Signal { return NewTrendFollowing() })
}

// TrendFollowing enters in the direction of the higher-timeframe trend:
// price above the EMA with RSI confirming and ADX showing a real trend.
// Stops and targets are built from the bar's ATR.
type TrendFollowing struct {
	EMAKey string
	RSIKey string
	ADXKey string
	ATRKey string

	RSILong  float64 // minimum RSI for a long
	RSIShort float64 // maximum RSI for a short
	ADXMin   float64

	StopATR   float64 // stop distance in ATR multiples
	TargetATR float64 // target distance in ATR multiples
}

func NewTrendFollowing() *TrendFollowing {
	return &TrendFollowing{
		EMAKey:    "ema50",
		RSIKey:    "rsi14",
		ADXKey:    "adx14",
		ATRKey:    "atr14",
		RSILong:   55,
		RSIShort:  45,
		ADXMin:    20,
		StopATR:   2.5,
		TargetATR: 5.0,
	}
}

func (s *TrendFollowing) Name() string { return "trend-following" }

func (s *TrendFollowing) Configure(params map[string]float64) error {
	for k, v := range params {
		switch k {
		case "rsi_long":
			s.RSILong = v
		case "rsi_short":
			s.RSIShort = v
		case "adx_min":
			s.ADXMin = v
		case "stop_atr":
			s.StopATR = v
		case "target_atr":
			s.TargetATR = v
		default:
			return fmt.Errorf("unknown parameter %q", k)
		}
	}
	return nil
}

func (s *TrendFollowing) Evaluate(window []market.Bar) *Proposal {
	cur, ok := lastBar(window)
	if !ok {
		return nil
	}

	ema, okE := cur.Feature(s.EMAKey)
	rsi, okR := cur.Feature(s.RSIKey)
	adx, okA := cur.Feature(s.ADXKey)
	atr, okT := cur.Feature(s.ATRKey)
	if !okE || !okR || !okA || !okT || atr <= 0 {
		return nil
	}
	if adx < s.ADXMin {
		return nil
	}

	switch {
	case cur.Close > ema && rsi > s.RSILong:
		return &Proposal{
			Symbol: cur.Symbol,
			Side:   sim.Long,
			Entry:  cur.Close,
			Stop:   cur.Close - atr*s.StopATR,
			Target: cur.Close + atr*s.TargetATR,
		}
	case cur.Close < ema && rsi < s.RSIShort:
		return &Proposal{
			Symbol: cur.Symbol,
			Side:   sim.Short,
			Entry:  cur.Close,
			Stop:   cur.Close + atr*s.StopATR,
			Target: cur.Close - atr*s.TargetATR,
		}
	}
	return nil
}

package risk

import "math"

// ClampFunc adjusts a raw quantity to an instrument's minimum, maximum
// and step granularity. Venue rules live in the broker/exchange adapter;
// the sizer only applies whatever clamp it is handed.
type ClampFunc func(symbol string, qty float64) float64

// SizeInputs is everything the sizer needs for one entry.
type SizeInputs struct {
	Symbol       string
	Balance      float64
	RiskFraction float64
	Entry        float64
	Stop         float64
}

// SizeResult carries the computed quantity or a rejection. A rejection
// means "no trade this bar"; callers never retry with a different
// distance.
type SizeResult struct {
	Quantity     float64 // after clamping
	RawQuantity  float64 // before clamping
	RiskAmount   float64
	StopDistance float64
	Rejected     bool
	Reason       string
}

func reject(reason string) SizeResult {
	return SizeResult{Rejected: true, Reason: reason}
}

// Size converts balance, risk fraction and stop distance into a trade
// quantity: qty = balance×riskFraction / |entry−stop|.
func Size(in SizeInputs, clamp ClampFunc) SizeResult {
	dist := math.Abs(in.Entry - in.Stop)
	if dist == 0 {
		return reject("zero stop distance")
	}
	if in.Balance <= 0 {
		return reject("no balance")
	}
	if in.RiskFraction <= 0 {
		return reject("no risk budget")
	}

	riskAmt := in.Balance * in.RiskFraction
	raw := riskAmt / dist

	qty := raw
	if clamp != nil {
		qty = clamp(in.Symbol, raw)
	}
	if qty <= 0 {
		return reject("quantity clamped to zero")
	}

	return SizeResult{
		Quantity:     qty,
		RawQuantity:  raw,
		RiskAmount:   riskAmt,
		StopDistance: dist,
	}
}

package market

import "time"

// Bar is one OHLCV observation for a fixed time interval, tagged with the
// symbol it belongs to and any indicator values computed upstream.
//
// Bars are immutable once produced. Within a symbol they are ordered by
// timestamp; the engine interleaves multiple symbols chronologically.
type Bar struct {
	Symbol string
	Time   time.Time // UTC
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	// Features carries named indicator values (ema50, rsi14, adx14,
	// atr14, bb_upper, ...). Indicator arithmetic happens upstream;
	// the engine only reads these.
	Features map[string]float64
}

// Feature returns the named feature value and whether it is present.
func (b Bar) Feature(name string) (float64, bool) {
	v, ok := b.Features[name]
	return v, ok
}

// Day returns the UTC calendar day the bar belongs to.
func (b Bar) Day() string {
	return b.Time.UTC().Format("2006-01-02")
}

// Hour returns the UTC hour-of-day of the bar's open.
func (b Bar) Hour() int {
	return b.Time.UTC().Hour()
}

// Weekday returns the UTC weekday of the bar.
func (b Bar) Weekday() time.Weekday {
	return b.Time.UTC().Weekday()
}

// Valid reports whether the bar's OHLC values are internally consistent.
func (b Bar) Valid() bool {
	if b.Symbol == "" || b.Time.IsZero() {
		return false
	}
	if b.High < b.Low {
		return false
	}
	if b.Open > b.High || b.Open < b.Low {
		return false
	}
	if b.Close > b.High || b.Close < b.Low {
		return false
	}
	return true
}

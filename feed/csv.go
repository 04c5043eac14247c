package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/tradeguard/market"
)

// CSVBarFeed reads OHLCV bars from a CSV file with a header row:
//
//	time,open,high,low,close[,volume][,feature...]
//
// Columns beyond the OHLCV set are parsed as float features keyed by
// their lowercased header name (ema50, rsi14, and so on). Time accepts
// RFC3339, "2006-01-02 15:04:05", the MT5 dotted variants, or epoch
// seconds, and is normalized to UTC.
//
// Files may be plain, .xz compressed, or the lone .csv inside a .zip;
// UTF-16 exports are decoded transparently. Rows are optionally
// filtered to [From, To). Rows that fail OHLC sanity are skipped.
type CSVBarFeed struct {
	symbol string
	src    io.ReadCloser
	r      *csv.Reader
	from   time.Time
	to     time.Time

	header  []string
	col     map[string]int
	feature []int // header indexes that are features
}

func NewCSVBarFeed(symbol, path string, from, to time.Time) (*CSVBarFeed, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("feed: symbol required")
	}

	src, err := openData(path)
	if err != nil {
		return nil, err
	}

	text := decodeText(src)
	r := csv.NewReader(text)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	f := &CSVBarFeed{symbol: symbol, src: src, r: r, from: from, to: to}
	if err := f.readHeader(); err != nil {
		src.Close()
		return nil, fmt.Errorf("feed %s: %w", path, err)
	}
	return f, nil
}

func (f *CSVBarFeed) Symbol() string { return f.symbol }

func (f *CSVBarFeed) Close() error {
	if f.src != nil {
		return f.src.Close()
	}
	return nil
}

func (f *CSVBarFeed) readHeader() error {
	row, err := f.r.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	f.header = make([]string, len(row))
	f.col = make(map[string]int, len(row))
	for i, name := range row {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		f.header[i] = name
		f.col[name] = i
		switch name {
		case "time", "date", "datetime", "open", "high", "low", "close", "volume", "tick_volume":
		default:
			f.feature = append(f.feature, i)
		}
	}

	for _, want := range []string{"open", "high", "low", "close"} {
		if _, ok := f.col[want]; !ok {
			return fmt.Errorf("header missing %q column", want)
		}
	}
	if _, ok := f.timeCol(); !ok {
		return fmt.Errorf("header missing time column")
	}
	return nil
}

func (f *CSVBarFeed) timeCol() (int, bool) {
	for _, name := range []string{"time", "datetime", "date"} {
		if i, ok := f.col[name]; ok {
			return i, true
		}
	}
	return 0, false
}

func (f *CSVBarFeed) Next() (market.Bar, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return market.Bar{}, false, nil
		}
		if err != nil {
			return market.Bar{}, false, err
		}
		if len(row) == 0 {
			continue
		}

		b, ok, err := f.parseRow(row)
		if err != nil {
			return market.Bar{}, false, err
		}
		if !ok {
			continue
		}
		if !inRange(b.Time, f.from, f.to) {
			continue
		}
		return b, true, nil
	}
}

func (f *CSVBarFeed) parseRow(row []string) (market.Bar, bool, error) {
	ti, _ := f.timeCol()
	if ti >= len(row) {
		return market.Bar{}, false, nil
	}
	ts, err := parseTime(row[ti])
	if err != nil {
		return market.Bar{}, false, err
	}

	b := market.Bar{Symbol: f.symbol, Time: ts}
	if b.Open, err = f.floatAt(row, "open"); err != nil {
		return market.Bar{}, false, err
	}
	if b.High, err = f.floatAt(row, "high"); err != nil {
		return market.Bar{}, false, err
	}
	if b.Low, err = f.floatAt(row, "low"); err != nil {
		return market.Bar{}, false, err
	}
	if b.Close, err = f.floatAt(row, "close"); err != nil {
		return market.Bar{}, false, err
	}
	if i, ok := f.col["volume"]; ok && i < len(row) {
		b.Volume, _ = strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	} else if i, ok := f.col["tick_volume"]; ok && i < len(row) {
		b.Volume, _ = strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	}

	for _, i := range f.feature {
		if i >= len(row) {
			continue
		}
		s := strings.TrimSpace(row[i])
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue // non-numeric extras are not features
		}
		if b.Features == nil {
			b.Features = make(map[string]float64, len(f.feature))
		}
		b.Features[f.header[i]] = v
	}

	if !b.Valid() {
		return market.Bar{}, false, nil
	}
	return b, true, nil
}

func (f *CSVBarFeed) floatAt(row []string, name string) (float64, error) {
	i := f.col[name]
	if i >= len(row) {
		return 0, fmt.Errorf("row too short for %q", name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", name, row[i], err)
	}
	return v, nil
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	"2006-01-02",
	"2006.01.02",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs > 1e12 { // epoch millis
			return time.UnixMilli(secs).UTC(), nil
		}
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

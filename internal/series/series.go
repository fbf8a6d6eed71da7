// Package series provides the time-indexed value sequences every engine
// package computes over. A PriceSeries is an ordered run of daily OHLCV bars
// for one symbol; a Series is a float sequence aligned position-for-position
// with the bars it was derived from, with NaN marking undefined positions
// (warm-up windows, undefined deltas). The engine never fills undefined
// positions; presentation-time fill policies live at the API boundary.
//
// All types are immutable once constructed. Operations return new values and
// never mutate their inputs. Windows count positions, not calendar days.
package series

import (
	"math"
	"time"

	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

// Undefined returns the marker value for an undefined series position.
func Undefined() float64 {
	return math.NaN()
}

// IsUndefined reports whether v marks an undefined series position.
func IsUndefined(v float64) bool {
	return math.IsNaN(v)
}

// Bar is a single daily OHLCV observation.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries is an ordered run of daily bars for one symbol with strictly
// increasing timestamps.
type PriceSeries struct {
	symbol string
	bars   []Bar
}

// NewPriceSeries builds a PriceSeries from bars, validating ordering and that
// every price field is finite. The bars slice is copied.
func NewPriceSeries(symbol string, bars []Bar) (*PriceSeries, error) {
	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidSeries, "price series for %s requires at least one bar", symbol)
	}

	for i, bar := range bars {
		if i > 0 && !bar.Time.After(bars[i-1].Time) {
			return nil, errors.Newf(errors.ErrCodeInvalidSeries,
				"bar timestamps for %s must be strictly increasing, violated at position %d", symbol, i)
		}
		for _, v := range []float64{bar.Open, bar.High, bar.Low, bar.Close, bar.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Newf(errors.ErrCodeInvalidSeries,
					"bar for %s at position %d contains a non-finite value", symbol, i)
			}
		}
	}

	copied := make([]Bar, len(bars))
	copy(copied, bars)

	return &PriceSeries{symbol: symbol, bars: copied}, nil
}

// Symbol returns the symbol the series belongs to.
func (p *PriceSeries) Symbol() string {
	return p.symbol
}

// Len returns the number of bars.
func (p *PriceSeries) Len() int {
	return len(p.bars)
}

// Bar returns the bar at position i.
func (p *PriceSeries) Bar(i int) Bar {
	return p.bars[i]
}

// Bars returns a copy of all bars.
func (p *PriceSeries) Bars() []Bar {
	out := make([]Bar, len(p.bars))
	copy(out, p.bars)

	return out
}

// Times returns the bar timestamps in order.
func (p *PriceSeries) Times() []time.Time {
	out := make([]time.Time, len(p.bars))
	for i, bar := range p.bars {
		out[i] = bar.Time
	}

	return out
}

// LastN returns a new PriceSeries holding the most recent n bars. If n is
// zero, negative, or at least Len, the whole series is returned.
func (p *PriceSeries) LastN(n int) *PriceSeries {
	if n <= 0 || n >= len(p.bars) {
		return &PriceSeries{symbol: p.symbol, bars: p.Bars()}
	}
	tail := make([]Bar, n)
	copy(tail, p.bars[len(p.bars)-n:])

	return &PriceSeries{symbol: p.symbol, bars: tail}
}

func (p *PriceSeries) column(pick func(Bar) float64) *Series {
	values := make([]float64, len(p.bars))
	for i, bar := range p.bars {
		values[i] = pick(bar)
	}

	return &Series{values: values}
}

// Opens returns the open column.
func (p *PriceSeries) Opens() *Series {
	return p.column(func(b Bar) float64 { return b.Open })
}

// Highs returns the high column.
func (p *PriceSeries) Highs() *Series {
	return p.column(func(b Bar) float64 { return b.High })
}

// Lows returns the low column.
func (p *PriceSeries) Lows() *Series {
	return p.column(func(b Bar) float64 { return b.Low })
}

// Closes returns the close column.
func (p *PriceSeries) Closes() *Series {
	return p.column(func(b Bar) float64 { return b.Close })
}

// Volumes returns the volume column.
func (p *PriceSeries) Volumes() *Series {
	return p.column(func(b Bar) float64 { return b.Volume })
}

// Series is a float sequence aligned 1:1 with the price series it was derived
// from. NaN marks undefined positions.
type Series struct {
	values []float64
}

// New builds a Series from values. The slice is copied.
func New(values []float64) *Series {
	copied := make([]float64, len(values))
	copy(copied, values)

	return &Series{values: copied}
}

// fromOwned wraps a slice the caller promises not to reuse.
func fromOwned(values []float64) *Series {
	return &Series{values: values}
}

// Len returns the number of positions.
func (s *Series) Len() int {
	return len(s.values)
}

// At returns the value at position i (possibly NaN).
func (s *Series) At(i int) float64 {
	return s.values[i]
}

// IsDefined reports whether position i holds a defined value.
func (s *Series) IsDefined(i int) bool {
	return !math.IsNaN(s.values[i])
}

// Values returns a copy of all values.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)

	return out
}

// DefinedCount returns the number of defined positions.
func (s *Series) DefinedCount() int {
	n := 0
	for _, v := range s.values {
		if !math.IsNaN(v) {
			n++
		}
	}

	return n
}

// DropUndefined returns the defined values in order, compacted into a plain
// slice. Risk computations consume this form.
func (s *Series) DropUndefined() []float64 {
	out := make([]float64, 0, len(s.values))
	for _, v := range s.values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}

	return out
}

// PctChange returns the one-position relative change series:
// r[t] = v[t]/v[t-1] - 1. Position 0 is undefined, as is any position whose
// previous value is undefined or zero.
func (s *Series) PctChange() *Series {
	out := make([]float64, len(s.values))
	for i := range s.values {
		if i == 0 || math.IsNaN(s.values[i-1]) || s.values[i-1] == 0 || math.IsNaN(s.values[i]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = s.values[i]/s.values[i-1] - 1
	}

	return fromOwned(out)
}

// Diff returns the one-position difference series: d[t] = v[t] - v[t-1] with
// position 0 undefined.
func (s *Series) Diff() *Series {
	out := make([]float64, len(s.values))
	for i := range s.values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = s.values[i] - s.values[i-1]
	}

	return fromOwned(out)
}

// Shift returns the series moved k positions forward (k > 0) or backward
// (k < 0); vacated positions are undefined.
func (s *Series) Shift(k int) *Series {
	out := make([]float64, len(s.values))
	for i := range out {
		j := i - k
		if j < 0 || j >= len(s.values) {
			out[i] = math.NaN()
			continue
		}
		out[i] = s.values[j]
	}

	return fromOwned(out)
}

// LastN returns the most recent n positions. If n is zero, negative, or at
// least Len, the whole series is returned.
func (s *Series) LastN(n int) *Series {
	if n <= 0 || n >= len(s.values) {
		return New(s.values)
	}

	return New(s.values[len(s.values)-n:])
}

package indicator

import (
	"math"

	"github.com/quantdesk-lab/quantdesk/internal/series"
)

// VWAP computes the running volume-weighted average price from the first bar:
// cumsum(close*volume) / cumsum(volume). Positions where the cumulative
// volume is still zero are undefined.
func VWAP(prices *series.PriceSeries) (*series.Series, error) {
	if err := validateInput("vwap", prices.Len()); err != nil {
		return nil, err
	}

	out := make([]float64, prices.Len())
	sumPV := 0.0
	sumV := 0.0
	for i := 0; i < prices.Len(); i++ {
		bar := prices.Bar(i)
		sumPV += bar.Close * bar.Volume
		sumV += bar.Volume
		if sumV == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sumPV / sumV
	}

	return series.New(out), nil
}

// OBV computes on-balance volume: the running sum of sign(close delta) times
// volume, with sign(0) = 0. Position 0 has no delta and is undefined; it
// contributes nothing to the running sum.
func OBV(prices *series.PriceSeries) (*series.Series, error) {
	if err := validateInput("obv", prices.Len()); err != nil {
		return nil, err
	}

	out := make([]float64, prices.Len())
	sum := 0.0
	for i := 0; i < prices.Len(); i++ {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		delta := prices.Bar(i).Close - prices.Bar(i-1).Close
		switch {
		case delta > 0:
			sum += prices.Bar(i).Volume
		case delta < 0:
			sum -= prices.Bar(i).Volume
		}
		out[i] = sum
	}

	return series.New(out), nil
}

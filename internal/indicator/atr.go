package indicator

import (
	"math"

	"github.com/quantdesk-lab/quantdesk/internal/series"
)

// DefaultATRWindow is the conventional ATR lookback.
const DefaultATRWindow = 14

// ATR computes the average true range: the trailing mean of
//
//	TR[t] = max(high-low, |high-prevClose|, |low-prevClose|)
//
// where the first bar has no previous close and its true range is just
// high-low. Defined from position window-1 onward.
func ATR(prices *series.PriceSeries, window int) (*series.Series, error) {
	if err := validateWindow("atr", window); err != nil {
		return nil, err
	}
	if err := validateInput("atr", prices.Len()); err != nil {
		return nil, err
	}

	tr := make([]float64, prices.Len())
	for i := 0; i < prices.Len(); i++ {
		bar := prices.Bar(i)
		tr[i] = bar.High - bar.Low
		if i > 0 {
			prevClose := prices.Bar(i - 1).Close
			tr[i] = math.Max(tr[i], math.Max(math.Abs(bar.High-prevClose), math.Abs(bar.Low-prevClose)))
		}
	}

	return series.New(rollingMean(tr, window)), nil
}

package indicator

import (
	"math"

	"github.com/quantdesk-lab/quantdesk/internal/series"
)

// StochasticParams configures the oscillator windows.
type StochasticParams struct {
	KWindow int
	DWindow int
}

// DefaultStochasticParams returns the conventional 14/3 configuration.
func DefaultStochasticParams() StochasticParams {
	return StochasticParams{KWindow: 14, DWindow: 3}
}

// StochasticResult holds the %K and %D series.
type StochasticResult struct {
	K *series.Series
	D *series.Series
}

// Stochastic computes the stochastic oscillator:
//
//	%K = 100 * (close - LL) / (HH - LL)
//	%D = SMA(%K, dWindow)
//
// with LL/HH the trailing kWindow low/high extremes. A zero-range window
// (HH == LL) leaves %K undefined at that position.
func Stochastic(prices *series.PriceSeries, params StochasticParams) (StochasticResult, error) {
	if err := validateWindow("stochastic %K", params.KWindow); err != nil {
		return StochasticResult{}, err
	}
	if err := validateWindow("stochastic %D", params.DWindow); err != nil {
		return StochasticResult{}, err
	}
	if err := validateInput("stochastic", prices.Len()); err != nil {
		return StochasticResult{}, err
	}

	lows := prices.Lows().Values()
	highs := prices.Highs().Values()

	lowest := rollingMin(lows, params.KWindow)
	highest := rollingMax(highs, params.KWindow)

	k := make([]float64, prices.Len())
	for i := range k {
		if math.IsNaN(lowest[i]) || math.IsNaN(highest[i]) {
			k[i] = math.NaN()
			continue
		}
		// A zero range makes this 0/0, which is the undefined marker.
		k[i] = 100 * (prices.Bar(i).Close - lowest[i]) / (highest[i] - lowest[i])
	}

	d := rollingMean(k, params.DWindow)

	return StochasticResult{
		K: series.New(k),
		D: series.New(d),
	}, nil
}

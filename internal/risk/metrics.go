// Package risk computes distribution and drawdown statistics over daily
// return samples. Inputs are undefined-free slices (callers compact series
// with DropUndefined); outputs are raw float64 values. Rounding and
// percentage scaling happen at the API boundary, never here.
package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

// TradingDaysPerYear is the annualization factor for daily returns. Position
// counts stand in for calendar time everywhere in the engine.
const TradingDaysPerYear = 252

// Metrics is the risk and performance record of one return sample.
type Metrics struct {
	AnnualReturn     float64
	AnnualVolatility float64
	SharpeRatio      float64
	MaxDrawdown      float64
	VaR95            float64
	Skewness         float64
	Kurtosis         float64
}

// Compute derives the full metrics record from a daily return sample.
// An empty sample yields the zero record rather than an error, so thin
// slices of history degrade quietly in batch paths. A single observation has
// no dispersion; volatility, sharpe, skewness and kurtosis are 0.
func Compute(returns []float64) Metrics {
	if len(returns) == 0 {
		return Metrics{}
	}

	mean := stat.Mean(returns, nil)
	annualReturn := mean * TradingDaysPerYear

	annualVolatility := 0.0
	if len(returns) > 1 {
		annualVolatility = stat.StdDev(returns, nil) * math.Sqrt(TradingDaysPerYear)
	}

	sharpe := 0.0
	if annualVolatility != 0 {
		sharpe = annualReturn / annualVolatility
	}

	return Metrics{
		AnnualReturn:     annualReturn,
		AnnualVolatility: annualVolatility,
		SharpeRatio:      sharpe,
		MaxDrawdown:      MaxDrawdown(returns),
		VaR95:            Percentile(returns, 0.05),
		Skewness:         populationSkewness(returns),
		Kurtosis:         populationExcessKurtosis(returns),
	}
}

// MaxDrawdown compounds the returns into an equity curve and returns the
// deepest drop from a running peak, as a nonpositive fraction.
func MaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	equity := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range returns {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if dd := equity/peak - 1; dd < worst {
			worst = dd
		}
	}

	return worst
}

// Percentile returns the p-th quantile (p in [0,1]) of the sample using
// linear interpolation between order statistics at h = (n-1)p. This is the
// numpy convention; gonum's quantile interpolations sit at different offsets
// and would shift VaR on small samples.
func Percentile(sample []float64, p float64) float64 {
	if len(sample) == 0 {
		return 0
	}

	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}

	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// populationSkewness is the biased third standardized moment m3/m2^1.5.
// gonum's stat.Skew applies the sample bias correction, which is not what the
// record wants.
func populationSkewness(sample []float64) float64 {
	n := float64(len(sample))
	if n < 2 {
		return 0
	}

	mean := stat.Mean(sample, nil)
	m2 := 0.0
	m3 := 0.0
	for _, v := range sample {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}

	return m3 / math.Pow(m2, 1.5)
}

// populationExcessKurtosis is the biased fourth standardized moment
// m4/m2^2 - 3 (excess form). gonum's stat.ExKurtosis is bias-corrected.
func populationExcessKurtosis(sample []float64) float64 {
	n := float64(len(sample))
	if n < 2 {
		return 0
	}

	mean := stat.Mean(sample, nil)
	m2 := 0.0
	m4 := 0.0
	for _, v := range sample {
		d := v - mean
		m2 += d * d
		m4 += d * d * d * d
	}
	m2 /= n
	m4 /= n
	if m2 == 0 {
		return 0
	}

	return m4/(m2*m2) - 3
}

// CorrelationMatrix computes pairwise Pearson correlations of equal-length
// return samples. The diagonal is exactly 1. Assets with zero variance
// correlate as NaN, which the API boundary renders per its fill policy.
func CorrelationMatrix(returns [][]float64) ([][]float64, error) {
	if len(returns) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "correlation requires at least one return sample")
	}
	length := len(returns[0])
	for i, sample := range returns {
		if len(sample) != length {
			return nil, errors.Newf(errors.ErrCodeInvalidArgument,
				"correlation samples must align: sample 0 has %d observations, sample %d has %d",
				length, i, len(sample))
		}
	}

	out := make([][]float64, len(returns))
	for i := range out {
		out[i] = make([]float64, len(returns))
		out[i][i] = 1
	}
	for i := 0; i < len(returns); i++ {
		for j := i + 1; j < len(returns); j++ {
			c := stat.Correlation(returns[i], returns[j], nil)
			out[i][j] = c
			out[j][i] = c
		}
	}

	return out, nil
}

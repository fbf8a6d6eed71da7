package indicator

import (
	"math"

	"github.com/quantdesk-lab/quantdesk/internal/series"
	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

// MACDParams configures the moving average convergence divergence windows.
type MACDParams struct {
	FastSpan   int
	SlowSpan   int
	SignalSpan int
}

// DefaultMACDParams returns the conventional 12/26/9 configuration.
func DefaultMACDParams() MACDParams {
	return MACDParams{FastSpan: 12, SlowSpan: 26, SignalSpan: 9}
}

// MACDResult holds the three aligned MACD series.
type MACDResult struct {
	MACD      *series.Series
	Signal    *series.Series
	Histogram *series.Series
}

// MACD computes macd = EMA(fast) - EMA(slow), the signal line
// EMA(macd, signal), and their difference. With adjusted EMA weighting all
// three are defined wherever the input is.
func MACD(values *series.Series, params MACDParams) (MACDResult, error) {
	if err := validateWindow("macd fast", params.FastSpan); err != nil {
		return MACDResult{}, err
	}
	if err := validateWindow("macd slow", params.SlowSpan); err != nil {
		return MACDResult{}, err
	}
	if err := validateWindow("macd signal", params.SignalSpan); err != nil {
		return MACDResult{}, err
	}
	if params.FastSpan >= params.SlowSpan {
		return MACDResult{}, errors.Newf(errors.ErrCodeInvalidWindow,
			"macd fast span %d must be shorter than slow span %d", params.FastSpan, params.SlowSpan)
	}
	if err := validateInput("macd", values.Len()); err != nil {
		return MACDResult{}, err
	}

	fast, err := EMA(values, params.FastSpan)
	if err != nil {
		return MACDResult{}, err
	}
	slow, err := EMA(values, params.SlowSpan)
	if err != nil {
		return MACDResult{}, err
	}

	macd := make([]float64, values.Len())
	for i := range macd {
		if !fast.IsDefined(i) || !slow.IsDefined(i) {
			macd[i] = math.NaN()
			continue
		}
		macd[i] = fast.At(i) - slow.At(i)
	}
	macdSeries := series.New(macd)

	signal, err := EMA(macdSeries, params.SignalSpan)
	if err != nil {
		return MACDResult{}, err
	}

	histogram := make([]float64, values.Len())
	for i := range histogram {
		if !macdSeries.IsDefined(i) || !signal.IsDefined(i) {
			histogram[i] = math.NaN()
			continue
		}
		histogram[i] = macdSeries.At(i) - signal.At(i)
	}

	return MACDResult{
		MACD:      macdSeries,
		Signal:    signal,
		Histogram: series.New(histogram),
	}, nil
}

package indicator

import (
	"math"

	"github.com/quantdesk-lab/quantdesk/internal/series"
)

// DefaultRSIWindow is the conventional RSI lookback.
const DefaultRSIWindow = 14

// RSI computes the relative strength index from trailing simple means of
// gains and losses:
//
//	RS  = mean(gains, window) / mean(losses, window)
//	RSI = 100 - 100/(1+RS)
//
// The delta at position 0 is undefined, so the first defined RSI sits at
// position `window`. A window with losses but no gains yields 0, a window
// with gains but no losses yields exactly 100 (RS is infinite, not a division
// error), and a flat window (no gains, no losses) is undefined.
func RSI(values *series.Series, window int) (*series.Series, error) {
	if err := validateWindow("rsi", window); err != nil {
		return nil, err
	}
	if err := validateInput("rsi", values.Len()); err != nil {
		return nil, err
	}

	deltas := values.Diff()
	gains := make([]float64, deltas.Len())
	losses := make([]float64, deltas.Len())
	for i := 0; i < deltas.Len(); i++ {
		d := deltas.At(i)
		if math.IsNaN(d) {
			gains[i] = math.NaN()
			losses[i] = math.NaN()
			continue
		}
		gains[i] = math.Max(d, 0)
		losses[i] = math.Max(-d, 0)
	}

	avgGain := rollingMean(gains, window)
	avgLoss := rollingMean(losses, window)

	out := make([]float64, values.Len())
	for i := range out {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			out[i] = math.NaN()
			continue
		}
		// 0/0 is NaN and gain/0 is +Inf; both flow through to the right
		// answer (undefined and 100 respectively).
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}

	return series.New(out), nil
}

package indicator

import (
	"math"

	"github.com/quantdesk-lab/quantdesk/internal/series"
)

// EMA computes the exponential moving average with span-based smoothing,
// alpha = 2/(span+1), using adjusted weighting: each position is the
// decay-weighted mean of every observation so far,
//
//	ema[t] = sum((1-alpha)^(t-i) * x[i]) / sum((1-alpha)^(t-i))
//
// so values are defined from the first defined input onward and the early
// positions are not biased toward the seed value. Undefined inputs contribute
// nothing but still age the weights of earlier observations.
func EMA(values *series.Series, span int) (*series.Series, error) {
	if err := validateWindow("ema", span); err != nil {
		return nil, err
	}
	if err := validateInput("ema", values.Len()); err != nil {
		return nil, err
	}

	alpha := 2 / (float64(span) + 1)
	decay := 1 - alpha

	out := make([]float64, values.Len())
	num := 0.0
	den := 0.0
	for i := 0; i < values.Len(); i++ {
		num *= decay
		den *= decay
		if v := values.At(i); !math.IsNaN(v) {
			num += v
			den++
		}
		if den == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = num / den
	}

	return series.New(out), nil
}

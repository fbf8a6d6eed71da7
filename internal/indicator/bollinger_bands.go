package indicator

import (
	"math"

	"github.com/quantdesk-lab/quantdesk/internal/series"
	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

// BollingerParams configures the band window and width.
type BollingerParams struct {
	Window int
	Width  float64
}

// DefaultBollingerParams returns the conventional 20-period, 2-sigma bands.
func DefaultBollingerParams() BollingerParams {
	return BollingerParams{Window: 20, Width: 2}
}

// BollingerBands holds the three aligned band series.
type BollingerBands struct {
	Upper  *series.Series
	Middle *series.Series
	Lower  *series.Series
}

// Bollinger computes middle = SMA(window) and upper/lower = middle +/- width
// trailing sample standard deviations. Wherever defined,
// upper >= middle >= lower.
func Bollinger(values *series.Series, params BollingerParams) (BollingerBands, error) {
	if err := validateWindow("bollinger", params.Window); err != nil {
		return BollingerBands{}, err
	}
	if params.Width <= 0 {
		return BollingerBands{}, errors.Newf(errors.ErrCodeInvalidArgument,
			"bollinger width must be positive, got %v", params.Width)
	}
	if err := validateInput("bollinger", values.Len()); err != nil {
		return BollingerBands{}, err
	}

	raw := values.Values()
	middle := rollingMean(raw, params.Window)
	sd := rollingStd(raw, params.Window)

	upper := make([]float64, len(raw))
	lower := make([]float64, len(raw))
	for i := range raw {
		if math.IsNaN(middle[i]) || math.IsNaN(sd[i]) {
			upper[i] = math.NaN()
			lower[i] = math.NaN()
			continue
		}
		upper[i] = middle[i] + params.Width*sd[i]
		lower[i] = middle[i] - params.Width*sd[i]
	}

	return BollingerBands{
		Upper:  series.New(upper),
		Middle: series.New(middle),
		Lower:  series.New(lower),
	}, nil
}

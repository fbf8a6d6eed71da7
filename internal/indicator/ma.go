package indicator

import (
	"github.com/quantdesk-lab/quantdesk/internal/series"
)

// SMA computes the simple moving average over a trailing window. Positions
// before the window is full are undefined.
func SMA(values *series.Series, window int) (*series.Series, error) {
	if err := validateWindow("sma", window); err != nil {
		return nil, err
	}
	if err := validateInput("sma", values.Len()); err != nil {
		return nil, err
	}

	return series.New(rollingMean(values.Values(), window)), nil
}

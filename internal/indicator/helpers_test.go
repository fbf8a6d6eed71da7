package indicator

import (
	"time"

	"github.com/quantdesk-lab/quantdesk/internal/series"
)

// pricesFromOHLCV builds a PriceSeries from parallel columns for tests.
func pricesFromOHLCV(highs, lows, closes, volumes []float64) *series.PriceSeries {
	bars := make([]series.Bar, len(closes))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = series.Bar{
			Time:   base.AddDate(0, 0, i),
			Open:   closes[i],
			High:   highs[i],
			Low:    lows[i],
			Close:  closes[i],
			Volume: volumes[i],
		}
	}
	ps, err := series.NewPriceSeries("TEST", bars)
	if err != nil {
		panic(err)
	}

	return ps
}

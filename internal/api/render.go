package api

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/quantdesk-lab/quantdesk/internal/risk"
	"github.com/quantdesk-lab/quantdesk/internal/series"
)

// The engine reports raw float64 values and never fills undefined positions.
// Everything the service sends over the wire passes through this file:
// prices round to 2 decimals, ratios to 4, percentage fields scale by 100
// before rounding, and undefined positions get the per-field fill the
// response documents. encoding/json rejects NaN, so no raw engine value may
// reach the encoder.

// round2 rounds price-like values to 2 decimals. Non-finite values render 0.
func round2(v float64) float64 {
	return roundN(v, 2)
}

// round4 rounds ratio-like values to 4 decimals. Non-finite values render 0.
func round4(v float64) float64 {
	return roundN(v, 4)
}

// pct2 scales a fraction to percent and rounds to 2 decimals.
func pct2(v float64) float64 {
	return roundN(v*100, 2)
}

func roundN(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	f, _ := decimal.NewFromFloat(v).Round(places).Float64()

	return f
}

// round2Ptr renders an optional price column: nil when undefined.
func round2Ptr(v float64) *float64 {
	if series.IsUndefined(v) {
		return nil
	}

	r := round2(v)

	return &r
}

// pct2Ptr renders an optional percentage column: nil when undefined.
func pct2Ptr(v float64) *float64 {
	if series.IsUndefined(v) {
		return nil
	}

	r := pct2(v)

	return &r
}

// fillValues copies a series into a JSON-safe slice, substituting fill for
// undefined positions. Values are not rounded; indicator lists ship raw.
func fillValues(s *series.Series, fill float64) []float64 {
	out := make([]float64, s.Len())
	for i := 0; i < s.Len(); i++ {
		if s.IsDefined(i) {
			out[i] = s.At(i)
		} else {
			out[i] = fill
		}
	}

	return out
}

// metricsJSON is the wire form of a risk metrics record. All fields are raw
// ratios rounded to 4 decimals, matching the analysis endpoints.
type metricsJSON struct {
	AnnualReturn     float64 `json:"annual_return"`
	AnnualVolatility float64 `json:"annual_volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	VaR95            float64 `json:"var_95"`
	Skewness         float64 `json:"skewness"`
	Kurtosis         float64 `json:"kurtosis"`
}

func renderMetrics(m risk.Metrics) metricsJSON {
	return metricsJSON{
		AnnualReturn:     round4(m.AnnualReturn),
		AnnualVolatility: round4(m.AnnualVolatility),
		SharpeRatio:      round4(m.SharpeRatio),
		MaxDrawdown:      round4(m.MaxDrawdown),
		VaR95:            round4(m.VaR95),
		Skewness:         round4(m.Skewness),
		Kurtosis:         round4(m.Kurtosis),
	}
}

// truncInt renders a float as the integer part, the way volume averages are
// reported. Non-finite values render 0.
func truncInt(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return int64(math.Trunc(v))
}

// volumeInt renders a bar volume as an integer count.
func volumeInt(v float64) int64 {
	return truncInt(v)
}

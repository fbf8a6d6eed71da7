// Package chart renders price history as PNG line charts.
package chart

import (
	"fmt"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/quantdesk-lab/quantdesk/internal/indicator"
	"github.com/quantdesk-lab/quantdesk/internal/series"
	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

const (
	chartWidth  = 1200
	chartHeight = 600
)

// Render draws the close price of a series with moving average overlays and
// returns the encoded PNG. Undefined moving average warmup bars render as
// gaps, not zeros.
func Render(prices *series.PriceSeries, maWindows []int) ([]byte, error) {
	if prices == nil || prices.Len() < 2 {
		length := 0
		symbol := ""
		if prices != nil {
			length = prices.Len()
			symbol = prices.Symbol()
		}

		return nil, errors.NewInsufficientDataError(2, length, symbol, "chart needs at least two bars")
	}

	closes := prices.Closes()

	values := make([][]float64, 0, 1+len(maWindows))
	names := make([]string, 0, 1+len(maWindows))

	values = append(values, closes.Values())
	names = append(names, "Close")

	for _, window := range maWindows {
		ma, err := indicator.SMA(closes, window)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeChartRender, err, "failed to compute MA%d overlay", window)
		}

		values = append(values, chartValues(ma))
		names = append(names, fmt.Sprintf("MA%d", window))
	}

	labels := make([]string, prices.Len())
	for i, t := range prices.Times() {
		labels[i] = t.Format("2006-01-02")
	}

	yMin, yMax := closeRange(closes.Values())

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}

	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.PNGTypeOption(),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
		charts.TitleTextOptionFunc(fmt.Sprintf("%s Close", prices.Symbol())),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: 10}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeChartRender, "failed to render chart", err)
	}

	img, err := painter.Bytes()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeChartRender, "failed to encode chart", err)
	}

	return img, nil
}

// chartValues converts a series to the renderer's value convention, mapping
// undefined points to the renderer's null sentinel.
func chartValues(s *series.Series) []float64 {
	out := make([]float64, s.Len())
	for i := 0; i < s.Len(); i++ {
		if s.IsDefined(i) {
			out[i] = s.At(i)
		} else {
			out[i] = charts.GetNullValue()
		}
	}

	return out
}

// closeRange pads the close extremes by 5% so lines do not hug the frame.
func closeRange(closes []float64) (float64, float64) {
	yMin, yMax := closes[0], closes[0]
	for _, v := range closes[1:] {
		if v < yMin {
			yMin = v
		}

		if v > yMax {
			yMax = v
		}
	}

	pad := (yMax - yMin) * 0.05
	if pad < yMax*0.002 {
		pad = yMax * 0.002
	}

	yMin -= pad
	if yMin < 0 {
		yMin = 0
	}

	yMax += pad

	return yMin, yMax
}

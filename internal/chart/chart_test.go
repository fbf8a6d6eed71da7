package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/quantdesk-lab/quantdesk/internal/series"
	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

type ChartTestSuite struct {
	suite.Suite
}

func TestChartSuite(t *testing.T) {
	suite.Run(t, new(ChartTestSuite))
}

// pngMagic is the fixed 8-byte PNG file signature.
var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func (suite *ChartTestSuite) testSeries(n int) *series.PriceSeries {
	bars := make([]series.Bar, n)
	for i := range bars {
		price := 100.0 + float64(i)
		bars[i] = series.Bar{
			Time:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000,
		}
	}

	prices, err := series.NewPriceSeries("TEST", bars)
	suite.Require().NoError(err)

	return prices
}

func (suite *ChartTestSuite) TestRenderProducesPNG() {
	prices := suite.testSeries(30)

	img, err := Render(prices, []int{5, 20})

	suite.NoError(err)
	suite.Greater(len(img), len(pngMagic))
	suite.Equal(pngMagic, img[:len(pngMagic)])
}

func (suite *ChartTestSuite) TestRenderWithoutOverlays() {
	prices := suite.testSeries(10)

	img, err := Render(prices, nil)

	suite.NoError(err)
	suite.Equal(pngMagic, img[:len(pngMagic)])
}

// Overlay windows longer than the history must not fail the render; the
// overlay is simply all gaps.
func (suite *ChartTestSuite) TestRenderShortHistoryLongWindow() {
	prices := suite.testSeries(3)

	img, err := Render(prices, []int{20})

	suite.NoError(err)
	suite.Equal(pngMagic, img[:len(pngMagic)])
}

func (suite *ChartTestSuite) TestRenderTooFewBars() {
	prices := suite.testSeries(1)

	_, err := Render(prices, []int{5})

	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *ChartTestSuite) TestRenderNilSeries() {
	_, err := Render(nil, []int{5})

	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}

package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

type StochasticTestSuite struct {
	suite.Suite
}

func TestStochasticSuite(t *testing.T) {
	suite.Run(t, new(StochasticTestSuite))
}

func (suite *StochasticTestSuite) TestStochasticKnownSeries() {
	prices := pricesFromOHLCV(
		[]float64{12, 13, 14},
		[]float64{10, 9, 11},
		[]float64{11, 12, 13},
		[]float64{100, 100, 100},
	)

	got, err := Stochastic(prices, StochasticParams{KWindow: 3, DWindow: 1})
	suite.Require().NoError(err)

	suite.False(got.K.IsDefined(0))
	suite.False(got.K.IsDefined(1))

	// LL 9, HH 14 -> %K = 100*(13-9)/(14-9)
	suite.InDelta(80, got.K.At(2), 1e-9)
	suite.InDelta(80, got.D.At(2), 1e-9)
}

func (suite *StochasticTestSuite) TestStochasticBounds() {
	highs := []float64{12, 13, 14, 15, 14, 13, 14, 15, 16, 15}
	lows := []float64{10, 11, 12, 13, 12, 11, 12, 13, 14, 13}
	closes := []float64{11, 12, 13, 14, 13, 12, 13, 14, 15, 14}
	volumes := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}

	got, err := Stochastic(pricesFromOHLCV(highs, lows, closes, volumes), StochasticParams{KWindow: 4, DWindow: 3})
	suite.Require().NoError(err)

	for i := 0; i < got.K.Len(); i++ {
		if got.K.IsDefined(i) {
			suite.GreaterOrEqual(got.K.At(i), 0.0)
			suite.LessOrEqual(got.K.At(i), 100.0)
		}
	}
	// %D needs dWindow defined %K positions.
	suite.False(got.D.IsDefined(4))
	suite.True(got.D.IsDefined(5))
}

func (suite *StochasticTestSuite) TestStochasticZeroRangeUndefined() {
	flat := []float64{10, 10, 10}
	got, err := Stochastic(pricesFromOHLCV(flat, flat, flat, []float64{1, 1, 1}), StochasticParams{KWindow: 2, DWindow: 2})
	suite.Require().NoError(err)

	// HH == LL leaves %K undefined even after the warm-up.
	suite.Equal(0, got.K.DefinedCount())
	suite.Equal(0, got.D.DefinedCount())
}

func (suite *StochasticTestSuite) TestStochasticDefaults() {
	params := DefaultStochasticParams()
	suite.Equal(14, params.KWindow)
	suite.Equal(3, params.DWindow)
}

func (suite *StochasticTestSuite) TestStochasticInvalidWindows() {
	prices := pricesFromOHLCV([]float64{2}, []float64{1}, []float64{1.5}, []float64{1})

	_, err := Stochastic(prices, StochasticParams{KWindow: 0, DWindow: 3})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidWindow))

	_, err = Stochastic(prices, StochasticParams{KWindow: 14, DWindow: 0})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidWindow))
}

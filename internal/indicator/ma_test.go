package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/quantdesk-lab/quantdesk/internal/series"
	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

type MATestSuite struct {
	suite.Suite
}

func TestMASuite(t *testing.T) {
	suite.Run(t, new(MATestSuite))
}

func (suite *MATestSuite) TestSMAKnownSeries() {
	input := series.New([]float64{10, 11, 12, 11, 10, 9, 10, 11, 12, 13})

	got, err := SMA(input, 3)
	suite.Require().NoError(err)
	suite.Equal(10, got.Len())

	suite.False(got.IsDefined(0))
	suite.False(got.IsDefined(1))

	want := []float64{11, 34.0 / 3, 11, 10, 29.0 / 3, 10, 11, 12}
	for i, w := range want {
		suite.InDelta(w, got.At(i+2), 1e-9, "position %d", i+2)
	}
}

func (suite *MATestSuite) TestSMAWindowOne() {
	input := series.New([]float64{3, 1, 4})

	got, err := SMA(input, 1)
	suite.Require().NoError(err)
	suite.Equal([]float64{3, 1, 4}, got.Values())
}

func (suite *MATestSuite) TestSMAWindowLongerThanSeries() {
	input := series.New([]float64{1, 2, 3})

	got, err := SMA(input, 5)
	suite.Require().NoError(err)
	suite.Equal(0, got.DefinedCount())
}

func (suite *MATestSuite) TestSMAUndefinedInsideWindow() {
	input := series.New([]float64{1, math.NaN(), 3, 4, 5})

	got, err := SMA(input, 2)
	suite.Require().NoError(err)

	// Any window touching the undefined position is undefined.
	suite.False(got.IsDefined(1))
	suite.False(got.IsDefined(2))
	suite.InDelta(3.5, got.At(3), 1e-9)
	suite.InDelta(4.5, got.At(4), 1e-9)
}

func (suite *MATestSuite) TestSMAInvalidWindow() {
	input := series.New([]float64{1, 2, 3})

	_, err := SMA(input, 0)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidWindow))
}

func (suite *MATestSuite) TestSMAEmptySeries() {
	_, err := SMA(series.New(nil), 3)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidSeries))
}

func (suite *MATestSuite) TestSMADoesNotMutateInput() {
	input := series.New([]float64{1, 2, 3, 4})
	before := input.Values()

	_, err := SMA(input, 2)
	suite.Require().NoError(err)
	suite.Equal(before, input.Values())
}

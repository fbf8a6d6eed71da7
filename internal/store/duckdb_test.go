package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/quantdesk-lab/quantdesk/internal/logger"
	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

type DuckDBStoreTestSuite struct {
	suite.Suite
	store  Store
	logger *logger.Logger
	tmpDir string
}

func TestDuckDBStoreSuite(t *testing.T) {
	suite.Run(t, new(DuckDBStoreTestSuite))
}

func (suite *DuckDBStoreTestSuite) SetupSuite() {
	// Create a no-op logger
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.OutputPaths = []string{}
	loggerConfig.ErrorOutputPaths = []string{}
	zapLogger, err := loggerConfig.Build()
	suite.Require().NoError(err)
	suite.logger = &logger.Logger{Logger: zapLogger}
}

func (suite *DuckDBStoreTestSuite) SetupTest() {
	suite.tmpDir = suite.T().TempDir()

	csvPath := filepath.Join(suite.tmpDir, "prices.csv")
	suite.Require().NoError(os.WriteFile(csvPath, []byte(testCSV), 0o644))

	store, err := NewDuckDBStore("", Options{}, suite.logger)
	suite.Require().NoError(err)
	suite.store = store

	suite.Require().NoError(store.LoadCSV(csvPath))
}

func (suite *DuckDBStoreTestSuite) TearDownTest() {
	if suite.store != nil {
		suite.Require().NoError(suite.store.Close())
	}
}

// testCSV holds three days of AAPL and two days of MSFT, deliberately out of
// date order to prove ordering comes from the store, not the file.
const testCSV = `date,symbol,open,high,low,close,volume
2024-01-03,AAPL,102.0,104.0,101.0,103.5,1200
2024-01-01,AAPL,100.0,101.0,99.0,100.5,1000
2024-01-02,AAPL,100.5,103.0,100.0,102.0,1100
2024-01-01,MSFT,200.0,202.0,199.0,201.0,2000
2024-01-02,MSFT,201.0,205.0,200.5,204.0,2100
`

func (suite *DuckDBStoreTestSuite) TestSymbols() {
	symbols, err := suite.store.Symbols()
	suite.Require().NoError(err)
	suite.Equal([]string{"AAPL", "MSFT"}, symbols)
}

func (suite *DuckDBStoreTestSuite) TestCount() {
	count, err := suite.store.Count()
	suite.Require().NoError(err)
	suite.Equal(5, count)
}

func (suite *DuckDBStoreTestSuite) TestHistoryFullChronological() {
	prices, err := suite.store.History("AAPL", optional.None[int]())
	suite.Require().NoError(err)

	suite.Equal("AAPL", prices.Symbol())
	suite.Require().Equal(3, prices.Len())

	times := prices.Times()
	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), times[0].UTC())
	suite.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), times[2].UTC())

	first := prices.Bar(0)
	suite.Equal(100.0, first.Open)
	suite.Equal(101.0, first.High)
	suite.Equal(99.0, first.Low)
	suite.Equal(100.5, first.Close)
	suite.Equal(1000.0, first.Volume)
}

func (suite *DuckDBStoreTestSuite) TestHistoryTail() {
	prices, err := suite.store.History("AAPL", optional.Some(2))
	suite.Require().NoError(err)

	suite.Require().Equal(2, prices.Len())
	suite.Equal(102.0, prices.Bar(0).Close)
	suite.Equal(103.5, prices.Bar(1).Close)
}

func (suite *DuckDBStoreTestSuite) TestHistoryTailLargerThanHistory() {
	prices, err := suite.store.History("MSFT", optional.Some(10))
	suite.Require().NoError(err)
	suite.Equal(2, prices.Len())
}

func (suite *DuckDBStoreTestSuite) TestHistoryNonPositiveTailReturnsAll() {
	prices, err := suite.store.History("AAPL", optional.Some(0))
	suite.Require().NoError(err)
	suite.Equal(3, prices.Len())
}

func (suite *DuckDBStoreTestSuite) TestHistoryUnknownSymbol() {
	_, err := suite.store.History("NVDA", optional.None[int]())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSymbolNotFound))
}

func (suite *DuckDBStoreTestSuite) TestLoadCSVMissingFile() {
	err := suite.store.LoadCSV(filepath.Join(suite.tmpDir, "missing.csv"))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeLoadFailed))
}

func (suite *DuckDBStoreTestSuite) TestLoadCSVReplacesDataset() {
	replacement := `date,symbol,open,high,low,close,volume
2024-02-01,TSLA,300.0,310.0,295.0,305.0,5000
`
	csvPath := filepath.Join(suite.tmpDir, "replacement.csv")
	suite.Require().NoError(os.WriteFile(csvPath, []byte(replacement), 0o644))

	suite.Require().NoError(suite.store.LoadCSV(csvPath))

	symbols, err := suite.store.Symbols()
	suite.Require().NoError(err)
	suite.Equal([]string{"TSLA"}, symbols)

	count, err := suite.store.Count()
	suite.Require().NoError(err)
	suite.Equal(1, count)
}

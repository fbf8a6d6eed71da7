package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/quantdesk-lab/quantdesk/internal/logger"
	"github.com/quantdesk-lab/quantdesk/internal/metrics"
	"github.com/quantdesk-lab/quantdesk/internal/store"
)

type APITestSuite struct {
	suite.Suite
	store  store.Store
	server *Server
	logger *logger.Logger
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (suite *APITestSuite) SetupSuite() {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.OutputPaths = []string{}
	loggerConfig.ErrorOutputPaths = []string{}
	zapLogger, err := loggerConfig.Build()
	suite.Require().NoError(err)
	suite.logger = &logger.Logger{Logger: zapLogger}
}

func (suite *APITestSuite) SetupTest() {
	csvPath := filepath.Join(suite.T().TempDir(), "prices.csv")
	suite.Require().NoError(os.WriteFile(csvPath, []byte(fixtureCSV()), 0o644))

	st, err := store.NewDuckDBStore("", store.Options{}, suite.logger)
	suite.Require().NoError(err)
	suite.Require().NoError(st.LoadCSV(csvPath))
	suite.store = st

	suite.server = NewServer(Config{
		ListenAddr:  ":0",
		CORSOrigins: []string{"*"},
		Store:       st,
		Logger:      suite.logger,
		Metrics:     metrics.NewMetrics(),
	})
}

func (suite *APITestSuite) TearDownTest() {
	if suite.store != nil {
		suite.Require().NoError(suite.store.Close())
	}
}

// fixtureCSV builds forty consecutive days of two synthetic symbols. AAA
// climbs one point per day and BBB half a point, so every derived value in
// the assertions below can be worked out by hand.
func fixtureCSV() string {
	var b strings.Builder
	b.WriteString("date,symbol,open,high,low,close,volume\n")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")

		aaa := 100.0 + float64(i)
		fmt.Fprintf(&b, "%s,AAA,%.2f,%.2f,%.2f,%.2f,%d\n", date, aaa-1, aaa+2, aaa-2, aaa, 1000+10*i)

		bbb := 50.0 + 0.5*float64(i)
		fmt.Fprintf(&b, "%s,BBB,%.2f,%.2f,%.2f,%.2f,%d\n", date, bbb-0.25, bbb+1, bbb-1, bbb, 2000+5*i)
	}

	return b.String()
}

func (suite *APITestSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	suite.server.Router().ServeHTTP(rec, req)

	return rec
}

func (suite *APITestSuite) getOK(target string) map[string]any {
	rec := suite.do(http.MethodGet, target, "")
	suite.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	return suite.decode(rec)
}

func (suite *APITestSuite) decode(rec *httptest.ResponseRecorder) map[string]any {
	var payload map[string]any
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &payload))

	return payload
}

func (suite *APITestSuite) object(m map[string]any, key string) map[string]any {
	child, ok := m[key].(map[string]any)
	suite.Require().True(ok, "expected object at %q", key)

	return child
}

func (suite *APITestSuite) array(m map[string]any, key string) []any {
	child, ok := m[key].([]any)
	suite.Require().True(ok, "expected array at %q", key)

	return child
}

func (suite *APITestSuite) TestHome() {
	payload := suite.getOK("/")

	suite.Equal("quantdesk", payload["name"])
	suite.NotEmpty(payload["version"])
	suite.Contains(suite.array(payload, "endpoints"), "/api/health")
}

func (suite *APITestSuite) TestHealth() {
	payload := suite.getOK("/api/health")

	suite.Equal("healthy", payload["status"])
	suite.Equal(true, payload["data_loaded"])
	suite.EqualValues(2, payload["total_stocks"])
	suite.EqualValues(80, payload["total_bars"])
	suite.NotEmpty(payload["timestamp"])
}

func (suite *APITestSuite) TestStocksSummary() {
	payload := suite.getOK("/api/stocks")

	suite.Equal("summary", payload["data_type"])
	suite.EqualValues(2, payload["total"])

	stocks := suite.array(payload, "stocks")
	suite.Require().Len(stocks, 2)

	aaa := stocks[0].(map[string]any)
	suite.Equal("AAA", aaa["symbol"])
	suite.Equal("2024-02-09", aaa["date"])
	suite.EqualValues(138, aaa["open"])
	suite.EqualValues(141, aaa["high"])
	suite.EqualValues(137, aaa["low"])
	suite.EqualValues(139, aaa["close"])
	suite.EqualValues(1390, aaa["volume"])
	suite.EqualValues(139, aaa["latest_price"])
	suite.EqualValues(0.72, aaa["price_change"])

	bbb := stocks[1].(map[string]any)
	suite.Equal("BBB", bbb["symbol"])
	suite.EqualValues(69.5, bbb["close"])
	suite.EqualValues(0.72, bbb["price_change"])
}

func (suite *APITestSuite) TestStocksSummaryIgnoresDays() {
	// The summary always reads the full history, so clamping the window to a
	// single day must not zero out the daily move.
	payload := suite.getOK("/api/stocks?days=1&view=summary")

	stocks := suite.array(payload, "stocks")
	suite.Require().Len(stocks, 2)
	suite.EqualValues(0.72, stocks[0].(map[string]any)["price_change"])
}

func (suite *APITestSuite) TestStocksFull() {
	payload := suite.getOK("/api/stocks?view=full&days=2&limit=1")

	suite.Equal("full", payload["data_type"])
	suite.EqualValues(1, payload["total_symbols"])
	suite.EqualValues(2, payload["days"])

	stocks := suite.array(payload, "stocks")
	suite.Require().Len(stocks, 1)

	entry := stocks[0].(map[string]any)
	suite.Equal("AAA", entry["symbol"])
	suite.EqualValues(2, entry["total_records"])

	rows := suite.array(entry, "data")
	suite.Require().Len(rows, 2)

	first := rows[0].(map[string]any)
	suite.Equal("2024-02-08", first["date"])
	suite.Equal("AAA", first["symbol"])
	suite.EqualValues(138, first["close"])
}

func (suite *APITestSuite) TestStocksLimitZeroReturnsAll() {
	payload := suite.getOK("/api/stocks?limit=0")
	suite.Len(suite.array(payload, "stocks"), 2)
}

func (suite *APITestSuite) TestStocksUnknownView() {
	rec := suite.do(http.MethodGet, "/api/stocks?view=everything", "")
	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.Contains(suite.decode(rec)["error"], "view")
}

func (suite *APITestSuite) TestStocksBadDays() {
	for _, target := range []string{
		"/api/stocks?days=abc",
		"/api/stocks?days=0",
		"/api/stocks?days=20000",
	} {
		rec := suite.do(http.MethodGet, target, "")
		suite.Equal(http.StatusBadRequest, rec.Code, target)
	}
}

func (suite *APITestSuite) TestStockDetail() {
	payload := suite.getOK("/api/stock/AAA?days=10")

	suite.Equal("AAA", payload["symbol"])

	rows := suite.array(payload, "data")
	suite.Require().Len(rows, 10)

	// Warm-up positions are null; the five day average fills on the fifth
	// row of the window even though older history exists.
	first := rows[0].(map[string]any)
	suite.Equal("2024-01-31", first["date"])
	suite.EqualValues(130, first["close"])
	suite.Nil(first["ma5"])
	suite.Nil(first["ma20"])
	suite.Nil(first["returns"])

	second := rows[1].(map[string]any)
	suite.EqualValues(0.77, second["returns"])

	fifth := rows[4].(map[string]any)
	suite.EqualValues(132, fifth["ma5"])
	suite.Nil(fifth["ma20"])

	stats := suite.object(payload, "statistics")
	suite.EqualValues(10, stats["total_records"])

	dateRange := suite.object(stats, "date_range")
	suite.Equal("2024-01-31", dateRange["start"])
	suite.Equal("2024-02-09", dateRange["end"])

	priceStats := suite.object(stats, "price_stats")
	suite.EqualValues(139, priceStats["current"])
	suite.EqualValues(141, priceStats["high"])
	suite.EqualValues(128, priceStats["low"])
	suite.EqualValues(1345, priceStats["avg_volume"])
}

func (suite *APITestSuite) TestStockDefaultWindow() {
	payload := suite.getOK("/api/stock/AAA")
	suite.Len(suite.array(payload, "data"), 30)
}

func (suite *APITestSuite) TestStockUnknownSymbol() {
	rec := suite.do(http.MethodGet, "/api/stock/ZZZ", "")
	suite.Equal(http.StatusNotFound, rec.Code)
	suite.NotEmpty(suite.decode(rec)["error"])
}

func (suite *APITestSuite) TestIndicatorsAll() {
	payload := suite.getOK("/api/stock/AAA/indicators")

	suite.Equal("AAA", payload["symbol"])
	suite.Len(suite.array(payload, "dates"), 40)

	groups := suite.object(payload, "indicators")
	for _, key := range []string{
		"moving_averages", "bollinger_bands", "rsi", "macd", "stochastic", "atr", "volume",
	} {
		suite.Contains(groups, key)
	}

	ma := suite.array(suite.object(groups, "moving_averages"), "ma5")
	suite.Require().Len(ma, 40)
	suite.EqualValues(0, ma[3])
	suite.EqualValues(102, ma[4])

	middle := suite.array(suite.object(groups, "bollinger_bands"), "middle")
	suite.EqualValues(109.5, middle[19])

	// Every close rises, so the first defined RSI is exactly 100. Warm-up
	// positions take the neutral fill.
	rsi := suite.array(groups, "rsi")
	suite.EqualValues(50, rsi[13])
	suite.EqualValues(100, rsi[14])
}

func (suite *APITestSuite) TestIndicatorsSelection() {
	payload := suite.getOK("/api/stock/AAA/indicators?days=10&indicators=rsi")

	groups := suite.object(payload, "indicators")
	suite.Contains(groups, "rsi")
	suite.NotContains(groups, "moving_averages")
	suite.NotContains(groups, "volume")

	// Ten bars cannot fill a fourteen bar window, so the whole series takes
	// the neutral fill.
	rsi := suite.array(groups, "rsi")
	suite.Require().Len(rsi, 10)
	for _, v := range rsi {
		suite.EqualValues(50, v)
	}
}

func (suite *APITestSuite) TestIndicatorsUnknownName() {
	rec := suite.do(http.MethodGet, "/api/stock/AAA/indicators?indicators=rsi,bogus", "")
	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.Contains(suite.decode(rec)["error"], "bogus")
}

func (suite *APITestSuite) TestAnalysis() {
	payload := suite.getOK("/api/stock/AAA/analysis?days=10")

	suite.Equal("AAA", payload["symbol"])
	suite.Equal("10 days", payload["analysis_period"])

	performance := suite.object(payload, "performance")
	suite.EqualValues(6.92, performance["total_return"])
	suite.EqualValues(0.77, performance["best_day"])
	suite.EqualValues(0.72, performance["worst_day"])
	suite.EqualValues(9, performance["positive_days"])
	suite.EqualValues(0, performance["negative_days"])

	priceStats := suite.object(payload, "price_statistics")
	suite.EqualValues(139, priceStats["current_price"])
	suite.EqualValues(141, priceStats["period_high"])
	suite.EqualValues(128, priceStats["period_low"])
	suite.EqualValues(134.5, priceStats["average_price"])
	suite.EqualValues(3.03, priceStats["price_std"])
	suite.EqualValues(1345, priceStats["average_volume"])

	riskMetrics := suite.object(payload, "risk_metrics")
	for _, key := range []string{
		"annual_return", "annual_volatility", "sharpe_ratio",
		"max_drawdown", "var_95", "skewness", "kurtosis",
	} {
		suite.Contains(riskMetrics, key)
	}

	// A monotonically rising series never draws down and earns a positive
	// risk adjusted return.
	suite.EqualValues(0, riskMetrics["max_drawdown"])
	suite.Greater(riskMetrics["annual_return"], 0.0)
	suite.Greater(riskMetrics["sharpe_ratio"], 0.0)
	suite.Greater(riskMetrics["var_95"], 0.0)
}

func (suite *APITestSuite) TestBacktestBuyAndHold() {
	payload := suite.getOK("/api/stock/AAA/backtest?strategy=buy_and_hold&days=10")

	suite.Equal("AAA", payload["symbol"])
	suite.Equal("Buy and Hold", payload["strategy"])
	suite.Equal("10 days", payload["period"])
	suite.EqualValues(1, payload["trades"])

	data := suite.object(payload, "backtest_data")
	suite.Len(suite.array(data, "dates"), 10)

	strategyEquity := suite.array(data, "strategy_equity")
	benchmarkEquity := suite.array(data, "benchmark_equity")
	suite.Require().Len(strategyEquity, 10)

	// Holding from the first bar tracks the benchmark exactly.
	suite.EqualValues(1, strategyEquity[0])
	for i := range strategyEquity {
		suite.Equal(benchmarkEquity[i], strategyEquity[i])
	}
	suite.InDelta(139.0/130.0, strategyEquity[9].(float64), 1e-9)

	signals := suite.array(data, "signals")
	suite.EqualValues(1, signals[0])
	suite.EqualValues(1, signals[9])
}

func (suite *APITestSuite) TestBacktestDefaults() {
	payload := suite.getOK("/api/stock/AAA/backtest")

	suite.Equal("MA(5,20)", payload["strategy"])
	suite.Equal("252 days", payload["period"])

	// The short average sits above the long one from the first bar where
	// both are defined, so the strategy enters once and never exits.
	suite.EqualValues(1, payload["trades"])
}

func (suite *APITestSuite) TestBacktestCustomWindows() {
	payload := suite.getOK("/api/stock/AAA/backtest?shortWindow=2&longWindow=3&days=10")
	suite.Equal("MA(2,3)", payload["strategy"])
}

func (suite *APITestSuite) TestBacktestRSIStaysFlat() {
	payload := suite.getOK("/api/stock/AAA/backtest?strategy=rsi&days=30")

	suite.Equal("RSI(14,30,70)", payload["strategy"])
	suite.EqualValues(0, payload["trades"])

	// RSI pins at 100 on a rising series, so the rule never enters and the
	// equity curve stays at its starting value.
	data := suite.object(payload, "backtest_data")
	equity := suite.array(data, "strategy_equity")
	suite.EqualValues(1, equity[len(equity)-1])
}

func (suite *APITestSuite) TestBacktestUnknownStrategy() {
	rec := suite.do(http.MethodGet, "/api/stock/AAA/backtest?strategy=momentum", "")
	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.Contains(suite.decode(rec)["error"], "momentum")
}

func (suite *APITestSuite) TestBacktestWindowOrderRejected() {
	rec := suite.do(http.MethodGet, "/api/stock/AAA/backtest?shortWindow=9&longWindow=3", "")
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *APITestSuite) TestBacktestThresholdOrderRejected() {
	rec := suite.do(http.MethodGet, "/api/stock/AAA/backtest?strategy=rsi&oversold=80", "")
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *APITestSuite) TestBacktestTooFewBars() {
	rec := suite.do(http.MethodGet, "/api/stock/AAA/backtest?days=1", "")
	suite.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (suite *APITestSuite) TestPortfolioEqualWeight() {
	rec := suite.do(http.MethodPost, "/api/portfolio/analysis", `{"symbols":["AAA","BBB"]}`)
	suite.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	payload := suite.decode(rec)

	pf := suite.object(payload, "portfolio")
	suite.Equal("equal_weight", pf["optimization_method"])
	suite.Equal("252 days", pf["period"])

	weights := suite.object(pf, "weights")
	suite.EqualValues(0.5, weights["AAA"])
	suite.EqualValues(0.5, weights["BBB"])

	// AAA and BBB have identical return streams, so they correlate exactly
	// and the blended portfolio inherits their metrics.
	correlations := suite.object(payload, "correlation_matrix")
	suite.EqualValues(1, suite.object(correlations, "AAA")["AAA"])
	suite.EqualValues(1, suite.object(correlations, "AAA")["BBB"])
	suite.EqualValues(1, suite.object(correlations, "BBB")["AAA"])

	individual := suite.object(payload, "individual_metrics")
	suite.Equal(suite.object(individual, "AAA"), suite.object(pf, "metrics"))
}

func (suite *APITestSuite) TestPortfolioRiskParity() {
	rec := suite.do(http.MethodPost, "/api/portfolio/analysis",
		`{"symbols":["AAA","BBB"],"method":"risk_parity","days":30}`)
	suite.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	payload := suite.decode(rec)

	pf := suite.object(payload, "portfolio")
	suite.Equal("risk_parity", pf["optimization_method"])
	suite.Equal("30 days", pf["period"])

	weights := suite.object(pf, "weights")
	suite.InDelta(0.5, weights["AAA"].(float64), 1e-12)
	suite.InDelta(0.5, weights["BBB"].(float64), 1e-12)
}

func (suite *APITestSuite) TestPortfolioMinimumVariance() {
	rec := suite.do(http.MethodPost, "/api/portfolio/analysis",
		`{"symbols":["AAA","BBB"],"method":"minimum_variance"}`)
	suite.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	payload := suite.decode(rec)

	weights := suite.object(suite.object(payload, "portfolio"), "weights")
	suite.InDelta(0.5, weights["AAA"].(float64), 1e-6)
	suite.InDelta(0.5, weights["BBB"].(float64), 1e-6)
}

func (suite *APITestSuite) TestPortfolioUnknownSymbol() {
	rec := suite.do(http.MethodPost, "/api/portfolio/analysis", `{"symbols":["AAA","ZZZ"]}`)
	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.Contains(suite.decode(rec)["error"], "ZZZ")
}

func (suite *APITestSuite) TestPortfolioEmptySymbols() {
	rec := suite.do(http.MethodPost, "/api/portfolio/analysis", `{"symbols":[]}`)
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *APITestSuite) TestPortfolioUnknownMethod() {
	rec := suite.do(http.MethodPost, "/api/portfolio/analysis",
		`{"symbols":["AAA"],"method":"martingale"}`)
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *APITestSuite) TestPortfolioMalformedBody() {
	rec := suite.do(http.MethodPost, "/api/portfolio/analysis", `{"symbols":`)
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *APITestSuite) TestChartPNG() {
	rec := suite.do(http.MethodGet, "/api/stock/AAA/chart?days=10", "")
	suite.Require().Equal(http.StatusOK, rec.Code)

	suite.Equal("image/png", rec.Header().Get("Content-Type"))

	pngMagic := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	body := rec.Body.Bytes()
	suite.Require().Greater(len(body), len(pngMagic))
	suite.Equal(pngMagic, body[:len(pngMagic)])
}

func (suite *APITestSuite) TestChartBadWindows() {
	rec := suite.do(http.MethodGet, "/api/stock/AAA/chart?ma=5,x", "")
	suite.Equal(http.StatusBadRequest, rec.Code)
}

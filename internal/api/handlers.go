package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/quantdesk-lab/quantdesk/internal/backtest"
	"github.com/quantdesk-lab/quantdesk/internal/chart"
	"github.com/quantdesk-lab/quantdesk/internal/indicator"
	"github.com/quantdesk-lab/quantdesk/internal/portfolio"
	"github.com/quantdesk-lab/quantdesk/internal/risk"
	"github.com/quantdesk-lab/quantdesk/internal/version"
	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

// Endpoint defaults. Statistics endpoints default to a trading year, browse
// endpoints to a month, chart style endpoints to a quarter.
const (
	defaultBrowseDays   = 30
	defaultChartDays    = 90
	defaultAnalysisDays = 252

	defaultStocksLimit = 10
)

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":    "quantdesk",
		"version": version.GetVersion(),
		"endpoints": []string{
			"/api/health",
			"/api/stocks",
			"/api/stock/{symbol}",
			"/api/stock/{symbol}/chart",
			"/api/stock/{symbol}/indicators",
			"/api/stock/{symbol}/analysis",
			"/api/stock/{symbol}/backtest",
			"/api/portfolio/analysis",
			"/metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	totalStocks := 0
	totalBars := 0

	symbols, err := s.store.Symbols()
	if err == nil {
		totalStocks = len(symbols)
	}

	if count, countErr := s.store.Count(); countErr == nil {
		totalBars = count
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"data_loaded":  err == nil && totalBars > 0,
		"total_stocks": totalStocks,
		"total_bars":   totalBars,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// stockSummary is one row of the summary view: the latest bar plus the most
// recent daily move.
type stockSummary struct {
	Symbol      string  `json:"symbol"`
	Date        string  `json:"date"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      int64   `json:"volume"`
	LatestPrice float64 `json:"latest_price"`
	PriceChange float64 `json:"price_change"`
}

type stockBar struct {
	Date   string  `json:"date"`
	Symbol string  `json:"symbol"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

type stockHistory struct {
	Symbol       string     `json:"symbol"`
	Data         []stockBar `json:"data"`
	TotalRecords int        `json:"total_records"`
}

func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	days, err := daysParam(r, defaultBrowseDays)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	limit, err := intParam(r, "limit", defaultStocksLimit)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	view := r.URL.Query().Get("view")
	if view == "" {
		view = "summary"
	}

	symbols, err := s.store.Symbols()
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	if limit > 0 && len(symbols) > limit {
		symbols = symbols[:limit]
	}

	switch view {
	case "summary":
		s.writeStocksSummary(w, symbols)
	case "full":
		s.writeStocksFull(w, symbols, days)
	default:
		s.writeError(w, r, errors.Newf(errors.ErrCodeInvalidArgument, "parameter view must be summary or full, got %q", view))
	}
}

// writeStocksSummary reports each symbol's latest bar. The daily move comes
// from the full history, not the requested window. A symbol that fails to
// load is skipped, the batch never aborts.
func (s *Server) writeStocksSummary(w http.ResponseWriter, symbols []string) {
	stocks := make([]stockSummary, 0, len(symbols))

	for _, symbol := range symbols {
		prices, err := s.store.History(symbol, optional.None[int]())
		if err != nil {
			s.logger.Warn("skipping symbol in summary", zap.String("symbol", symbol), zap.Error(err))

			continue
		}

		latest := prices.Bar(prices.Len() - 1)

		change := 0.0
		returns := prices.Closes().PctChange()
		if returns.IsDefined(returns.Len() - 1) {
			change = pct2(returns.At(returns.Len() - 1))
		}

		stocks = append(stocks, stockSummary{
			Symbol:      symbol,
			Date:        latest.Time.Format("2006-01-02"),
			Open:        round2(latest.Open),
			High:        round2(latest.High),
			Low:         round2(latest.Low),
			Close:       round2(latest.Close),
			Volume:      volumeInt(latest.Volume),
			LatestPrice: round2(latest.Close),
			PriceChange: change,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"stocks":    stocks,
		"total":     len(stocks),
		"data_type": "summary",
	})
}

func (s *Server) writeStocksFull(w http.ResponseWriter, symbols []string, days int) {
	stocks := make([]stockHistory, 0, len(symbols))

	for _, symbol := range symbols {
		prices, err := s.store.History(symbol, optional.Some(days))
		if err != nil {
			s.logger.Warn("skipping symbol in full view", zap.String("symbol", symbol), zap.Error(err))

			continue
		}

		bars := make([]stockBar, prices.Len())
		for i, bar := range prices.Bars() {
			bars[i] = stockBar{
				Date:   bar.Time.Format("2006-01-02"),
				Symbol: symbol,
				Open:   round2(bar.Open),
				High:   round2(bar.High),
				Low:    round2(bar.Low),
				Close:  round2(bar.Close),
				Volume: volumeInt(bar.Volume),
			}
		}

		stocks = append(stocks, stockHistory{
			Symbol:       symbol,
			Data:         bars,
			TotalRecords: len(bars),
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"stocks":        stocks,
		"total_symbols": len(stocks),
		"days":          days,
		"data_type":     "full",
	})
}

// stockDetailRow is one bar of the detail view with its derived columns.
// Derived values are null until their window fills.
type stockDetailRow struct {
	Date    string   `json:"date"`
	Open    float64  `json:"open"`
	High    float64  `json:"high"`
	Low     float64  `json:"low"`
	Close   float64  `json:"close"`
	Volume  int64    `json:"volume"`
	MA5     *float64 `json:"ma5"`
	MA20    *float64 `json:"ma20"`
	Returns *float64 `json:"returns"`
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	days, err := daysParam(r, defaultBrowseDays)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	prices, err := s.store.History(symbol, optional.Some(days))
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	closes := prices.Closes()

	// Derived columns are computed over the requested window, so the first
	// bars of the response are null even when older history exists.
	ma5, err := indicator.SMA(closes, 5)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	ma20, err := indicator.SMA(closes, 20)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	returns := closes.PctChange()

	rows := make([]stockDetailRow, prices.Len())
	for i, bar := range prices.Bars() {
		rows[i] = stockDetailRow{
			Date:    bar.Time.Format("2006-01-02"),
			Open:    round2(bar.Open),
			High:    round2(bar.High),
			Low:     round2(bar.Low),
			Close:   round2(bar.Close),
			Volume:  volumeInt(bar.Volume),
			MA5:     round2Ptr(ma5.At(i)),
			MA20:    round2Ptr(ma20.At(i)),
			Returns: pct2Ptr(returns.At(i)),
		}
	}

	times := prices.Times()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"data":   rows,
		"statistics": map[string]any{
			"total_records": prices.Len(),
			"date_range": map[string]string{
				"start": times[0].Format("2006-01-02"),
				"end":   times[len(times)-1].Format("2006-01-02"),
			},
			"price_stats": map[string]any{
				"current":    round2(closes.At(closes.Len() - 1)),
				"high":       round2(floats.Max(prices.Highs().Values())),
				"low":        round2(floats.Min(prices.Lows().Values())),
				"avg_volume": truncInt(stat.Mean(prices.Volumes().Values(), nil)),
			},
		},
	})
}

// movingAveragesGroup et al. are the indicator endpoint's group payloads.
// Values ship raw (no rounding); fills follow each group's convention.
type movingAveragesGroup struct {
	MA5   []float64 `json:"ma5"`
	MA10  []float64 `json:"ma10"`
	MA20  []float64 `json:"ma20"`
	EMA12 []float64 `json:"ema12"`
}

type bollingerGroup struct {
	Upper  []float64 `json:"upper"`
	Middle []float64 `json:"middle"`
	Lower  []float64 `json:"lower"`
}

type macdGroup struct {
	MACD      []float64 `json:"macd"`
	Signal    []float64 `json:"signal"`
	Histogram []float64 `json:"histogram"`
}

type stochasticGroup struct {
	KPercent []float64 `json:"k_percent"`
	DPercent []float64 `json:"d_percent"`
}

type volumeGroup struct {
	VWAP []float64 `json:"vwap"`
	OBV  []float64 `json:"obv"`
}

type indicatorGroups struct {
	MovingAverages *movingAveragesGroup `json:"moving_averages,omitempty"`
	BollingerBands *bollingerGroup      `json:"bollinger_bands,omitempty"`
	RSI            []float64            `json:"rsi,omitempty"`
	MACD           *macdGroup           `json:"macd,omitempty"`
	Stochastic     *stochasticGroup     `json:"stochastic,omitempty"`
	ATR            []float64            `json:"atr,omitempty"`
	Volume         *volumeGroup         `json:"volume,omitempty"`
}

// indicatorSelection parses the indicators parameter into the closed group
// set. Group names match exactly; unknown names are a client error, never
// ignored.
func indicatorSelection(raw string) (map[indicator.Kind]bool, error) {
	selected := make(map[indicator.Kind]bool)

	if raw == "" || raw == "all" {
		for _, kind := range indicator.AllKinds() {
			selected[kind] = true
		}

		return selected, nil
	}

	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "all" {
			for _, kind := range indicator.AllKinds() {
				selected[kind] = true
			}

			continue
		}

		kind, err := indicator.ParseKind(token)
		if err != nil {
			return nil, err
		}

		selected[kind] = true
	}

	return selected, nil
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	days, err := daysParam(r, defaultChartDays)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	selected, err := indicatorSelection(r.URL.Query().Get("indicators"))
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	prices, err := s.store.History(symbol, optional.Some(days))
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	closes := prices.Closes()

	var groups indicatorGroups

	if selected[indicator.KindMA] {
		ma5, err := indicator.SMA(closes, 5)
		if err != nil {
			s.writeError(w, r, err)

			return
		}

		ma10, err := indicator.SMA(closes, 10)
		if err != nil {
			s.writeError(w, r, err)

			return
		}

		ma20, err := indicator.SMA(closes, 20)
		if err != nil {
			s.writeError(w, r, err)

			return
		}

		ema12, err := indicator.EMA(closes, 12)
		if err != nil {
			s.writeError(w, r, err)

			return
		}

		groups.MovingAverages = &movingAveragesGroup{
			MA5:   fillValues(ma5, 0),
			MA10:  fillValues(ma10, 0),
			MA20:  fillValues(ma20, 0),
			EMA12: fillValues(ema12, 0),
		}
	}

	if selected[indicator.KindBollinger] {
		bands, err := indicator.Bollinger(closes, indicator.DefaultBollingerParams())
		if err != nil {
			s.writeError(w, r, err)

			return
		}

		groups.BollingerBands = &bollingerGroup{
			Upper:  fillValues(bands.Upper, 0),
			Middle: fillValues(bands.Middle, 0),
			Lower:  fillValues(bands.Lower, 0),
		}
	}

	if selected[indicator.KindRSI] {
		rsi, err := indicator.RSI(closes, 14)
		if err != nil {
			s.writeError(w, r, err)

			return
		}

		groups.RSI = fillValues(rsi, 50)
	}

	if selected[indicator.KindMACD] {
		macd, err := indicator.MACD(closes, indicator.DefaultMACDParams())
		if err != nil {
			s.writeError(w, r, err)

			return
		}

		groups.MACD = &macdGroup{
			MACD:      fillValues(macd.MACD, 0),
			Signal:    fillValues(macd.Signal, 0),
			Histogram: fillValues(macd.Histogram, 0),
		}
	}

	if selected[indicator.KindStochastic] {
		stoch, err := indicator.Stochastic(prices, indicator.DefaultStochasticParams())
		if err != nil {
			s.writeError(w, r, err)

			return
		}

		groups.Stochastic = &stochasticGroup{
			KPercent: fillValues(stoch.K, 50),
			DPercent: fillValues(stoch.D, 50),
		}
	}

	if selected[indicator.KindATR] {
		atr, err := indicator.ATR(prices, 14)
		if err != nil {
			s.writeError(w, r, err)

			return
		}

		groups.ATR = fillValues(atr, 0)
	}

	if selected[indicator.KindVolume] {
		vwap, err := indicator.VWAP(prices)
		if err != nil {
			s.writeError(w, r, err)

			return
		}

		obv, err := indicator.OBV(prices)
		if err != nil {
			s.writeError(w, r, err)

			return
		}

		groups.Volume = &volumeGroup{
			VWAP: fillValues(vwap, 0),
			OBV:  fillValues(obv, 0),
		}
	}

	s.metrics.ObserveComputation("indicators")

	dates := make([]string, prices.Len())
	for i, t := range prices.Times() {
		dates[i] = t.Format("2006-01-02")
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"symbol":     symbol,
		"indicators": groups,
		"dates":      dates,
	})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	days, err := daysParam(r, defaultAnalysisDays)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	prices, err := s.store.History(symbol, optional.Some(days))
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	closes := prices.Closes()
	closeValues := closes.Values()
	returns := closes.PctChange().DropUndefined()

	s.metrics.ObserveComputation("analysis")

	priceStd := 0.0
	if len(closeValues) > 1 {
		priceStd = stat.StdDev(closeValues, nil)
	}

	bestDay, worstDay := 0.0, 0.0
	positiveDays, negativeDays := 0, 0
	if len(returns) > 0 {
		bestDay = floats.Max(returns)
		worstDay = floats.Min(returns)

		for _, ret := range returns {
			if ret > 0 {
				positiveDays++
			} else if ret < 0 {
				negativeDays++
			}
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"symbol":          symbol,
		"analysis_period": fmt.Sprintf("%d days", days),
		"risk_metrics":    renderMetrics(risk.Compute(returns)),
		"price_statistics": map[string]any{
			"current_price":  round2(closeValues[len(closeValues)-1]),
			"period_high":    round2(floats.Max(prices.Highs().Values())),
			"period_low":     round2(floats.Min(prices.Lows().Values())),
			"average_price":  round2(stat.Mean(closeValues, nil)),
			"price_std":      round2(priceStd),
			"average_volume": truncInt(stat.Mean(prices.Volumes().Values(), nil)),
		},
		"performance": map[string]any{
			"total_return":  pct2(closeValues[len(closeValues)-1]/closeValues[0] - 1),
			"best_day":      pct2(bestDay),
			"worst_day":     pct2(worstDay),
			"positive_days": positiveDays,
			"negative_days": negativeDays,
		},
	})
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	days, err := daysParam(r, defaultAnalysisDays)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	strategyName := r.URL.Query().Get("strategy")
	if strategyName == "" {
		strategyName = string(backtest.StrategyMovingAverage)
	}

	strategyType, err := backtest.ParseStrategyType(strategyName)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	spec := backtest.DefaultSpec(strategyType)

	if spec.ShortWindow, err = intParam(r, "shortWindow", spec.ShortWindow); err != nil {
		s.writeError(w, r, err)

		return
	}

	if spec.LongWindow, err = intParam(r, "longWindow", spec.LongWindow); err != nil {
		s.writeError(w, r, err)

		return
	}

	if spec.RSIWindow, err = intParam(r, "rsiWindow", spec.RSIWindow); err != nil {
		s.writeError(w, r, err)

		return
	}

	if spec.Oversold, err = floatParam(r, "oversold", spec.Oversold); err != nil {
		s.writeError(w, r, err)

		return
	}

	if spec.Overbought, err = floatParam(r, "overbought", spec.Overbought); err != nil {
		s.writeError(w, r, err)

		return
	}

	prices, err := s.store.History(symbol, optional.Some(days))
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	result, err := backtest.Run(prices, spec)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.metrics.ObserveComputation("backtest")

	dates := make([]string, prices.Len())
	for i, t := range prices.Times() {
		dates[i] = t.Format("2006-01-02")
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"symbol":                symbol,
		"strategy":              result.StrategyName,
		"period":                fmt.Sprintf("%d days", days),
		"trades":                result.Trades,
		"strategy_performance":  renderMetrics(result.Strategy),
		"benchmark_performance": renderMetrics(result.Benchmark),
		"backtest_data": map[string]any{
			"dates":            dates,
			"strategy_equity":  fillValues(result.CumulativeStrategy, 1),
			"benchmark_equity": fillValues(result.CumulativeBenchmark, 1),
			"signals":          fillValues(result.Signal, 0),
		},
	})
}

// portfolioRequest is the body of POST /api/portfolio/analysis.
type portfolioRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,dive,required"`
	Method  string   `json:"method"  validate:"omitempty,oneof=equal_weight risk_parity minimum_variance"`
	Days    int      `json:"days"    validate:"omitempty,min=1,max=10000"`
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidArgument, "invalid request body", err))

		return
	}

	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidArgument, "invalid portfolio request", err))

		return
	}

	if req.Method == "" {
		req.Method = string(portfolio.MethodEqualWeight)
	}

	if req.Days == 0 {
		req.Days = defaultAnalysisDays
	}

	known, err := s.store.Symbols()
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	knownSet := make(map[string]bool, len(known))
	for _, symbol := range known {
		knownSet[symbol] = true
	}

	var invalid []string
	for _, symbol := range req.Symbols {
		if !knownSet[symbol] {
			invalid = append(invalid, symbol)
		}
	}

	if len(invalid) > 0 {
		s.writeError(w, r, errors.Newf(errors.ErrCodeInvalidArgument, "invalid symbols: %s", strings.Join(invalid, ", ")))

		return
	}

	// Return histories are aligned positionally from the tail: the dataset
	// shares one trading calendar, so equal lengths mean equal dates.
	returnsBySymbol := make([][]float64, len(req.Symbols))
	minLen := -1

	for i, symbol := range req.Symbols {
		prices, err := s.store.History(symbol, optional.Some(req.Days))
		if err != nil {
			s.writeError(w, r, err)

			return
		}

		returnsBySymbol[i] = prices.Closes().PctChange().DropUndefined()
		if minLen < 0 || len(returnsBySymbol[i]) < minLen {
			minLen = len(returnsBySymbol[i])
		}
	}

	assets := make([]portfolio.Asset, len(req.Symbols))
	for i, symbol := range req.Symbols {
		sample := returnsBySymbol[i]
		sample = sample[len(sample)-minLen:]
		returnsBySymbol[i] = sample

		assets[i] = portfolio.Asset{Symbol: symbol, Returns: sample}
	}

	allocation, err := portfolio.Optimize(assets, portfolio.Method(req.Method))
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.metrics.ObserveComputation("portfolio")

	correlations, err := risk.CorrelationMatrix(returnsBySymbol)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	correlationMatrix := make(map[string]map[string]float64, len(req.Symbols))
	for i, rowSymbol := range req.Symbols {
		row := make(map[string]float64, len(req.Symbols))
		for j, colSymbol := range req.Symbols {
			row[colSymbol] = round4(correlations[i][j])
		}

		correlationMatrix[rowSymbol] = row
	}

	weights := make(map[string]float64, len(allocation.Symbols))
	for i, symbol := range allocation.Symbols {
		weights[symbol] = allocation.Weights[i]
	}

	individual := make(map[string]metricsJSON, len(req.Symbols))
	for i, symbol := range req.Symbols {
		individual[symbol] = renderMetrics(risk.Compute(returnsBySymbol[i]))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"portfolio": map[string]any{
			"symbols":             allocation.Symbols,
			"optimization_method": string(allocation.Method),
			"period":              fmt.Sprintf("%d days", req.Days),
			"weights":             weights,
			"metrics":             renderMetrics(allocation.Metrics),
		},
		"correlation_matrix": correlationMatrix,
		"individual_metrics": individual,
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	days, err := daysParam(r, defaultChartDays)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	windows, err := windowsParam(r, "ma", []int{5, 20})
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	prices, err := s.store.History(symbol, optional.Some(days))
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	img, err := chart.Render(prices, windows)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.metrics.ObserveComputation("chart")

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(img); err != nil {
		s.logger.Error("failed to write chart response", zap.Error(err))
	}
}

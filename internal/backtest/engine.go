// Package backtest runs signal strategies over daily price history. A
// strategy produces a 0/1 position per bar; returns are credited with a
// one-bar lag (a position taken on bar t earns bar t+1's move), so no signal
// can consume the bar it trades on. Strategy and benchmark performance share
// the risk metrics record.
package backtest

import (
	"math"

	"github.com/quantdesk-lab/quantdesk/internal/risk"
	"github.com/quantdesk-lab/quantdesk/internal/series"
	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

// minBars is the shortest history a backtest accepts; one bar has no return.
const minBars = 2

// Result is the full outcome of one backtest run. All series are aligned
// with the input bars.
type Result struct {
	StrategyName string

	// Signal is the 0/1 position held on each bar; fully defined.
	Signal *series.Series
	// PositionChange is signal[t] - signal[t-1], with the first bar's
	// change equal to signal[0] (entering from flat).
	PositionChange *series.Series
	// StrategyReturn is lagged-signal times raw return; undefined at 0.
	StrategyReturn *series.Series
	// BenchmarkReturn is the raw close-to-close return; undefined at 0.
	BenchmarkReturn *series.Series
	// CumulativeStrategy and CumulativeBenchmark compound the return
	// series treating undefined positions as no change; both are fully
	// defined and start from 1.
	CumulativeStrategy  *series.Series
	CumulativeBenchmark *series.Series

	// Trades counts position flips, entries and exits included.
	Trades int

	Strategy  risk.Metrics
	Benchmark risk.Metrics
}

// Run executes the strategy against the price history.
func Run(prices *series.PriceSeries, spec StrategySpec) (*Result, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if prices.Len() < minBars {
		return nil, errors.NewInsufficientDataErrorf(minBars, prices.Len(), prices.Symbol(),
			"backtest requires at least %d bars, got %d", minBars, prices.Len())
	}

	signal, err := spec.signal(prices)
	if err != nil {
		return nil, err
	}

	benchmark := prices.Closes().PctChange()

	positionChange := make([]float64, prices.Len())
	trades := 0
	for i := 0; i < prices.Len(); i++ {
		change := signal.At(i)
		if i > 0 {
			change = signal.At(i) - signal.At(i-1)
		}
		positionChange[i] = change
		trades += int(math.Abs(change))
	}

	// The position held during bar t was decided on bar t-1.
	strategyReturn := make([]float64, prices.Len())
	for i := 0; i < prices.Len(); i++ {
		if i == 0 || !benchmark.IsDefined(i) {
			strategyReturn[i] = series.Undefined()
			continue
		}
		strategyReturn[i] = signal.At(i-1) * benchmark.At(i)
	}
	strategySeries := series.New(strategyReturn)

	return &Result{
		StrategyName:        spec.Name(),
		Signal:              signal,
		PositionChange:      series.New(positionChange),
		StrategyReturn:      strategySeries,
		BenchmarkReturn:     benchmark,
		CumulativeStrategy:  compound(strategySeries),
		CumulativeBenchmark: compound(benchmark),
		Trades:              trades,
		Strategy:            risk.Compute(strategySeries.DropUndefined()),
		Benchmark:           risk.Compute(benchmark.DropUndefined()),
	}, nil
}

// compound builds the running product of (1 + r). Undefined returns
// contribute no change, so the curve is defined everywhere and leads with 1.
func compound(returns *series.Series) *series.Series {
	out := make([]float64, returns.Len())
	equity := 1.0
	for i := 0; i < returns.Len(); i++ {
		if returns.IsDefined(i) {
			equity *= 1 + returns.At(i)
		}
		out[i] = equity
	}

	return series.New(out)
}

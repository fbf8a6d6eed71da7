package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/quantdesk-lab/quantdesk/internal/backtest"
	"github.com/quantdesk-lab/quantdesk/internal/logger"
	"github.com/quantdesk-lab/quantdesk/internal/risk"
	"github.com/quantdesk-lab/quantdesk/internal/store"
)

// runSummary is the YAML report written for each backtested symbol.
type runSummary struct {
	Symbol           string      `yaml:"symbol"`
	Strategy         string      `yaml:"strategy"`
	Bars             int         `yaml:"bars"`
	Start            string      `yaml:"start"`
	End              string      `yaml:"end"`
	Trades           int         `yaml:"trades"`
	FinalEquity      float64     `yaml:"final_equity"`
	BenchmarkEquity  float64     `yaml:"benchmark_final_equity"`
	StrategyMetrics  metricsYAML `yaml:"strategy_metrics"`
	BenchmarkMetrics metricsYAML `yaml:"benchmark_metrics"`
}

type metricsYAML struct {
	AnnualReturn     float64 `yaml:"annual_return"`
	AnnualVolatility float64 `yaml:"annual_volatility"`
	SharpeRatio      float64 `yaml:"sharpe_ratio"`
	MaxDrawdown      float64 `yaml:"max_drawdown"`
	VaR95            float64 `yaml:"var_95"`
	Skewness         float64 `yaml:"skewness"`
	Kurtosis         float64 `yaml:"kurtosis"`
}

func toMetricsYAML(m risk.Metrics) metricsYAML {
	return metricsYAML{
		AnnualReturn:     m.AnnualReturn,
		AnnualVolatility: m.AnnualVolatility,
		SharpeRatio:      m.SharpeRatio,
		MaxDrawdown:      m.MaxDrawdown,
		VaR95:            m.VaR95,
		Skewness:         m.Skewness,
		Kurtosis:         m.Kurtosis,
	}
}

// backtestAction runs the configured strategy over every requested symbol and
// writes one YAML summary per symbol. A symbol that fails is reported and
// skipped, the batch keeps going.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	appLogger, err := logger.NewDevelopmentLogger()
	if err != nil {
		return err
	}

	defer func() { _ = appLogger.Sync() }()

	strategyType, err := backtest.ParseStrategyType(cmd.String("strategy"))
	if err != nil {
		return err
	}

	spec := backtest.DefaultSpec(strategyType)
	spec.ShortWindow = int(cmd.Int("short-window"))
	spec.LongWindow = int(cmd.Int("long-window"))
	spec.RSIWindow = int(cmd.Int("rsi-window"))
	spec.Oversold = cmd.Float("oversold")
	spec.Overbought = cmd.Float("overbought")

	st, err := store.NewDuckDBStore("", store.Options{}, appLogger)
	if err != nil {
		return err
	}

	defer func() { _ = st.Close() }()

	if err := st.LoadCSV(cmd.String("csv")); err != nil {
		return err
	}

	symbols, err := resolveSymbols(st, cmd.String("symbols"))
	if err != nil {
		return err
	}

	outDir := cmd.String("out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	days := int(cmd.Int("days"))
	window := optional.None[int]()
	if days > 0 {
		window = optional.Some(days)
	}

	bar := progressbar.Default(int64(len(symbols)), "backtesting")
	written := 0

	for _, symbol := range symbols {
		if err := runOne(st, symbol, window, spec, outDir); err != nil {
			appLogger.Warn("skipping symbol", zap.String("symbol", symbol), zap.Error(err))
		} else {
			written++
		}

		_ = bar.Add(1)
	}

	appLogger.Info("backtest batch finished",
		zap.Int("symbols", len(symbols)),
		zap.Int("written", written),
		zap.String("out", outDir),
	)

	return nil
}

func resolveSymbols(st store.Store, flag string) ([]string, error) {
	if flag == "" {
		return st.Symbols()
	}

	symbols := strings.Split(flag, ",")
	for i := range symbols {
		symbols[i] = strings.TrimSpace(symbols[i])
	}

	return symbols, nil
}

func runOne(st store.Store, symbol string, window optional.Option[int], spec backtest.StrategySpec, outDir string) error {
	prices, err := st.History(symbol, window)
	if err != nil {
		return err
	}

	result, err := backtest.Run(prices, spec)
	if err != nil {
		return err
	}

	times := prices.Times()
	summary := runSummary{
		Symbol:           symbol,
		Strategy:         result.StrategyName,
		Bars:             prices.Len(),
		Start:            times[0].Format("2006-01-02"),
		End:              times[len(times)-1].Format("2006-01-02"),
		Trades:           result.Trades,
		FinalEquity:      result.CumulativeStrategy.At(result.CumulativeStrategy.Len() - 1),
		BenchmarkEquity:  result.CumulativeBenchmark.At(result.CumulativeBenchmark.Len() - 1),
		StrategyMetrics:  toMetricsYAML(result.Strategy),
		BenchmarkMetrics: toMetricsYAML(result.Benchmark),
	}

	out, err := yaml.Marshal(summary)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(outDir, symbol+".yaml"), out, 0644)
}

func main() {
	cmd := &cli.Command{
		Name:  "quantdesk-backtest",
		Usage: "Run a signal strategy over symbols in a CSV dataset",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "csv",
				Aliases: []string{"d"},
				Usage:   "Path to the OHLCV CSV dataset",
				Value:   "data/prices.csv",
			},
			&cli.StringFlag{
				Name:    "symbols",
				Aliases: []string{"s"},
				Usage:   "Comma-separated symbols to backtest. Defaults to every symbol in the dataset.",
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: fmt.Sprintf("Strategy to run (%s, %s, %s)", backtest.StrategyMovingAverage, backtest.StrategyRSI, backtest.StrategyBuyAndHold),
				Value: string(backtest.StrategyMovingAverage),
			},
			&cli.IntFlag{
				Name:  "short-window",
				Usage: "Short moving average window",
				Value: 5,
			},
			&cli.IntFlag{
				Name:  "long-window",
				Usage: "Long moving average window",
				Value: 20,
			},
			&cli.IntFlag{
				Name:  "rsi-window",
				Usage: "RSI lookback window",
				Value: 14,
			},
			&cli.FloatFlag{
				Name:  "oversold",
				Usage: "RSI entry threshold",
				Value: 30,
			},
			&cli.FloatFlag{
				Name:  "overbought",
				Usage: "RSI exit threshold",
				Value: 70,
			},
			&cli.IntFlag{
				Name:  "days",
				Usage: "Trailing bars per symbol. Zero or negative runs the full history.",
				Value: 252,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Directory for the per-symbol YAML summaries",
				Value:   "results",
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// Package testhelper generates deterministic daily OHLCV datasets for
// end-to-end tests. Generated bars are written through the marketdata CSV
// writer so the files match what a real download run produces.
package testhelper

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/quantdesk-lab/quantdesk/pkg/marketdata/writer"
)

// TrendPattern selects the shape of a generated price path.
type TrendPattern string

const (
	// PatternUptrend drifts the close upward day over day.
	PatternUptrend TrendPattern = "uptrend"
	// PatternDowntrend drifts the close downward day over day.
	PatternDowntrend TrendPattern = "downtrend"
	// PatternChoppy produces a sideways walk bounded by a maximum drawdown.
	PatternChoppy TrendPattern = "choppy"
)

const (
	// minimumPrice keeps generated prices strictly positive.
	minimumPrice = 0.01
	// baseVolume anchors the randomized daily volume.
	baseVolume = 1_000_000.0
	// uptrendNoiseBias shifts uptrend noise slightly positive.
	uptrendNoiseBias = 0.3
	// downtrendNoiseBias shifts downtrend noise slightly negative.
	downtrendNoiseBias = 0.7
	// choppyUpwardBias gives the choppy walk a faint upward lean.
	choppyUpwardBias = 0.45
)

// DatasetConfig describes one symbol's generated price history.
type DatasetConfig struct {
	// Symbol is the ticker assigned to every generated bar.
	Symbol string
	// StartDate is the calendar day of the first bar.
	StartDate time.Time
	// NumDays is the number of daily bars to generate.
	NumDays int
	// Pattern selects the price path shape.
	Pattern TrendPattern
	// InitialPrice is the close of the day before the first bar.
	InitialPrice float64
	// TrendStrength is the per-day drift fraction for trending patterns.
	TrendStrength float64
	// VolatilityPercent is the per-day noise amplitude in percent.
	VolatilityPercent float64
	// MaxDrawdownPercent bounds how far the choppy walk may drop from its
	// running peak.
	MaxDrawdownPercent float64
	// Seed fixes the random stream for reproducible datasets. Zero seeds
	// from the wall clock.
	Seed int64
}

// DatasetGenerator produces daily bars from a DatasetConfig.
type DatasetGenerator struct {
	config DatasetConfig
	rng    *rand.Rand
}

// NewDatasetGenerator creates a generator, filling config defaults.
func NewDatasetGenerator(config DatasetConfig) *DatasetGenerator {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	if config.InitialPrice <= 0 {
		config.InitialPrice = 100.0
	}
	if config.TrendStrength <= 0 {
		config.TrendStrength = 0.01
	}
	if config.VolatilityPercent <= 0 {
		config.VolatilityPercent = 2.0
	}
	if config.MaxDrawdownPercent <= 0 {
		config.MaxDrawdownPercent = 10.0
	}

	return &DatasetGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Generate walks the configured pattern and returns one bar per calendar day.
func (g *DatasetGenerator) Generate() ([]writer.Record, error) {
	if g.config.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if g.config.StartDate.IsZero() {
		return nil, fmt.Errorf("start date is required")
	}
	if g.config.NumDays <= 0 {
		return nil, fmt.Errorf("number of days must be positive")
	}

	records := make([]writer.Record, g.config.NumDays)
	currentPrice := g.config.InitialPrice
	peakPrice := currentPrice
	day := g.config.StartDate

	for i := 0; i < g.config.NumDays; i++ {
		var change float64

		switch g.config.Pattern {
		case PatternUptrend:
			change = g.trendChange(currentPrice, 1, uptrendNoiseBias)
		case PatternDowntrend:
			change = g.trendChange(currentPrice, -1, downtrendNoiseBias)
		case PatternChoppy:
			change = g.choppyChange(currentPrice, peakPrice)
		default:
			return nil, fmt.Errorf("unknown pattern: %s", g.config.Pattern)
		}

		newPrice := currentPrice + change
		if newPrice <= 0 {
			newPrice = minimumPrice
		}

		open := currentPrice
		closePrice := newPrice

		// Wicks extend beyond the open/close body with bounded noise.
		bodyHigh := math.Max(open, closePrice)
		bodyLow := math.Min(open, closePrice)
		wickRange := bodyHigh * (g.config.VolatilityPercent / 100.0) * 0.5

		high := bodyHigh + g.rng.Float64()*wickRange
		low := bodyLow - g.rng.Float64()*wickRange
		if low <= 0 {
			low = minimumPrice
		}
		if low > bodyLow {
			low = bodyLow
		}

		records[i] = writer.Record{
			Date:   writer.Date{Time: day},
			Symbol: g.config.Symbol,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: math.Trunc(baseVolume * (0.5 + g.rng.Float64())),
		}

		currentPrice = newPrice
		day = day.AddDate(0, 0, 1)

		if currentPrice > peakPrice {
			peakPrice = currentPrice
		}
	}

	return records, nil
}

// trendChange drifts the price in the given direction with biased noise.
func (g *DatasetGenerator) trendChange(currentPrice, direction, noiseBias float64) float64 {
	trend := direction * currentPrice * g.config.TrendStrength
	noise := currentPrice * (g.config.VolatilityPercent / 100.0) * (g.rng.Float64() - noiseBias)

	return trend + noise
}

// choppyChange produces a near-sideways move that never breaches the
// configured drawdown from the running peak.
func (g *DatasetGenerator) choppyChange(currentPrice, peakPrice float64) float64 {
	direction := g.rng.Float64() - choppyUpwardBias
	change := currentPrice * (g.config.VolatilityPercent / 100.0) * direction

	floor := peakPrice * (1 - g.config.MaxDrawdownPercent/100.0)
	if currentPrice+change < floor {
		bounce := g.rng.Float64() * (g.config.VolatilityPercent / 100.0) * currentPrice
		change = floor + bounce - currentPrice
	}

	return change
}

// WriteCSV persists bars through the marketdata CSV writer. Records from
// several generators may be concatenated into one dataset file.
func WriteCSV(records []writer.Record, outputPath string) error {
	if len(records) == 0 {
		return fmt.Errorf("no records to write")
	}

	w := writer.NewCSVWriter(outputPath)
	if err := w.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize csv writer: %w", err)
	}
	defer w.Close()

	for _, record := range records {
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to buffer record: %w", err)
		}
	}

	if _, err := w.Finalize(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}

	return nil
}

// GenerateCSV generates one symbol's bars and writes them in a single call.
func GenerateCSV(config DatasetConfig, outputPath string) error {
	generator := NewDatasetGenerator(config)

	records, err := generator.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate dataset: %w", err)
	}

	return WriteCSV(records, outputPath)
}

// Package store loads daily OHLCV history into DuckDB and serves it back as
// validated price series.
package store

import (
	"github.com/moznion/go-optional"

	"github.com/quantdesk-lab/quantdesk/internal/series"
)

// Store serves the daily bar dataset backing the API.
type Store interface {
	// LoadCSV points the store at a tidy CSV file with the columns
	// date, symbol, open, high, low, close, volume. Calling it again
	// replaces the previous dataset.
	LoadCSV(path string) error

	// Symbols returns the distinct symbols in ascending order.
	Symbols() ([]string, error)

	// History returns the daily bars for symbol in chronological order.
	// When lastN is set and positive only the most recent lastN bars are
	// returned, mirroring a tail over the full history.
	History(symbol string, lastN optional.Option[int]) (*series.PriceSeries, error)

	// Count reports the total number of bars across all symbols.
	Count() (int, error)

	// Close releases the underlying database handle.
	Close() error
}

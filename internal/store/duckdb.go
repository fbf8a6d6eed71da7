package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/quantdesk-lab/quantdesk/internal/logger"
	"github.com/quantdesk-lab/quantdesk/internal/series"
	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

// DuckDBStore keeps the bar dataset in a DuckDB view over the source CSV.
type DuckDBStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// Options tunes the DuckDB session. Zero values fall back to defaults.
type Options struct {
	MemoryLimit string
	Threads     int
}

const (
	defaultMemoryLimit = "4GB"
	defaultThreads     = 4
)

// NewDuckDBStore opens a DuckDB database at the given path. An empty path
// opens an in-memory database. This only opens the handle; LoadCSV loads the
// dataset.
func NewDuckDBStore(path string, opts Options, logger *logger.Logger) (Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStoreUnavailable, err, "failed to open duckdb at %q", path)
	}

	if opts.MemoryLimit == "" {
		opts.MemoryLimit = defaultMemoryLimit
	}

	if opts.Threads <= 0 {
		opts.Threads = defaultThreads
	}

	_, err = db.Exec(fmt.Sprintf(`
		SET memory_limit='%s';
		SET threads=%d;
	`, opts.MemoryLimit, opts.Threads))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to configure duckdb", err)
	}

	return &DuckDBStore{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// LoadCSV implements Store.
func (s *DuckDBStore) LoadCSV(path string) error {
	s.logger.Debug("Loading bar data", zap.String("path", path))

	_, err := s.db.Exec(`DROP VIEW IF EXISTS prices;`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLoadFailed, "failed to drop existing prices view", err)
	}

	// The casts pin the view to the tidy schema so a malformed file fails
	// here instead of at query time. Raw SQL because squirrel does not
	// support CREATE VIEW.
	query := fmt.Sprintf(`
		CREATE VIEW prices AS
		SELECT
			CAST(date AS DATE) AS date,
			CAST(symbol AS VARCHAR) AS symbol,
			CAST(open AS DOUBLE) AS open,
			CAST(high AS DOUBLE) AS high,
			CAST(low AS DOUBLE) AS low,
			CAST(close AS DOUBLE) AS close,
			CAST(volume AS DOUBLE) AS volume
		FROM read_csv_auto('%s');
	`, path)

	_, err = s.db.Exec(query)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to load bar data from %q", path)
	}

	return nil
}

// Symbols implements Store.
func (s *DuckDBStore) Symbols() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT symbol FROM prices ORDER BY symbol;`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol", err)
		}

		symbols = append(symbols, symbol)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating symbols", err)
	}

	return symbols, nil
}

// History implements Store.
func (s *DuckDBStore) History(symbol string, lastN optional.Option[int]) (*series.PriceSeries, error) {
	builder := s.sq.
		Select("date", "open", "high", "low", "close", "volume").
		From("prices").
		Where(squirrel.Eq{"symbol": symbol})

	tail := lastN.IsSome() && lastN.Unwrap() > 0
	if tail {
		// Newest first with a limit, reversed after scanning. This reads
		// only the tail instead of the whole history.
		builder = builder.OrderBy("date DESC").Limit(uint64(lastN.Unwrap()))
	} else {
		builder = builder.OrderBy("date ASC")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build history query", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query history for %s", symbol)
	}
	defer rows.Close()

	var bars []series.Bar

	for rows.Next() {
		var (
			date                           time.Time
			open, high, low, close, volume float64
		)

		if err := rows.Scan(&date, &open, &high, &low, &close, &volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bars = append(bars, series.Bar{
			Time:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeSymbolNotFound, "symbol %s not found", symbol)
	}

	if tail {
		for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
			bars[i], bars[j] = bars[j], bars[i]
		}
	}

	return series.NewPriceSeries(symbol, bars)
}

// Count implements Store.
func (s *DuckDBStore) Count() (int, error) {
	var count int

	err := s.db.QueryRow(`SELECT COUNT(*) FROM prices;`).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count bars", err)
	}

	return count, nil
}

// Close implements Store.
func (s *DuckDBStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

package writer

import (
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

// CSVWriter buffers daily bars and writes them as one tidy CSV file on
// Finalize. Daily history is small enough that buffering a whole download
// run stays cheap.
type CSVWriter struct {
	outputPath string
	records    []Record
}

// NewCSVWriter creates a writer that will produce the CSV file at outputPath.
func NewCSVWriter(outputPath string) *CSVWriter {
	return &CSVWriter{
		outputPath: outputPath,
		records:    nil,
	}
}

// Initialize implements BarWriter.
func (w *CSVWriter) Initialize() error {
	dir := filepath.Dir(w.outputPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to create output directory %q", dir)
		}
	}

	w.records = w.records[:0]

	return nil
}

// Write implements BarWriter.
func (w *CSVWriter) Write(record Record) error {
	w.records = append(w.records, record)

	return nil
}

// Finalize implements BarWriter.
func (w *CSVWriter) Finalize() (string, error) {
	file, err := os.Create(w.outputPath)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to create %q", w.outputPath)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&w.records, file); err != nil {
		return "", errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to write %q", w.outputPath)
	}

	return w.outputPath, nil
}

// Close implements BarWriter.
func (w *CSVWriter) Close() error {
	return nil
}

// GetOutputPath implements BarWriter.
func (w *CSVWriter) GetOutputPath() string {
	return w.outputPath
}

// Package writer persists downloaded daily bars.
package writer

import "time"

// Date is a calendar day serialized as YYYY-MM-DD in CSV files.
type Date struct {
	time.Time
}

// MarshalCSV implements the gocsv field marshaler.
func (d Date) MarshalCSV() (string, error) {
	return d.Format("2006-01-02"), nil
}

// UnmarshalCSV implements the gocsv field unmarshaler.
func (d *Date) UnmarshalCSV(field string) error {
	t, err := time.Parse("2006-01-02", field)
	if err != nil {
		return err
	}

	d.Time = t

	return nil
}

// Record is one daily bar in the tidy CSV layout the store reads.
type Record struct {
	Date   Date    `csv:"date"`
	Symbol string  `csv:"symbol"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

// BarWriter defines the interface for writing daily bars to a destination.
type BarWriter interface {
	// Initialize sets up the writer and discards any previously buffered bars.
	Initialize() error
	// Write buffers a single daily bar.
	Write(record Record) error
	// Finalize completes the writing process and returns the output path.
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output file path.
	GetOutputPath() string
}

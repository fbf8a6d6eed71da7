// Package provider implements daily bar downloads from market data vendors.
package provider

import (
	"context"
	"time"

	"github.com/quantdesk-lab/quantdesk/pkg/errors"
	"github.com/quantdesk-lab/quantdesk/pkg/marketdata/writer"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

// OnDownloadProgress reports download progress. Current and total are in
// provider specific units (bars or milliseconds), only their ratio matters.
type OnDownloadProgress = func(current float64, total float64, message string)

// Provider downloads daily bars for one ticker at a time into the configured
// writer. The client owns the writer lifecycle so one download run can fold
// several tickers into a single output file.
type Provider interface {
	// ConfigWriter configures the writer the downloaded bars go to.
	ConfigWriter(w writer.BarWriter)
	// Download fetches the daily bars for ticker between startDate and
	// endDate inclusive and writes them to the configured writer. It
	// returns the number of bars written. Cancel the context to stop a
	// download early.
	Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) (int, error)
}

// NewProvider creates a market data provider of the given type. The apiKey
// is required for polygon and ignored by binance.
func NewProvider(providerType ProviderType, apiKey string) (Provider, error) {
	switch providerType {
	case ProviderPolygon:
		return NewPolygonClient(apiKey)
	case ProviderBinance:
		return NewBinanceClient()
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}

// Package marketdata downloads daily OHLCV history from market data vendors
// and writes it as the tidy CSV dataset the store loads.
package marketdata

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quantdesk-lab/quantdesk/pkg/errors"
	"github.com/quantdesk-lab/quantdesk/pkg/marketdata/provider"
	"github.com/quantdesk-lab/quantdesk/pkg/marketdata/writer"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType  provider.ProviderType `validate:"required,oneof=polygon binance"`
	OutputPath    string                `validate:"required"`
	PolygonAPIKey string                `validate:"required_if=ProviderType polygon"`
}

// DownloadParams holds the parameters for a market data download request.
// All tickers of one run land in the same output file.
type DownloadParams struct {
	Tickers   []string  `validate:"required,min=1,dive,required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtfield=StartDate"`
}

// Client downloads data from a provider and stores it with a writer.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	onProgress provider.OnDownloadProgress
}

// NewClient creates a new market data client with the given configuration.
// A nil onProgress is replaced with a no-op callback.
func NewClient(config ClientConfig, onProgress provider.OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	marketProvider, err := provider.NewProvider(config.ProviderType, config.PolygonAPIKey)
	if err != nil {
		return nil, err
	}

	if onProgress == nil {
		onProgress = func(float64, float64, string) {}
	}

	return &Client{
		provider:   marketProvider,
		config:     config,
		validate:   validate,
		onProgress: onProgress,
	}, nil
}

// Download fetches daily bars for every ticker in params and finalizes them
// into one tidy CSV file. It returns the path of the written file. The
// context can be used to cancel the download operation.
func (c *Client) Download(ctx context.Context, params DownloadParams) (string, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidArgument, "invalid download parameters", err)
	}

	barWriter := writer.NewCSVWriter(c.config.OutputPath)
	if err := barWriter.Initialize(); err != nil {
		return "", err
	}

	defer barWriter.Close()

	c.provider.ConfigWriter(barWriter)

	for _, ticker := range params.Tickers {
		if _, err := c.provider.Download(ctx, ticker, params.StartDate, params.EndDate, c.onProgress); err != nil {
			return "", err
		}
	}

	return barWriter.Finalize()
}

package marketdata

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quantdesk-lab/quantdesk/pkg/errors"
	"github.com/quantdesk-lab/quantdesk/pkg/marketdata/provider"
)

// DownloadConfig is the JSON download description consumed by the download
// command. Dates are calendar days because the dataset is daily bars.
type DownloadConfig struct {
	Provider  string   `json:"provider"  jsonschema:"title=Provider,description=Market data vendor,required,enum=polygon,enum=binance"          validate:"required,oneof=polygon binance"`
	Tickers   []string `json:"tickers"   jsonschema:"title=Tickers,description=Symbols to download (e.g. AAPL or BTCUSDT),required"             validate:"required,min=1,dive,required"`
	StartDate string   `json:"startDate" jsonschema:"title=Start Date,description=First day to download (YYYY-MM-DD),format=date,required"      validate:"required"`
	EndDate   string   `json:"endDate"   jsonschema:"title=End Date,description=Last day to download (YYYY-MM-DD),format=date,required"         validate:"required"`
	Output    string   `json:"output"    jsonschema:"title=Output,description=Path of the tidy CSV file to write,required"                      validate:"required"`
	APIKey    string   `json:"apiKey"    jsonschema:"title=API Key,description=Vendor API key; required for polygon"                            validate:"required_if=Provider polygon"`
}

// Validate validates the DownloadConfig fields.
func (c *DownloadConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid download config", err)
	}

	if _, err := time.Parse("2006-01-02", c.StartDate); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid startDate, expected YYYY-MM-DD", err)
	}

	if _, err := time.Parse("2006-01-02", c.EndDate); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid endDate, expected YYYY-MM-DD", err)
	}

	return nil
}

// ToClientConfig converts the config to a ClientConfig.
func (c *DownloadConfig) ToClientConfig() ClientConfig {
	return ClientConfig{
		ProviderType:  provider.ProviderType(c.Provider),
		OutputPath:    c.Output,
		PolygonAPIKey: c.APIKey,
	}
}

// ToDownloadParams converts the config to DownloadParams. The end date is
// extended to the end of its day so the last day's bar is included.
func (c *DownloadConfig) ToDownloadParams() (DownloadParams, error) {
	startDate, err := time.Parse("2006-01-02", c.StartDate)
	if err != nil {
		return DownloadParams{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse startDate", err)
	}

	endDate, err := time.Parse("2006-01-02", c.EndDate)
	if err != nil {
		return DownloadParams{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse endDate", err)
	}

	return DownloadParams{
		Tickers:   c.Tickers,
		StartDate: startDate,
		EndDate:   endDate.Add(24*time.Hour - time.Millisecond),
	}, nil
}

// ParseDownloadConfig parses JSON into a validated DownloadConfig.
func ParseDownloadConfig(jsonConfig string) (*DownloadConfig, error) {
	var config DownloadConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse JSON download config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

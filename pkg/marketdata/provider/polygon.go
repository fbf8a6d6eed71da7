package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/schollz/progressbar/v3"

	"github.com/quantdesk-lab/quantdesk/pkg/errors"
	"github.com/quantdesk-lab/quantdesk/pkg/marketdata/writer"
)

type PolygonClient struct {
	client *polygon.Client
	writer writer.BarWriter
}

func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidProvider, "polygon provider requires an API key")
	}

	return &PolygonClient{
		client: polygon.New(apiKey),
		writer: nil,
	}, nil
}

func (c *PolygonClient) ConfigWriter(w writer.BarWriter) {
	c.writer = w
}

// Download implements Provider using the polygon daily aggregates endpoint.
func (c *PolygonClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) (int, error) {
	if c.writer == nil {
		return 0, errors.New(errors.ErrCodeInvalidConfiguration, "no writer configured for PolygonClient, call ConfigWriter first")
	}

	totalDays := int(endDate.Sub(startDate).Hours()/24) + 1

	bar := progressbar.NewOptions(totalDays,
		progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", ticker)),
		progressbar.OptionShowCount())

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithLimit(50000)

	iter := c.client.ListAggs(ctx, params)

	count := 0

	for iter.Next() {
		agg := iter.Item()
		day := time.Time(agg.Timestamp).UTC()

		record := writer.Record{
			Date:   writer.Date{Time: day},
			Symbol: ticker,
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}

		if err := c.writer.Write(record); err != nil {
			return count, errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to write bar for %s", ticker)
		}

		count++

		onProgress(float64(count), float64(totalDays), fmt.Sprintf("Downloading %s", ticker))

		daysElapsed := int(day.Sub(startDate).Hours() / 24)
		bar.Set(daysElapsed)
	}

	if iter.Err() != nil {
		return count, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, iter.Err(), "error iterating polygon aggregates for %s", ticker)
	}

	bar.Finish()

	return count, nil
}

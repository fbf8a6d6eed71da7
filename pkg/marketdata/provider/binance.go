package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/quantdesk-lab/quantdesk/pkg/errors"
	"github.com/quantdesk-lab/quantdesk/pkg/marketdata/writer"
)

// binancePageSize is the kline page size of the public API; a shorter page
// marks the last one.
const binancePageSize = 500

type BinanceClient struct {
	client *binance.Client
	writer writer.BarWriter
}

// NewBinanceClient creates a provider backed by the public Binance market
// data API, which needs no credentials.
func NewBinanceClient() (Provider, error) {
	return &BinanceClient{
		client: binance.NewClient("", ""),
		writer: nil,
	}, nil
}

// NewBinanceClientWithBaseURL creates a provider that targets a custom API
// endpoint instead of the public one. Regional mirrors and test servers go
// through this.
func NewBinanceClientWithBaseURL(baseURL string) (Provider, error) {
	if baseURL == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "base URL must not be empty")
	}

	client := binance.NewClient("", "")
	client.BaseURL = baseURL

	return &BinanceClient{
		client: client,
		writer: nil,
	}, nil
}

func (c *BinanceClient) ConfigWriter(w writer.BarWriter) {
	c.writer = w
}

// Download implements Provider using paginated daily klines.
func (c *BinanceClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) (int, error) {
	if c.writer == nil {
		return 0, errors.New(errors.ErrCodeInvalidConfiguration, "no writer configured for BinanceClient, call ConfigWriter first")
	}

	startMillis := startDate.UnixMilli()
	endMillis := endDate.UnixMilli()
	currentStart := startMillis

	count := 0

	for {
		klines, err := c.client.NewKlinesService().
			Symbol(ticker).
			Interval("1d").
			StartTime(currentStart).
			EndTime(endMillis).
			Do(ctx)
		if err != nil {
			return count, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s", ticker)
		}

		onProgress(float64(currentStart-startMillis), float64(endMillis-startMillis), fmt.Sprintf("Downloading %s klines from Binance", ticker))

		written, err := c.writeKlines(ticker, klines)
		count += written

		if err != nil {
			return count, err
		}

		// A short page is the last page.
		if len(klines) < binancePageSize {
			break
		}

		// Resume just past the close of the last kline to avoid duplicates.
		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	return count, nil
}

func (c *BinanceClient) writeKlines(ticker string, klines []*binance.Kline) (int, error) {
	for i, k := range klines {
		record, err := klineToRecord(ticker, k)
		if err != nil {
			return i, err
		}

		if err := c.writer.Write(record); err != nil {
			return i, errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to write bar for %s", ticker)
		}
	}

	return len(klines), nil
}

// klineToRecord converts a Binance kline to a daily bar record. The open
// time stamps the bar.
func klineToRecord(ticker string, k *binance.Kline) (writer.Record, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return writer.Record{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "malformed open price in kline for %s", ticker)
	}

	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return writer.Record{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "malformed high price in kline for %s", ticker)
	}

	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return writer.Record{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "malformed low price in kline for %s", ticker)
	}

	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return writer.Record{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "malformed close price in kline for %s", ticker)
	}

	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return writer.Record{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "malformed volume in kline for %s", ticker)
	}

	return writer.Record{
		Date:   writer.Date{Time: time.UnixMilli(k.OpenTime).UTC()},
		Symbol: ticker,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}

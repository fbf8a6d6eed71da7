package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/quantdesk-lab/quantdesk/pkg/marketdata"
	"github.com/quantdesk-lab/quantdesk/pkg/marketdata/provider"
)

// downloadAction fetches daily OHLCV history and writes it as one tidy CSV
// file. Parameters come either from a JSON config file or from flags; the
// config file wins when both are given.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	clientConfig, params, err := resolveRequest(cmd)
	if err != nil {
		return err
	}

	client, err := marketdata.NewClient(clientConfig, nil)
	if err != nil {
		return err
	}

	log.Printf("Downloading %s from %s to %s using the %s provider...",
		strings.Join(params.Tickers, ", "),
		params.StartDate.Format("2006-01-02"),
		params.EndDate.Format("2006-01-02"),
		clientConfig.ProviderType,
	)

	path, err := client.Download(ctx, params)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	log.Printf("Download completed, dataset written to %s", path)

	return nil
}

func resolveRequest(cmd *cli.Command) (marketdata.ClientConfig, marketdata.DownloadParams, error) {
	if configPath := cmd.String("config"); configPath != "" {
		raw, err := os.ReadFile(configPath)
		if err != nil {
			return marketdata.ClientConfig{}, marketdata.DownloadParams{}, err
		}

		config, err := marketdata.ParseDownloadConfig(string(raw))
		if err != nil {
			return marketdata.ClientConfig{}, marketdata.DownloadParams{}, err
		}

		params, err := config.ToDownloadParams()
		if err != nil {
			return marketdata.ClientConfig{}, marketdata.DownloadParams{}, err
		}

		return config.ToClientConfig(), params, nil
	}

	tickers := strings.Split(cmd.String("tickers"), ",")
	for i := range tickers {
		tickers[i] = strings.TrimSpace(tickers[i])
	}

	clientConfig := marketdata.ClientConfig{
		ProviderType:  provider.ProviderType(cmd.String("provider")),
		OutputPath:    cmd.String("out"),
		PolygonAPIKey: os.Getenv("POLYGON_API_KEY"),
	}

	params := marketdata.DownloadParams{
		Tickers:   tickers,
		StartDate: cmd.Timestamp("start"),
		EndDate:   cmd.Timestamp("end"),
	}

	return clientConfig, params, nil
}

func main() {
	cmd := &cli.Command{
		Name:  "quantdesk-download",
		Usage: "Download daily OHLCV history into a CSV dataset",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "tickers",
				Aliases: []string{"t"},
				Usage:   "Comma-separated ticker symbols (e.g. AAPL,MSFT)",
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start date in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Data provider to use (%s, %s)", provider.ProviderPolygon, provider.ProviderBinance),
				Value:   string(provider.ProviderPolygon),
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Path of the CSV file to write",
				Value:   "data/prices.csv",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a JSON download config. Overrides the other flags.",
			},
		},
		Action: downloadAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/quantdesk-lab/quantdesk/internal/api"
	"github.com/quantdesk-lab/quantdesk/internal/config"
	"github.com/quantdesk-lab/quantdesk/internal/logger"
	"github.com/quantdesk-lab/quantdesk/internal/metrics"
	"github.com/quantdesk-lab/quantdesk/internal/store"
)

const shutdownTimeout = 10 * time.Second

// serveAction loads the configuration and dataset, then serves the API until
// the process is interrupted or the listener fails.
func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg := config.DefaultConfig()

	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}

		cfg = *loaded
	}

	if addr := cmd.String("listen"); addr != "" {
		cfg.Server.ListenAddr = addr
	}

	if csvPath := cmd.String("csv"); csvPath != "" {
		cfg.Data.CSVPath = csvPath
	}

	appLogger, err := logger.NewLoggerWithLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	defer func() { _ = appLogger.Sync() }()

	st, err := store.NewDuckDBStore(cfg.Data.DuckDBPath, store.Options{
		MemoryLimit: cfg.Data.MemoryLimit,
		Threads:     cfg.Data.Threads,
	}, appLogger)
	if err != nil {
		return err
	}

	defer func() { _ = st.Close() }()

	if err := st.LoadCSV(cfg.Data.CSVPath); err != nil {
		return err
	}

	count, err := st.Count()
	if err != nil {
		return err
	}

	appLogger.Info("dataset loaded",
		zap.String("path", cfg.Data.CSVPath),
		zap.Int("bars", count),
	)

	server := api.NewServer(api.Config{
		ListenAddr:  cfg.Server.ListenAddr,
		CORSOrigins: cfg.Server.CORSOrigins,
		Store:       st,
		Logger:      appLogger,
		Metrics:     metrics.NewMetrics(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigChan:
		appLogger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		appLogger.Info("shutting down", zap.Error(ctx.Err()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

func main() {
	cmd := &cli.Command{
		Name:  "quantdesk-server",
		Usage: "Serve the stock analysis HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "Listen address, overrides the configuration file",
			},
			&cli.StringFlag{
				Name:  "csv",
				Usage: "Path to the OHLCV CSV dataset, overrides the configuration file",
			},
		},
		Action: serveAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

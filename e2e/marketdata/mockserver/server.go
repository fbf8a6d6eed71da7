// Package mockserver provides a mock Binance market data server for
// end-to-end tests. It implements the kline REST endpoint the download
// provider consumes, serving a fixed set of daily bars per symbol so tests
// can check the downloaded output exactly.
package mockserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/quantdesk-lab/quantdesk/pkg/marketdata/writer"
)

// pageLimit is the kline page size of the real API. Responses never carry
// more rows, which is what forces the provider to paginate.
const pageLimit = 500

// ServerConfig holds the bars the server replays.
type ServerConfig struct {
	// Klines maps a symbol to its daily bars, ordered by date.
	Klines map[string][]writer.Record
}

// MockBinanceServer serves configured daily klines over the Binance REST
// shape.
type MockBinanceServer struct {
	mu sync.RWMutex

	httpServer *http.Server
	listener   net.Listener

	klines map[string][]writer.Record
}

// NewMockBinanceServer creates a server replaying the configured bars.
func NewMockBinanceServer(config ServerConfig) *MockBinanceServer {
	klines := make(map[string][]writer.Record, len(config.Klines))
	for symbol, records := range config.Klines {
		klines[symbol] = records
	}

	return &MockBinanceServer{
		klines: klines,
	}
}

// SetKlines replaces the bars served for a symbol.
func (s *MockBinanceServer) SetKlines(symbol string, records []writer.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.klines[symbol] = records
}

// Start starts the mock server on the given address.
// If address is empty or ":0", a random available port is used.
func (s *MockBinanceServer) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	router := mux.NewRouter()
	router.HandleFunc("/api/v3/klines", s.handleKlines).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			fmt.Printf("HTTP server error: %v\n", err)
		}
	}()

	return nil
}

// Stop stops the mock server.
func (s *MockBinanceServer) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// Address returns the address the server is listening on.
func (s *MockBinanceServer) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// BaseURL returns the base URL for the server.
func (s *MockBinanceServer) BaseURL() string {
	return "http://" + s.Address()
}

// handleKlines handles GET /api/v3/klines. Bars are filtered to the
// requested open-time range and capped at the page limit, mirroring the
// real endpoint's pagination behavior.
func (s *MockBinanceServer) handleKlines(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	interval := r.URL.Query().Get("interval")

	if symbol == "" || interval == "" {
		http.Error(w, "Missing required parameters", http.StatusBadRequest)

		return
	}

	if interval != "1d" {
		http.Error(w, "Unsupported interval", http.StatusBadRequest)

		return
	}

	startMillis := parseMillis(r.URL.Query().Get("startTime"), 0)
	endMillis := parseMillis(r.URL.Query().Get("endTime"), math.MaxInt64)

	limit := pageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < pageLimit {
			limit = n
		}
	}

	s.mu.RLock()
	records := s.klines[symbol]
	s.mu.RUnlock()

	page := make([][]interface{}, 0, limit)

	for _, record := range records {
		openTime := record.Date.UnixMilli()
		if openTime < startMillis || openTime > endMillis {
			continue
		}

		closeTime := record.Date.AddDate(0, 0, 1).UnixMilli() - 1
		page = append(page, []interface{}{
			openTime,
			strconv.FormatFloat(record.Open, 'f', 8, 64),
			strconv.FormatFloat(record.High, 'f', 8, 64),
			strconv.FormatFloat(record.Low, 'f', 8, 64),
			strconv.FormatFloat(record.Close, 'f', 8, 64),
			strconv.FormatFloat(record.Volume, 'f', 8, 64),
			closeTime,
			"0", // quote asset volume
			0,   // number of trades
			"0", // taker buy base asset volume
			"0", // taker buy quote asset volume
			"0", // unused field
		})

		if len(page) >= limit {
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(page); err != nil {
		http.Error(w, "Failed to encode klines", http.StatusInternalServerError)
	}
}

func parseMillis(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return ms
}

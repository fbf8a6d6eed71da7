// Package api serves the research engine over HTTP. Handlers stay thin:
// resolve the symbol, parse parameters, call the engine, render. All rounding
// and undefined-value filling happens here at the boundary, never in the
// engine packages.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/quantdesk-lab/quantdesk/internal/logger"
	"github.com/quantdesk-lab/quantdesk/internal/metrics"
	"github.com/quantdesk-lab/quantdesk/internal/store"
	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

// Config holds the server dependencies and settings.
type Config struct {
	ListenAddr  string
	CORSOrigins []string
	Store       store.Store
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
}

// Server is the HTTP front of the engine.
type Server struct {
	store       store.Store
	logger      *logger.Logger
	metrics     *metrics.Metrics
	validate    *validator.Validate
	corsOrigins []string
	router      *mux.Router
	httpServer  *http.Server
}

// NewServer wires the routes and middleware chain.
func NewServer(cfg Config) *Server {
	s := &Server{
		store:       cfg.Store,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		validate:    validator.New(),
		corsOrigins: cfg.CORSOrigins,
	}

	router := mux.NewRouter()
	router.Use(
		s.requestIDMiddleware,
		s.loggingMiddleware,
		s.recoveryMiddleware,
		s.corsMiddleware,
		s.metricsMiddleware,
	)

	router.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/stocks", s.handleStocks).Methods(http.MethodGet)
	router.HandleFunc("/api/stock/{symbol}", s.handleStock).Methods(http.MethodGet)
	router.HandleFunc("/api/stock/{symbol}/chart", s.handleChart).Methods(http.MethodGet)
	router.HandleFunc("/api/stock/{symbol}/indicators", s.handleIndicators).Methods(http.MethodGet)
	router.HandleFunc("/api/stock/{symbol}/analysis", s.handleAnalysis).Methods(http.MethodGet)
	router.HandleFunc("/api/stock/{symbol}/backtest", s.handleBacktest).Methods(http.MethodGet)
	router.HandleFunc("/api/portfolio/analysis", s.handlePortfolio).Methods(http.MethodPost)
	router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	// Preflight requests match here; the CORS middleware answers them.
	router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	s.router = router
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(errors.ErrCodeUnknown, "http server failed", err)
	}

	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError maps an engine error to its HTTP status and writes the error
// body. Client errors log at debug, server errors at error.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r.Context())),
			zap.Error(err),
		)
	} else {
		s.logger.Debug("request rejected",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r.Context())),
			zap.Error(err),
		)
	}

	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusForError maps engine error codes onto HTTP statuses. Anything without
// a recognized code is a server fault.
func statusForError(err error) int {
	switch {
	case errors.HasCode(err, errors.ErrCodeInvalidArgument),
		errors.HasCode(err, errors.ErrCodeInvalidWindow),
		errors.HasCode(err, errors.ErrCodeInvalidSeries),
		errors.HasCode(err, errors.ErrCodeUnknownIndicator),
		errors.HasCode(err, errors.ErrCodeUnknownStrategy),
		errors.HasCode(err, errors.ErrCodeUnknownMethod):
		return http.StatusBadRequest
	case errors.HasCode(err, errors.ErrCodeSymbolNotFound):
		return http.StatusNotFound
	case errors.IsInsufficientDataError(err),
		errors.HasCode(err, errors.ErrCodeInsufficientData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

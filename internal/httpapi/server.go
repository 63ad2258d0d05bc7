package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"strategylab/internal/backtest"
	"strategylab/internal/domain"
	"strategylab/internal/metrics"
	"strategylab/internal/store"
	"strategylab/internal/strategy"
)

// maxBodyBytes bounds a run request body.
const maxBodyBytes = 1 << 20

// Backtester is the subset of *backtest.Service served over HTTP.
type Backtester interface {
	Run(ctx context.Context, userID string, cfg domain.StrategyConfig) (*domain.BacktestResult, error)
	Get(ctx context.Context, id string) (*domain.BacktestResult, error)
	List(ctx context.Context, f store.ResultFilter) ([]domain.ResultSummary, error)
	Indicators(ctx context.Context, symbol, period, interval string) (*backtest.IndicatorReport, error)
}

var _ Backtester = (*backtest.Service)(nil)

// Server serves the backtest HTTP API.
type Server struct {
	svc         Backtester
	registry    *strategy.Registry
	metricsPath string
	log         *slog.Logger
}

// NewServer creates a new HTTP API server. An empty metricsPath disables the
// Prometheus endpoint.
func NewServer(svc Backtester, registry *strategy.Registry, metricsPath string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		svc:         svc,
		registry:    registry,
		metricsPath: metricsPath,
		log:         log.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/backtests", s.handleRun)
	mux.HandleFunc("GET /api/backtests", s.handleList)
	mux.HandleFunc("GET /api/backtests/{id}", s.handleGet)
	mux.HandleFunc("GET /api/strategies", s.handleStrategies)
	mux.HandleFunc("GET /api/indicators/{symbol}", s.handleIndicators)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metricsPath != "" {
		mux.Handle("GET "+s.metricsPath, metrics.Handler())
	}
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorJSON{Error: msg})
}

// writeServiceError maps a service error onto a status code.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var perr *domain.PersistenceError
	switch {
	case errors.As(err, &perr):
		body := ErrorJSON{Error: err.Error()}
		if perr.Result != nil {
			body.ResultID = perr.Result.ID
		}
		writeJSON(w, http.StatusInternalServerError, body)
	case errors.Is(err, domain.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInsufficientData):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.log.Warn("request failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}

	res, err := s.svc.Run(r.Context(), req.UserID, req.StrategyConfig)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ResultFilter{
		UserID:   q.Get("userId"),
		Symbol:   strings.ToUpper(q.Get("symbol")),
		Strategy: domain.StrategyType(strings.ToUpper(q.Get("strategy"))),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}

	rows, err := s.svc.List(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.ResultSummary{}
	}
	writeJSON(w, http.StatusOK, ListJSON{Count: len(rows), Results: rows})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StrategiesJSON{
		Strategies: s.registry.Describe(),
		Defaults:   domain.DefaultStrategyParams(),
	})
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	q := r.URL.Query()
	period := q.Get("period")
	if period == "" {
		period = "6mo"
	}
	rep, err := s.svc.Indicators(r.Context(), symbol, period, q.Get("interval"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"apod_etl/internal/logger"
	"apod_etl/internal/middleware"
	"apod_etl/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Reader — часть хранилища, нужная HTTP-обработчикам.
type Reader interface {
	Latest(ctx context.Context, limit int) ([]models.Row, error)
	Ping(ctx context.Context) error
}

// Server хранит зависимости HTTP-обработчиков.
type Server struct {
	db       Reader
	gatherer prometheus.Gatherer
}

// NewServer создаёт Server. Метрики отдаются из gatherer.
func NewServer(db Reader, gatherer prometheus.Gatherer) *Server {
	return &Server{db: db, gatherer: gatherer}
}

// Handler возвращает маршрутизатор с middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/apod/{limit}", s.GetAPOD)
	mux.HandleFunc("GET /api/apod", s.GetAPOD)
	mux.HandleFunc("GET /health", s.HealthCheck)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	return handler
}

// HealthCheck отвечает 200 OK, если хранилище доступно, иначе 503.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		http.Error(w, "DB unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("OK"))
}

// GetAPOD возвращает JSON-массив последних limit записей, начиная с самой новой.
func (s *Server) GetAPOD(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.PathValue("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := s.db.Latest(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).WithField("request_id", middleware.RequestID(r.Context())).
			Error("Failed to read apod_data")
		http.Error(w, "Failed to read records", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []models.Row{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

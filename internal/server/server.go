package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomide-ak/invoice-bridge/internal/export"
	"github.com/tomide-ak/invoice-bridge/internal/pipeline"
	"github.com/tomide-ak/invoice-bridge/internal/repository"
)

// Server is the HTTP adapter over the processing pipeline and the outcome
// repository. It owns no business logic; every handler delegates and maps
// results onto status codes.
type Server struct {
	orchestrator *pipeline.Orchestrator
	outcomes     repository.OutcomeRepository
	exporter     *export.Service
	logger       *slog.Logger

	// defaultStrict applies when a process request carries no strict query
	// parameter.
	defaultStrict bool
}

func New(orchestrator *pipeline.Orchestrator, outcomes repository.OutcomeRepository, exporter *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		orchestrator: orchestrator,
		outcomes:     outcomes,
		exporter:     exporter,
		logger:       logger,
	}
}

// WithDefaultStrict sets the strict-validation default for process requests
// that do not specify one.
func (s *Server) WithDefaultStrict(strict bool) *Server {
	s.defaultStrict = strict
	return s
}

// Router builds the full route table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/invoices", func(r chi.Router) {
		r.Post("/process", s.handleProcess)
		r.Get("/", s.handleList)
		r.Get("/counts", s.handleCounts)
		r.Get("/export", s.handleExport)
		r.Delete("/{trackingID}", s.handleDelete)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("http.respond.encode_failed", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorBody{Error: message})
}

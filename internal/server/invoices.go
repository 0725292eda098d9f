package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomide-ak/invoice-bridge/internal/pipeline"
	"github.com/tomide-ak/invoice-bridge/internal/repository"
)

// maxUploadBytes caps the multipart body so an oversized submission fails
// fast instead of buffering unbounded input.
const maxUploadBytes = 10 << 20

// handleProcess accepts one invoice document as multipart form field "file"
// and runs it through the pipeline. A processing failure is a structured
// 200 body; only upload rejections are 400 and internal faults 500.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "multipart form required with a 'file' field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing 'file' field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	strict := s.defaultStrict
	if raw := r.URL.Query().Get("strict"); raw != "" {
		strict, err = strconv.ParseBool(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "strict must be a boolean")
			return
		}
	}

	res, err := s.orchestrator.Process(r.Context(), pipeline.Submission{
		Filename:    header.Filename,
		ContentType: contentTypeOf(header.Header.Get("Content-Type"), header.Filename),
		Content:     content,
		Strict:      strict,
	})
	if err != nil {
		var uploadErr *pipeline.UploadError
		if errors.As(err, &uploadErr) {
			s.respondError(w, http.StatusBadRequest, uploadErr.Message)
			return
		}
		s.logger.Error("http.process.failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal processing error")
		return
	}

	status := http.StatusOK
	if res.Success {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, res)
}

// contentTypeOf normalizes the uploaded part's media type, falling back to
// the filename extension when the client sent the generic octet-stream.
func contentTypeOf(raw, filename string) string {
	mediaType := raw
	if parsed, _, err := mime.ParseMediaType(raw); err == nil {
		mediaType = parsed
	}
	if (mediaType == "" || mediaType == "application/octet-stream") &&
		strings.HasSuffix(strings.ToLower(filename), ".xml") {
		return "text/xml"
	}
	return mediaType
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.outcomes == nil {
		s.respondError(w, http.StatusServiceUnavailable, "outcome storage not configured")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := s.outcomes.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("http.list.failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "could not list invoices")
		return
	}

	out := make([]outcomeView, 0, len(rows))
	for _, o := range rows {
		out = append(out, newOutcomeView(o))
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"invoices": out, "count": len(out)})
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	if s.outcomes == nil {
		s.respondError(w, http.StatusServiceUnavailable, "outcome storage not configured")
		return
	}
	counts, err := s.outcomes.Counts(r.Context())
	if err != nil {
		s.logger.Error("http.counts.failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "could not count invoices")
		return
	}
	s.respondJSON(w, http.StatusOK, counts)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if s.outcomes == nil {
		s.respondError(w, http.StatusServiceUnavailable, "outcome storage not configured")
		return
	}
	trackingID := chi.URLParam(r, "trackingID")
	if strings.TrimSpace(trackingID) == "" {
		s.respondError(w, http.StatusBadRequest, "tracking id is required")
		return
	}

	err := s.outcomes.SoftDelete(r.Context(), trackingID)
	switch {
	case errors.Is(err, repository.ErrOutcomeNotFound):
		s.respondError(w, http.StatusNotFound, "invoice not found")
	case err != nil:
		s.logger.Error("http.delete.failed", "tracking_id", trackingID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "could not delete invoice")
	default:
		s.respondJSON(w, http.StatusOK, map[string]string{
			"tracking_id": trackingID,
			"status":      "deleted",
		})
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		s.respondError(w, http.StatusServiceUnavailable, "export not configured")
		return
	}

	limit := 1000
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	xlsx, err := s.exporter.ExportOutcomesXLSX(r.Context(), limit)
	if err != nil {
		s.logger.Error("http.export.failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "could not build export")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="invoice-outcomes.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}

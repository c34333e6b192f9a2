package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rujoshi/zonetrack/internal/auth"
	"github.com/rujoshi/zonetrack/internal/domain"
	"github.com/rujoshi/zonetrack/internal/photostore"
	"github.com/rujoshi/zonetrack/internal/service"
)

type Server struct {
	service       *service.WorkService
	photoStore    photostore.PhotoStore
	authn         auth.Authenticator
	mux           *http.ServeMux
	logger        *slog.Logger
	maxPhotoBytes int64
}

func NewServer(svc *service.WorkService, ps photostore.PhotoStore, authn auth.Authenticator, logger *slog.Logger, maxPhotoBytes int64) *Server {
	s := &Server{
		service:       svc,
		photoStore:    ps,
		authn:         authn,
		mux:           http.NewServeMux(),
		logger:        logger,
		maxPhotoBytes: maxPhotoBytes,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /zones/{id}/work", s.handleSubmitBeforePhoto)
	s.mux.HandleFunc("POST /work/{workId}/after-photo", s.handleSubmitAfterPhoto)
	s.mux.HandleFunc("DELETE /work/{workId}/after-photo/{photoId}", s.handleDeleteAfterPhoto)
	s.mux.HandleFunc("POST /zones/{id}/approve", s.handleApprove)
	s.mux.HandleFunc("GET /zones/{id}/archive", s.handleListArchive)
	s.mux.HandleFunc("GET /zones/{id}", s.handleGetZone)
	s.mux.HandleFunc("GET /zones", s.handleListZones)
	s.mux.HandleFunc("GET /uploads/{key}", s.handleGetUpload)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(metricsMiddleware(s.mux))).ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// principal resolves the caller, writing a 401 on failure. The boolean
// reports whether the handler may proceed.
func (s *Server) principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, err := s.authn.Principal(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return domain.Principal{}, false
	}
	return p, true
}

func parseZoneID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, domain.ErrValidation
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps the error taxonomy to HTTP statuses. Validation and
// precondition failures surface their message so the caller can correct the
// request; everything else is an opaque 500.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrPrecondition):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zt_http_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zt_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	photoUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zt_photo_uploads_total",
			Help: "Photos accepted, by evidence kind",
		},
		[]string{"kind"},
	)

	approvalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zt_approvals_total",
			Help: "Approval decisions recorded, by outcome",
		},
		[]string{"outcome"},
	)
)

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Path params are collapsed to placeholders to keep label
		// cardinality bounded.
		path := normalizePath(r.URL.Path)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case path == "/zones" || path == "/health" || path == "/metrics":
		return path
	case strings.HasPrefix(path, "/uploads/"):
		return "/uploads/{key}"
	case strings.HasPrefix(path, "/zones/"):
		switch {
		case strings.HasSuffix(path, "/work"):
			return "/zones/{id}/work"
		case strings.HasSuffix(path, "/approve"):
			return "/zones/{id}/approve"
		case strings.HasSuffix(path, "/archive"):
			return "/zones/{id}/archive"
		default:
			return "/zones/{id}"
		}
	case strings.HasPrefix(path, "/work/"):
		if strings.Contains(path, "/after-photo/") {
			return "/work/{workId}/after-photo/{photoId}"
		}
		return "/work/{workId}/after-photo"
	}
	return path
}

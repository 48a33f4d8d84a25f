// metrics.go — Prometheus HTTP метрики Ingest Viewer.
// Регистрирует метрики: iv_http_requests_total, iv_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики Ingest Viewer
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iv_http_requests_total",
			Help: "Общее количество HTTP-запросов к Ingest Viewer",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iv_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Ingest Viewer в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			status := strconv.Itoa(wrapped.statusCode)
			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath сводит динамические пути к шаблонам:
// /table/records/42/json → /table/records/{id}/json
// /static/youtube/a.mp4 → /static/*
// /assets/css/viewer.css → /assets/*
// Неизвестные пути сводятся к "other".
func normalizePath(path string) string {
	switch path {
	case "/", "/health/live", "/health/ready", "/metrics",
		"/table/source", "/table/limit", "/table/prev", "/table/next", "/table/refresh",
		"/modal/close", "/alert/dismiss":
		return path
	}

	switch {
	case strings.HasPrefix(path, "/table/records/") && strings.HasSuffix(path, "/json"):
		return "/table/records/{id}/json"
	case strings.HasPrefix(path, "/static/"):
		return "/static/*"
	case strings.HasPrefix(path, "/assets/"):
		return "/assets/*"
	}
	return "other"
}

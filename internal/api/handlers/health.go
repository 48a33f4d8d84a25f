// Пакет handlers — служебные HTTP-обработчики Ingest Viewer.
// health.go — health endpoints:
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (backend метаданных доступен)
// /metrics — Prometheus метрики
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/benito334/ingest-viewer/internal/config"
)

const serviceName = "ingest-viewer"

// Константы статусов health check.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// ReadinessChecker — интерфейс проверки готовности зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
	CheckReady() (status, message string)
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	backendChecker ReadinessChecker
	promHandler    http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
// backendChecker — проверка backend (nil — мониторинг отключён, readiness всегда ok).
func NewHealthHandler(backendChecker ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		backendChecker: backendChecker,
		promHandler:    promhttp.Handler(),
	}
}

// healthCheckResult — результат проверки одной зависимости.
type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthLiveResponse — ответ liveness probe.
type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

// healthReadyResponse — ответ readiness probe.
type healthReadyResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
	Checks    struct {
		Backend healthCheckResult `json:"backend"`
	} `json:"checks"`
}

// HealthLive — liveness probe. Возвращает 200 если процесс жив.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	resp := healthLiveResponse{
		Status:    statusOK,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// HealthReady — readiness probe. Проверяет backend метаданных.
// Возвращает 200 (ok/degraded) или 503 (fail).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	resp := healthReadyResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	}

	if h.backendChecker != nil {
		st, msg := h.backendChecker.CheckReady()
		resp.Checks.Backend = healthCheckResult{Status: st, Message: msg}
	} else {
		resp.Checks.Backend = healthCheckResult{Status: statusOK, Message: "мониторинг отключён"}
	}

	resp.Status = overallStatus(resp.Checks.Backend.Status)

	w.Header().Set("Content-Type", "application/json")
	if resp.Status == statusFail {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

// overallStatus определяет итоговый статус из статусов зависимостей.
// Если хотя бы одна зависимость fail, итог fail.
// Если хотя бы одна degraded, итог degraded.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		if s == statusFail {
			return statusFail
		}
		if s == statusDegraded {
			hasDegraded = true
		}
	}
	if hasDegraded {
		return statusDegraded
	}
	return statusOK
}

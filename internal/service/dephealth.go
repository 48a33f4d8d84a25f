// Пакет service — фоновые сервисы Ingest Viewer.
//
// dephealth.go — интеграция с topologymetrics SDK для мониторинга backend метаданных.
// Ingest Viewer мониторит одну зависимость: API backend (HTTP checker, critical).
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health: состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds: задержка проверки
//   - app_dependency_status: категория статуса
//   - app_dependency_status_detail: детальный статус
package service

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/prometheus/client_golang/prometheus"
)

// BackendDependency — имя зависимости backend в метриках и Health().
const BackendDependency = "ingest-api"

// DephealthService — сервис мониторинга backend через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// DephealthConfig — параметры мониторинга.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	// Group — имя группы в метриках (IV_DEPHEALTH_GROUP)
	Group string
	// BackendURL — базовый URL backend метаданных
	BackendURL string
	// HealthPath — путь проверки на backend (IV_DEPHEALTH_HEALTH_PATH)
	HealthPath string
	// CheckInterval — интервал проверки (IV_DEPHEALTH_CHECK_INTERVAL)
	CheckInterval time.Duration
}

// NewDephealthService создаёт сервис мониторинга.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	cfg DephealthConfig,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(cfg, logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(cfg DephealthConfig, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	depOpts := []dephealth.DependencyOption{
		dephealth.FromURL(cfg.BackendURL),
		dephealth.WithHTTPHealthPath(healthCheckPath(cfg.BackendURL, cfg.HealthPath)),
		dephealth.CheckInterval(cfg.CheckInterval),
		dephealth.Critical(true),
	}
	if parsed, err := url.Parse(cfg.BackendURL); err == nil && parsed.Scheme == "https" {
		depOpts = append(depOpts, dephealth.WithHTTPTLSSkipVerify(false))
	}

	opts := make([]dephealth.Option, 0, 2+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		dephealth.HTTP(BackendDependency, depOpts...),
	)
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// healthCheckPath добавляет к пути проверки префикс пути из BackendURL:
// FromURL учитывает только host и port.
func healthCheckPath(backendURL, healthPath string) string {
	parsed, err := url.Parse(backendURL)
	if err != nil {
		return healthPath
	}
	return strings.TrimRight(parsed.Path, "/") + healthPath
}

// Start запускает периодическую проверку backend.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг backend запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг backend остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ "имя:host:port", значение true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

// CheckReady реализует handlers.ReadinessChecker по состоянию backend.
// До первой проверки backend считается недоступным.
func (ds *DephealthService) CheckReady() (status, message string) {
	for key, ok := range ds.Health() {
		if !strings.HasPrefix(key, BackendDependency+":") {
			continue
		}
		if ok {
			return "ok", ""
		}
		return "fail", "backend недоступен"
	}
	return "fail", "backend ещё не проверен"
}

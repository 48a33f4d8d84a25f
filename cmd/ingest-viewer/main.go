// main.go — точка входа Ingest Viewer.
// Собирает конфигурацию, клиент backend, хранилище сессий,
// мониторинг backend и HTTP-сервер.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/benito334/ingest-viewer/internal/api/handlers"
	"github.com/benito334/ingest-viewer/internal/config"
	"github.com/benito334/ingest-viewer/internal/metaclient"
	"github.com/benito334/ingest-viewer/internal/server"
	"github.com/benito334/ingest-viewer/internal/service"
	"github.com/benito334/ingest-viewer/internal/session"
	uihandlers "github.com/benito334/ingest-viewer/internal/ui/handlers"
	"github.com/benito334/ingest-viewer/internal/viewer"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения (и .env)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Ingest Viewer запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("api_base_url", cfg.APIBaseURL),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Клиент backend метаданных
	client, err := metaclient.New(metaclient.Config{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.APITimeout,
		CACertPath: cfg.APICACertPath,
	}, logger)
	if err != nil {
		log.Fatalf("Ошибка создания клиента backend: %v", err)
	}

	// 4. Хранилище сессий: у каждой сессии своя таблица
	sessions := session.NewStore(cfg.SessionMax, cfg.SessionTTL, cfg.CookieSecure, func() *viewer.Table {
		return viewer.NewTable(client, logger)
	})

	// 5. topologymetrics: мониторинг backend
	var backendChecker handlers.ReadinessChecker
	if cfg.DephealthEnabled {
		dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
			ServiceID:     "ingest-viewer",
			Group:         cfg.DephealthGroup,
			BackendURL:    cfg.APIBaseURL,
			HealthPath:    cfg.DephealthHealthPath,
			CheckInterval: cfg.DephealthCheckInterval,
		}, logger)
		if dephealthErr != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга backend",
				slog.String("error", dephealthErr.Error()),
			)
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			defer dephealthSvc.Stop()
			backendChecker = dephealthSvc
			logger.Info("topologymetrics запущен",
				slog.String("health_path", cfg.DephealthHealthPath),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 6. Прокси /static/* к backend
	staticProxy, err := server.NewStaticProxy(client.BaseURL(), client.Transport(), logger)
	if err != nil {
		log.Fatalf("Ошибка создания прокси /static: %v", err)
	}

	// 7. HTTP-сервер
	srv := server.New(cfg, logger, server.Components{
		Viewer:   uihandlers.NewViewerHandler(logger),
		Health:   handlers.NewHealthHandler(backendChecker),
		Sessions: sessions,
		Static:   staticProxy,
	})

	// 8. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		cancel()
		log.Fatalf("Сервер завершился с ошибкой: %v", err)
	}

	logger.Info("Ingest Viewer остановлен")
}

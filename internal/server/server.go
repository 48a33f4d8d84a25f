// Пакет server — HTTP-сервер Ingest Viewer с graceful shutdown.
// Без TLS: HTTP внутри кластера, TLS termination на ingress.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/benito334/ingest-viewer/internal/api/handlers"
	"github.com/benito334/ingest-viewer/internal/api/middleware"
	"github.com/benito334/ingest-viewer/internal/config"
	"github.com/benito334/ingest-viewer/internal/session"
	uihandlers "github.com/benito334/ingest-viewer/internal/ui/handlers"
	"github.com/benito334/ingest-viewer/internal/ui/static"
)

// Components — обработчики, из которых собирается роутер.
type Components struct {
	Viewer   *uihandlers.ViewerHandler
	Health   *handlers.HealthHandler
	Sessions *session.Store
	// Static — обработчик /static/* (прокси к backend)
	Static http.Handler
}

// Server — HTTP-сервер Ingest Viewer.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, c Components) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, c),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты:
// страница и действия таблицы (с сессией), /static/* и /assets/*,
// health endpoints и /metrics (без сессии).
func NewRouter(logger *slog.Logger, c Components) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	router.Get("/health/live", c.Health.HealthLive)
	router.Get("/health/ready", c.Health.HealthReady)
	router.Get("/metrics", c.Health.GetMetrics)

	router.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(static.FileSystem())))
	router.Handle("/static/*", c.Static)

	router.Group(func(r chi.Router) {
		r.Use(c.Sessions.Middleware())

		r.Get("/", c.Viewer.HandlePage)
		r.Post("/table/source", c.Viewer.HandleSource)
		r.Post("/table/limit", c.Viewer.HandleLimit)
		r.Post("/table/prev", c.Viewer.HandlePrev)
		r.Post("/table/next", c.Viewer.HandleNext)
		r.Post("/table/refresh", c.Viewer.HandleRefresh)
		r.Post("/table/records/{id}/json", c.Viewer.HandleRecordJSON)
		r.Post("/modal/close", c.Viewer.HandleModalClose)
		r.Post("/alert/dismiss", c.Viewer.HandleAlertDismiss)
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}

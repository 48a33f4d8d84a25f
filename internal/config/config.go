// Пакет config — загрузка и валидация конфигурации Ingest Viewer
// из переменных окружения (и необязательного .env файла).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// DefaultAPIBaseURL — адрес backend по умолчанию (локальная разработка).
const DefaultAPIBaseURL = "http://localhost:8000"

// Config содержит все параметры конфигурации Ingest Viewer.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Backend API ---

	// Базовый URL backend с /api/metadata и /static/*
	APIBaseURL string
	// Таймаут исходящих запросов к backend (0 отключает таймаут)
	APITimeout time.Duration
	// Путь к CA-сертификату для https backend (опционально).
	// Используется клиентом и прокси /static. Проверка topologymetrics
	// доверяет только системным CA: для backend с частным CA отключите
	// её через IV_DEPHEALTH_ENABLED=false.
	APICACertPath string

	// --- Сессии UI ---

	// Время жизни неактивной сессии
	SessionTTL time.Duration
	// Максимальное количество одновременно живущих сессий
	SessionMax int
	// Флаг Secure для cookie сессии
	CookieSecure bool

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- topologymetrics ---

	// Включён ли мониторинг backend через topologymetrics
	DephealthEnabled bool
	// Имя группы в метриках зависимостей
	DephealthGroup string
	// Интервал проверки backend
	DephealthCheckInterval time.Duration
	// Путь health-проверки на backend, относительно пути из APIBaseURL
	DephealthHealthPath string

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Вне production сначала подхватывается .env из рабочего каталога,
// уже заданные переменные окружения им не перезаписываются.
func Load() (*Config, error) {
	if os.Getenv("IV_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf(".env: %w", err)
		}
	}

	cfg := &Config{}
	var err error

	// --- Сервер ---

	// IV_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("IV_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("IV_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("IV_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// IV_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("IV_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("IV_LOG_LEVEL: %w", err)
	}

	// IV_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("IV_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("IV_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Backend API ---

	// IV_API_BASE_URL — базовый URL backend (по умолчанию локальный адрес разработки)
	cfg.APIBaseURL = strings.TrimRight(getEnvDefault("IV_API_BASE_URL", DefaultAPIBaseURL), "/")
	parsed, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("IV_API_BASE_URL: некорректный URL %q (ожидается http(s)://host[:port])", cfg.APIBaseURL)
	}

	// IV_API_TIMEOUT — таймаут запросов к backend (по умолчанию 30s, 0 — без таймаута)
	cfg.APITimeout, err = getEnvDuration("IV_API_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IV_API_TIMEOUT: %w", err)
	}
	if cfg.APITimeout < 0 {
		return nil, fmt.Errorf("IV_API_TIMEOUT: значение не может быть отрицательным")
	}

	// IV_API_CA_CERT_PATH — CA-сертификат backend (опционально)
	cfg.APICACertPath = getEnvDefault("IV_API_CA_CERT_PATH", "")

	// --- Сессии UI ---

	// IV_SESSION_TTL — время жизни сессии (по умолчанию 1h)
	cfg.SessionTTL, err = getEnvDuration("IV_SESSION_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("IV_SESSION_TTL: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("IV_SESSION_TTL: значение должно быть > 0")
	}

	// IV_SESSION_MAX — максимум сессий (по умолчанию 1000)
	cfg.SessionMax, err = getEnvInt("IV_SESSION_MAX", 1000)
	if err != nil {
		return nil, fmt.Errorf("IV_SESSION_MAX: %w", err)
	}
	if cfg.SessionMax < 1 {
		return nil, fmt.Errorf("IV_SESSION_MAX: значение %d должно быть >= 1", cfg.SessionMax)
	}

	// IV_COOKIE_SECURE — флаг Secure для cookie (по умолчанию false)
	cfg.CookieSecure, err = getEnvBool("IV_COOKIE_SECURE", false)
	if err != nil {
		return nil, fmt.Errorf("IV_COOKIE_SECURE: %w", err)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("IV_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IV_HTTP_READ_TIMEOUT: %w", err)
	}

	cfg.HTTPWriteTimeout, err = getEnvDuration("IV_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IV_HTTP_WRITE_TIMEOUT: %w", err)
	}

	cfg.HTTPIdleTimeout, err = getEnvDuration("IV_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IV_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- topologymetrics ---

	// IV_DEPHEALTH_ENABLED — мониторинг backend (по умолчанию true)
	cfg.DephealthEnabled, err = getEnvBool("IV_DEPHEALTH_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("IV_DEPHEALTH_ENABLED: %w", err)
	}

	// IV_DEPHEALTH_GROUP — группа в метриках (по умолчанию ingest-viewer)
	cfg.DephealthGroup = getEnvDefault("IV_DEPHEALTH_GROUP", "ingest-viewer")

	// IV_DEPHEALTH_CHECK_INTERVAL — интервал проверки (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("IV_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IV_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// IV_DEPHEALTH_HEALTH_PATH — путь проверки backend
	cfg.DephealthHealthPath = getEnvDefault("IV_DEPHEALTH_HEALTH_PATH", "/api/metadata?limit=1")
	if !strings.HasPrefix(cfg.DephealthHealthPath, "/") {
		return nil, fmt.Errorf("IV_DEPHEALTH_HEALTH_PATH: путь %q должен начинаться с /", cfg.DephealthHealthPath)
	}

	// --- Graceful shutdown ---

	// IV_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("IV_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IV_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

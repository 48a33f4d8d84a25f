// Пакет metaclient — HTTP-клиент backend хранилища метаданных.
// Запрашивает страницы записей (GET /api/metadata) и sidecar JSON
// из статики backend (GET /static/...).
package metaclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/benito334/ingest-viewer/internal/domain/model"
)

// DefaultLimit — размер страницы, если в запросе он не задан.
const DefaultLimit = 50

// Метки endpoint для метрик.
const (
	endpointMetadata = "metadata"
	endpointSidecar  = "sidecar"
)

// Prometheus-метрики обращений к backend.
var (
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iv_backend_requests_total",
			Help: "Общее количество запросов Ingest Viewer к backend.",
		},
		[]string{"endpoint", "status"},
	)
	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iv_backend_request_duration_seconds",
			Help:    "Длительность запросов к backend в секундах.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

// Config — параметры клиента. Передаются явно при создании,
// клиент не читает переменные окружения.
type Config struct {
	// BaseURL — базовый URL backend (например, http://localhost:8000)
	BaseURL string
	// Timeout — таймаут запросов (0 — без таймаута)
	Timeout time.Duration
	// CACertPath — путь к CA-сертификату для https (пустая строка — системный пул)
	CACertPath string
	// HTTPClient — готовый HTTP-клиент; если задан, Timeout и CACertPath игнорируются
	HTTPClient *http.Client
}

// Query — параметры запроса страницы метаданных.
type Query struct {
	// Limit — размер страницы (<= 0 — DefaultLimit)
	Limit int
	// Offset — количество пропускаемых записей (< 0 — 0)
	Offset int
	// SourceType — фильтр по источнику; пустое значение и "all" не передаются
	SourceType model.SourceType
}

// Values формирует query string запроса.
// limit и offset передаются всегда, включая offset=0 для первой страницы.
func (q Query) Values() url.Values {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	v := url.Values{}
	v.Set("limit", strconv.Itoa(limit))
	v.Set("offset", strconv.Itoa(offset))
	if q.SourceType != "" && q.SourceType != model.SourceAll {
		v.Set("source_type", string(q.SourceType))
	}
	return v
}

// StatusError — backend ответил статусом вне диапазона 2xx.
type StatusError struct {
	// StatusCode — HTTP-статус ответа
	StatusCode int
	// Body — тело ответа как текст
	Body string
	// What — что запрашивалось (для сообщения)
	What string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("не удалось получить %s: %d %s", e.What, e.StatusCode, strings.TrimSpace(e.Body))
}

// Client — HTTP-клиент backend метаданных.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// New создаёт клиент backend.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("некорректный base URL backend %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
		if cfg.CACertPath != "" {
			tlsConfig, err := buildTLSConfig(cfg.CACertPath)
			if err != nil {
				return nil, fmt.Errorf("загрузка CA-сертификата backend: %w", err)
			}
			httpClient.Transport = &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: tlsConfig,
			}
			logger.Info("CA-сертификат backend добавлен в пул доверия",
				slog.String("ca_cert", cfg.CACertPath),
			)
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		logger:     logger.With(slog.String("component", "metaclient")),
	}, nil
}

// BaseURL возвращает базовый URL backend без trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Transport возвращает транспорт клиента (с CA backend, если задан).
// Используется прокси /static/*, чтобы скачивание шло с теми же TLS-настройками.
func (c *Client) Transport() http.RoundTripper {
	if c.httpClient.Transport != nil {
		return c.httpClient.Transport
	}
	return http.DefaultTransport
}

// ResolveURL превращает относительный путь (/static/...) в абсолютный URL backend.
// Абсолютные URL возвращаются без изменений.
func (c *Client) ResolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// GetMetadata запрашивает страницу записей.
// GET /api/metadata?limit=..&offset=..[&source_type=..]
// Тело успешного ответа декодируется без проверки схемы;
// отсутствующий records превращается в пустой срез.
func (c *Client) GetMetadata(ctx context.Context, q Query) (*model.Page, error) {
	reqURL := c.baseURL + "/api/metadata?" + q.Values().Encode()

	resp, err := c.do(ctx, endpointMetadata, reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readStatusError(resp, "метаданные")
	}

	var page model.Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("декодирование ответа /api/metadata: %w", err)
	}
	if page.Records == nil {
		page.Records = []model.MetadataRecord{}
	}

	c.logger.Debug("Страница метаданных получена",
		slog.Int("limit", q.Limit),
		slog.Int("offset", q.Offset),
		slog.String("source_type", string(q.SourceType)),
		slog.Int("records", len(page.Records)),
	)
	return &page, nil
}

// GetSidecar запрашивает sidecar JSON по URL статики (/static/....json).
// Содержимое произвольное, возвращается как есть после проверки, что это JSON.
func (c *Client) GetSidecar(ctx context.Context, sidecarURL string) (json.RawMessage, error) {
	resp, err := c.do(ctx, endpointSidecar, c.ResolveURL(sidecarURL))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readStatusError(resp, "sidecar "+sidecarURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("чтение sidecar %s: %w", sidecarURL, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("sidecar %s: ответ не является JSON", sidecarURL)
	}
	return json.RawMessage(body), nil
}

// do выполняет GET-запрос и обновляет метрики.
func (c *Client) do(ctx context.Context, endpoint, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:gosec // G107: URL из конфигурации
	backendRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		backendRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("запрос %s к %s: %w", endpoint, c.baseURL, err)
	}
	backendRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}

// readStatusError читает тело ответа как текст и формирует StatusError.
func readStatusError(resp *http.Response, what string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		What:       what,
	}
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs:    caCertPool,
		MinVersion: tls.VersionTLS12,
	}, nil
}

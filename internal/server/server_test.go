package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/benito334/ingest-viewer/internal/api/handlers"
	"github.com/benito334/ingest-viewer/internal/metaclient"
	"github.com/benito334/ingest-viewer/internal/session"
	uihandlers "github.com/benito334/ingest-viewer/internal/ui/handlers"
	"github.com/benito334/ingest-viewer/internal/viewer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestRouter собирает роутер поверх mock backend.
func newTestRouter(t *testing.T, backend http.Handler) http.Handler {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	logger := testLogger()
	client, err := metaclient.New(metaclient.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, logger)
	if err != nil {
		t.Fatalf("metaclient.New: %v", err)
	}
	proxy, err := NewStaticProxy(client.BaseURL(), client.Transport(), logger)
	if err != nil {
		t.Fatalf("NewStaticProxy: %v", err)
	}

	return NewRouter(logger, Components{
		Viewer: uihandlers.NewViewerHandler(logger),
		Health: handlers.NewHealthHandler(nil),
		Sessions: session.NewStore(10, time.Minute, false, func() *viewer.Table {
			return viewer.NewTable(client, logger)
		}),
		Static: proxy,
	})
}

func backendMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/metadata", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"records":[]}`)
	})
	mux.HandleFunc("/static/youtube/clip.mp4", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "" {
			http.Error(w, "cookie не должна передаваться", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = io.WriteString(w, "video-bytes")
	})
	return mux
}

func TestRouter_Page(t *testing.T) {
	router := newTestRouter(t, backendMux())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d, ожидается 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No records yet.") {
		t.Error("ожидалась пустая таблица")
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), session.CookieName) {
		t.Error("ожидалась cookie сессии")
	}
}

func TestRouter_HealthWithoutSession(t *testing.T) {
	router := newTestRouter(t, backendMux())

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, ожидается 200", path, rec.Code)
		}
		if rec.Header().Get("Set-Cookie") != "" {
			t.Errorf("GET %s не должен создавать сессию", path)
		}
	}
}

func TestRouter_Assets(t *testing.T) {
	router := newTestRouter(t, backendMux())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/css/viewer.css", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /assets/css/viewer.css = %d, ожидается 200", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/css") {
		t.Errorf("Content-Type = %q, ожидается text/css", rec.Header().Get("Content-Type"))
	}
}

func TestRouter_StaticProxy(t *testing.T) {
	router := newTestRouter(t, backendMux())

	req := httptest.NewRequest(http.MethodGet, "/static/youtube/clip.mp4", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "x"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /static/... = %d, ожидается 200", rec.Code)
	}
	if rec.Body.String() != "video-bytes" {
		t.Errorf("тело = %q, ожидается video-bytes", rec.Body.String())
	}
}

func TestRouter_StaticProxyMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, backendMux())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/static/youtube/clip.mp4", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /static/... = %d, ожидается 405", rec.Code)
	}
}

func TestStaticProxy_BackendDown(t *testing.T) {
	proxy, err := NewStaticProxy("http://127.0.0.1:1", http.DefaultTransport, testLogger())
	if err != nil {
		t.Fatalf("NewStaticProxy: %v", err)
	}

	rec := httptest.NewRecorder()
	proxy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/a.mp4", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("статус = %d, ожидается 502", rec.Code)
	}
}

func TestRouter_UnknownActionMethod(t *testing.T) {
	router := newTestRouter(t, backendMux())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/table/next", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /table/next = %d, ожидается 405", rec.Code)
	}
}

package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(t *testing.T, backendURL, serviceID string) *DephealthService {
	t.Helper()
	ds, err := NewDephealthServiceWithRegisterer(DephealthConfig{
		ServiceID:     serviceID,
		Group:         "ingest-viewer",
		BackendURL:    backendURL,
		HealthPath:    "/api/metadata?limit=1",
		CheckInterval: 1 * time.Second,
	}, testLogger(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("Ошибка создания DephealthService: %v", err)
	}
	return ds
}

func TestNewDephealthService_ValidURL(t *testing.T) {
	ds := newTestService(t, "http://localhost:8000", "test-iv-01")
	if ds == nil {
		t.Fatal("DephealthService nil")
	}
}

func TestDephealthService_HealthyBackend(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer backend.Close()

	ds := newTestService(t, backend.URL, "test-iv-02")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ds.Start(ctx); err != nil {
		t.Fatalf("Ошибка запуска: %v", err)
	}
	defer ds.Stop()

	// Даём время на первую проверку (интервал 1s + запас)
	time.Sleep(3 * time.Second)

	found := false
	for key, val := range ds.Health() {
		if strings.HasPrefix(key, BackendDependency+":") {
			found = true
			if !val {
				t.Errorf("%s health = false, ожидалось true", key)
			}
		}
	}
	if !found {
		t.Errorf("Нет записи для %s в Health()", BackendDependency)
	}

	if status, msg := ds.CheckReady(); status != "ok" {
		t.Errorf("CheckReady = %s (%s), ожидается ok", status, msg)
	}
}

func TestDephealthService_UnhealthyBackend(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	ds := newTestService(t, backend.URL, "test-iv-03")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ds.Start(ctx); err != nil {
		t.Fatalf("Ошибка запуска: %v", err)
	}
	defer ds.Stop()

	time.Sleep(3 * time.Second)

	if status, _ := ds.CheckReady(); status != "fail" {
		t.Errorf("CheckReady = %s, ожидается fail (backend отвечает 500)", status)
	}
}

func TestHealthCheckPath(t *testing.T) {
	tests := []struct {
		backendURL string
		want       string
	}{
		{"http://backend:8000", "/api/metadata?limit=1"},
		{"http://backend:8000/", "/api/metadata?limit=1"},
		{"http://backend:8000/ingest", "/ingest/api/metadata?limit=1"},
		{"https://gw.example.com/ingest/v1/", "/ingest/v1/api/metadata?limit=1"},
	}

	for _, tt := range tests {
		if got := healthCheckPath(tt.backendURL, "/api/metadata?limit=1"); got != tt.want {
			t.Errorf("healthCheckPath(%q) = %q, ожидается %q", tt.backendURL, got, tt.want)
		}
	}
}

func TestDephealthService_PrefixedBackend(t *testing.T) {
	// Backend доступен только под префиксом /ingest
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ingest/api/metadata" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer backend.Close()

	ds := newTestService(t, backend.URL+"/ingest", "test-iv-05")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ds.Start(ctx); err != nil {
		t.Fatalf("Ошибка запуска: %v", err)
	}
	defer ds.Stop()

	time.Sleep(3 * time.Second)

	if status, msg := ds.CheckReady(); status != "ok" {
		t.Errorf("CheckReady = %s (%s), ожидается ok для backend с префиксом", status, msg)
	}
}

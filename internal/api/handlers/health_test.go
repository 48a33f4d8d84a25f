package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// stubChecker — фиксированный результат проверки.
type stubChecker struct {
	status, message string
}

func (s stubChecker) CheckReady() (string, string) {
	return s.status, s.message
}

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler(nil)
	rec := httptest.NewRecorder()
	h.HealthLive(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидается 200", rec.Code)
	}
	var resp healthLiveResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("декодирование ответа: %v", err)
	}
	if resp.Status != "ok" || resp.Service != "ingest-viewer" {
		t.Errorf("ответ = %+v", resp)
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		checker    ReadinessChecker
		wantCode   int
		wantStatus string
	}{
		{"мониторинг отключён", nil, http.StatusOK, "ok"},
		{"backend доступен", stubChecker{status: "ok"}, http.StatusOK, "ok"},
		{"backend деградирован", stubChecker{status: "degraded"}, http.StatusOK, "degraded"},
		{"backend недоступен", stubChecker{status: "fail", message: "backend недоступен"}, http.StatusServiceUnavailable, "fail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checker)
			rec := httptest.NewRecorder()
			h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("статус = %d, ожидается %d", rec.Code, tt.wantCode)
			}
			var resp healthReadyResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("декодирование ответа: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %s, ожидается %s", resp.Status, tt.wantStatus)
			}
		})
	}
}

func TestGetMetrics(t *testing.T) {
	h := NewHealthHandler(nil)
	rec := httptest.NewRecorder()
	h.GetMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидается 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("ожидались стандартные метрики Go")
	}
}

func TestOverallStatus(t *testing.T) {
	if got := overallStatus("ok", "degraded"); got != "degraded" {
		t.Errorf("overallStatus = %s, ожидается degraded", got)
	}
	if got := overallStatus("degraded", "fail"); got != "fail" {
		t.Errorf("overallStatus = %s, ожидается fail", got)
	}
	if got := overallStatus(); got != "ok" {
		t.Errorf("overallStatus = %s, ожидается ok", got)
	}
}

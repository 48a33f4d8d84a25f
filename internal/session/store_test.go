package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/benito334/ingest-viewer/internal/domain/model"
	"github.com/benito334/ingest-viewer/internal/metaclient"
	"github.com/benito334/ingest-viewer/internal/viewer"
)

// nopSource — источник без данных.
type nopSource struct{}

func (nopSource) GetMetadata(context.Context, metaclient.Query) (*model.Page, error) {
	return &model.Page{}, nil
}

func (nopSource) GetSidecar(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func newTestStore(size int, ttl time.Duration) *Store {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewStore(size, ttl, false, func() *viewer.Table {
		return viewer.NewTable(nopSource{}, logger)
	})
}

// sessionCookie возвращает cookie сессии из ответа.
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("cookie сессии не выставлена")
	return nil
}

func TestStore_NewSessionSetsCookie(t *testing.T) {
	store := newTestStore(10, time.Minute)

	rec := httptest.NewRecorder()
	sess := store.Get(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	c := sessionCookie(t, rec)
	if c.Value != sess.ID {
		t.Errorf("cookie = %q, ожидается %q", c.Value, sess.ID)
	}
	if !c.HttpOnly {
		t.Error("cookie сессии должна быть HttpOnly")
	}
	if sess.Table == nil {
		t.Fatal("у сессии должна быть таблица")
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, ожидается 1", store.Len())
	}
}

func TestStore_ReusesSessionByCookie(t *testing.T) {
	store := newTestStore(10, time.Minute)

	first := store.Get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: first.ID})
	second := store.Get(httptest.NewRecorder(), req)

	if first != second {
		t.Error("ожидалась та же сессия по cookie")
	}
	if first.Table != second.Table {
		t.Error("таблица сессии должна сохраняться между запросами")
	}
}

func TestStore_UnknownCookieCreatesSession(t *testing.T) {
	store := newTestStore(10, time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	sess := store.Get(httptest.NewRecorder(), req)

	if sess.ID == "forged" {
		t.Error("неизвестный идентификатор не должен приниматься")
	}
}

func TestStore_EvictsOldest(t *testing.T) {
	store := newTestStore(2, time.Minute)

	first := store.Get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	store.Get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	store.Get(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if store.Len() != 2 {
		t.Errorf("Len = %d, ожидается 2", store.Len())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: first.ID})
	if again := store.Get(httptest.NewRecorder(), req); again == first {
		t.Error("самая старая сессия должна быть вытеснена")
	}
}

func TestSession_Alert(t *testing.T) {
	sess := &Session{}
	if sess.Alert() != "" {
		t.Error("новая сессия не должна иметь alert")
	}
	sess.SetAlert("sidecar недоступен")
	if sess.Alert() != "sidecar недоступен" {
		t.Errorf("Alert = %q", sess.Alert())
	}
	sess.DismissAlert()
	if sess.Alert() != "" {
		t.Error("alert должен закрываться")
	}
}

func TestMiddleware_PutsSessionInContext(t *testing.T) {
	store := newTestStore(10, time.Minute)

	var got *Session
	h := store.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil {
		t.Fatal("сессия должна быть в контексте")
	}
	if c := sessionCookie(t, rec); c.Value != got.ID {
		t.Errorf("cookie = %q, ожидается %q", c.Value, got.ID)
	}
}

func TestFromContext_NoSession(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Error("без middleware сессии быть не должно")
	}
}

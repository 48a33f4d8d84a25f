// Пакет session — серверные сессии UI Ingest Viewer.
// Каждая сессия браузера владеет своим экземпляром таблицы (viewer.Table);
// сессии хранятся в памяти в LRU-кэше с TTL (hashicorp/golang-lru/v2/expirable)
// и идентифицируются UUID в cookie.
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/benito334/ingest-viewer/internal/viewer"
)

// CookieName — имя cookie с идентификатором сессии.
const CookieName = "iv_session"

// Prometheus-метрики сессий.
var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iv_sessions_active",
		Help: "Количество живых UI-сессий.",
	})
	sessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iv_sessions_created_total",
		Help: "Общее количество созданных UI-сессий.",
	})
)

// Session — состояние одной вкладки/браузера.
type Session struct {
	// ID — UUID сессии (значение cookie)
	ID string
	// Table — контроллер таблицы метаданных этой сессии
	Table *viewer.Table

	mu    sync.Mutex
	alert string
}

// SetAlert запоминает сообщение для блокирующего alert-окна.
func (s *Session) SetAlert(msg string) {
	s.mu.Lock()
	s.alert = msg
	s.mu.Unlock()
}

// Alert возвращает текущее сообщение alert-окна (пустое, если окна нет).
func (s *Session) Alert() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alert
}

// DismissAlert закрывает alert-окно.
func (s *Session) DismissAlert() {
	s.SetAlert("")
}

// TableFactory создаёт таблицу для новой сессии.
type TableFactory func() *viewer.Table

// Store — хранилище сессий.
type Store struct {
	cache    *expirable.LRU[string, *Session]
	newTable TableFactory
	ttl      time.Duration
	secure   bool
}

// NewStore создаёт хранилище на maxSize сессий с временем жизни ttl.
// secure — выставлять ли флаг Secure у cookie.
func NewStore(maxSize int, ttl time.Duration, secure bool, newTable TableFactory) *Store {
	onEvict := func(_ string, _ *Session) {
		sessionsActive.Dec()
	}
	return &Store{
		cache:    expirable.NewLRU[string, *Session](maxSize, onEvict, ttl),
		newTable: newTable,
		ttl:      ttl,
		secure:   secure,
	}
}

// Get возвращает сессию запроса. Если cookie нет или сессия истекла,
// создаётся новая и cookie выставляется в ответ.
func (s *Store) Get(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(CookieName); err == nil {
		if sess, ok := s.cache.Get(c.Value); ok {
			// Продлеваем TTL: expirable считает время от последнего Add
			s.cache.Add(sess.ID, sess)
			s.setCookie(w, sess.ID)
			return sess
		}
	}

	sess := &Session{
		ID:    uuid.NewString(),
		Table: s.newTable(),
	}
	s.cache.Add(sess.ID, sess)
	sessionsActive.Inc()
	sessionsCreatedTotal.Inc()

	s.setCookie(w, sess.ID)
	return sess
}

// setCookie выставляет cookie сессии со сроком жизни, равным TTL.
func (s *Store) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Len возвращает количество живых сессий.
func (s *Store) Len() int {
	return s.cache.Len()
}

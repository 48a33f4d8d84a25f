package session

import (
	"context"
	"net/http"
)

// contextKey — тип для ключей контекста сессии.
type contextKey string

// ContextKeySession — сессия в контексте запроса.
const ContextKeySession contextKey = "iv_session"

// Middleware находит или создаёт сессию запроса и кладёт её в контекст.
func (s *Store) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := s.Get(w, r)
			ctx := context.WithValue(r.Context(), ContextKeySession, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext извлекает сессию из контекста (nil, если middleware не применён).
func FromContext(ctx context.Context) *Session {
	sess, ok := ctx.Value(ContextKeySession).(*Session)
	if !ok {
		return nil
	}
	return sess
}

// proxy.go — обратный прокси /static/* к backend.
// Ссылки на скачивание в таблице относительные (/static/...),
// браузер получает файлы через viewer без прямого доступа к backend.
package server

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// NewStaticProxy создаёт прокси, переписывающий /static/<path> в <backend>/static/<path>.
// Ошибки соединения с backend возвращаются как 502.
func NewStaticProxy(backendURL string, transport http.RoundTripper, logger *slog.Logger) (http.Handler, error) {
	target, err := url.Parse(backendURL)
	if err != nil {
		return nil, err
	}
	logger = logger.With(slog.String("component", "static-proxy"))

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			// Cookie сессии viewer backend не нужна
			pr.Out.Header.Del("Cookie")
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warn("Ошибка проксирования к backend",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			http.Error(w, "backend недоступен", http.StatusBadGateway)
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "метод не поддерживается", http.StatusMethodNotAllowed)
			return
		}
		proxy.ServeHTTP(w, r)
	}), nil
}

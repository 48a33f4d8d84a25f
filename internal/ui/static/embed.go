// Пакет static — встроенные статические ресурсы Ingest Viewer.
// Файлы встраиваются в бинарник через //go:embed и раздаются по /assets/*.
package static

import (
	"embed"
	"io/fs"
	"net/http"
)

// content — встроенная файловая система с таблицей стилей.
//
//go:embed css/viewer.css
var content embed.FS

// FileSystem возвращает http.FileSystem для обработки запросов к /assets/*.
// Файлы доступны по путям вида /assets/css/viewer.css.
func FileSystem() http.FileSystem {
	return http.FS(content)
}

// FS возвращает fs.FS для прямого доступа к встроенным файлам.
func FS() fs.FS {
	return content
}

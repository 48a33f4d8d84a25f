// Пакет pathmap — преобразование путей файловой системы backend
// в URL статики (/static/...) и вспомогательное форматирование путей.
// Чистые функции без сетевых обращений.
package pathmap

import (
	"regexp"
	"strings"

	"github.com/benito334/ingest-viewer/internal/domain/model"
)

// StaticPrefix — префикс URL, под которым backend раздаёт каталог data.
const StaticPrefix = "/static/"

// DefaultTruncate — максимальная длина отображаемого пути по умолчанию.
const DefaultTruncate = 40

// dataSegment — имя каталога, с которого начинается раздаваемая статика.
const dataSegment = "data"

// extensionRe — расширение файла в конце пути (.mp4, .epub, ...).
var extensionRe = regexp.MustCompile(`\.\w+$`)

// StaticPath преобразует путь файла на сервере в URL статики.
// Всё до первого сегмента "data" включительно заменяется на /static/,
// обратные слэши приводятся к прямым:
//
//	/home/user/data/videos/v1.mp4 → /static/videos/v1.mp4
//	C:\ingest\data\pdf\a.pdf      → /static/pdf/a.pdf
//
// Путь без сегмента data не распознаётся и возвращается только
// с нормализованными разделителями.
func StaticPath(filePath string) string {
	rest, ok := afterDataSegment(filePath)
	if !ok {
		return strings.ReplaceAll(filePath, `\`, "/")
	}
	return StaticPrefix + strings.ReplaceAll(rest, `\`, "/")
}

// SidecarPath возвращает URL sidecar JSON для медиафайла:
// расширение заменяется на .json, затем применяется StaticPath.
func SidecarPath(filePath string) string {
	return StaticPath(extensionRe.ReplaceAllString(filePath, ".json"))
}

// DownloadURL возвращает URL скачивания файла записи.
// Готовый static_url от backend приоритетнее разбора file_path.
func DownloadURL(r model.MetadataRecord) string {
	if r.StaticURL != nil && *r.StaticURL != "" {
		return *r.StaticURL
	}
	return StaticPath(r.FilePath)
}

// SidecarURL возвращает URL sidecar JSON записи.
// Готовый sidecar_url от backend приоритетнее разбора file_path.
func SidecarURL(r model.MetadataRecord) string {
	if r.SidecarURL != nil && *r.SidecarURL != "" {
		return *r.SidecarURL
	}
	return SidecarPath(r.FilePath)
}

// TruncateMiddle сокращает строку до limit символов, вырезая середину:
// первые limit/2 символов + "…" + последние limit/2 символов.
// Строки не длиннее limit возвращаются без изменений.
// Отрицательный limit считается нулевым.
func TruncateMiddle(s string, limit int) string {
	limit = max(limit, 0)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	half := limit / 2
	return string(runes[:half]) + "…" + string(runes[len(runes)-half:])
}

// afterDataSegment возвращает часть пути после первого сегмента "data"
// и его разделителя. ok=false, если такого сегмента нет.
func afterDataSegment(p string) (rest string, ok bool) {
	start := 0
	for i := 0; i < len(p); i++ {
		if !isSeparator(p[i]) {
			continue
		}
		if p[start:i] == dataSegment {
			return p[i+1:], true
		}
		start = i + 1
	}
	return "", false
}

func isSeparator(c byte) bool {
	return c == '/' || c == '\\'
}

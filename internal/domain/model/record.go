// Пакет model — доменные модели Ingest Viewer.
// MetadataRecord — запись о загруженном материале, как её отдаёт backend
// (GET /api/metadata). Viewer использует модель только для чтения.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SourceType — источник/категория загруженного материала.
type SourceType string

// Известные источники.
const (
	SourceInstagram SourceType = "instagram"
	SourceYouTube   SourceType = "youtube"
	SourcePDF       SourceType = "pdf"
	SourceEPUB      SourceType = "epub"

	// SourceAll — значение фильтра «все источники», на backend не передаётся.
	SourceAll SourceType = "all"
)

// SourceTypes — известные источники в порядке отображения.
var SourceTypes = []SourceType{SourceInstagram, SourceYouTube, SourcePDF, SourceEPUB}

// Valid сообщает, является ли значение одним из четырёх известных источников.
func (s SourceType) Valid() bool {
	for _, st := range SourceTypes {
		if s == st {
			return true
		}
	}
	return false
}

// Label возвращает человекочитаемое имя источника.
func (s SourceType) Label() string {
	switch s {
	case SourceAll:
		return "All"
	case SourceInstagram:
		return "Instagram"
	case SourceYouTube:
		return "YouTube"
	case SourcePDF:
		return "PDF"
	case SourceEPUB:
		return "EPUB"
	default:
		return string(s)
	}
}

// RecordID — идентификатор записи. Backend может отдавать его
// как число или как строку, внутри храним строковое представление.
type RecordID string

// UnmarshalJSON принимает JSON-строку или JSON-число.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: ожидается строка или число, получено %s", string(data))
	}
	*id = RecordID(n.String())
	return nil
}

// MetadataRecord — метаданные одного загруженного файла.
type MetadataRecord struct {
	// ID — уникальный идентификатор записи (ключ строки таблицы)
	ID RecordID `json:"id"`
	// IngestDate — дата/время загрузки (только отображение)
	IngestDate string `json:"ingest_date"`
	// SourceType — источник: instagram, youtube, pdf, epub
	SourceType SourceType `json:"source_type"`
	// Author — автор (может отсутствовать)
	Author *string `json:"author"`
	// OriginalURL — исходная ссылка на материал
	OriginalURL string `json:"original_url"`
	// FilePath — путь к файлу в файловой системе backend
	FilePath string `json:"file_path"`
	// PublishDate — дата публикации (может отсутствовать)
	PublishDate *string `json:"publish_date"`
	// LengthSeconds — длительность в секундах (может отсутствовать)
	LengthSeconds *float64 `json:"length_seconds"`
	// Notes — заметки (могут отсутствовать)
	Notes *string `json:"notes"`
	// StaticURL — готовый URL для скачивания, если backend его отдаёт
	StaticURL *string `json:"static_url,omitempty"`
	// SidecarURL — готовый URL sidecar JSON, если backend его отдаёт
	SidecarURL *string `json:"sidecar_url,omitempty"`
}

// Page — одна страница ответа GET /api/metadata.
type Page struct {
	Records []MetadataRecord `json:"records"`
}

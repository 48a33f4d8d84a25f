// Пакет pages — templ-компоненты страницы Ingest Viewer.
// Данные для отрисовки подготавливаются в handlers; компоненты
// только выводят готовые строки и флаги.
package pages

// Option — пункт выпадающего списка.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// ToolbarData — панель фильтров над таблицей.
type ToolbarData struct {
	// Sources — источники (All + четыре типа)
	Sources []Option
	// Limits — размеры страницы (25, 50, 100)
	Limits []Option
	// Loading — идёт загрузка (кнопка Refresh неактивна)
	Loading bool
	// Error — текст ошибки последней загрузки (пусто — ошибки нет)
	Error string
}

// RecordRow — строка таблицы с уже отформатированными значениями.
type RecordRow struct {
	ID            string
	IngestDate    string
	SourceType    string
	Author        string
	OriginalURL   string
	FilePath      string
	FilePathShort string
	PublishDate   string
	Length        string
	Notes         string
	DownloadURL   string
	// JSONURL — адрес формы открытия sidecar JSON
	JSONURL string
}

// TableData — таблица записей.
type TableData struct {
	Rows []RecordRow
	// Empty — записей нет и загрузка не идёт
	Empty bool
}

// PagerData — кнопки Prev/Next.
type PagerData struct {
	HasPrev bool
	HasNext bool
}

// ModalData — окно sidecar JSON.
type ModalData struct {
	Open bool
	// JSON — данные, отформатированные с отступом в 2 пробела
	JSON string
}

// ViewerData — данные всей страницы.
type ViewerData struct {
	Toolbar ToolbarData
	Table   TableData
	Pager   PagerData
	Modal   ModalData
	// Alert — сообщение блокирующего окна ошибки (пусто — окна нет)
	Alert string
}

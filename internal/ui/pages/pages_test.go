package pages

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func render(t *testing.T, data ViewerData) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Viewer(data).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestViewer_EmptyTable(t *testing.T) {
	html := render(t, ViewerData{Table: TableData{Empty: true}})

	if !strings.Contains(html, "No records yet.") {
		t.Error("ожидалось сообщение об отсутствии записей")
	}
	if strings.Contains(html, "<table>") {
		t.Error("таблица не должна выводиться без записей")
	}
	if strings.Contains(html, "Metadata JSON") {
		t.Error("закрытое окно JSON не должно выводиться")
	}
}

func TestViewer_RowsEscaped(t *testing.T) {
	html := render(t, ViewerData{Table: TableData{Rows: []RecordRow{{
		ID:            "7",
		Author:        "<script>",
		FilePath:      "/data/a.mp4",
		FilePathShort: "/data/a.mp4",
		DownloadURL:   "/static/a.mp4",
		JSONURL:       "/table/records/7/json",
	}}}})

	if strings.Contains(html, "<script>") {
		t.Error("значения должны экранироваться")
	}
	if !strings.Contains(html, `href="/static/a.mp4"`) {
		t.Error("ожидалась ссылка на скачивание")
	}
	if !strings.Contains(html, `action="/table/records/7/json"`) {
		t.Error("ожидалась форма открытия JSON")
	}
	// Между строчными элементами templ оставляет один пробел, между блочными ничего
	if !strings.Contains(html, "</thead> <tbody>") {
		t.Error("ожидался пробел между thead и tbody")
	}
	if !strings.Contains(html, "</th><th>") {
		t.Error("между ячейками заголовка не должно быть пробелов")
	}
}

func TestToolbar_LabelSpacing(t *testing.T) {
	html := render(t, ViewerData{})

	if !strings.Contains(html, "<label>Source: <select") {
		t.Error("ожидался пробел между подписью и select")
	}
	if !strings.Contains(html, "</label><noscript>") {
		t.Error("перед noscript пробел не выводится")
	}
}

func TestViewer_UnsafeURLReplaced(t *testing.T) {
	html := render(t, ViewerData{Table: TableData{Rows: []RecordRow{{
		ID:          "1",
		OriginalURL: "javascript:alert(1)",
	}}}})

	if strings.Contains(html, "javascript:") {
		t.Error("небезопасная ссылка должна заменяться")
	}
}

func TestToolbar_LoadingAndError(t *testing.T) {
	html := render(t, ViewerData{Toolbar: ToolbarData{
		Loading: true,
		Error:   "не удалось получить метаданные: 500 Internal Server Error",
	}, Table: TableData{Empty: true}})

	if !strings.Contains(html, "Loading…") {
		t.Error("во время загрузки кнопка должна показывать Loading…")
	}
	if !strings.Contains(html, "Error: не удалось получить метаданные: 500") {
		t.Error("ожидалась строка ошибки")
	}
}

func TestToolbar_SelectedOption(t *testing.T) {
	html := render(t, ViewerData{Toolbar: ToolbarData{
		Sources: []Option{{Value: "", Label: "All"}, {Value: "pdf", Label: "PDF", Selected: true}},
	}, Table: TableData{Empty: true}})

	if !strings.Contains(html, `<option value="pdf" selected>PDF</option>`) {
		t.Error("ожидался выбранный источник PDF")
	}
	if !strings.Contains(html, `<option value="">All</option>`) {
		t.Error("ожидался пункт All")
	}
}

func TestPager_Disabled(t *testing.T) {
	html := render(t, ViewerData{Pager: PagerData{HasNext: true}, Table: TableData{Empty: true}})

	if !strings.Contains(html, `<button type="submit" disabled>Prev</button>`) {
		t.Error("Prev должна быть неактивна на первой странице")
	}
	if !strings.Contains(html, `<button type="submit">Next</button>`) {
		t.Error("Next должна быть активна")
	}
}

func TestModalAndAlert(t *testing.T) {
	html := render(t, ViewerData{
		Table: TableData{Empty: true},
		Modal: ModalData{Open: true, JSON: "{\n  \"a\": 1\n}"},
		Alert: "Failed to load JSON metadata",
	})

	if !strings.Contains(html, "Metadata JSON") {
		t.Error("ожидалось открытое окно JSON")
	}
	if !strings.Contains(html, "&#34;a&#34;: 1") {
		t.Error("ожидалось экранированное содержимое JSON")
	}
	if !strings.Contains(html, "Failed to load JSON metadata") {
		t.Error("ожидалось окно ошибки")
	}
}

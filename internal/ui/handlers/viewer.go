// Пакет handlers — HTTP-обработчики страницы Ingest Viewer.
// Файл viewer.go — страница таблицы метаданных и действия над ней:
// фильтры, пагинация, обновление, окно sidecar JSON.
// Все POST-действия отвечают 303 See Other на /.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/benito334/ingest-viewer/internal/domain/model"
	"github.com/benito334/ingest-viewer/internal/pathmap"
	"github.com/benito334/ingest-viewer/internal/session"
	"github.com/benito334/ingest-viewer/internal/ui/pages"
	"github.com/benito334/ingest-viewer/internal/viewer"
)

// Сообщение alert-окна при ошибке загрузки sidecar JSON.
const sidecarAlert = "Failed to fetch sidecar"

// ViewerHandler — обработчик страницы таблицы метаданных.
type ViewerHandler struct {
	logger *slog.Logger
}

// NewViewerHandler создаёт новый ViewerHandler.
func NewViewerHandler(logger *slog.Logger) *ViewerHandler {
	return &ViewerHandler{
		logger: logger.With(slog.String("component", "ui.viewer")),
	}
}

// HandlePage обрабатывает GET /: первая загрузка таблицы и отрисовка страницы.
func (h *ViewerHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	sess.Table.Mount(detach(r))

	data := buildViewerData(sess.Table.Snapshot(), sess.Alert())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pages.Viewer(data).Render(r.Context(), w); err != nil {
		h.logger.Error("Ошибка рендеринга страницы",
			slog.String("error", err.Error()),
		)
		http.Error(w, "Ошибка рендеринга страницы", http.StatusInternalServerError)
	}
}

// HandleSource обрабатывает POST /table/source: смена фильтра источника.
func (h *ViewerHandler) HandleSource(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	st := model.SourceType(r.PostFormValue("source_type"))
	if st == "" {
		st = model.SourceAll
	}

	h.finish(w, r, sess.Table.SetSourceType(detach(r), st))
}

// HandleLimit обрабатывает POST /table/limit: смена размера страницы.
func (h *ViewerHandler) HandleLimit(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	limit, err := strconv.Atoi(r.PostFormValue("limit"))
	if err != nil {
		h.finish(w, r, viewer.ErrInvalidLimit)
		return
	}

	h.finish(w, r, sess.Table.SetLimit(detach(r), limit))
}

// HandlePrev обрабатывает POST /table/prev.
func (h *ViewerHandler) HandlePrev(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	h.finish(w, r, sess.Table.PrevPage(detach(r)))
}

// HandleNext обрабатывает POST /table/next.
func (h *ViewerHandler) HandleNext(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	h.finish(w, r, sess.Table.NextPage(detach(r)))
}

// HandleRefresh обрабатывает POST /table/refresh.
func (h *ViewerHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	h.finish(w, r, sess.Table.Refresh(detach(r)))
}

// HandleRecordJSON обрабатывает POST /table/records/{id}/json: открытие sidecar JSON.
// Ошибка загрузки показывается блокирующим alert-окном, таблица не меняется.
func (h *ViewerHandler) HandleRecordJSON(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}

	id, err := recordIDParam(r)
	if err != nil {
		h.logger.Debug("Некорректный идентификатор записи",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "некорректный идентификатор записи", http.StatusBadRequest)
		return
	}
	if err = sess.Table.OpenSidecar(detach(r), id); err != nil {
		if errors.Is(err, viewer.ErrRecordNotFound) {
			h.logger.Debug("Запись для sidecar не найдена",
				slog.String("record_id", string(id)),
			)
		}
		sess.SetAlert(sidecarAlert)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// recordIDParam извлекает {id} из пути. chi сопоставляет маршрут по RawPath,
// если он задан (идентификатор содержит экранированный "/"), и тогда
// параметр приходит в экранированном виде.
func recordIDParam(r *http.Request) (model.RecordID, error) {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return model.RecordID(id), nil
	}
	unescaped, err := url.PathUnescape(id)
	if err != nil {
		return "", err
	}
	return model.RecordID(unescaped), nil
}

// HandleModalClose обрабатывает POST /modal/close.
func (h *ViewerHandler) HandleModalClose(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	sess.Table.CloseModal()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleAlertDismiss обрабатывает POST /alert/dismiss.
func (h *ViewerHandler) HandleAlertDismiss(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if sess == nil {
		return
	}
	sess.DismissAlert()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// session извлекает сессию из контекста. Без сессии отвечает 500.
func (h *ViewerHandler) session(w http.ResponseWriter, r *http.Request) *session.Session {
	sess := session.FromContext(r.Context())
	if sess == nil {
		h.logger.Error("Сессия отсутствует в контексте запроса",
			slog.String("path", r.URL.Path),
		)
		http.Error(w, "Сессия не найдена", http.StatusInternalServerError)
	}
	return sess
}

// finish завершает действие над таблицей: ошибки валидации дают 400,
// недоступные действия (кнопка была неактивна) игнорируются, иначе 303 на /.
func (h *ViewerHandler) finish(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
	case errors.Is(err, viewer.ErrInvalidLimit), errors.Is(err, viewer.ErrInvalidSourceType):
		h.logger.Debug("Недопустимое значение фильтра",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, viewer.ErrBusy),
		errors.Is(err, viewer.ErrNoNextPage),
		errors.Is(err, viewer.ErrNoPrevPage):
		h.logger.Debug("Действие недоступно",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	default:
		h.logger.Error("Ошибка действия над таблицей",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// detach отвязывает загрузку от отмены запроса: ответ применяется к таблице
// даже если браузер закрыл соединение. Длительность ограничена таймаутом клиента.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// buildViewerData преобразует снимок таблицы в данные страницы.
func buildViewerData(v viewer.View, alert string) pages.ViewerData {
	rows := make([]pages.RecordRow, 0, len(v.Fetch.Records))
	for _, rec := range v.Fetch.Records {
		rows = append(rows, buildRow(rec))
	}

	return pages.ViewerData{
		Toolbar: pages.ToolbarData{
			Sources: sourceOptions(v.Query.SourceType),
			Limits:  limitOptions(v.Query.Limit),
			Loading: v.Fetch.Loading,
			Error:   v.Fetch.Error,
		},
		Table: pages.TableData{Rows: rows, Empty: v.Empty},
		Pager: pages.PagerData{HasPrev: v.HasPrev, HasNext: v.HasNext},
		Modal: pages.ModalData{Open: v.Modal.Open, JSON: prettyJSON(v.Modal.Data)},
		Alert: alert,
	}
}

// buildRow форматирует запись для таблицы. Пустые publish_date и
// length_seconds выводятся как "-", пустые author и notes выводятся как "".
func buildRow(rec model.MetadataRecord) pages.RecordRow {
	row := pages.RecordRow{
		ID:            string(rec.ID),
		IngestDate:    rec.IngestDate,
		SourceType:    string(rec.SourceType),
		Author:        deref(rec.Author),
		OriginalURL:   rec.OriginalURL,
		FilePath:      rec.FilePath,
		FilePathShort: pathmap.TruncateMiddle(rec.FilePath, pathmap.DefaultTruncate),
		PublishDate:   "-",
		Length:        "-",
		Notes:         deref(rec.Notes),
		DownloadURL:   pathmap.DownloadURL(rec),
		JSONURL:       "/table/records/" + url.PathEscape(string(rec.ID)) + "/json",
	}
	if p := deref(rec.PublishDate); p != "" {
		row.PublishDate = p
	}
	if rec.LengthSeconds != nil {
		row.Length = strconv.FormatFloat(*rec.LengthSeconds, 'f', -1, 64)
	}
	return row
}

// sourceOptions — пункты фильтра источника: All и известные типы.
func sourceOptions(selected model.SourceType) []pages.Option {
	all := append([]model.SourceType{model.SourceAll}, model.SourceTypes...)
	opts := make([]pages.Option, 0, len(all))
	for _, st := range all {
		opts = append(opts, pages.Option{
			Value:    string(st),
			Label:    st.Label(),
			Selected: st == selected,
		})
	}
	return opts
}

// limitOptions — пункты размера страницы.
func limitOptions(selected int) []pages.Option {
	opts := make([]pages.Option, 0, len(viewer.Limits))
	for _, l := range viewer.Limits {
		s := strconv.Itoa(l)
		opts = append(opts, pages.Option{Value: s, Label: s, Selected: l == selected})
	}
	return opts
}

// prettyJSON форматирует JSON с отступом в 2 пробела.
// Невалидные данные возвращаются как есть.
func prettyJSON(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// table.go — контроллер таблицы метаданных.
// Хранит QueryState, FetchState и ModalState одного экземпляра таблицы
// и перезапрашивает данные при каждом изменении фильтров или страницы.
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/benito334/ingest-viewer/internal/domain/model"
	"github.com/benito334/ingest-viewer/internal/metaclient"
	"github.com/benito334/ingest-viewer/internal/pathmap"
)

// Ошибки действий таблицы.
var (
	// ErrBusy — ручное обновление недоступно, пока идёт загрузка.
	ErrBusy = errors.New("загрузка уже выполняется")
	// ErrNoNextPage — текущая страница неполная, следующей нет.
	ErrNoNextPage = errors.New("следующая страница недоступна")
	// ErrNoPrevPage — таблица уже на первой странице.
	ErrNoPrevPage = errors.New("предыдущая страница недоступна")
	// ErrRecordNotFound — записи нет среди отображаемых.
	ErrRecordNotFound = errors.New("запись не найдена")
)

// Prometheus-метрики таблицы.
var (
	tableFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iv_table_fetches_total",
		Help: "Количество загрузок страниц таблицы по результату.",
	}, []string{"result"})
	tableStaleFetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iv_table_stale_fetches_total",
		Help: "Количество отброшенных устаревших ответов (завершились после более нового запроса).",
	})
)

// Source — источник данных таблицы (реализуется metaclient.Client).
type Source interface {
	GetMetadata(ctx context.Context, q metaclient.Query) (*model.Page, error)
	GetSidecar(ctx context.Context, sidecarURL string) (json.RawMessage, error)
}

// FetchState — результат последней применённой загрузки.
type FetchState struct {
	Records []model.MetadataRecord
	Loading bool
	Error   string
}

// ModalState — состояние окна просмотра sidecar JSON.
type ModalState struct {
	Open bool
	Data json.RawMessage
}

// View — снимок состояния таблицы для отрисовки.
type View struct {
	Query QueryState
	Fetch FetchState
	Modal ModalState
	// HasPrev — кнопка Prev активна (offset > 0)
	HasPrev bool
	// HasNext — кнопка Next активна (страница заполнена полностью)
	HasNext bool
	// Empty — записей нет и загрузка не идёт
	Empty bool
}

// Table — контроллер таблицы метаданных. Безопасен для конкурентного
// использования: сетевые вызовы выполняются вне мьютекса, результат
// загрузки применяется только если он соответствует последнему запросу.
type Table struct {
	source Source
	logger *slog.Logger

	mu      sync.Mutex
	query   QueryState
	fetch   FetchState
	modal   ModalState
	seq     uint64
	mounted bool
}

// NewTable создаёт таблицу в состоянии по умолчанию (без загруженных данных).
func NewTable(source Source, logger *slog.Logger) *Table {
	return &Table{
		source: source,
		logger: logger.With(slog.String("component", "viewer.table")),
		query:  DefaultQuery(),
		fetch:  FetchState{Records: []model.MetadataRecord{}},
	}
}

// Mount выполняет первую загрузку таблицы. Повторные вызовы ничего не делают.
func (t *Table) Mount(ctx context.Context) {
	t.mu.Lock()
	if t.mounted {
		t.mu.Unlock()
		return
	}
	t.mounted = true
	seq, q := t.beginLocked()
	t.mu.Unlock()

	t.run(ctx, seq, q)
}

// Refresh перезапрашивает текущую страницу.
// Пока идёт загрузка, возвращает ErrBusy.
func (t *Table) Refresh(ctx context.Context) error {
	t.mu.Lock()
	if t.fetch.Loading {
		t.mu.Unlock()
		return ErrBusy
	}
	t.mounted = true
	seq, q := t.beginLocked()
	t.mu.Unlock()

	t.run(ctx, seq, q)
	return nil
}

// SetSourceType меняет фильтр источника, сбрасывает offset и перезагружает данные.
// Если состояние не изменилось, загрузка не выполняется.
func (t *Table) SetSourceType(ctx context.Context, st model.SourceType) error {
	return t.update(ctx, func(q QueryState) (QueryState, error) {
		return q.WithSourceType(st)
	})
}

// SetLimit меняет размер страницы, сбрасывает offset и перезагружает данные.
func (t *Table) SetLimit(ctx context.Context, limit int) error {
	return t.update(ctx, func(q QueryState) (QueryState, error) {
		return q.WithLimit(limit)
	})
}

// NextPage переходит на следующую страницу. Недоступно, если текущая
// страница вернула меньше записей, чем Limit (признак конца данных).
func (t *Table) NextPage(ctx context.Context) error {
	return t.update(ctx, func(q QueryState) (QueryState, error) {
		if !t.hasNextLocked() {
			return q, ErrNoNextPage
		}
		return q.Next(), nil
	})
}

// PrevPage переходит на предыдущую страницу. Недоступно на первой странице.
func (t *Table) PrevPage(ctx context.Context) error {
	return t.update(ctx, func(q QueryState) (QueryState, error) {
		if q.Offset == 0 {
			return q, ErrNoPrevPage
		}
		return q.Prev(), nil
	})
}

// OpenSidecar загружает sidecar JSON записи и открывает модальное окно.
// Ошибка возвращается вызывающему и не меняет состояние таблицы и окна.
// При нескольких параллельных вызовах окно показывает ответ,
// пришедший последним.
func (t *Table) OpenSidecar(ctx context.Context, id model.RecordID) error {
	t.mu.Lock()
	var (
		sidecarURL string
		found      bool
	)
	for _, r := range t.fetch.Records {
		if r.ID == id {
			sidecarURL = pathmap.SidecarURL(r)
			found = true
			break
		}
	}
	t.mu.Unlock()

	if !found {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	data, err := t.source.GetSidecar(ctx, sidecarURL)
	if err != nil {
		t.logger.Warn("Ошибка загрузки sidecar JSON",
			slog.String("record_id", string(id)),
			slog.String("url", sidecarURL),
			slog.String("error", err.Error()),
		)
		return err
	}

	t.mu.Lock()
	t.modal = ModalState{Open: true, Data: data}
	t.mu.Unlock()
	return nil
}

// CloseModal закрывает окно sidecar JSON.
func (t *Table) CloseModal() {
	t.mu.Lock()
	t.modal.Open = false
	t.mu.Unlock()
}

// Snapshot возвращает копию текущего состояния.
func (t *Table) Snapshot() View {
	t.mu.Lock()
	defer t.mu.Unlock()

	records := make([]model.MetadataRecord, len(t.fetch.Records))
	copy(records, t.fetch.Records)

	return View{
		Query: t.query,
		Fetch: FetchState{
			Records: records,
			Loading: t.fetch.Loading,
			Error:   t.fetch.Error,
		},
		Modal:   t.modal,
		HasPrev: t.query.Offset > 0,
		HasNext: t.hasNextLocked(),
		Empty:   len(t.fetch.Records) == 0 && !t.fetch.Loading,
	}
}

// update применяет изменение QueryState и перезагружает данные,
// если состояние действительно изменилось.
func (t *Table) update(ctx context.Context, change func(QueryState) (QueryState, error)) error {
	t.mu.Lock()
	next, err := change(t.query)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	if next == t.query {
		t.mu.Unlock()
		return nil
	}
	t.query = next
	t.mounted = true
	seq, q := t.beginLocked()
	t.mu.Unlock()

	t.run(ctx, seq, q)
	return nil
}

// hasNextLocked — признак наличия следующей страницы. Вызывается под мьютексом.
func (t *Table) hasNextLocked() bool {
	return len(t.fetch.Records) >= t.query.Limit
}

// beginLocked регистрирует новую загрузку: выдаёт номер запроса,
// включает loading и сбрасывает ошибку. Вызывается под мьютексом.
func (t *Table) beginLocked() (uint64, QueryState) {
	t.seq++
	t.fetch.Loading = true
	t.fetch.Error = ""
	return t.seq, t.query
}

// run выполняет загрузку и применяет результат, если запрос всё ещё последний.
func (t *Table) run(ctx context.Context, seq uint64, q QueryState) {
	page, err := t.source.GetMetadata(ctx, q.ClientQuery())

	t.mu.Lock()
	defer t.mu.Unlock()

	if seq != t.seq {
		tableStaleFetchesTotal.Inc()
		t.logger.Debug("Устаревший ответ отброшен",
			slog.Uint64("seq", seq),
			slog.Uint64("latest_seq", t.seq),
		)
		return
	}

	t.fetch.Loading = false
	if err != nil {
		tableFetchesTotal.WithLabelValues("error").Inc()
		// Ранее загруженные записи остаются на экране вместе с ошибкой
		t.fetch.Error = fetchErrorMessage(err)
		t.logger.Warn("Ошибка загрузки метаданных",
			slog.Int("limit", q.Limit),
			slog.Int("offset", q.Offset),
			slog.String("source_type", string(q.SourceType)),
			slog.String("error", err.Error()),
		)
		return
	}

	tableFetchesTotal.WithLabelValues("ok").Inc()
	records := []model.MetadataRecord{}
	if page != nil && page.Records != nil {
		records = page.Records
	}
	t.fetch.Records = records
}

// fetchErrorMessage возвращает текст ошибки для строки над таблицей.
// Подробности пишутся в лог.
func fetchErrorMessage(err error) string {
	var se *metaclient.StatusError
	if errors.As(err, &se) {
		return strings.TrimSpace(fmt.Sprintf("Failed to fetch metadata: %d %s", se.StatusCode, strings.TrimSpace(se.Body)))
	}
	return "Failed to fetch metadata"
}

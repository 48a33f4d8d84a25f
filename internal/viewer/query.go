// Пакет viewer — состояние и логика таблицы метаданных:
// фильтры и пагинация (QueryState), результат загрузки (FetchState),
// модальное окно sidecar JSON (ModalState).
package viewer

import (
	"errors"

	"github.com/benito334/ingest-viewer/internal/domain/model"
	"github.com/benito334/ingest-viewer/internal/metaclient"
)

// Допустимые размеры страницы.
var Limits = []int{25, 50, 100}

// DefaultLimit — размер страницы при открытии таблицы.
const DefaultLimit = 50

// Ошибки валидации фильтров.
var (
	ErrInvalidLimit      = errors.New("недопустимый размер страницы")
	ErrInvalidSourceType = errors.New("недопустимый источник")
)

// QueryState — параметры текущей выборки.
// Offset всегда неотрицателен и кратен Limit.
type QueryState struct {
	Limit      int
	Offset     int
	SourceType model.SourceType
}

// DefaultQuery возвращает состояние новой таблицы: 50 записей, первая страница, все источники.
func DefaultQuery() QueryState {
	return QueryState{Limit: DefaultLimit, Offset: 0, SourceType: model.SourceAll}
}

// WithSourceType возвращает состояние с новым фильтром источника и offset=0.
func (q QueryState) WithSourceType(st model.SourceType) (QueryState, error) {
	if st != model.SourceAll && !st.Valid() {
		return q, ErrInvalidSourceType
	}
	q.Offset = 0
	q.SourceType = st
	return q, nil
}

// WithLimit возвращает состояние с новым размером страницы и offset=0.
func (q QueryState) WithLimit(limit int) (QueryState, error) {
	if !ValidLimit(limit) {
		return q, ErrInvalidLimit
	}
	q.Offset = 0
	q.Limit = limit
	return q, nil
}

// Next сдвигает offset на одну страницу вперёд.
func (q QueryState) Next() QueryState {
	q.Offset += q.Limit
	return q
}

// Prev сдвигает offset на одну страницу назад, не опускаясь ниже нуля.
func (q QueryState) Prev() QueryState {
	q.Offset = max(0, q.Offset-q.Limit)
	return q
}

// ClientQuery преобразует состояние в параметры запроса к backend.
func (q QueryState) ClientQuery() metaclient.Query {
	return metaclient.Query{
		Limit:      q.Limit,
		Offset:     q.Offset,
		SourceType: q.SourceType,
	}
}

// ValidLimit сообщает, входит ли размер страницы в допустимый набор.
func ValidLimit(limit int) bool {
	for _, l := range Limits {
		if l == limit {
			return true
		}
	}
	return false
}

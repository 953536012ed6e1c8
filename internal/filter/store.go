// Package filter содержит хранилище состояния фильтров одного загруженного
// чата: единственный источник истины originalMessages и производное от него
// отфильтрованное представление.
package filter

import (
	"context"
	"log/slog"
	"sync"

	"whatsapp-chat-analyzer/internal/domain"
	"whatsapp-chat-analyzer/internal/executor"
)

// StoreOption — функциональная опция для настройки Store.
type StoreOption func(*Store)

// WithStoreLogger устанавливает логгер для хранилища.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Store владеет состоянием фильтров одной загрузки. Состояние фильтра
// существует в двух экземплярах: staged — значения, которые редактируют
// виджеты интерфейса, и active — значения, по которым вычислено текущее
// отфильтрованное представление. ApplyFilters атомарно копирует
// staged → active; виджеты никогда не пишут в active напрямую.
type Store struct {
	mu sync.RWMutex

	// original — неизменяемая опорная копия; заменяется только целиком
	// при новой загрузке и никогда не изменяется на месте, пока фоновое
	// вычисление может читать предыдущий снимок.
	original []domain.Message
	filtered []domain.Message
	metadata *domain.ChatMetadata

	staged domain.FilterState
	active domain.FilterState

	defaultThreshold float64
	dispatcher       *executor.Dispatcher
	log              *slog.Logger
}

// NewStore создает пустое хранилище. defaultThreshold — порог доли
// отправителя в процентах, используемый состоянием фильтра по умолчанию.
func NewStore(dispatcher *executor.Dispatcher, defaultThreshold float64, opts ...StoreOption) *Store {
	s := &Store{
		dispatcher:       dispatcher,
		defaultThreshold: defaultThreshold,
		log:              slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load заменяет все содержимое хранилища данными новой загрузки: прежние
// сообщения, метаданные и фильтры вытесняются целиком. Состояние фильтра
// инициализируется значениями по умолчанию, выведенными из метаданных, и
// сразу вычисляется первое отфильтрованное представление.
func (s *Store) Load(ctx context.Context, msgs []domain.Message, meta *domain.ChatMetadata) error {
	defaults := domain.DefaultFilterState(meta, s.defaultThreshold)

	s.mu.Lock()
	s.original = msgs
	s.metadata = meta
	s.staged = defaults.Clone()
	s.active = defaults.Clone()
	s.mu.Unlock()

	return s.dispatcher.DispatchWait(ctx, msgs, defaults, s.applyResult)
}

// Clear возвращает хранилище в пустое состояние (событие удаления файла).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.original = nil
	s.filtered = nil
	s.metadata = nil
	s.staged = domain.FilterState{}
	s.active = domain.FilterState{}
}

// Messages возвращает текущее отфильтрованное представление. Срез только
// для чтения: это единственный контракт данных для компонентов визуализации.
func (s *Store) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filtered
}

// OriginalMessages возвращает опорную копию сообщений (только для чтения).
func (s *Store) OriginalMessages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.original
}

// Metadata возвращает метаданные текущей загрузки (только для чтения).
func (s *Store) Metadata() *domain.ChatMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata
}

// StagedFilters возвращает копию редактируемого состояния фильтра.
func (s *Store) StagedFilters() domain.FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staged.Clone()
}

// ActiveFilters возвращает копию активного состояния фильтра.
func (s *Store) ActiveFilters() domain.FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active.Clone()
}

// SetDateRange устанавливает staged-диапазон дат; nil снимает ограничение.
func (s *Store) SetDateRange(r *domain.DateRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r == nil {
		s.staged.DateRange = nil
		return
	}
	rr := *r
	s.staged.DateRange = &rr
}

// SetSenderShareThreshold устанавливает staged-порог доли отправителя (0–100).
func (s *Store) SetSenderShareThreshold(threshold float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged.SenderShareThreshold = threshold
}

// SetWeekdays устанавливает staged-множество допустимых дней недели.
func (s *Store) SetWeekdays(ws domain.WeekdaySet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged.SelectedWeekdays = ws
}

// ToggleSender продвигает отправителя по трехтактному циклу ручного
// переопределения:
//
//	нет в карте (автоматика) → false (исключен вручную)
//	false → true (включен вручную)
//	true → удален из карты (снова автоматика)
//
// Асимметрия цикла (автоматика → false, а не → true) намеренная: первый
// щелчок по отправителю, видимому на диаграммах, должен его скрыть.
func (s *Store) ToggleSender(sender string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged.ManualSenderOverride == nil {
		s.staged.ManualSenderOverride = make(map[string]bool)
	}
	current, ok := s.staged.ManualSenderOverride[sender]
	switch {
	case !ok:
		s.staged.ManualSenderOverride[sender] = false
	case !current:
		s.staged.ManualSenderOverride[sender] = true
	default:
		delete(s.staged.ManualSenderOverride, sender)
	}
}

// ApplyFilters атомарно копирует staged-значения в active и запускает
// фоновый пересчет отфильтрованного представления. Возвращает порядковый
// номер запроса; результат применится, только если к моменту готовности
// запрос все еще последний.
//
// Dispatch вызывается под тем же захватом мьютекса, что и обновление active:
// порядок выдачи порядковых номеров обязан совпадать с порядком смены active,
// иначе два одновременных Apply могут оставить представление, вычисленное
// по уже неактивному состоянию. Dispatch не блокирует, а applyResult берет
// блокировку уже в фоновой горутине, так что взаимоблокировки нет.
func (s *Store) ApplyFilters(ctx context.Context) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = s.staged.Clone()
	return s.dispatcher.Dispatch(ctx, s.original, s.active.Clone(), s.applyResult)
}

// ApplyFiltersWait — синхронный вариант ApplyFilters для вызывающих, которым
// нужен результат немедленно (командная строка, тесты).
func (s *Store) ApplyFiltersWait(ctx context.Context) error {
	s.mu.Lock()
	s.active = s.staged.Clone()
	snapshot := s.original
	state := s.active.Clone()
	s.mu.Unlock()

	return s.dispatcher.DispatchWait(ctx, snapshot, state, s.applyResult)
}

// ResetFilters возвращает staged-состояние к значениям по умолчанию
// (полный диапазон дат из метаданных, все дни недели, пустая карта
// переопределений) и сразу применяет их.
func (s *Store) ResetFilters(ctx context.Context) uint64 {
	s.mu.Lock()
	s.staged = domain.DefaultFilterState(s.metadata, s.defaultThreshold)
	s.mu.Unlock()
	return s.ApplyFilters(ctx)
}

// ResetFiltersWait — синхронный вариант ResetFilters.
func (s *Store) ResetFiltersWait(ctx context.Context) error {
	s.mu.Lock()
	s.staged = domain.DefaultFilterState(s.metadata, s.defaultThreshold)
	s.mu.Unlock()
	return s.ApplyFiltersWait(ctx)
}

func (s *Store) applyResult(res []domain.Message) {
	s.mu.Lock()
	s.filtered = res
	s.mu.Unlock()
	s.log.Debug("отфильтрованное представление обновлено", "messages", len(res))
}

package executor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"whatsapp-chat-analyzer/internal/domain"
	"whatsapp-chat-analyzer/internal/ports"
)

// DispatcherOption — функциональная опция для настройки Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger устанавливает логгер для диспетчера.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// Dispatcher направляет запросы на вычисление фильтра исполнителю и
// гарантирует, что применяется результат не более чем одного — последнего —
// запроса. Каждый запрос помечается монотонно растущим порядковым номером;
// результат, чей номер к моменту готовности уже не последний, молча
// отбрасывается, чтобы устаревший ответ не затер более новый выбор.
// Отмены выполняющихся вычислений нет и не требуется: они конечны.
type Dispatcher struct {
	executor ports.FilterExecutor
	seq      atomic.Uint64
	mu       sync.Mutex
	log      *slog.Logger
}

// NewDispatcher создает новый диспетчер поверх данного исполнителя.
func NewDispatcher(ex ports.FilterExecutor, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		executor: ex,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch запускает вычисление асинхронно. apply вызывается с готовым
// результатом, только если запрос все еще последний (last-request-wins).
// Возвращает порядковый номер запроса.
func (d *Dispatcher) Dispatch(ctx context.Context, msgs []domain.Message, fs domain.FilterState, apply func([]domain.Message)) uint64 {
	id := d.seq.Add(1)
	go func() {
		res, err := d.executor.Evaluate(ctx, msgs, fs)
		if err != nil {
			d.log.Error("вычисление фильтра не удалось", "seq", id, "error", err)
			return
		}
		// Проверка и применение атомарны относительно других результатов,
		// чтобы применения шли строго без чередования.
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.seq.Load() != id {
			d.log.Debug("устаревший результат фильтра отброшен", "seq", id, "latest", d.seq.Load())
			return
		}
		apply(res)
	}()
	return id
}

// DispatchWait — синхронный вариант: вычисляет и применяет результат,
// если он все еще последний. Используется там, где фоновое выполнение
// не нужно (инструменты командной строки, тесты).
func (d *Dispatcher) DispatchWait(ctx context.Context, msgs []domain.Message, fs domain.FilterState, apply func([]domain.Message)) error {
	id := d.seq.Add(1)
	res, err := d.executor.Evaluate(ctx, msgs, fs)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seq.Load() != id {
		d.log.Debug("устаревший результат фильтра отброшен", "seq", id, "latest", d.seq.Load())
		return nil
	}
	apply(res)
	return nil
}

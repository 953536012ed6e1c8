package executor

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"whatsapp-chat-analyzer/internal/core/services"
	"whatsapp-chat-analyzer/internal/domain"
)

// job — одно задание на вычисление фильтра. Задание несет собственный снимок
// сообщений; воркер возвращает новый срез и никогда не пишет в оригинал.
type job struct {
	msgs   []domain.Message
	fs     domain.FilterState
	result chan []domain.Message
}

// PoolOption — функциональная опция для настройки Pool.
type PoolOption func(*Pool)

// WithPoolLogger устанавливает логгер для пула.
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.log = l
		}
	}
}

// Pool выполняет вычисления фильтра в фоновых воркерах. Если пул остановлен
// или недоступен, Evaluate прозрачно откатывается на синхронное выполнение
// в вызывающей горутине — для вызывающего это неотличимо, кроме задержки.
type Pool struct {
	jobs   chan job
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger
}

// NewPool создает пул из size воркеров и сразу запускает их.
func NewPool(size int, opts ...PoolOption) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	p := &Pool{
		jobs:   make(chan job),
		group:  group,
		ctx:    gctx,
		cancel: cancel,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < size; i++ {
		group.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case j := <-p.jobs:
					j.result <- services.EvaluateFilters(j.msgs, j.fs)
				}
			}
		})
	}
	return p
}

// Evaluate передает задание свободному воркеру и ждет результат.
// Остановленный пул или отмененный контекст запроса не приводят к потере
// вычисления: срабатывает синхронный запасной путь.
func (p *Pool) Evaluate(ctx context.Context, msgs []domain.Message, fs domain.FilterState) ([]domain.Message, error) {
	j := job{msgs: msgs, fs: fs, result: make(chan []domain.Message, 1)}

	select {
	case p.jobs <- j:
	case <-p.ctx.Done():
		p.log.Debug("пул фильтров недоступен, синхронное выполнение")
		return services.EvaluateFilters(msgs, fs), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-j.result:
		return res, nil
	case <-p.ctx.Done():
		p.log.Debug("пул фильтров остановлен во время вычисления, синхронное выполнение")
		return services.EvaluateFilters(msgs, fs), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop останавливает воркеров и дожидается их завершения.
func (p *Pool) Stop() {
	p.cancel()
	_ = p.group.Wait()
}

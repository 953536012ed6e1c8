package executor

import (
	"context"

	"whatsapp-chat-analyzer/internal/core/services"
	"whatsapp-chat-analyzer/internal/domain"
)

// Inline выполняет вычисление фильтра синхронно в вызывающей горутине.
// Это запасной путь на случай, когда фоновый пул недоступен, и основной
// путь для инструментов командной строки.
type Inline struct{}

// NewInline создает новый экземпляр Inline.
func NewInline() Inline {
	return Inline{}
}

// Evaluate вычисляет фильтр немедленно, без фонового контекста.
func (Inline) Evaluate(_ context.Context, msgs []domain.Message, fs domain.FilterState) ([]domain.Message, error) {
	return services.EvaluateFilters(msgs, fs), nil
}

package ports

import (
	"context"

	"whatsapp-chat-analyzer/internal/domain"
)

// DataSource определяет интерфейс для получения исходного текста экспорта.
type DataSource interface {
	// Fetch загружает данные из источника и возвращает их в виде байтового среза.
	Fetch() ([]byte, error)
}

// Parser определяет интерфейс для разбора сырого текста экспорта
// в упорядоченную последовательность записей-кандидатов.
type Parser interface {
	// Parse преобразует сырой текст в записи строго в порядке строк входа.
	Parse(data []byte) ([]domain.RawLine, error)
}

// Normalizer определяет интерфейс для преобразования записей-кандидатов
// в канонические сообщения и метаданные чата.
type Normalizer interface {
	Normalize(lines []domain.RawLine, fileName string) ([]domain.Message, *domain.ChatMetadata, error)
}

// FilterExecutor определяет стратегию выполнения вычисления фильтров:
// в вызывающей горутине или в фоновом пуле.
type FilterExecutor interface {
	// Evaluate возвращает новый срез той же длины и порядка, что и msgs,
	// с пересчитанным полем IsUsed. Вход никогда не изменяется.
	Evaluate(ctx context.Context, msgs []domain.Message, fs domain.FilterState) ([]domain.Message, error)
}

// Exporter определяет интерфейс для вывода итоговой сводки по чату.
type Exporter interface {
	Export(meta *domain.ChatMetadata, msgs []domain.Message) error
}

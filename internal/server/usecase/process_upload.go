package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"whatsapp-chat-analyzer/internal/adapters/source"
	"whatsapp-chat-analyzer/internal/cache"
	"whatsapp-chat-analyzer/internal/domain"
	"whatsapp-chat-analyzer/internal/pkg/config"
	"whatsapp-chat-analyzer/internal/ports"
)

// ProcessUploadUseCase инкапсулирует бизнес-логику обработки одного
// загруженного файла экспорта чата: хеш → кэш → разбор → нормализация.
type ProcessUploadUseCase struct {
	cfg        *config.Config
	parser     ports.Parser
	normalizer ports.Normalizer
	cacheStore *cache.CacheStore
}

// NewProcessUploadUseCase создает новый экземпляр ProcessUploadUseCase.
func NewProcessUploadUseCase(
	cfg *config.Config,
	parser ports.Parser,
	normalizer ports.Normalizer,
	cacheStore *cache.CacheStore,
) *ProcessUploadUseCase {
	return &ProcessUploadUseCase{
		cfg:        cfg,
		parser:     parser,
		normalizer: normalizer,
		cacheStore: cacheStore,
	}
}

// ProcessUpload обрабатывает содержимое одного файла экспорта.
// Повторная загрузка того же содержимого обслуживается из кэша разбора.
// Контекст проверяется между этапами; сами этапы конечны и не прерываются.
func (uc *ProcessUploadUseCase) ProcessUpload(ctx context.Context, data []byte, fileName string) ([]domain.Message, *domain.ChatMetadata, error) {
	hash := cache.CalculateHash(data)

	if cachedItem, found := uc.cacheStore.Get(hash); found {
		slog.Info("Попадание в кэш разбора", "hash", hash, "file", fileName)
		return cachedItem.Data.Messages, cachedItem.Data.Metadata, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	ds := source.NewMemorySource(data)
	raw, err := ds.Fetch()
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось извлечь данные загрузки: %w", err)
	}

	lines, err := uc.parser.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось разобрать экспорт %s: %w", fileName, err)
	}
	slog.Info("Разобран экспорт", "file", fileName, "records", len(lines))

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	msgs, meta, err := uc.normalizer.Normalize(lines, fileName)
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось нормализовать экспорт %s: %w", fileName, err)
	}

	uc.cacheStore.Put(hash, cache.ParseResult{Messages: msgs, Metadata: meta}, uc.cfg.CacheTTL())
	slog.Info("Результат разбора кэширован", "hash", hash, "ttl", uc.cfg.CacheTTL().String())

	return msgs, meta, nil
}

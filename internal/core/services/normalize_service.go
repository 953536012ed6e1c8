package services

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/abadojack/whatlanggo"

	"whatsapp-chat-analyzer/internal/adapters/parser"
	"whatsapp-chat-analyzer/internal/domain"
	"whatsapp-chat-analyzer/internal/ports"
)

// FallbackLanguage — фиксированный код языка (ISO 639-3), используемый,
// когда определение языка невозможно или ненадежно.
const FallbackLanguage = "eng"

// maxLanguageSample ограничивает объем текста, передаваемого детектору языка.
// Для больших переписок первых десятков килобайт более чем достаточно.
const maxLanguageSample = 50000

// NormalizeOption — функциональная опция для настройки NormalizeService.
type NormalizeOption func(*NormalizeService)

// WithLanguageSampleMin устанавливает минимальную длину текста (в байтах),
// ниже которой определение языка не запускается.
func WithLanguageSampleMin(n int) NormalizeOption {
	return func(s *NormalizeService) {
		if n > 0 {
			s.langSampleMin = n
		}
	}
}

// WithNormalizeLogger устанавливает логгер для сервиса.
func WithNormalizeLogger(l *slog.Logger) NormalizeOption {
	return func(s *NormalizeService) {
		if l != nil {
			s.log = l
		}
	}
}

// NormalizeService преобразует записи-кандидаты парсера в канонические
// сообщения и метаданные чата. Сервис не хранит состояние и безопасен
// для одновременного использования.
type NormalizeService struct {
	langSampleMin int
	log           *slog.Logger
}

// NewNormalizeService создает новый экземпляр NormalizeService.
func NewNormalizeService(opts ...NormalizeOption) ports.Normalizer {
	s := &NormalizeService{
		langSampleMin: 20,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Normalize преобразует записи в сообщения и за один проход собирает
// метаданные: общий счетчик, счетчики по отправителям, первую и последнюю
// временные метки. Запись с нечитаемой датой не отбрасывается: она
// эмитируется с IsUsed=false и исключается из агрегации метаданных.
func (s *NormalizeService) Normalize(lines []domain.RawLine, fileName string) ([]domain.Message, *domain.ChatMetadata, error) {
	msgs := make([]domain.Message, 0, len(lines))
	meta := &domain.ChatMetadata{
		FileName:     fileName,
		SenderCounts: make(map[string]int),
		SenderShares: make(map[string]float64),
		ShortNames:   make(map[string]string),
	}

	var corpus strings.Builder
	malformed := 0

	for _, line := range lines {
		msg := domain.Message{
			Time:    line.Time,
			Sender:  line.Sender,
			Message: line.Body,
		}

		ts, err := parser.ParseTimestamp(line.Date, line.Time)
		if err != nil {
			// Fail-soft: сообщение остается в последовательности, но не
			// участвует ни в фильтрации, ни в метаданных.
			malformed++
			msgs = append(msgs, msg)
			continue
		}

		msg.Date = ts
		msg.IsUsed = true
		msgs = append(msgs, msg)

		meta.TotalCount++
		meta.SenderCounts[line.Sender]++
		if meta.FirstMessage.IsZero() || ts.Before(meta.FirstMessage) {
			meta.FirstMessage = ts
		}
		if ts.After(meta.LastMessage) {
			meta.LastMessage = ts
		}
		if corpus.Len() < maxLanguageSample {
			corpus.WriteString(line.Body)
			corpus.WriteByte(' ')
		}
	}

	for sender, count := range meta.SenderCounts {
		meta.SenderShares[sender] = float64(count) / float64(meta.TotalCount) * 100
	}
	meta.ShortNames = shortNames(meta.SenderCounts)
	meta.Language = s.detectLanguage(corpus.String())

	if malformed > 0 {
		s.log.Warn("часть записей имеет нечитаемую дату и исключена из агрегации",
			"file", fileName, "malformed", malformed, "total", len(msgs))
	}
	s.log.Info("нормализация завершена",
		"file", fileName,
		"messages", len(msgs),
		"senders", len(meta.SenderCounts),
		"language", meta.Language)

	return msgs, meta, nil
}

// detectLanguage определяет доминирующий язык переписки по конкатенации тел
// сообщений. Слишком короткая выборка или ненадежный результат дают
// фиксированный язык по умолчанию, а не ошибку.
func (s *NormalizeService) detectLanguage(sample string) string {
	if len(sample) < s.langSampleMin {
		return FallbackLanguage
	}
	info := whatlanggo.Detect(sample)
	code := whatlanggo.LangToString(info.Lang)
	if code == "" {
		return FallbackLanguage
	}
	return code
}

// shortNames строит уникальные сокращенные имена отправителей для подписей
// диаграмм: первое слово имени, при коллизии — плюс инициал следующего слова,
// затем числовой суффикс. Обход отсортирован, чтобы результат был детерминирован.
func shortNames(senderCounts map[string]int) map[string]string {
	senders := make([]string, 0, len(senderCounts))
	for sender := range senderCounts {
		senders = append(senders, sender)
	}
	sort.Strings(senders)

	out := make(map[string]string, len(senders))
	taken := make(map[string]bool, len(senders))
	for _, sender := range senders {
		words := strings.Fields(sender)
		base := sender
		if len(words) > 0 {
			base = words[0]
		}
		short := base
		if taken[short] && len(words) > 1 {
			short = fmt.Sprintf("%s %c.", base, firstRune(words[1]))
		}
		for i := 2; taken[short]; i++ {
			short = fmt.Sprintf("%s %d", base, i)
		}
		taken[short] = true
		out[sender] = short
	}
	return out
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return '?'
}

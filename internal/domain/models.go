package domain

import "time"

// SenderSystem — отправитель-маркер для сервисных сообщений мессенджера
// (смена темы, добавление участника и т.д.), у которых нет сегмента "автор: ".
const SenderSystem = "system"

// RawLine представляет одну запись-кандидата, извлеченную парсером из текста
// экспорта. Это еще не сообщение: дата и время хранятся в том виде, в каком
// они напечатаны в файле, без интерпретации.
type RawLine struct {
	// Date — напечатанная дата, например "01.01.24" или "1/31/2024".
	Date string
	// Time — напечатанное время, например "10:00" или "9:05 PM".
	Time string
	// Sender — имя отправителя как в экспорте, без нормализации регистра.
	Sender string
	// Body — полный текст сообщения; строки-продолжения уже склеены через "\n".
	Body string
}

// Message представляет одно каноническое сообщение чата.
// После создания нормализатором все поля, кроме IsUsed, неизменяемы.
type Message struct {
	// Date — разобранная календарная дата и время отправки (локальные).
	Date time.Time `json:"date"`
	// Time — исходная напечатанная строка времени, сохраняется для отображения.
	Time string `json:"time"`
	// Sender — отправитель как в экспорте.
	Sender string `json:"sender"`
	// Message — тело сообщения, включая строки-продолжения.
	Message string `json:"message"`
	// IsUsed — единственное изменяемое поле; его переписывает только
	// вычислитель фильтров. Не входит в идентичность сообщения.
	IsUsed bool `json:"isUsed"`
}

// ChatMetadata содержит производные данные одной загрузки.
// После создания только для чтения; при новой загрузке пересоздается целиком.
type ChatMetadata struct {
	// FileName — имя загруженного файла экспорта.
	FileName string `json:"file_name"`
	// Language — доминирующий язык переписки (ISO 639-3), "eng" при неудаче определения.
	Language string `json:"language"`
	// TotalCount — общее число сообщений с корректной датой.
	TotalCount int `json:"total_count"`
	// SenderCounts — число сообщений по отправителям.
	SenderCounts map[string]int `json:"sender_counts"`
	// SenderShares — доля сообщений отправителя в процентах от общего числа.
	SenderShares map[string]float64 `json:"sender_shares"`
	// ShortNames — уникальные сокращенные имена отправителей для подписей диаграмм.
	ShortNames map[string]string `json:"short_names"`
	// FirstMessage и LastMessage — временные метки первого и последнего сообщения.
	FirstMessage time.Time `json:"first_message"`
	LastMessage  time.Time `json:"last_message"`
}

// Share возвращает долю отправителя в процентах; 0 для неизвестного отправителя.
func (m *ChatMetadata) Share(sender string) float64 {
	if m == nil || m.SenderShares == nil {
		return 0
	}
	return m.SenderShares[sender]
}

// DateRange — необязательный диапазон дат фильтра. Нулевые границы означают
// отсутствие ограничения с соответствующей стороны. Границы включительные.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains сообщает, попадает ли момент t в диапазон (границы включительно).
func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// WeekdaySet — множество допустимых дней недели.
// Индексируется time.Weekday (Sunday == 0).
type WeekdaySet [7]bool

// WeekdayTokens — канонические токены дней недели в порядке time.Weekday.
var WeekdayTokens = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// AllWeekdays возвращает множество, в котором выбраны все дни.
func AllWeekdays() WeekdaySet {
	return WeekdaySet{true, true, true, true, true, true, true}
}

// WeekdaySetOf собирает множество из токенов вида "Sun".."Sat".
// Неизвестные токены игнорируются.
func WeekdaySetOf(tokens ...string) WeekdaySet {
	var ws WeekdaySet
	for _, tok := range tokens {
		for i, name := range WeekdayTokens {
			if tok == name {
				ws[i] = true
			}
		}
	}
	return ws
}

// Has сообщает, выбран ли день d.
func (ws WeekdaySet) Has(d time.Weekday) bool {
	return ws[int(d)]
}

// Tokens возвращает выбранные дни в виде токенов в порядке Sun..Sat.
func (ws WeekdaySet) Tokens() []string {
	tokens := make([]string, 0, 7)
	for i, selected := range ws {
		if selected {
			tokens = append(tokens, WeekdayTokens[i])
		}
	}
	return tokens
}

// FilterState — полный набор независимых измерений фильтра для одного
// загруженного файла. Эффективная включенность отправителя никогда не
// хранится отдельно: она всегда выводится из порога, переопределений и
// счетчиков сообщений.
type FilterState struct {
	// DateRange — диапазон дат; nil означает "без ограничений".
	DateRange *DateRange `json:"date_range,omitempty"`
	// SenderShareThreshold — порог в процентах (0–100): отправитель с долей
	// не ниже порога включается автоматически, если не переопределен вручную.
	SenderShareThreshold float64 `json:"sender_share_threshold"`
	// ManualSenderOverride — явные переключения пользователя; отсутствие
	// ключа означает "действует автоматическое правило порога".
	ManualSenderOverride map[string]bool `json:"manual_sender_override"`
	// SelectedWeekdays — допустимые дни недели.
	SelectedWeekdays WeekdaySet `json:"selected_weekdays"`
}

// Clone возвращает глубокую копию состояния фильтра. Используется при
// атомарном копировании staged → active, чтобы виджеты интерфейса никогда
// не писали в активное состояние напрямую.
func (fs FilterState) Clone() FilterState {
	out := fs
	if fs.DateRange != nil {
		r := *fs.DateRange
		out.DateRange = &r
	}
	out.ManualSenderOverride = make(map[string]bool, len(fs.ManualSenderOverride))
	for sender, included := range fs.ManualSenderOverride {
		out.ManualSenderOverride[sender] = included
	}
	return out
}

// DefaultFilterState возвращает состояние фильтра по умолчанию для данных
// метаданных: полный диапазон дат, все дни недели, пустая карта
// переопределений, указанный порог доли.
func DefaultFilterState(meta *ChatMetadata, shareThreshold float64) FilterState {
	fs := FilterState{
		SenderShareThreshold: shareThreshold,
		ManualSenderOverride: make(map[string]bool),
		SelectedWeekdays:     AllWeekdays(),
	}
	if meta != nil && !meta.FirstMessage.IsZero() {
		fs.DateRange = &DateRange{Start: meta.FirstMessage, End: meta.LastMessage}
	}
	return fs
}

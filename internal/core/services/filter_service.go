package services

import "whatsapp-chat-analyzer/internal/domain"

// EvaluateFilters пересчитывает включенность каждого сообщения при текущем
// состоянии фильтра. Возвращается новый срез той же длины и того же порядка,
// что и вход; переписывается только поле IsUsed — сообщения никогда не
// удаляются и не переупорядочиваются, потому что диаграммы переходов зависят
// от соседства последовательных используемых сообщений. Вход не изменяется.
//
// Вычисление детерминировано и укладывается в O(n): один проход считает
// счетчики отправителей, второй — включенность.
func EvaluateFilters(msgs []domain.Message, fs domain.FilterState) []domain.Message {
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)

	active := EffectiveSenders(msgs, fs)

	for i := range out {
		msg := &out[i]
		if msg.Date.IsZero() {
			// Нормализатор уже пометил сообщения с нечитаемой датой
			// выключенными; вычислитель никогда их не включает.
			msg.IsUsed = false
			continue
		}
		msg.IsUsed = fs.DateRange.Contains(msg.Date) &&
			active[msg.Sender] &&
			// День недели берется из локального календарного дня самого
			// сообщения, а не из "сейчас" и не из UTC.
			fs.SelectedWeekdays.Has(msg.Date.Weekday())
	}

	return out
}

// EffectiveSenders выводит множество эффективно включенных отправителей:
// ручное переопределение, если оно есть, иначе автоматическое правило —
// доля отправителя от общего числа сообщений не ниже порога. Множество
// никогда не хранится, всегда выводится заново из этих трех величин.
func EffectiveSenders(msgs []domain.Message, fs domain.FilterState) map[string]bool {
	counts := make(map[string]int)
	total := 0
	for i := range msgs {
		if msgs[i].Date.IsZero() {
			continue
		}
		counts[msgs[i].Sender]++
		total++
	}

	active := make(map[string]bool, len(counts))
	for sender, count := range counts {
		if manual, ok := fs.ManualSenderOverride[sender]; ok {
			active[sender] = manual
			continue
		}
		share := float64(count) / float64(total) * 100
		active[sender] = share >= fs.SenderShareThreshold
	}
	return active
}

// CountUsed возвращает число сообщений с IsUsed=true.
func CountUsed(msgs []domain.Message) int {
	used := 0
	for i := range msgs {
		if msgs[i].IsUsed {
			used++
		}
	}
	return used
}

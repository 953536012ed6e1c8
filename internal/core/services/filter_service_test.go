package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"whatsapp-chat-analyzer/internal/domain"
)

func mkMsg(date time.Time, sender, body string) domain.Message {
	return domain.Message{
		Date:    date,
		Time:    date.Format("15:04"),
		Sender:  sender,
		Message: body,
		IsUsed:  true,
	}
}

// corpus строит переписку с заданным числом сообщений по отправителям.
func corpus(counts map[string]int) []domain.Message {
	base := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.Local)
	var msgs []domain.Message
	i := 0
	for sender, n := range counts {
		for j := 0; j < n; j++ {
			msgs = append(msgs, mkMsg(base.Add(time.Duration(i)*time.Minute), sender, "msg"))
			i++
		}
	}
	return msgs
}

func openFilter() domain.FilterState {
	return domain.FilterState{
		ManualSenderOverride: map[string]bool{},
		SelectedWeekdays:     domain.AllWeekdays(),
	}
}

func TestEvaluateFilters(t *testing.T) {
	t.Run("длина и порядок сохраняются, вход не изменяется", func(t *testing.T) {
		msgs := corpus(map[string]int{"Alice": 3, "Bob": 2})
		fs := openFilter()
		fs.SenderShareThreshold = 50 // Bob (40%) выпадает

		out := EvaluateFilters(msgs, fs)
		require.Len(t, out, len(msgs))
		for i := range out {
			assert.Equal(t, msgs[i].Date, out[i].Date)
			assert.Equal(t, msgs[i].Sender, out[i].Sender)
			// Оригинал не тронут: все сообщения по-прежнему включены.
			assert.True(t, msgs[i].IsUsed)
		}
		for i := range out {
			assert.Equal(t, out[i].Sender == "Alice", out[i].IsUsed, "message %d", i)
		}
	})

	t.Run("идемпотентность", func(t *testing.T) {
		msgs := corpus(map[string]int{"Alice": 5, "Bob": 3, "Carol": 2})
		fs := openFilter()
		fs.SenderShareThreshold = 25
		fs.SelectedWeekdays = domain.WeekdaySetOf("Mon", "Tue")

		first := EvaluateFilters(msgs, fs)
		second := EvaluateFilters(msgs, fs)
		assert.Equal(t, first, second)
	})

	t.Run("границы диапазона дат включительные", func(t *testing.T) {
		start := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.Local)
		end := time.Date(2024, time.January, 20, 18, 0, 0, 0, time.Local)
		msgs := []domain.Message{
			mkMsg(start.Add(-time.Second), "Alice", "before"),
			mkMsg(start, "Alice", "at start"),
			mkMsg(start.Add(time.Hour), "Alice", "inside"),
			mkMsg(end, "Alice", "at end"),
			mkMsg(end.Add(time.Second), "Alice", "after"),
		}
		fs := openFilter()
		fs.DateRange = &domain.DateRange{Start: start, End: end}

		out := EvaluateFilters(msgs, fs)
		assert.False(t, out[0].IsUsed)
		assert.True(t, out[1].IsUsed, "сообщение ровно на начальной границе включается")
		assert.True(t, out[2].IsUsed)
		assert.True(t, out[3].IsUsed, "сообщение ровно на конечной границе включается")
		assert.False(t, out[4].IsUsed)
	})

	t.Run("день недели берется из локального календарного дня сообщения", func(t *testing.T) {
		// 2024-01-07 23:59 локального времени — воскресенье, даже если
		// в UTC это уже понедельник.
		sunday := time.Date(2024, time.January, 7, 23, 59, 0, 0, time.Local)
		require.Equal(t, time.Sunday, sunday.Weekday())
		msgs := []domain.Message{mkMsg(sunday, "Alice", "late night")}

		fs := openFilter()
		fs.SelectedWeekdays = domain.WeekdaySetOf("Sat")
		out := EvaluateFilters(msgs, fs)
		assert.False(t, out[0].IsUsed)

		fs.SelectedWeekdays = domain.WeekdaySetOf("Sun")
		out = EvaluateFilters(msgs, fs)
		assert.True(t, out[0].IsUsed)
	})

	t.Run("сообщение с нечитаемой датой всегда выключено", func(t *testing.T) {
		msgs := []domain.Message{
			{Sender: "Alice", Message: "no date", IsUsed: false},
			mkMsg(time.Date(2024, time.January, 1, 10, 0, 0, 0, time.Local), "Alice", "ok"),
		}
		out := EvaluateFilters(msgs, openFilter())
		assert.False(t, out[0].IsUsed)
		assert.True(t, out[1].IsUsed)
	})
}

func TestEffectiveSenders(t *testing.T) {
	t.Run("сценарий с долями 5/60/35 и порогом 10", func(t *testing.T) {
		msgs := corpus(map[string]int{"A": 5, "B": 60, "C": 35})
		fs := openFilter()
		fs.SenderShareThreshold = 10

		active := EffectiveSenders(msgs, fs)
		assert.False(t, active["A"])
		assert.True(t, active["B"])
		assert.True(t, active["C"])

		// Ручное включение A не влияет на B и C.
		fs.ManualSenderOverride["A"] = true
		active = EffectiveSenders(msgs, fs)
		assert.True(t, active["A"])
		assert.True(t, active["B"])
		assert.True(t, active["C"])
	})

	t.Run("ручное исключение побеждает автоматику", func(t *testing.T) {
		msgs := corpus(map[string]int{"A": 50, "B": 50})
		fs := openFilter()
		fs.SenderShareThreshold = 10
		fs.ManualSenderOverride["A"] = false

		active := EffectiveSenders(msgs, fs)
		assert.False(t, active["A"])
		assert.True(t, active["B"])
	})

	t.Run("доля ровно на пороге включается", func(t *testing.T) {
		msgs := corpus(map[string]int{"A": 10, "B": 90})
		fs := openFilter()
		fs.SenderShareThreshold = 10

		active := EffectiveSenders(msgs, fs)
		assert.True(t, active["A"])
	})
}

// TestFilterProperties проверяет инварианты вычислителя на случайных входах.
func TestFilterProperties(t *testing.T) {
	senderGen := rapid.SampledFrom([]string{"Alice", "Bob", "Carol", "Dave", "system"})

	msgsGen := rapid.Custom(func(t *rapid.T) []domain.Message {
		n := rapid.IntRange(0, 200).Draw(t, "n")
		base := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.Local)
		msgs := make([]domain.Message, n)
		for i := range msgs {
			offset := rapid.IntRange(0, 90*24*60).Draw(t, "offset")
			msgs[i] = mkMsg(base.Add(time.Duration(offset)*time.Minute), senderGen.Draw(t, "sender"), "m")
		}
		return msgs
	})

	t.Run("повторное вычисление дает тот же результат", func(t *testing.T) {
		rapid.Check(t, func(rt *rapid.T) {
			msgs := msgsGen.Draw(rt, "msgs")
			fs := openFilter()
			fs.SenderShareThreshold = float64(rapid.IntRange(0, 100).Draw(rt, "threshold"))

			first := EvaluateFilters(msgs, fs)
			second := EvaluateFilters(first, fs)
			if len(first) != len(msgs) {
				rt.Fatalf("длина изменилась: %d != %d", len(first), len(msgs))
			}
			for i := range first {
				if first[i].IsUsed != second[i].IsUsed {
					rt.Fatalf("вычисление не идемпотентно на позиции %d", i)
				}
			}
		})
	})

	t.Run("повышение порога только исключает отправителей", func(t *testing.T) {
		rapid.Check(t, func(rt *rapid.T) {
			msgs := msgsGen.Draw(rt, "msgs")
			low := float64(rapid.IntRange(0, 50).Draw(rt, "low"))
			high := low + float64(rapid.IntRange(0, 50).Draw(rt, "delta"))

			fsLow := openFilter()
			fsLow.SenderShareThreshold = low
			fsHigh := openFilter()
			fsHigh.SenderShareThreshold = high

			activeLow := EffectiveSenders(msgs, fsLow)
			activeHigh := EffectiveSenders(msgs, fsHigh)
			for sender, included := range activeHigh {
				if included && !activeLow[sender] {
					rt.Fatalf("отправитель %s включился при повышении порога %v → %v", sender, low, high)
				}
			}
		})
	})
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdaySet(t *testing.T) {
	t.Run("сборка из токенов", func(t *testing.T) {
		ws := WeekdaySetOf("Mon", "Wed", "bogus")
		assert.True(t, ws.Has(time.Monday))
		assert.True(t, ws.Has(time.Wednesday))
		assert.False(t, ws.Has(time.Sunday))
		assert.Equal(t, []string{"Mon", "Wed"}, ws.Tokens())
	})

	t.Run("все дни", func(t *testing.T) {
		ws := AllWeekdays()
		for d := time.Sunday; d <= time.Saturday; d++ {
			assert.True(t, ws.Has(d))
		}
		assert.Len(t, ws.Tokens(), 7)
	})
}

func TestDateRangeContains(t *testing.T) {
	start := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2024, time.May, 31, 23, 59, 59, 0, time.Local)

	t.Run("nil-диапазон пропускает все", func(t *testing.T) {
		var r *DateRange
		assert.True(t, r.Contains(time.Now()))
	})

	t.Run("границы включительные", func(t *testing.T) {
		r := &DateRange{Start: start, End: end}
		assert.True(t, r.Contains(start))
		assert.True(t, r.Contains(end))
		assert.False(t, r.Contains(start.Add(-time.Second)))
		assert.False(t, r.Contains(end.Add(time.Second)))
	})

	t.Run("нулевая граница означает отсутствие ограничения", func(t *testing.T) {
		r := &DateRange{Start: start}
		assert.True(t, r.Contains(end.AddDate(10, 0, 0)))
		r = &DateRange{End: end}
		assert.True(t, r.Contains(start.AddDate(-10, 0, 0)))
	})
}

func TestFilterStateClone(t *testing.T) {
	fs := FilterState{
		DateRange:            &DateRange{Start: time.Now()},
		SenderShareThreshold: 15,
		ManualSenderOverride: map[string]bool{"Alice": true},
		SelectedWeekdays:     AllWeekdays(),
	}

	clone := fs.Clone()
	require.Equal(t, fs, clone)

	// Копия глубокая: изменения не просачиваются в оригинал.
	clone.ManualSenderOverride["Bob"] = false
	clone.DateRange.Start = clone.DateRange.Start.AddDate(1, 0, 0)
	assert.NotContains(t, fs.ManualSenderOverride, "Bob")
	assert.NotEqual(t, fs.DateRange.Start, clone.DateRange.Start)
}

func TestDefaultFilterState(t *testing.T) {
	t.Run("диапазон дат выводится из метаданных", func(t *testing.T) {
		meta := &ChatMetadata{
			FirstMessage: time.Date(2024, time.January, 1, 10, 0, 0, 0, time.Local),
			LastMessage:  time.Date(2024, time.June, 1, 10, 0, 0, 0, time.Local),
		}
		fs := DefaultFilterState(meta, 10)
		require.NotNil(t, fs.DateRange)
		assert.Equal(t, meta.FirstMessage, fs.DateRange.Start)
		assert.Equal(t, meta.LastMessage, fs.DateRange.End)
		assert.Equal(t, 10.0, fs.SenderShareThreshold)
		assert.Empty(t, fs.ManualSenderOverride)
		assert.Equal(t, AllWeekdays(), fs.SelectedWeekdays)
	})

	t.Run("пустые метаданные дают неограниченный диапазон", func(t *testing.T) {
		fs := DefaultFilterState(&ChatMetadata{}, 10)
		assert.Nil(t, fs.DateRange)
	})
}

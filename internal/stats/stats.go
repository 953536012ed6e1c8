// Package stats считает агрегаты по используемым сообщениям, которые
// потребляют диаграммы дашборда. Все функции чистые и не хранят состояния.
package stats

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"whatsapp-chat-analyzer/internal/domain"
)

// DayCount — число сообщений за один календарный день.
type DayCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// Summary — сводка по текущему отфильтрованному представлению.
// Учитываются только сообщения с IsUsed=true; порядок сообщений значения
// не имеет, кроме построения дневного ряда, который сортируется по дате.
type Summary struct {
	UsedCount    int                `json:"used_count"`
	TotalCount   int                `json:"total_count"`
	PerSender    map[string]int     `json:"per_sender"`
	PerHour      [24]int            `json:"per_hour"`
	PerWeekday   map[string]int     `json:"per_weekday"`
	Daily        []DayCount         `json:"daily"`
	DailyMean    float64            `json:"daily_mean"`
	DailyStdDev  float64            `json:"daily_std_dev"`
	SenderShares map[string]float64 `json:"sender_shares"`
}

// Compute строит сводку за один проход по сообщениям.
func Compute(msgs []domain.Message) *Summary {
	s := &Summary{
		TotalCount:   len(msgs),
		PerSender:    make(map[string]int),
		PerWeekday:   make(map[string]int),
		SenderShares: make(map[string]float64),
	}

	daily := make(map[string]int)
	for i := range msgs {
		msg := &msgs[i]
		if !msg.IsUsed {
			continue
		}
		s.UsedCount++
		s.PerSender[msg.Sender]++
		s.PerHour[msg.Date.Hour()]++
		s.PerWeekday[domain.WeekdayTokens[int(msg.Date.Weekday())]]++
		daily[msg.Date.Format(time.DateOnly)]++
	}

	for sender, count := range s.PerSender {
		s.SenderShares[sender] = float64(count) / float64(s.UsedCount) * 100
	}

	s.Daily = make([]DayCount, 0, len(daily))
	counts := make([]float64, 0, len(daily))
	for day, count := range daily {
		s.Daily = append(s.Daily, DayCount{Day: day, Count: count})
	}
	sort.Slice(s.Daily, func(i, j int) bool { return s.Daily[i].Day < s.Daily[j].Day })
	for _, dc := range s.Daily {
		counts = append(counts, float64(dc.Count))
	}

	if len(counts) > 0 {
		s.DailyMean = stat.Mean(counts, nil)
	}
	if len(counts) > 1 {
		s.DailyStdDev = stat.StdDev(counts, nil)
	}
	return s
}

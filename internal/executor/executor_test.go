package executor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-chat-analyzer/internal/core/services"
	"whatsapp-chat-analyzer/internal/domain"
)

func sampleMessages() []domain.Message {
	base := time.Date(2024, time.April, 1, 9, 0, 0, 0, time.Local)
	senders := []string{"Alice", "Alice", "Alice", "Bob", "system"}
	msgs := make([]domain.Message, len(senders))
	for i, sender := range senders {
		msgs[i] = domain.Message{
			Date:   base.Add(time.Duration(i) * time.Hour),
			Sender: sender,
			IsUsed: true,
		}
	}
	return msgs
}

func sampleFilter(threshold float64) domain.FilterState {
	return domain.FilterState{
		SenderShareThreshold: threshold,
		ManualSenderOverride: map[string]bool{},
		SelectedWeekdays:     domain.AllWeekdays(),
	}
}

func TestInlineAndPoolEquivalence(t *testing.T) {
	msgs := sampleMessages()
	fs := sampleFilter(30)

	want := services.EvaluateFilters(msgs, fs)

	inline := NewInline()
	got, err := inline.Evaluate(context.Background(), msgs, fs)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	pool := NewPool(2)
	defer pool.Stop()
	got, err = pool.Evaluate(context.Background(), msgs, fs)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPoolFallbackAfterStop(t *testing.T) {
	msgs := sampleMessages()
	fs := sampleFilter(30)

	pool := NewPool(1)
	pool.Stop()

	// Остановленный пул прозрачно выполняет вычисление синхронно.
	got, err := pool.Evaluate(context.Background(), msgs, fs)
	require.NoError(t, err)
	assert.Equal(t, services.EvaluateFilters(msgs, fs), got)
}

func TestPoolConcurrentRequests(t *testing.T) {
	msgs := sampleMessages()
	pool := NewPool(2)
	defer pool.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(threshold float64) {
			defer wg.Done()
			got, err := pool.Evaluate(context.Background(), msgs, sampleFilter(threshold))
			assert.NoError(t, err)
			assert.Len(t, got, len(msgs))
		}(float64(i * 5))
	}
	wg.Wait()

	// Оригинал никем не тронут.
	for _, msg := range msgs {
		assert.True(t, msg.IsUsed)
	}
}

// blockingExecutor держит вычисление до закрытия release — позволяет
// детерминированно воспроизвести гонку старого и нового запросов.
type blockingExecutor struct {
	release chan struct{}
}

func (e *blockingExecutor) Evaluate(_ context.Context, msgs []domain.Message, fs domain.FilterState) ([]domain.Message, error) {
	<-e.release
	return services.EvaluateFilters(msgs, fs), nil
}

func TestDispatcherLastRequestWins(t *testing.T) {
	msgs := sampleMessages()
	blocker := &blockingExecutor{release: make(chan struct{})}
	d := NewDispatcher(blocker)

	var mu sync.Mutex
	var applied []float64
	record := func(fs domain.FilterState) func([]domain.Message) {
		threshold := fs.SenderShareThreshold
		return func([]domain.Message) {
			mu.Lock()
			defer mu.Unlock()
			applied = append(applied, threshold)
		}
	}

	// Два запроса в полете; оба результата будут готовы одновременно.
	fsOld := sampleFilter(10)
	fsNew := sampleFilter(50)
	d.Dispatch(context.Background(), msgs, fsOld, record(fsOld))
	d.Dispatch(context.Background(), msgs, fsNew, record(fsNew))
	close(blocker.release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(applied) == 1
	}, time.Second, 5*time.Millisecond, "применяется результат ровно одного запроса")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []float64{50}, applied, "применился именно последний запрос")
}

func TestDispatchWaitAppliesSequentially(t *testing.T) {
	msgs := sampleMessages()
	inline := NewInline()
	d := NewDispatcher(inline)

	var mu sync.Mutex
	var applied []float64
	apply := func(threshold float64) func([]domain.Message) {
		return func([]domain.Message) {
			mu.Lock()
			defer mu.Unlock()
			applied = append(applied, threshold)
		}
	}

	// Последовательный DispatchWait всегда последний запрос и всегда
	// применяет свой результат.
	require.NoError(t, d.DispatchWait(context.Background(), msgs, sampleFilter(10), apply(10)))
	require.NoError(t, d.DispatchWait(context.Background(), msgs, sampleFilter(50), apply(50)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []float64{10, 50}, applied)
}

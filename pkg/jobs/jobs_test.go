package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []Job
}

func (r *recordingQueue) Enqueue(job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recordingQueue) snapshot() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Job(nil), r.jobs...)
}

func TestDebouncerKeepsLastJob(t *testing.T) {
	q := &recordingQueue{}
	d := NewDebouncer(q, 20*time.Millisecond, nil)

	d.Schedule("prof-1", Job{ID: "a"})
	d.Schedule("prof-1", Job{ID: "b"})
	d.Schedule("prof-2", Job{ID: "c"})

	require.Eventually(t, func() bool { return len(q.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	ids := []string{q.snapshot()[0].ID, q.snapshot()[1].ID}
	assert.ElementsMatch(t, []string{"b", "c"}, ids)
	assert.False(t, d.Pending("prof-1"))
}

func TestDebouncerCancel(t *testing.T) {
	q := &recordingQueue{}
	d := NewDebouncer(q, 10*time.Millisecond, nil)

	d.Schedule("prof-1", Job{ID: "a"})
	assert.True(t, d.Cancel("prof-1"))
	assert.False(t, d.Cancel("prof-1"))

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, q.snapshot())
}

func TestDebouncerFlush(t *testing.T) {
	q := &recordingQueue{}
	d := NewDebouncer(q, time.Hour, nil)

	d.Schedule("prof-1", Job{ID: "a"})
	d.Flush()

	require.Len(t, q.snapshot(), 1)
	assert.Equal(t, "a", q.snapshot()[0].ID)
}

func TestQueueRetriesThenExhausts(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts int
		failed   []Job
	)
	handler := func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return errors.New("boom")
	}
	q := NewQueue("test", handler, QueueConfig{
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
		OnExhausted: func(job Job, err error) {
			mu.Lock()
			defer mu.Unlock()
			failed = append(failed, job)
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "save"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failed) == 1
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, 2, attempts)
	mu.Unlock()
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "x"}))
}

package jobs

import (
	"sync"
	"time"
)

// Enqueuer accepts jobs for asynchronous processing.
type Enqueuer interface {
	Enqueue(job Job) error
}

// Debouncer coalesces bursts of jobs sharing a key: only the last job scheduled within the
// delay window reaches the queue.
type Debouncer struct {
	queue Enqueuer
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingJob
	onError func(Job, error)
}

type pendingJob struct {
	job   Job
	timer *time.Timer
}

// NewDebouncer wraps queue with a per-key debounce window. onError receives jobs the queue refused.
func NewDebouncer(queue Enqueuer, delay time.Duration, onError func(Job, error)) *Debouncer {
	return &Debouncer{
		queue:   queue,
		delay:   delay,
		pending: make(map[string]*pendingJob),
		onError: onError,
	}
}

// Schedule replaces any pending job for key and restarts its timer.
func (d *Debouncer) Schedule(key string, job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.pending[key]; ok {
		existing.timer.Stop()
	}
	entry := &pendingJob{job: job}
	entry.timer = time.AfterFunc(d.delay, func() { d.fire(key, entry) })
	d.pending[key] = entry
}

// Cancel drops the pending job for key and reports whether one existed.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.pending[key]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(d.pending, key)
	return true
}

// Pending reports whether key has a job waiting for its window to close.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Flush enqueues every pending job immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	entries := make([]*pendingJob, 0, len(d.pending))
	for key, entry := range d.pending {
		entry.timer.Stop()
		entries = append(entries, entry)
		delete(d.pending, key)
	}
	d.mu.Unlock()

	for _, entry := range entries {
		d.enqueue(entry.job)
	}
}

func (d *Debouncer) fire(key string, entry *pendingJob) {
	d.mu.Lock()
	current, ok := d.pending[key]
	if !ok || current != entry {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	d.enqueue(entry.job)
}

func (d *Debouncer) enqueue(job Job) {
	if err := d.queue.Enqueue(job); err != nil && d.onError != nil {
		d.onError(job, err)
	}
}

// Package queue runs generation jobs one at a time on a background worker.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/prosodic-go/internal/pipeline"
)

var (
	// ErrQueueFull is returned when the queue is at capacity.
	ErrQueueFull = errors.New("queue is full")
	// ErrQueueClosed is returned when attempting to enqueue to a closed queue.
	ErrQueueClosed = errors.New("queue is closed")
	// ErrDuplicateJob is returned when a job with the same dedupe key exists.
	ErrDuplicateJob = errors.New("duplicate job")
)

// Handler is called by the worker to run a job.
type Handler func(ctx context.Context, job *Job) (*pipeline.Result, error)

// IdleCallback is called when the queue becomes idle.
type IdleCallback func()

// ShutdownCallback is called once by Stop after the worker has exited.
type ShutdownCallback func()

// Queue is a bounded queue with a single worker. Jobs run strictly in
// enqueue order.
type Queue struct {
	mu           sync.Mutex
	jobs         []*Job
	capacity     int
	dedupeKeys   map[string]bool
	logger       *slog.Logger
	closed       bool
	idleTimeout  time.Duration
	idleCallback IdleCallback
	onShutdown   ShutdownCallback
	handler      Handler
	current      *Job
	wg           sync.WaitGroup
	stopCh       chan struct{}
	enqueueCh    chan struct{}
}

// NewQueue creates a new bounded queue.
func NewQueue(capacity int, idleTimeout time.Duration, logger *slog.Logger) *Queue {
	return &Queue{
		jobs:        make([]*Job, 0, capacity),
		capacity:    capacity,
		dedupeKeys:  make(map[string]bool),
		logger:      logger,
		idleTimeout: idleTimeout,
		stopCh:      make(chan struct{}),
		enqueueCh:   make(chan struct{}, 1),
	}
}

// SetHandler sets the function called to run each job.
func (q *Queue) SetHandler(fn Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = fn
}

// SetIdleCallback sets the function called when the queue becomes idle.
func (q *Queue) SetIdleCallback(fn IdleCallback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.idleCallback = fn
}

// SetShutdownCallback sets the function called when the queue stops.
func (q *Queue) SetShutdownCallback(fn ShutdownCallback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onShutdown = fn
}

// Enqueue adds a job to the queue. A job with Interrupt set clears the queue
// and cancels the running job first.
func (q *Queue) Enqueue(job *Job) error {
	if job.Interrupt {
		q.Interrupt()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	if len(q.jobs) >= q.capacity {
		return ErrQueueFull
	}

	if job.DedupeKey != "" && q.dedupeKeys[job.DedupeKey] {
		return ErrDuplicateJob
	}

	q.jobs = append(q.jobs, job)
	if job.DedupeKey != "" {
		q.dedupeKeys[job.DedupeKey] = true
	}

	q.logger.Debug("job enqueued", "job_id", job.ID, "queue_depth", len(q.jobs))

	select {
	case q.enqueueCh <- struct{}{}:
	default:
	}

	return nil
}

// Interrupt cancels the running job and clears the queue. Cleared jobs
// complete with ErrJobCancelled.
func (q *Queue) Interrupt() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current != nil {
		q.current.Cancel()
	}

	cleared := len(q.jobs)
	for _, job := range q.jobs {
		job.complete(nil, ErrJobCancelled)
	}
	q.jobs = q.jobs[:0]
	q.dedupeKeys = make(map[string]bool)

	q.logger.Info("queue interrupted", "jobs_cleared", cleared)
}

// Len returns the current queue length.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Start begins the worker goroutine.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.worker()
}

// Stop cancels the running job, waits for the worker to exit, completes
// every queued job with ErrQueueClosed, then runs the shutdown callback.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	if q.current != nil {
		q.current.Cancel()
	}
	q.mu.Unlock()

	close(q.stopCh)
	q.wg.Wait()

	q.mu.Lock()
	for _, job := range q.jobs {
		job.complete(nil, ErrQueueClosed)
	}
	q.jobs = nil
	onShutdown := q.onShutdown
	q.mu.Unlock()

	if onShutdown != nil {
		onShutdown()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()

	var idleTimer *time.Timer
	var idleTimerCh <-chan time.Time

	stopIdleTimer := func() {
		if idleTimer != nil {
			idleTimer.Stop()
			idleTimerCh = nil
		}
	}

	for {
		select {
		case <-q.stopCh:
			stopIdleTimer()
			return
		default:
		}

		if job := q.dequeue(); job != nil {
			stopIdleTimer()
			q.processJob(job)
			continue
		}

		if idleTimerCh == nil && q.idleTimeout > 0 {
			idleTimer = time.NewTimer(q.idleTimeout)
			idleTimerCh = idleTimer.C
		}

		select {
		case <-q.stopCh:
			stopIdleTimer()
			return
		case <-q.enqueueCh:
			continue
		case <-idleTimerCh:
			q.mu.Lock()
			callback := q.idleCallback
			q.mu.Unlock()

			if callback != nil {
				q.logger.Info("idle timeout reached")
				callback()
			}
			idleTimerCh = nil
		}
	}
}

// dequeue removes and returns the next live job. Expired jobs complete with
// ErrJobExpired and are skipped.
func (q *Queue) dequeue() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.jobs) > 0 {
		job := q.jobs[0]
		q.jobs = q.jobs[1:]

		if job.DedupeKey != "" {
			delete(q.dedupeKeys, job.DedupeKey)
		}

		if job.IsExpired() {
			q.logger.Debug("skipping expired job", "job_id", job.ID)
			job.complete(nil, ErrJobExpired)
			continue
		}

		q.current = job
		return job
	}

	return nil
}

func (q *Queue) processJob(job *Job) {
	q.mu.Lock()
	handler := q.handler
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.current = nil
		q.mu.Unlock()
	}()

	ctx, ok := job.start(context.Background())
	if !ok {
		q.logger.Info("job cancelled before start", "job_id", job.ID)
		job.complete(nil, ErrJobCancelled)
		return
	}

	if handler == nil {
		q.logger.Warn("no handler set, skipping job", "job_id", job.ID)
		job.complete(nil, errors.New("no handler set"))
		return
	}

	q.logger.Info("processing job",
		"job_id", job.ID,
		"text_length", len(job.Request.Text),
		"dialect", job.Request.Dialect.String(),
		"emotion", job.Request.Emotion.String(),
	)

	res, err := handler(ctx, job)
	switch {
	case err == nil:
		q.logger.Info("job completed", "job_id", job.ID)
	case errors.Is(err, context.Canceled):
		q.logger.Info("job cancelled", "job_id", job.ID)
		err = errors.Join(ErrJobCancelled, err)
	default:
		q.logger.Error("job failed", "job_id", job.ID, "kind", pipeline.Kind(err), "error", err)
	}
	job.complete(res, err)
}

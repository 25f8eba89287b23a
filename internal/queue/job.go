package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgnsrekt/prosodic-go/internal/pipeline"
)

var (
	// ErrJobExpired completes a job whose TTL passed while it was queued.
	ErrJobExpired = errors.New("job expired")
	// ErrJobCancelled completes a job cancelled before or during processing.
	ErrJobCancelled = errors.New("job cancelled")
)

// Job is a generation request waiting for the worker. Its outcome is
// delivered through Wait once the worker is done with it.
type Job struct {
	ID        string
	Request   pipeline.Request
	Play      bool
	Interrupt bool
	TTL       time.Duration
	DedupeKey string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu        sync.Mutex
	cancel    context.CancelFunc
	cancelled bool
	done      chan struct{}
	result    *pipeline.Result
	err       error
}

// NewJob creates a job with a unique ID.
func NewJob(req pipeline.Request, play, interrupt bool, ttl time.Duration, dedupeKey string) *Job {
	now := time.Now()
	job := &Job{
		ID:        uuid.New().String(),
		Request:   req,
		Play:      play,
		Interrupt: interrupt,
		TTL:       ttl,
		DedupeKey: dedupeKey,
		CreatedAt: now,
		done:      make(chan struct{}),
	}

	if ttl > 0 {
		job.ExpiresAt = now.Add(ttl)
	}

	return job
}

// IsExpired returns true if the job has passed its TTL.
func (j *Job) IsExpired() bool {
	if j.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(j.ExpiresAt)
}

// Cancel stops the job. A queued job is skipped; a running job has its
// context cancelled.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancelled = true
	if j.cancel != nil {
		j.cancel()
	}
}

// Done is closed when the job has completed.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job completes or ctx is done.
func (j *Job) Wait(ctx context.Context) (*pipeline.Result, error) {
	select {
	case <-j.done:
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// start binds the job to a cancellable context. It returns false when the
// job was cancelled while queued.
func (j *Job) start(parent context.Context) (context.Context, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancelled {
		return nil, false
	}
	ctx, cancel := context.WithCancel(parent)
	j.cancel = cancel
	return ctx, true
}

func (j *Job) complete(res *pipeline.Result, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	select {
	case <-j.done:
		return
	default:
	}
	if j.cancel != nil {
		j.cancel()
	}
	j.result, j.err = res, err
	close(j.done)
}

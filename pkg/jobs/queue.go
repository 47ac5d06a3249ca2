package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrDuplicate is returned when a job with the same ID is already pending.
var ErrDuplicate = errors.New("job already pending")

// Job represents a queued background task. Jobs are deduplicated by ID while
// pending or retrying.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// DropFunc is invoked when a job exhausts its retries.
type DropFunc func(Job, error)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. The job is released without
// calling DropFunc.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// QueueConfig configures worker pool behaviour. Retry delays double per
// attempt, starting at RetryDelay and capped at MaxRetryDelay.
type QueueConfig struct {
	Workers       int
	BufferSize    int
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	Logger        *zap.Logger
	OnDrop        DropFunc
	// Describe renders a job for log lines. Defaults to the job ID.
	Describe func(Job) string
}

// Queue is an in-memory job dispatcher backed by goroutines.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	pending map[string]struct{}
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxRetryDelay < cfg.RetryDelay {
		cfg.MaxRetryDelay = cfg.RetryDelay * 16
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Describe == nil {
		cfg.Describe = func(job Job) string { return job.ID }
	}

	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger,
		jobs:    make(chan Job, cfg.BufferSize),
		pending: make(map[string]struct{}),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.cfg.Workers)
}

// Stop cancels workers and waits for them to exit. Pending jobs are discarded.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("queue stopped", "queue", q.name)
}

// Enqueue pushes a job onto the queue.
func (q *Queue) Enqueue(job Job) error {
	return q.EnqueueAfter(job, 0)
}

// EnqueueAfter schedules job to run once delay has elapsed. It returns
// ErrDuplicate when a job with the same ID is still pending.
func (q *Queue) EnqueueAfter(job Job, delay time.Duration) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return fmt.Errorf("queue %s not started", q.name)
	}
	if job.ID != "" {
		if _, ok := q.pending[job.ID]; ok {
			q.mu.Unlock()
			return ErrDuplicate
		}
		q.pending[job.ID] = struct{}{}
	}
	q.mu.Unlock()

	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	q.schedule(job, delay)
	return nil
}

// Pending reports how many jobs are queued, delayed or retrying.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) schedule(job Job, delay time.Duration) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-q.ctx.Done():
				q.release(job)
				return
			case <-timer.C:
			}
		}
		select {
		case <-q.ctx.Done():
			q.release(job)
		case q.jobs <- job:
		}
	}()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.run(job)
		}
	}
}

func (q *Queue) run(job Job) {
	err := q.handler(q.ctx, job)
	if err == nil {
		q.release(job)
		return
	}

	var permanent *permanentError
	if errors.As(err, &permanent) {
		q.logger.Sugar().Infow("job not retryable", "queue", q.name, "job", q.cfg.Describe(job), "type", job.Type, "error", permanent.err)
		q.release(job)
		return
	}

	job.Attempt++
	if job.Attempt > q.cfg.MaxRetries {
		q.logger.Sugar().Errorw("job exceeded retries", "queue", q.name, "job", q.cfg.Describe(job), "type", job.Type, "error", err)
		q.release(job)
		if q.cfg.OnDrop != nil {
			q.cfg.OnDrop(job, err)
		}
		return
	}

	delay := q.backoff(job.Attempt)
	q.logger.Sugar().Warnw("job failed, retrying", "queue", q.name, "job", q.cfg.Describe(job), "type", job.Type, "attempt", job.Attempt, "delay", delay, "error", err)
	q.schedule(job, delay)
}

func (q *Queue) backoff(attempt int) time.Duration {
	delay := q.cfg.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= q.cfg.MaxRetryDelay {
			return q.cfg.MaxRetryDelay
		}
	}
	return delay
}

func (q *Queue) release(job Job) {
	if job.ID == "" {
		return
	}
	q.mu.Lock()
	delete(q.pending, job.ID)
	q.mu.Unlock()
}

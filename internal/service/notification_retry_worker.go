package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/padel-waitlist-api/internal/dto"
	"github.com/noah-isme/padel-waitlist-api/internal/models"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
	"github.com/noah-isme/padel-waitlist-api/pkg/jobs"
)

const jobTypeBroadcastResend = "broadcast_resend"

// Resender re-dispatches a live token.
type Resender interface {
	Resend(ctx context.Context, token string, req dto.ResendRequest) (*models.DispatchResult, error)
}

type retryMetrics interface {
	ObserveRetryDropped()
}

// RetryConfig bounds background re-dispatch.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
	Workers  int
}

// NotificationRetryWorker re-sends failed broadcasts in the background.
type NotificationRetryWorker struct {
	queue    *jobs.Queue
	delay    time.Duration
	logger   *zap.Logger
	mu       sync.RWMutex
	resender Resender
}

// NewNotificationRetryWorker builds the worker. Start must be called before ScheduleResend.
func NewNotificationRetryWorker(cfg RetryConfig, metrics retryMetrics, logger *zap.Logger) *NotificationRetryWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 30 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	w := &NotificationRetryWorker{delay: cfg.Delay, logger: logger}
	w.queue = jobs.NewQueue("broadcast-retry", w.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Attempts,
		RetryDelay: cfg.Delay,
		Logger:     logger,
		Describe:   func(job jobs.Job) string { return tokenPrefix(job.ID) },
		OnDrop: func(job jobs.Job, err error) {
			if metrics != nil {
				metrics.ObserveRetryDropped()
			}
			logger.Sugar().Errorw("broadcast retry abandoned", "token", tokenPrefix(job.ID), "attempts", job.Attempt, "error", err)
		},
	})
	return w
}

// Start begins processing with resender as the dispatch target.
func (w *NotificationRetryWorker) Start(ctx context.Context, resender Resender) {
	w.mu.Lock()
	w.resender = resender
	w.mu.Unlock()
	w.queue.Start(ctx)
}

// Stop waits for in-flight retries to finish.
func (w *NotificationRetryWorker) Stop() {
	w.queue.Stop()
}

// ScheduleResend queues a delayed re-dispatch of token. A token that already
// has a retry pending is not queued twice.
func (w *NotificationRetryWorker) ScheduleResend(token string) error {
	job := jobs.Job{ID: token, Type: jobTypeBroadcastResend, Payload: token}
	err := w.queue.EnqueueAfter(job, w.delay)
	if errors.Is(err, jobs.ErrDuplicate) {
		return nil
	}
	return err
}

func (w *NotificationRetryWorker) handle(ctx context.Context, job jobs.Job) error {
	token, ok := job.Payload.(string)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected payload %T", job.Payload))
	}
	w.mu.RLock()
	resender := w.resender
	w.mu.RUnlock()
	if resender == nil {
		return errors.New("retry worker not started")
	}

	result, err := resender.Resend(ctx, token, dto.ResendRequest{})
	if err != nil {
		if terminalResendError(err) {
			return jobs.Permanent(err)
		}
		return err
	}
	w.logger.Sugar().Infow("broadcast retry delivered", "token", tokenPrefix(token), "channel", result.Channel, "duplicate", result.Duplicate)
	return nil
}

// terminalResendError reports failures a later attempt cannot fix: dead
// tokens and destinations that resolve the same way every time.
func terminalResendError(err error) bool {
	var dispatchErr *DispatchError
	if errors.As(err, &dispatchErr) {
		switch dispatchErr.Reason {
		case DispatchReasonNoChannel, DispatchReasonInvalidDestination, DispatchReasonTemplate:
			return true
		}
	}
	return appErrors.Is(err, appErrors.ErrTokenExpired) ||
		appErrors.Is(err, appErrors.ErrTokenExhausted) ||
		appErrors.Is(err, appErrors.ErrNotFound) ||
		appErrors.Is(err, appErrors.ErrInvalidToken)
}

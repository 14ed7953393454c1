package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultAdmissionTimeout = 30 * time.Second

// Admitter runs best-effort writes off the request path. Tasks outlive the
// request that started them but not the timeout.
type Admitter struct {
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAdmitter(logger *zap.Logger, timeout time.Duration) *Admitter {
	if timeout <= 0 {
		timeout = defaultAdmissionTimeout
	}
	return &Admitter{logger: logger, timeout: timeout}
}

// Go starts task in the background. Values on ctx (request id) are kept;
// its cancellation is not.
func (a *Admitter) Go(ctx context.Context, name string, task func(ctx context.Context)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("background task panicked", zap.String("task", name), zap.Any("panic", r))
			}
		}()

		taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		start := time.Now()
		task(taskCtx)
		a.logger.Debug("background task finished", zap.String("task", name), zap.Duration("duration", time.Since(start)))
	}()
}

// Wait blocks until every started task has returned.
func (a *Admitter) Wait() {
	a.wg.Wait()
}

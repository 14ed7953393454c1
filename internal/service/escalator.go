package service

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/Harshitk-cp/doubtsolver/internal/observability"
	"go.uber.org/zap"
)

const (
	defaultEscalatorInterval = 1 * time.Hour
	defaultEscalationAge     = 7 * 24 * time.Hour
)

// EscalatorService flags doubts that have stayed below RetrievalThreshold for
// longer than the escalation age, so a human can answer them. It only sets the
// escalated flag; rows are never removed.
type EscalatorService struct {
	escalator domain.DoubtEscalator
	logger    *zap.Logger
	metrics   *observability.Metrics
	age       time.Duration
	now       func() time.Time

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewEscalatorService(e domain.DoubtEscalator, age time.Duration, logger *zap.Logger, metrics *observability.Metrics) *EscalatorService {
	if age <= 0 {
		age = defaultEscalationAge
	}
	return &EscalatorService{
		escalator: e,
		logger:    logger,
		metrics:   metrics,
		age:       age,
		now:       time.Now,
		interval:  defaultEscalatorInterval,
		stopCh:    make(chan struct{}),
	}
}

func (s *EscalatorService) SetInterval(d time.Duration) {
	s.interval = d
}

// Start runs the escalator on a periodic schedule in a background goroutine.
func (s *EscalatorService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("doubt escalator started",
			zap.Duration("interval", s.interval),
			zap.Duration("age", s.age))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.RunOnce(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("doubt escalator stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the escalator.
func (s *EscalatorService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// RunOnce performs a single escalation pass and returns the number of doubts
// newly flagged. Failures are logged and counted, never returned.
func (s *EscalatorService) RunOnce(ctx context.Context) int64 {
	cutoff := s.now().Add(-s.age)
	flagged, err := s.escalator.EscalateStale(ctx, RetrievalThreshold, cutoff)
	if err != nil {
		s.logger.Warn("failed to escalate stale doubts", zap.Error(err))
		s.metrics.Degraded("doubt_escalator")
		return 0
	}
	if flagged > 0 {
		s.logger.Info("escalated stale doubts",
			zap.Int64("count", flagged),
			zap.Time("cutoff", cutoff))
	}
	return flagged
}

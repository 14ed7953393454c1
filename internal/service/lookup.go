package service

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/Harshitk-cp/doubtsolver/internal/observability"
	"github.com/Harshitk-cp/doubtsolver/internal/store"
	"go.uber.org/zap"
)

// RetrievalThreshold is the lowest stored confidence a cached answer may have
// and still be reused.
const RetrievalThreshold = 80

// ExactMatch is a reusable answer found by query key.
type ExactMatch struct {
	Answer     string
	Confidence int
	Source     domain.ResolutionSource
}

type LookupService struct {
	doubts  domain.DoubtStore
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewLookupService(ds domain.DoubtStore, logger *zap.Logger, metrics *observability.Metrics) *LookupService {
	return &LookupService{doubts: ds, logger: logger, metrics: metrics}
}

// Lookup tries the content-scoped doubt first, then any doubt with the same
// key. Store failures read as a miss.
func (s *LookupService) Lookup(ctx context.Context, key, contentID string) *ExactMatch {
	if key == "" {
		return nil
	}

	if contentID != "" {
		d, err := s.doubts.FindByKey(ctx, key, contentID, RetrievalThreshold)
		if s.usable(d, err, "content") {
			return &ExactMatch{Answer: d.Answer, Confidence: d.Confidence, Source: domain.SourceDoubtContent}
		}
	}

	d, err := s.doubts.FindByKeyGlobal(ctx, key, RetrievalThreshold)
	if s.usable(d, err, "global") {
		return &ExactMatch{Answer: d.Answer, Confidence: d.Confidence, Source: domain.SourceDoubtGlobal}
	}
	return nil
}

func (s *LookupService) usable(d *domain.Doubt, err error, scope string) bool {
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("doubt lookup failed", zap.String("scope", scope), zap.Error(err))
			s.metrics.Degraded("doubt_lookup")
		}
		return false
	}
	// The store filters on confidence too; this keeps the floor even if a
	// backend does not.
	return d != nil && d.Answer != "" && d.Confidence >= RetrievalThreshold
}

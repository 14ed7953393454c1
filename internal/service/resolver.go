package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/Harshitk-cp/doubtsolver/internal/observability"
	"go.uber.org/zap"
)

// DoubtService resolves a student's question: cached answer by key, then a
// semantically similar known question, then the tutor.
type DoubtService struct {
	lookup    *LookupService
	semantic  *SemanticSearchService
	tutor     *TutorService
	writer    *KnowledgeWriter
	knowledge domain.KnowledgeStore
	admitter  *Admitter
	logger    *zap.Logger
	metrics   *observability.Metrics
}

func NewDoubtService(
	lookup *LookupService,
	semantic *SemanticSearchService,
	tutor *TutorService,
	writer *KnowledgeWriter,
	admitter *Admitter,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *DoubtService {
	return &DoubtService{
		lookup:   lookup,
		semantic: semantic,
		tutor:    tutor,
		writer:   writer,
		admitter: admitter,
		logger:   logger,
		metrics:  metrics,
	}
}

// SetKnowledgeStore enables Stats.
func (s *DoubtService) SetKnowledgeStore(ks domain.KnowledgeStore) {
	s.knowledge = ks
}

// Resolve answers req. Only tutor failures are returned and they all wrap
// domain.ErrTutorUnavailable; store and embedding failures fall through to
// the next step.
func (s *DoubtService) Resolve(ctx context.Context, req domain.ResolveRequest) (*domain.Resolution, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}

	key := QueryKey(req.Query, req.Context)

	if hit := s.lookup.Lookup(ctx, key, req.ContentID); hit != nil {
		s.logger.Debug("doubt cache hit", zap.String("query_key", key), zap.String("source", string(hit.Source)))
		s.metrics.Resolved(string(hit.Source))
		return &domain.Resolution{
			Explanation: hit.Answer,
			Confidence:  hit.Confidence,
			Source:      hit.Source,
		}, nil
	}

	sem := s.semantic.Search(ctx, req.Query, req.CourseID)
	if sem.Match {
		s.logger.Debug("knowledge graph hit", zap.String("query_key", key), zap.String("question", sem.Question))
		s.metrics.Resolved(string(sem.Source))
		s.recordDoubt(ctx, req, sem.Answer, sem.Confidence)
		return &domain.Resolution{
			Explanation: sem.Answer,
			Confidence:  sem.Confidence,
			Source:      sem.Source,
		}, nil
	}

	res, err := s.tutor.Explain(ctx, req)
	if err != nil {
		return nil, err
	}
	s.metrics.Resolved(string(res.Source))

	s.recordDoubt(ctx, req, res.Explanation, res.Confidence)
	in := AdmissionInput{
		Query:      req.Query,
		Answer:     res.Explanation,
		Confidence: res.Confidence,
		CourseID:   req.CourseID,
		ContentID:  req.ContentID,
		Context:    req.Context,
		Source:     domain.AnswerSourceModel,
		Embedding:  sem.Embedding,
	}
	s.admitter.Go(ctx, "knowledge_admission", func(ctx context.Context) {
		s.writer.AdmitIfQualified(ctx, in)
	})

	return res, nil
}

func (s *DoubtService) recordDoubt(ctx context.Context, req domain.ResolveRequest, answer string, confidence int) {
	r := DoubtRecord{
		Query:      req.Query,
		Context:    req.Context,
		Answer:     answer,
		Confidence: confidence,
		ContentID:  req.ContentID,
	}
	s.admitter.Go(ctx, "doubt_upsert", func(ctx context.Context) {
		s.writer.RecordDoubt(ctx, r)
	})
}

// CuratedAnswer is an answer supplied by a verified source rather than the
// tutor.
type CuratedAnswer struct {
	Query     string
	Answer    string
	Context   string
	CourseID  string
	ContentID string
}

// AdmitCurated scores a verified answer and runs it through the same
// admission gate as tutor answers. Callers cannot choose the confidence; the
// verified-source weighting is the only advantage a curated answer gets. When
// the score clears the retrieval threshold it also refreshes the doubt cache
// so the exact question is served by key.
func (s *DoubtService) AdmitCurated(ctx context.Context, c CuratedAnswer) (bool, int, error) {
	c.Query = strings.TrimSpace(c.Query)
	c.Answer = strings.TrimSpace(c.Answer)
	if c.Query == "" || c.Answer == "" {
		return false, 0, fmt.Errorf("%w: query and answer are required", domain.ErrInvalidRequest)
	}

	confidence, _ := ScoreConfidence(ConfidenceParams{
		HasGeneralContext: strings.TrimSpace(c.Context) != "",
		ResponseLength:    len([]rune(c.Answer)),
		FormattingScore:   AnalyzeFormatting(c.Answer).Score,
		VerifiedSource:    true,
	})

	// A weak curated answer must not replace a servable cached one.
	if confidence >= RetrievalThreshold {
		s.writer.RecordDoubt(ctx, DoubtRecord{
			Query:      c.Query,
			Context:    c.Context,
			Answer:     c.Answer,
			Confidence: confidence,
			ContentID:  c.ContentID,
		})
	}

	admitted := s.writer.AdmitIfQualified(ctx, AdmissionInput{
		Query:      c.Query,
		Answer:     c.Answer,
		Confidence: confidence,
		CourseID:   c.CourseID,
		ContentID:  c.ContentID,
		Context:    c.Context,
		Source:     domain.AnswerSourceCurated,
	})
	return admitted, confidence, nil
}

// Stats reports node counts from the knowledge store.
func (s *DoubtService) Stats(ctx context.Context) (*domain.KnowledgeStats, error) {
	if s.knowledge == nil {
		return &domain.KnowledgeStats{}, nil
	}
	stats, err := s.knowledge.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("knowledge stats: %w", err)
	}
	return stats, nil
}

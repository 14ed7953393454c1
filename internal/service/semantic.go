package service

import (
	"context"
	"math"
	"strings"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/Harshitk-cp/doubtsolver/internal/observability"
	"go.uber.org/zap"
)

const (
	// SemanticSimilarityThreshold is the lowest cosine similarity that counts
	// as the same question.
	SemanticSimilarityThreshold = 0.80
	// SemanticTopK is how many nearest questions are considered.
	SemanticTopK = 5
)

type SemanticResult struct {
	Match      bool
	Question   string
	Answer     string
	Confidence int
	Source     domain.ResolutionSource
	// Embedding is the query vector, kept so admission does not embed twice.
	Embedding []float32
}

type SemanticSearchService struct {
	knowledge domain.KnowledgeStore
	embedder  *EmbeddingGateway
	logger    *zap.Logger
	metrics   *observability.Metrics
}

func NewSemanticSearchService(ks domain.KnowledgeStore, embedder *EmbeddingGateway, logger *zap.Logger, metrics *observability.Metrics) *SemanticSearchService {
	return &SemanticSearchService{knowledge: ks, embedder: embedder, logger: logger, metrics: metrics}
}

// Search finds the stored question nearest to query. courseID is not a
// filter: answers are shared across courses.
func (s *SemanticSearchService) Search(ctx context.Context, query, courseID string) SemanticResult {
	if s.knowledge == nil {
		return SemanticResult{}
	}

	vec := s.embedder.Embed(ctx, strings.TrimSpace(query))
	if vec == nil {
		return SemanticResult{}
	}
	miss := SemanticResult{Embedding: vec}

	candidates, err := s.knowledge.SimilarQuestions(ctx, vec, SemanticTopK, SemanticSimilarityThreshold)
	if err != nil {
		s.logger.Warn("semantic search failed", zap.String("course_id", courseID), zap.Error(err))
		s.metrics.Degraded("semantic_search")
		return miss
	}

	var best *domain.SemanticCandidate
	for i := range candidates {
		c := &candidates[i]
		if c.Similarity < SemanticSimilarityThreshold || c.Answer == "" {
			continue
		}
		if best == nil || c.Similarity > best.Similarity {
			best = c
		}
	}
	if best == nil {
		return miss
	}

	s.logger.Debug("semantic match",
		zap.String("question", best.Question),
		zap.Float64("similarity", best.Similarity))

	return SemanticResult{
		Match:      true,
		Question:   best.Question,
		Answer:     best.Answer,
		Confidence: int(math.Round(clamp(best.Similarity*100, 0, 100))),
		Source:     domain.SourceKnowledgeGraph,
		Embedding:  vec,
	}
}

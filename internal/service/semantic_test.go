package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/Harshitk-cp/doubtsolver/internal/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSemantic(ks domain.KnowledgeStore, emb *embedding.MockClient) *SemanticSearchService {
	return NewSemanticSearchService(ks, NewEmbeddingGateway(emb, zap.NewNop(), nil), zap.NewNop(), nil)
}

func seedQuestion(t *testing.T, ks *fakeKnowledgeStore, emb *embedding.MockClient, q, a string) {
	t.Helper()
	vec, err := emb.Embed(context.Background(), q)
	require.NoError(t, err)
	require.NoError(t, ks.MergeResolution(context.Background(), domain.KnowledgeEntry{
		Question: domain.Question{Text: q, Embedding: vec},
		Answer:   domain.Answer{Text: a, Confidence: 90},
	}))
}

func TestSemanticSearch_Match(t *testing.T) {
	ks := newFakeKnowledgeStore()
	emb := embedding.NewMockClient()
	seedQuestion(t, ks, emb, "what is binary search", "Halve the range each step.")
	svc := newSemantic(ks, emb)

	got := svc.Search(context.Background(), "What is binary search", "course-1")

	assert.True(t, got.Match)
	assert.Equal(t, "what is binary search", got.Question)
	assert.Equal(t, "Halve the range each step.", got.Answer)
	assert.Equal(t, 100, got.Confidence)
	assert.Equal(t, domain.SourceKnowledgeGraph, got.Source)
	assert.NotEmpty(t, got.Embedding)
}

func TestSemanticSearch_NoMatchKeepsEmbedding(t *testing.T) {
	ks := newFakeKnowledgeStore()
	emb := embedding.NewMockClient()
	seedQuestion(t, ks, emb, "what is binary search", "Halve the range each step.")
	svc := newSemantic(ks, emb)

	got := svc.Search(context.Background(), "explain photosynthesis in leaves", "")

	assert.False(t, got.Match)
	assert.Zero(t, got.Confidence)
	assert.NotEmpty(t, got.Embedding)
}

func TestSemanticSearch_EmbeddingUnavailable(t *testing.T) {
	ks := newFakeKnowledgeStore()
	emb := embedding.NewMockClient()
	emb.Err = errors.New("provider down")
	svc := newSemantic(ks, emb)

	got := svc.Search(context.Background(), "anything", "")

	assert.False(t, got.Match)
	assert.Nil(t, got.Embedding)
	assert.Zero(t, ks.searches, "store is not queried without an embedding")
}

func TestSemanticSearch_StoreErrorIsMiss(t *testing.T) {
	ks := newFakeKnowledgeStore()
	ks.searchErr = errors.New("index missing")
	svc := newSemantic(ks, embedding.NewMockClient())

	got := svc.Search(context.Background(), "anything", "")

	assert.False(t, got.Match)
	assert.Zero(t, got.Confidence)
}

type staticKnowledge struct {
	fakeKnowledgeStore
	candidates []domain.SemanticCandidate
}

func (s *staticKnowledge) SimilarQuestions(ctx context.Context, embedding []float32, k int, minScore float64) ([]domain.SemanticCandidate, error) {
	return s.candidates, nil
}

func TestSemanticSearch_PicksBestAboveThreshold(t *testing.T) {
	ks := &staticKnowledge{candidates: []domain.SemanticCandidate{
		{Question: "low", Answer: "a", Similarity: 0.79},
		{Question: "mid", Answer: "b", Similarity: 0.83},
		{Question: "top", Answer: "c", Similarity: 0.914},
		{Question: "no answer", Answer: "", Similarity: 0.99},
	}}
	svc := newSemantic(ks, embedding.NewMockClient())

	got := svc.Search(context.Background(), "q", "")

	require.True(t, got.Match)
	assert.Equal(t, "top", got.Question)
	assert.Equal(t, 91, got.Confidence)
}

func TestSemanticSearch_AllBelowThreshold(t *testing.T) {
	ks := &staticKnowledge{candidates: []domain.SemanticCandidate{
		{Question: "low", Answer: "a", Similarity: 0.7999},
	}}
	svc := newSemantic(ks, embedding.NewMockClient())

	assert.False(t, svc.Search(context.Background(), "q", "").Match)
}

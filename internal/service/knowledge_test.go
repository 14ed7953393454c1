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

func newWriter(ks *fakeKnowledgeStore, ds *fakeDoubtStore, emb *embedding.MockClient) *KnowledgeWriter {
	return NewKnowledgeWriter(ks, ds, NewEmbeddingGateway(emb, zap.NewNop(), nil), zap.NewNop(), nil)
}

func TestAdmitIfQualified_BelowThreshold(t *testing.T) {
	ks := newFakeKnowledgeStore()
	emb := embedding.NewMockClient()
	w := newWriter(ks, newFakeDoubtStore(), emb)

	admitted := w.AdmitIfQualified(context.Background(), AdmissionInput{
		Query:      "What is polymorphism?",
		Answer:     "Many forms.",
		Confidence: 84,
		CourseID:   "oop-101",
	})

	assert.False(t, admitted)
	assert.Zero(t, ks.mergeCount())
	assert.Zero(t, emb.CallCount(), "no embedding is requested below the gate")
}

func TestAdmitIfQualified_AtThreshold(t *testing.T) {
	ks := newFakeKnowledgeStore()
	emb := embedding.NewMockClient()
	w := newWriter(ks, newFakeDoubtStore(), emb)

	admitted := w.AdmitIfQualified(context.Background(), AdmissionInput{
		Query:      "How does polymorphism differ from inheritance?",
		Answer:     "Polymorphism is behaviour; inheritance is structure.",
		Confidence: 85,
		CourseID:   "oop-101",
		ContentID:  "video-7",
	})

	require.True(t, admitted)
	assert.Equal(t, 1, ks.mergeCount())
	assert.Equal(t, 1, emb.CallCount())

	e := ks.lastMerged
	assert.Equal(t, "How does polymorphism differ from inheritance?", e.Question.Text)
	assert.NotEmpty(t, e.Question.Embedding)
	assert.Equal(t, 85, e.Answer.Confidence)
	assert.Equal(t, domain.AnswerSourceModel, e.Answer.Source)
	assert.Equal(t, "oop-101", e.CourseID)
	assert.Equal(t, "video-7", e.ContentID)
	assert.Equal(t, []domain.Concept{{Name: "Polymorphism"}, {Name: "Differ"}, {Name: "Inheritance"}}, e.Concepts)
}

func TestAdmitIfQualified_ReusesEmbedding(t *testing.T) {
	ks := newFakeKnowledgeStore()
	emb := embedding.NewMockClient()
	w := newWriter(ks, newFakeDoubtStore(), emb)

	admitted := w.AdmitIfQualified(context.Background(), AdmissionInput{
		Query:      "q",
		Answer:     "a",
		Confidence: 95,
		Embedding:  []float32{0.1, 0.2},
	})

	assert.True(t, admitted)
	assert.Zero(t, emb.CallCount())
	assert.Equal(t, []float32{0.1, 0.2}, ks.lastMerged.Question.Embedding)
}

func TestAdmitIfQualified_NoEmbeddingSkipsWrite(t *testing.T) {
	ks := newFakeKnowledgeStore()
	emb := embedding.NewMockClient()
	emb.Err = errors.New("provider down")
	w := newWriter(ks, newFakeDoubtStore(), emb)

	admitted := w.AdmitIfQualified(context.Background(), AdmissionInput{Query: "q", Answer: "a", Confidence: 99})

	assert.False(t, admitted)
	assert.Zero(t, ks.mergeCount())
}

func TestAdmitIfQualified_StoreErrorIsSwallowed(t *testing.T) {
	ks := newFakeKnowledgeStore()
	ks.mergeErr = errors.New("deadlock detected")
	w := newWriter(ks, newFakeDoubtStore(), embedding.NewMockClient())

	var admitted bool
	assert.NotPanics(t, func() {
		admitted = w.AdmitIfQualified(context.Background(), AdmissionInput{Query: "q", Answer: "a", Confidence: 99})
	})
	assert.False(t, admitted)
	assert.Equal(t, 1, ks.mergeCount())
}

func TestAdmitIfQualified_Idempotent(t *testing.T) {
	ks := newFakeKnowledgeStore()
	w := newWriter(ks, newFakeDoubtStore(), embedding.NewMockClient())
	in := AdmissionInput{Query: "Explain recursion", Answer: "A function calling itself.", Confidence: 90, CourseID: "cs"}

	require.True(t, w.AdmitIfQualified(context.Background(), in))
	require.True(t, w.AdmitIfQualified(context.Background(), in))

	stats, err := ks.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Questions)
	assert.Equal(t, int64(1), stats.Answers)
}

func TestRecordDoubt_AnyConfidence(t *testing.T) {
	ds := newFakeDoubtStore()
	w := newWriter(newFakeKnowledgeStore(), ds, embedding.NewMockClient())

	ok := w.RecordDoubt(context.Background(), DoubtRecord{
		Query:      " What is a Heap? ",
		Context:    "Lecture 4",
		Answer:     "A tree with an ordering property.",
		Confidence: 42,
		ContentID:  "video-2",
	})

	require.True(t, ok)
	d, found := ds.get("what is a heap?|lecture 4", "video-2")
	require.True(t, found)
	assert.Equal(t, 42, d.Confidence)
	assert.Equal(t, domain.DoubtStatusResolved, d.Status)
	assert.NotNil(t, d.ResolvedAt)
}

func TestRecordDoubt_ClampsConfidence(t *testing.T) {
	ds := newFakeDoubtStore()
	w := newWriter(newFakeKnowledgeStore(), ds, embedding.NewMockClient())

	require.True(t, w.RecordDoubt(context.Background(), DoubtRecord{Query: "q", Answer: "a", Confidence: 140}))

	d, found := ds.get("q", "")
	require.True(t, found)
	assert.Equal(t, 100, d.Confidence)
}

func TestRecordDoubt_StoreError(t *testing.T) {
	ds := newFakeDoubtStore()
	ds.saveErr = errors.New("read-only transaction")
	w := newWriter(newFakeKnowledgeStore(), ds, embedding.NewMockClient())

	assert.False(t, w.RecordDoubt(context.Background(), DoubtRecord{Query: "q", Answer: "a", Confidence: 90}))
}

func TestDeriveConcepts(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"What is a binary search tree?", []string{"Binary", "Search"}},
		{"explain RECURSION and recursion", []string{"Explain", "Recursion"}},
		{"short words only here", nil},
		{"Big-endian vs little-endian ordering", []string{"Big-endian", "Little-endian", "Ordering"}},
		{"What's Dijkstra's algorithm?", []string{"Dijkstra", "Algorithm"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var names []string
			for _, c := range DeriveConcepts(tt.query) {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

package service

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/Harshitk-cp/doubtsolver/internal/store"
	"github.com/google/uuid"
)

// fakeDoubtStore implements domain.DoubtStore in memory.
type fakeDoubtStore struct {
	mu      sync.Mutex
	doubts  map[string]*domain.Doubt
	findErr error
	saveErr error
	finds   int
	upserts int
}

func newFakeDoubtStore() *fakeDoubtStore {
	return &fakeDoubtStore{doubts: make(map[string]*domain.Doubt)}
}

func doubtID(key, contentID string) string {
	return key + "\x00" + contentID
}

func (f *fakeDoubtStore) put(d *domain.Doubt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doubts[doubtID(d.QueryKey, d.ContentID)] = d
}

func (f *fakeDoubtStore) FindByKey(ctx context.Context, key, contentID string, minConfidence int) (*domain.Doubt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	if f.findErr != nil {
		return nil, f.findErr
	}
	d, ok := f.doubts[doubtID(key, contentID)]
	if !ok || d.Confidence < minConfidence {
		return nil, store.ErrNotFound
	}
	return d, nil
}

func (f *fakeDoubtStore) FindByKeyGlobal(ctx context.Context, key string, minConfidence int) (*domain.Doubt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	if f.findErr != nil {
		return nil, f.findErr
	}
	var best *domain.Doubt
	for _, d := range f.doubts {
		if d.QueryKey != key || d.Confidence < minConfidence {
			continue
		}
		if best == nil || d.Confidence > best.Confidence {
			best = d
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	return best, nil
}

func (f *fakeDoubtStore) Upsert(ctx context.Context, d *domain.Doubt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.saveErr != nil {
		return f.saveErr
	}
	if existing, ok := f.doubts[doubtID(d.QueryKey, d.ContentID)]; ok {
		d.ID = existing.ID
		d.CreatedAt = existing.CreatedAt
	} else {
		d.ID = uuid.New()
	}
	cp := *d
	f.doubts[doubtID(d.QueryKey, d.ContentID)] = &cp
	return nil
}

func (f *fakeDoubtStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

func (f *fakeDoubtStore) get(key, contentID string) (*domain.Doubt, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.doubts[doubtID(key, contentID)]
	return d, ok
}

// fakeKnowledgeStore implements domain.KnowledgeStore in memory with
// natural-key identity for every node.
type fakeKnowledgeStore struct {
	mu         sync.Mutex
	questions  map[string][]float32
	answers    map[string]domain.Answer
	answerOf   map[string]string
	concepts   map[string]bool
	searchErr  error
	mergeErr   error
	merges     int
	searches   int
	lastMerged domain.KnowledgeEntry
}

func newFakeKnowledgeStore() *fakeKnowledgeStore {
	return &fakeKnowledgeStore{
		questions: make(map[string][]float32),
		answers:   make(map[string]domain.Answer),
		answerOf:  make(map[string]string),
		concepts:  make(map[string]bool),
	}
}

func (f *fakeKnowledgeStore) SimilarQuestions(ctx context.Context, embedding []float32, k int, minScore float64) ([]domain.SemanticCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []domain.SemanticCandidate
	for q, vec := range f.questions {
		sim := cosine(embedding, vec)
		if sim < minScore {
			continue
		}
		out = append(out, domain.SemanticCandidate{Question: q, Answer: f.answerOf[q], Similarity: sim})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (f *fakeKnowledgeStore) MergeResolution(ctx context.Context, entry domain.KnowledgeEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merges++
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.questions[entry.Question.Text] = entry.Question.Embedding
	f.answers[entry.Answer.Text] = entry.Answer
	f.answerOf[entry.Question.Text] = entry.Answer.Text
	for _, c := range entry.Concepts {
		f.concepts[c.Name] = true
	}
	f.lastMerged = entry
	return nil
}

func (f *fakeKnowledgeStore) Stats(ctx context.Context) (*domain.KnowledgeStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &domain.KnowledgeStats{
		Questions: int64(len(f.questions)),
		Answers:   int64(len(f.answers)),
		Concepts:  int64(len(f.concepts)),
	}, nil
}

func (f *fakeKnowledgeStore) mergeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.merges
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

package service

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/Harshitk-cp/doubtsolver/internal/observability"
	"go.uber.org/zap"
)

const (
	// AdmissionThreshold is the lowest confidence an answer may have and
	// still be written to the knowledge graph.
	AdmissionThreshold = 85
	// conceptMinLength is exclusive: only words longer than this become
	// concepts.
	conceptMinLength = 5
)

// Admission outcomes, used as metric labels.
const (
	admissionAdmitted       = "admitted"
	admissionBelowThreshold = "below_threshold"
	admissionNoEmbedding    = "no_embedding"
	admissionStoreError     = "store_error"
)

// AdmissionInput is one resolved question offered to the knowledge graph.
// Embedding may carry a vector already computed for the query.
type AdmissionInput struct {
	Query      string
	Answer     string
	Confidence int
	CourseID   string
	ContentID  string
	Context    string
	Source     string
	Embedding  []float32
}

// DoubtRecord is the latest resolution for a query key.
type DoubtRecord struct {
	Query      string
	Context    string
	Answer     string
	Confidence int
	ContentID  string
}

type KnowledgeWriter struct {
	knowledge domain.KnowledgeStore
	doubts    domain.DoubtStore
	embedder  *EmbeddingGateway
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewKnowledgeWriter(ks domain.KnowledgeStore, ds domain.DoubtStore, embedder *EmbeddingGateway, logger *zap.Logger, metrics *observability.Metrics) *KnowledgeWriter {
	return &KnowledgeWriter{
		knowledge: ks,
		doubts:    ds,
		embedder:  embedder,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// AdmitIfQualified merges the question, answer and concept subgraph into the
// knowledge graph when confidence reaches AdmissionThreshold. It reports
// whether the merge happened; failures are logged, never returned.
func (w *KnowledgeWriter) AdmitIfQualified(ctx context.Context, in AdmissionInput) bool {
	if in.Confidence < AdmissionThreshold {
		w.metrics.Admission(admissionBelowThreshold)
		return false
	}
	if w.knowledge == nil {
		return false
	}

	query := strings.TrimSpace(in.Query)
	answer := strings.TrimSpace(in.Answer)
	if query == "" || answer == "" {
		return false
	}

	vec := in.Embedding
	if len(vec) == 0 {
		vec = w.embedder.Embed(ctx, query)
	}
	if len(vec) == 0 {
		w.logger.Warn("skipping knowledge admission: no embedding", zap.String("query_key", QueryKey(query, in.Context)))
		w.metrics.Admission(admissionNoEmbedding)
		return false
	}

	source := in.Source
	if source == "" {
		source = domain.AnswerSourceModel
	}

	now := w.now().UTC()
	entry := domain.KnowledgeEntry{
		Question:  domain.Question{Text: query, Embedding: vec, CreatedAt: now},
		Answer:    domain.Answer{Text: answer, Confidence: clampScore(in.Confidence), Source: source, CreatedAt: now},
		CourseID:  in.CourseID,
		ContentID: in.ContentID,
		Concepts:  DeriveConcepts(query),
	}

	if err := w.knowledge.MergeResolution(ctx, entry); err != nil {
		w.logger.Warn("knowledge admission failed",
			zap.String("query_key", QueryKey(query, in.Context)),
			zap.Error(err))
		w.metrics.Degraded("knowledge_write")
		w.metrics.Admission(admissionStoreError)
		return false
	}

	w.logger.Info("admitted answer to knowledge graph",
		zap.String("query_key", QueryKey(query, in.Context)),
		zap.Int("confidence", entry.Answer.Confidence),
		zap.Int("concepts", len(entry.Concepts)))
	w.metrics.Admission(admissionAdmitted)
	return true
}

// RecordDoubt upserts the doubt cache entry for a resolution, whatever its
// confidence.
func (w *KnowledgeWriter) RecordDoubt(ctx context.Context, r DoubtRecord) bool {
	if w.doubts == nil {
		return false
	}

	now := w.now().UTC()
	d := &domain.Doubt{
		QueryKey:   QueryKey(r.Query, r.Context),
		Query:      strings.TrimSpace(r.Query),
		Context:    strings.TrimSpace(r.Context),
		Answer:     r.Answer,
		Confidence: clampScore(r.Confidence),
		ContentID:  r.ContentID,
		Status:     domain.DoubtStatusResolved,
		UpdatedAt:  now,
		ResolvedAt: &now,
	}

	if err := w.doubts.Upsert(ctx, d); err != nil {
		w.logger.Warn("doubt upsert failed", zap.String("query_key", d.QueryKey), zap.Error(err))
		w.metrics.Degraded("doubt_write")
		return false
	}
	return true
}

// DeriveConcepts turns every word longer than five letters into a capitalized
// concept name, first occurrence wins.
func DeriveConcepts(query string) []domain.Concept {
	words := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	seen := make(map[string]bool)
	var concepts []domain.Concept
	for _, w := range words {
		w = strings.Trim(w, "-")
		if utf8.RuneCountInString(w) <= conceptMinLength {
			continue
		}
		name := capitalize(w)
		if seen[name] {
			continue
		}
		seen[name] = true
		concepts = append(concepts, domain.Concept{Name: name})
	}
	return concepts
}

func capitalize(word string) string {
	lower := strings.ToLower(word)
	r, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(r)) + lower[size:]
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

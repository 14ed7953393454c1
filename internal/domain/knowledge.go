package domain

import (
	"context"
	"time"
)

// AnswerSourceModel tags answers produced by the generative tutor.
const AnswerSourceModel = "model-generated"

// AnswerSourceCurated tags answers admitted from a verified source.
const AnswerSourceCurated = "curated"

type RelationType string

const (
	RelationAnswers               RelationType = "ANSWERS"
	RelationRelatesTo             RelationType = "RELATES_TO"
	RelationGeneratedFromResource RelationType = "GENERATED_FROM_RESOURCE"
	RelationPartOf                RelationType = "PART_OF"
)

// Question is identified by its exact text.
type Question struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Answer is identified by its exact text.
type Answer struct {
	Text       string    `json:"text"`
	Confidence int       `json:"confidence"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

// Concept is identified by its capitalized name.
type Concept struct {
	Name string `json:"name"`
}

// KnowledgeEntry is the subgraph merged by one admission.
type KnowledgeEntry struct {
	Question  Question
	Answer    Answer
	CourseID  string
	ContentID string
	Concepts  []Concept
}

// SemanticCandidate is one nearest-question hit with its answer attached.
type SemanticCandidate struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Similarity float64 `json:"similarity"`
}

type KnowledgeStats struct {
	Questions int64 `json:"questions"`
	Answers   int64 `json:"answers"`
	Concepts  int64 `json:"concepts"`
	Doubts    int64 `json:"doubts"`
}

type KnowledgeStore interface {
	// SimilarQuestions returns up to k nearest questions by cosine similarity
	// whose similarity is >= minScore, each joined to an answer it has.
	SimilarQuestions(ctx context.Context, embedding []float32, k int, minScore float64) ([]SemanticCandidate, error)
	// MergeResolution find-or-creates every node and edge of entry. Re-merging
	// the same entry must not duplicate nodes.
	MergeResolution(ctx context.Context, entry KnowledgeEntry) error
	Stats(ctx context.Context) (*KnowledgeStats, error)
}

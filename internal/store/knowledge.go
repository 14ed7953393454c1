package store

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// Node kinds used in kg_edges. Course and content are external and are
// referenced by their own identifiers.
const (
	kindQuestion = "question"
	kindAnswer   = "answer"
	kindConcept  = "concept"
	kindCourse   = "course"
	kindContent  = "content"
)

// Merge statements. Each one upserts on the natural key, so repeating a
// resolution updates rows in place.
const (
	mergeQuestionSQL = `INSERT INTO kg_questions (text, embedding)
		VALUES ($1, $2)
		ON CONFLICT (text_hash) DO UPDATE
		SET embedding = EXCLUDED.embedding,
		    updated_at = NOW()
		RETURNING id`

	mergeAnswerSQL = `INSERT INTO kg_answers (text, confidence, source)
		VALUES ($1, $2, $3)
		ON CONFLICT (text_hash) DO UPDATE
		SET confidence = EXCLUDED.confidence,
		    source = EXCLUDED.source,
		    updated_at = NOW()
		RETURNING id`

	mergeConceptSQL = `INSERT INTO kg_concepts (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	mergeEdgeSQL = `INSERT INTO kg_edges (source_kind, source_ref, relation, target_kind, target_ref)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source_kind, source_ref, relation, target_kind, target_ref) DO NOTHING`
)

// KnowledgeStore keeps the question/answer/concept graph in Postgres. Nodes
// are unique by natural key (a hash of their text, or the concept name) and
// edges by (source, relation, target), so merges never duplicate.
type KnowledgeStore struct {
	db *pgxpool.Pool
}

func NewKnowledgeStore(db *pgxpool.Pool) *KnowledgeStore {
	return &KnowledgeStore{db: db}
}

// SimilarQuestions narrows to the k nearest questions first so the vector
// index is used, then applies the score floor.
func (s *KnowledgeStore) SimilarQuestions(ctx context.Context, embedding []float32, k int, minScore float64) ([]domain.SemanticCandidate, error) {
	if k <= 0 {
		k = 5
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx,
		`WITH nearest AS (
		     SELECT id, text, 1 - (embedding <=> $1) AS score
		     FROM kg_questions
		     WHERE embedding IS NOT NULL
		     ORDER BY embedding <=> $1
		     LIMIT $2
		 )
		 SELECT n.text, a.text, n.score
		 FROM nearest n
		 JOIN LATERAL (
		     SELECT ans.text
		     FROM kg_edges e
		     JOIN kg_answers ans ON ans.id::text = e.target_ref
		     WHERE e.source_kind = 'question' AND e.source_ref = n.id::text
		       AND e.relation = $3 AND e.target_kind = 'answer'
		     ORDER BY ans.confidence DESC, ans.updated_at DESC
		     LIMIT 1
		 ) a ON TRUE
		 WHERE n.score >= $4
		 ORDER BY n.score DESC`,
		vec, k, domain.RelationAnswers, minScore,
	)
	if err != nil {
		return nil, fmt.Errorf("similar questions query: %w", err)
	}
	defer rows.Close()

	var results []domain.SemanticCandidate
	for rows.Next() {
		var c domain.SemanticCandidate
		if err := rows.Scan(&c.Question, &c.Answer, &c.Similarity); err != nil {
			return nil, fmt.Errorf("scan similar question: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("similar question rows: %w", err)
	}
	return results, nil
}

// MergeResolution writes the whole subgraph in one transaction.
func (s *KnowledgeStore) MergeResolution(ctx context.Context, entry domain.KnowledgeEntry) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var questionID, answerID uuid.UUID

		err := tx.QueryRow(ctx,
			mergeQuestionSQL,
			entry.Question.Text, pgvector.NewVector(entry.Question.Embedding),
		).Scan(&questionID)
		if err != nil {
			return fmt.Errorf("merge question: %w", err)
		}

		err = tx.QueryRow(ctx,
			mergeAnswerSQL,
			entry.Answer.Text, entry.Answer.Confidence, entry.Answer.Source,
		).Scan(&answerID)
		if err != nil {
			return fmt.Errorf("merge answer: %w", err)
		}

		q := questionID.String()
		if err := mergeEdge(ctx, tx, kindQuestion, q, domain.RelationAnswers, kindAnswer, answerID.String()); err != nil {
			return err
		}
		if entry.CourseID != "" {
			if err := mergeEdge(ctx, tx, kindQuestion, q, domain.RelationRelatesTo, kindCourse, entry.CourseID); err != nil {
				return err
			}
		}
		if entry.ContentID != "" {
			if err := mergeEdge(ctx, tx, kindQuestion, q, domain.RelationGeneratedFromResource, kindContent, entry.ContentID); err != nil {
				return err
			}
		}

		for _, c := range entry.Concepts {
			var conceptID uuid.UUID
			err := tx.QueryRow(ctx,
				mergeConceptSQL,
				c.Name,
			).Scan(&conceptID)
			if err != nil {
				return fmt.Errorf("merge concept %q: %w", c.Name, err)
			}
			if err := mergeEdge(ctx, tx, kindQuestion, q, domain.RelationRelatesTo, kindConcept, conceptID.String()); err != nil {
				return err
			}
			if entry.CourseID != "" {
				if err := mergeEdge(ctx, tx, kindConcept, conceptID.String(), domain.RelationPartOf, kindCourse, entry.CourseID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func mergeEdge(ctx context.Context, tx pgx.Tx, sourceKind, sourceRef string, rel domain.RelationType, targetKind, targetRef string) error {
	_, err := tx.Exec(ctx,
		mergeEdgeSQL,
		sourceKind, sourceRef, rel, targetKind, targetRef,
	)
	if err != nil {
		return fmt.Errorf("merge %s edge: %w", rel, err)
	}
	return nil
}

func (s *KnowledgeStore) Stats(ctx context.Context) (*domain.KnowledgeStats, error) {
	stats := &domain.KnowledgeStats{}
	err := s.db.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM kg_questions),
		        (SELECT COUNT(*) FROM kg_answers),
		        (SELECT COUNT(*) FROM kg_concepts),
		        (SELECT COUNT(*) FROM doubts)`,
	).Scan(&stats.Questions, &stats.Answers, &stats.Concepts, &stats.Doubts)
	if err != nil {
		return nil, fmt.Errorf("knowledge stats: %w", err)
	}
	return stats, nil
}

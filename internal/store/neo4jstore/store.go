package neo4jstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/Harshitk-cp/doubtsolver/internal/store"
	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// VectorIndexName is the vector index over Question.embedding.
const VectorIndexName = "question_embedding"

// Store keeps doubts and the knowledge graph in Neo4j. Every write is a
// MERGE on the node's natural key, so repeating a write updates in place.
type Store struct {
	client     *Client
	dimensions int
	logger     *zap.Logger
}

func New(client *Client, dimensions int, logger *zap.Logger) *Store {
	return &Store{client: client, dimensions: dimensions, logger: logger}
}

// EnsureSchema creates constraints and the vector index. Failures are logged
// and skipped; older servers lack some of these statements.
func (s *Store) EnsureSchema(ctx context.Context) {
	stmts := []string{
		`CREATE CONSTRAINT question_text_unique IF NOT EXISTS FOR (q:Question) REQUIRE q.text IS UNIQUE`,
		`CREATE CONSTRAINT concept_name_unique IF NOT EXISTS FOR (c:Concept) REQUIRE c.name IS UNIQUE`,
		`CREATE CONSTRAINT doubt_key_unique IF NOT EXISTS FOR (d:Doubt) REQUIRE (d.query_key, d.content_id) IS UNIQUE`,
		`CREATE INDEX answer_text IF NOT EXISTS FOR (a:Answer) ON (a.text)`,
		fmt.Sprintf("CREATE VECTOR INDEX %s IF NOT EXISTS FOR (q:Question) ON q.embedding "+
			"OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: 'cosine'}}",
			VectorIndexName, s.dimensions),
	}

	session := s.client.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, q := range stmts {
		res, err := session.Run(ctx, q, nil)
		if err == nil {
			_, err = res.Consume(ctx)
		}
		if err != nil {
			s.logger.Warn("neo4j schema init failed (continuing)", zap.Error(err))
		}
	}
}

func (s *Store) FindByKey(ctx context.Context, key, contentID string, minConfidence int) (*domain.Doubt, error) {
	return s.findDoubt(ctx, findDoubtCypher, map[string]any{"key": key, "content_id": contentID, "min": minConfidence})
}

// FindByKeyGlobal prefers the most confident doubt, then the most recent.
func (s *Store) FindByKeyGlobal(ctx context.Context, key string, minConfidence int) (*domain.Doubt, error) {
	return s.findDoubt(ctx, findDoubtGlobalCypher, map[string]any{"key": key, "min": minConfidence})
}

func (s *Store) findDoubt(ctx context.Context, cypher string, params map[string]any) (*domain.Doubt, error) {
	session := s.client.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		node, _, err := neo4j.GetRecordValue[neo4j.Node](records[0], "d")
		if err != nil {
			return nil, err
		}
		return doubtFromProps(node.Props), nil
	})
	if err != nil {
		return nil, fmt.Errorf("find doubt: %w", err)
	}
	if out == nil {
		return nil, store.ErrNotFound
	}
	return out.(*domain.Doubt), nil
}

func (s *Store) Upsert(ctx context.Context, d *domain.Doubt) error {
	if d.Status == "" {
		d.Status = domain.DoubtStatusOpen
	}
	now := time.Now().UTC()
	var resolvedAt any
	if d.ResolvedAt != nil {
		resolvedAt = d.ResolvedAt.UTC().Format(time.RFC3339Nano)
	}

	session := s.client.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, upsertDoubtCypher, map[string]any{
			"id":          uuid.New().String(),
			"query_key":   d.QueryKey,
			"content_id":  d.ContentID,
			"query":       d.Query,
			"context":     d.Context,
			"answer":      d.Answer,
			"confidence":  d.Confidence,
			"status":      string(d.Status),
			"escalated":   d.Escalated,
			"resolved_at": resolvedAt,
			"now":         now.Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		node, _, err := neo4j.GetRecordValue[neo4j.Node](rec, "d")
		if err != nil {
			return nil, err
		}
		saved := doubtFromProps(node.Props)
		d.ID, d.CreatedAt, d.UpdatedAt = saved.ID, saved.CreatedAt, saved.UpdatedAt

		if d.ContentID == "" {
			return nil, nil
		}
		res, err = tx.Run(ctx, linkDoubtContentCypher, map[string]any{"query_key": d.QueryKey, "content_id": d.ContentID})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("upsert doubt: %w", err)
	}
	return nil
}

// EscalateStale compares timestamps as datetimes since they are stored as
// RFC 3339 strings.
func (s *Store) EscalateStale(ctx context.Context, belowConfidence int, olderThan time.Time) (int64, error) {
	session := s.client.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, escalateStaleCypher, map[string]any{
			"below":  belowConfidence,
			"cutoff": olderThan.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _, err := neo4j.GetRecordValue[int64](rec, "escalated")
		return n, err
	})
	if err != nil {
		return 0, fmt.Errorf("escalate stale doubts: %w", err)
	}
	return out.(int64), nil
}

// SimilarQuestions converts the index score, which Neo4j reports as
// (1 + cosine) / 2, back to cosine similarity before applying minScore.
func (s *Store) SimilarQuestions(ctx context.Context, embedding []float32, k int, minScore float64) ([]domain.SemanticCandidate, error) {
	if k <= 0 {
		k = 5
	}
	vec := make([]float64, len(embedding))
	for i, v := range embedding {
		vec[i] = float64(v)
	}

	session := s.client.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
CALL db.index.vector.queryNodes($index, $k, $embedding) YIELD node, score
WITH node, 2 * score - 1 AS similarity
WHERE similarity >= $min
MATCH (node)-[:ANSWERS]->(a:Answer)
WITH node, similarity, a ORDER BY a.confidence DESC
WITH node, similarity, collect(a.text)[0] AS answer
RETURN node.text AS question, answer, similarity
ORDER BY similarity DESC
`, map[string]any{
			"index":     VectorIndexName,
			"k":         k,
			"embedding": vec,
			"min":       minScore,
		})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		candidates := make([]domain.SemanticCandidate, 0, len(records))
		for _, rec := range records {
			question, _, err := neo4j.GetRecordValue[string](rec, "question")
			if err != nil {
				return nil, err
			}
			answer, _, err := neo4j.GetRecordValue[string](rec, "answer")
			if err != nil {
				return nil, err
			}
			similarity, _, err := neo4j.GetRecordValue[float64](rec, "similarity")
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, domain.SemanticCandidate{Question: question, Answer: answer, Similarity: similarity})
		}
		return candidates, nil
	})
	if err != nil {
		return nil, fmt.Errorf("similar questions: %w", err)
	}
	return out.([]domain.SemanticCandidate), nil
}

// MergeResolution writes the subgraph in one transaction. Course and content
// nodes are owned elsewhere: edges to them are only created when they exist.
func (s *Store) MergeResolution(ctx context.Context, entry domain.KnowledgeEntry) error {
	vec := make([]float64, len(entry.Question.Embedding))
	for i, v := range entry.Question.Embedding {
		vec[i] = float64(v)
	}
	names := make([]string, 0, len(entry.Concepts))
	for _, c := range entry.Concepts {
		names = append(names, c.Name)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	steps := []struct {
		skip   bool
		cypher string
	}{
		{false, mergeQuestionAnswerCypher},
		{entry.CourseID == "", `
MATCH (q:Question {text: $question})
MATCH (c:Course {id: $course_id})
MERGE (q)-[:RELATES_TO]->(c)
`},
		{entry.ContentID == "", `
MATCH (q:Question {text: $question})
MATCH (r:Content {id: $content_id})
MERGE (q)-[:GENERATED_FROM_RESOURCE]->(r)
`},
		{len(names) == 0, `
MATCH (q:Question {text: $question})
UNWIND $concepts AS name
MERGE (k:Concept {name: name})
MERGE (q)-[:RELATES_TO]->(k)
WITH k
OPTIONAL MATCH (c:Course {id: $course_id})
FOREACH (_ IN CASE WHEN c IS NULL THEN [] ELSE [1] END | MERGE (k)-[:PART_OF]->(c))
`},
	}

	params := map[string]any{
		"question":   entry.Question.Text,
		"embedding":  vec,
		"answer":     entry.Answer.Text,
		"confidence": entry.Answer.Confidence,
		"source":     entry.Answer.Source,
		"course_id":  entry.CourseID,
		"content_id": entry.ContentID,
		"concepts":   names,
		"now":        now,
	}

	session := s.client.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, step := range steps {
			if step.skip {
				continue
			}
			res, err := tx.Run(ctx, step.cypher, params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("merge resolution: %w", err)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (*domain.KnowledgeStats, error) {
	session := s.client.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
CALL { MATCH (q:Question) RETURN count(q) AS questions }
CALL { MATCH (a:Answer) RETURN count(a) AS answers }
CALL { MATCH (c:Concept) RETURN count(c) AS concepts }
CALL { MATCH (d:Doubt) RETURN count(d) AS doubts }
RETURN questions, answers, concepts, doubts
`, nil)
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		stats := &domain.KnowledgeStats{}
		for key, dst := range map[string]*int64{
			"questions": &stats.Questions,
			"answers":   &stats.Answers,
			"concepts":  &stats.Concepts,
			"doubts":    &stats.Doubts,
		} {
			v, _, err := neo4j.GetRecordValue[int64](rec, key)
			if err != nil {
				return nil, err
			}
			*dst = v
		}
		return stats, nil
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge stats: %w", err)
	}
	return out.(*domain.KnowledgeStats), nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DoubtStore struct {
	db *pgxpool.Pool
}

func NewDoubtStore(db *pgxpool.Pool) *DoubtStore {
	return &DoubtStore{db: db}
}

const doubtColumns = `id, query_key, query, context, answer, confidence, content_id, status, escalated, created_at, updated_at, resolved_at`

func scanDoubt(row pgx.Row) (*domain.Doubt, error) {
	d := &domain.Doubt{}
	err := row.Scan(&d.ID, &d.QueryKey, &d.Query, &d.Context, &d.Answer, &d.Confidence, &d.ContentID,
		&d.Status, &d.Escalated, &d.CreatedAt, &d.UpdatedAt, &d.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *DoubtStore) FindByKey(ctx context.Context, key, contentID string, minConfidence int) (*domain.Doubt, error) {
	return scanDoubt(s.db.QueryRow(ctx,
		`SELECT `+doubtColumns+`
		 FROM doubts
		 WHERE query_key = $1 AND content_id = $2 AND confidence >= $3
		 LIMIT 1`,
		key, contentID, minConfidence,
	))
}

// FindByKeyGlobal prefers the most confident doubt, then the most recent.
func (s *DoubtStore) FindByKeyGlobal(ctx context.Context, key string, minConfidence int) (*domain.Doubt, error) {
	return scanDoubt(s.db.QueryRow(ctx,
		`SELECT `+doubtColumns+`
		 FROM doubts
		 WHERE query_key = $1 AND confidence >= $2
		 ORDER BY confidence DESC, updated_at DESC
		 LIMIT 1`,
		key, minConfidence,
	))
}

// Upsert keeps one row per (query_key, content_id); a newer resolution
// overwrites the answer and confidence in place.
func (s *DoubtStore) Upsert(ctx context.Context, d *domain.Doubt) error {
	if d.Status == "" {
		d.Status = domain.DoubtStatusOpen
	}
	return s.db.QueryRow(ctx,
		upsertDoubtSQL,
		d.QueryKey, d.Query, d.Context, d.Answer, d.Confidence, d.ContentID, d.Status, d.Escalated, d.ResolvedAt,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

// EscalateStale leaves updated_at untouched so the row keeps its age.
func (s *DoubtStore) EscalateStale(ctx context.Context, belowConfidence int, olderThan time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, escalateStaleSQL, belowConfidence, olderThan)
	if err != nil {
		return 0, fmt.Errorf("escalate stale doubts: %w", err)
	}
	return tag.RowsAffected(), nil
}

const upsertDoubtSQL = `INSERT INTO doubts (query_key, query, context, answer, confidence, content_id, status, escalated, resolved_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (query_key, content_id) DO UPDATE
	SET query = EXCLUDED.query,
	    context = EXCLUDED.context,
	    answer = EXCLUDED.answer,
	    confidence = EXCLUDED.confidence,
	    status = EXCLUDED.status,
	    escalated = doubts.escalated OR EXCLUDED.escalated,
	    resolved_at = COALESCE(EXCLUDED.resolved_at, doubts.resolved_at),
	    updated_at = NOW()
	RETURNING id, created_at, updated_at`

const escalateStaleSQL = `UPDATE doubts SET escalated = TRUE
	WHERE escalated = FALSE AND confidence < $1 AND updated_at < $2`

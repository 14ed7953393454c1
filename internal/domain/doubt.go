package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DoubtStatus string

const (
	DoubtStatusOpen     DoubtStatus = "open"
	DoubtStatusResolved DoubtStatus = "resolved"
)

// Doubt is the ephemeral cache record of one resolved question. QueryKey plus
// ContentID (empty for global) identifies it.
type Doubt struct {
	ID         uuid.UUID   `json:"id"`
	QueryKey   string      `json:"query_key"`
	Query      string      `json:"query"`
	Context    string      `json:"context,omitempty"`
	Answer     string      `json:"answer"`
	Confidence int         `json:"confidence"`
	ContentID  string      `json:"content_id,omitempty"`
	Status     DoubtStatus `json:"status"`
	Escalated  bool        `json:"escalated"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
}

type DoubtStore interface {
	// FindByKey returns the best doubt for key linked to contentID with
	// confidence >= minConfidence.
	FindByKey(ctx context.Context, key, contentID string, minConfidence int) (*Doubt, error)
	// FindByKeyGlobal ignores the content link.
	FindByKeyGlobal(ctx context.Context, key string, minConfidence int) (*Doubt, error)
	Upsert(ctx context.Context, d *Doubt) error
}

// DoubtEscalator is implemented by doubt stores that can flag doubts the
// cache has not been able to serve for a while.
type DoubtEscalator interface {
	// EscalateStale sets escalated on doubts with confidence below
	// belowConfidence that were last updated before olderThan and are not yet
	// escalated. It returns how many it flagged and never removes rows.
	EscalateStale(ctx context.Context, belowConfidence int, olderThan time.Time) (int64, error)
}

package neo4jstore

import (
	"time"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/google/uuid"
)

func doubtFromProps(p map[string]any) *domain.Doubt {
	d := &domain.Doubt{
		QueryKey:   stringProp(p, "query_key"),
		Query:      stringProp(p, "query"),
		Context:    stringProp(p, "context"),
		Answer:     stringProp(p, "answer"),
		Confidence: int(intProp(p, "confidence")),
		ContentID:  stringProp(p, "content_id"),
		Status:     domain.DoubtStatus(stringProp(p, "status")),
		CreatedAt:  timeProp(p, "created_at"),
		UpdatedAt:  timeProp(p, "updated_at"),
	}
	if id, err := uuid.Parse(stringProp(p, "id")); err == nil {
		d.ID = id
	}
	if esc, ok := p["escalated"].(bool); ok {
		d.Escalated = esc
	}
	if t := timeProp(p, "resolved_at"); !t.IsZero() {
		d.ResolvedAt = &t
	}
	return d
}

func stringProp(p map[string]any, key string) string {
	s, _ := p[key].(string)
	return s
}

// intProp accepts the int64 the driver returns and the float64 some
// procedures produce.
func intProp(p map[string]any, key string) int64 {
	switch v := p[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func timeProp(p map[string]any, key string) time.Time {
	switch v := p[key].(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	case time.Time:
		return v
	default:
		return time.Time{}
	}
}

package service

import (
	"context"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/Harshitk-cp/doubtsolver/internal/observability"
	"go.uber.org/zap"
)

// EmbeddingGateway turns every provider failure into "no embedding".
type EmbeddingGateway struct {
	client  domain.EmbeddingClient
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewEmbeddingGateway(client domain.EmbeddingClient, logger *zap.Logger, metrics *observability.Metrics) *EmbeddingGateway {
	return &EmbeddingGateway{client: client, logger: logger, metrics: metrics}
}

// Embed returns nil when no embedding is available. It never fails.
func (g *EmbeddingGateway) Embed(ctx context.Context, text string) []float32 {
	if g == nil || g.client == nil {
		return nil
	}
	vec, err := g.client.Embed(ctx, text)
	if err != nil {
		g.logger.Warn("embedding unavailable", zap.Error(err))
		g.metrics.Degraded("embedding")
		return nil
	}
	if len(vec) == 0 {
		g.logger.Warn("embedding provider returned an empty vector")
		g.metrics.Degraded("embedding")
		return nil
	}
	return vec
}

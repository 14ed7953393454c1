package api

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/doubtsolver/internal/config"
	"github.com/Harshitk-cp/doubtsolver/internal/store"
	"github.com/Harshitk-cp/doubtsolver/internal/store/neo4jstore"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	BackendPostgres = "postgres"
	BackendNeo4j    = "neo4j"
)

// OpenStores connects to the backend named by KNOWLEDGE_BACKEND and prepares
// its schema. The returned func releases the connection.
func OpenStores(ctx context.Context, logger *zap.Logger) (Stores, func(), error) {
	switch backend := config.KnowledgeBackend(); backend {
	case BackendPostgres:
		return openPostgres(ctx, logger)
	case BackendNeo4j:
		return openNeo4j(ctx, logger)
	default:
		return Stores{}, nil, fmt.Errorf("unknown knowledge backend: %s (valid options: postgres, neo4j)", backend)
	}
}

func openPostgres(ctx context.Context, logger *zap.Logger) (Stores, func(), error) {
	dbURL := config.DatabaseURL()
	if dbURL == "" {
		return Stores{}, nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return Stores{}, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return Stores{}, nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("connected to database")

	if err := store.Migrate(ctx, pool, config.MigrationsPath(), logger); err != nil {
		pool.Close()
		return Stores{}, nil, err
	}

	return Stores{
		Backend:   BackendPostgres,
		Doubts:    store.NewDoubtStore(pool),
		Knowledge: store.NewKnowledgeStore(pool),
		Ping:      pool.Ping,
	}, pool.Close, nil
}

func openNeo4j(ctx context.Context, logger *zap.Logger) (Stores, func(), error) {
	client, err := neo4jstore.NewClient(ctx, neo4jstore.ClientConfig{
		URI:      config.Neo4jURI(),
		User:     config.Neo4jUser(),
		Password: config.Neo4jPassword(),
		Database: config.Neo4jDatabase(),
	})
	if err != nil {
		return Stores{}, nil, err
	}
	logger.Info("connected to neo4j", zap.String("uri", config.Neo4jURI()))

	s := neo4jstore.New(client, config.EmbeddingDimensions(), logger)
	s.EnsureSchema(ctx)

	closer := func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Warn("close neo4j driver", zap.Error(err))
		}
	}
	return Stores{
		Backend:   BackendNeo4j,
		Doubts:    s,
		Knowledge: s,
		Ping:      client.Driver.VerifyConnectivity,
	}, closer, nil
}

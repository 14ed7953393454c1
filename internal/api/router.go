package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Harshitk-cp/doubtsolver/internal/api/handlers"
	mw "github.com/Harshitk-cp/doubtsolver/internal/api/middleware"
	"github.com/Harshitk-cp/doubtsolver/internal/buildconfig"
	"github.com/Harshitk-cp/doubtsolver/internal/config"
	"github.com/Harshitk-cp/doubtsolver/internal/domain"
	"github.com/Harshitk-cp/doubtsolver/internal/embedding"
	"github.com/Harshitk-cp/doubtsolver/internal/llm"
	"github.com/Harshitk-cp/doubtsolver/internal/observability"
	"github.com/Harshitk-cp/doubtsolver/internal/service"
	"github.com/Harshitk-cp/doubtsolver/internal/store"
	"github.com/Harshitk-cp/doubtsolver/internal/store/neo4jstore"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Stores is the persistence backend the app runs on. Ping backs /health and
// may be nil.
type Stores struct {
	Backend   string
	Doubts    domain.DoubtStore
	Knowledge domain.KnowledgeStore
	Ping      func(ctx context.Context) error
}

// App holds the router and the background admitter for lifecycle management.
type App struct {
	Router    *chi.Mux
	Admitter  *service.Admitter
	Doubts    *service.DoubtService
	Metrics   *observability.Metrics
	// Escalator is nil when the doubt store cannot flag stale doubts.
	Escalator *service.EscalatorService
}

// NewApp wires clients, services and routes. ctx bounds the rate limiter's
// cleanup loop.
func NewApp(ctx context.Context, stores Stores, logger *zap.Logger) (*App, error) {
	tutorCfg := config.Tutor()

	tutorClient, err := llm.NewClient(tutorCfg.Provider, tutorCfg.BaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("tutor client: %w", err)
	}
	logger.Info("tutor client initialized",
		zap.String("provider", tutorCfg.Provider),
		zap.String("text_model", tutorCfg.TextModel),
		zap.Bool("default_key", tutorCfg.APIKey != ""))

	embeddingProvider := config.EmbeddingProvider()
	embeddingClient, err := embedding.NewClient(embeddingProvider, config.EmbeddingAPIKey(), config.EmbeddingServiceURL(), config.EmbeddingDimensions())
	if err != nil {
		// Semantic search and admission degrade to misses without embeddings.
		logger.Warn("embedding client initialization failed", zap.String("provider", embeddingProvider), zap.Error(err))
	} else {
		logger.Info("embedding client initialized", zap.String("provider", embeddingProvider))
	}

	metrics := observability.NewMetrics("doubtsolver")

	// Services
	embedder := service.NewEmbeddingGateway(embeddingClient, logger, metrics)
	admitter := service.NewAdmitter(logger, config.AdmissionTimeout())
	lookupSvc := service.NewLookupService(stores.Doubts, logger, metrics)
	semanticSvc := service.NewSemanticSearchService(stores.Knowledge, embedder, logger, metrics)
	tutorSvc := service.NewTutorService(tutorClient, tutorCfg, logger, metrics)
	writer := service.NewKnowledgeWriter(stores.Knowledge, stores.Doubts, embedder, logger, metrics)
	doubtSvc := service.NewDoubtService(lookupSvc, semanticSvc, tutorSvc, writer, admitter, logger, metrics)
	doubtSvc.SetKnowledgeStore(stores.Knowledge)

	var escalatorSvc *service.EscalatorService
	if e, ok := stores.Doubts.(domain.DoubtEscalator); ok {
		escalatorSvc = service.NewEscalatorService(e, config.DoubtEscalationAge(), logger, metrics)
	}

	// Handlers
	doubtHandler := handlers.NewDoubtHandler(doubtSvc, logger)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Admitter:  admitter,
		Doubts:    doubtSvc,
		Metrics:   metrics,
		Escalator: escalatorSvc,
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)                                                      // Generate/extract request ID first
	r.Use(middleware.RealIP)                                                 // Extract real IP
	r.Use(mw.TutorKey)                                                       // Caller key for logs and limits
	r.Use(mw.Metrics(metrics))                                               // Prometheus HTTP metrics
	r.Use(mw.Logging(logger))                                                // Log all requests
	r.Use(middleware.Recoverer)                                              // Recover from panics
	r.Use(mw.RateLimit(ctx, config.RateLimitRPS(), config.RateLimitBurst())) // Rate limiting

	r.Get("/health", healthHandler(stores))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/doubts/resolve", doubtHandler.Resolve)

		r.Route("/knowledge", func(r chi.Router) {
			r.Post("/admit", doubtHandler.Admit)
			r.Get("/stats", doubtHandler.Stats)
		})
	})

	return app, nil
}

func healthHandler(stores Stores) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status":  "ok",
			"backend": stores.Backend,
			"build":   buildconfig.VersionInfo(),
		}
		status := http.StatusOK

		if stores.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := stores.Ping(ctx); err != nil {
				body["status"] = "error"
				body["error"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.DoubtStore      = (*store.DoubtStore)(nil)
	_ domain.KnowledgeStore  = (*store.KnowledgeStore)(nil)
	_ domain.DoubtStore      = (*neo4jstore.Store)(nil)
	_ domain.KnowledgeStore  = (*neo4jstore.Store)(nil)
	_ domain.DoubtEscalator  = (*store.DoubtStore)(nil)
	_ domain.DoubtEscalator  = (*neo4jstore.Store)(nil)
	_ domain.EmbeddingClient = (*embedding.ServiceClient)(nil)
	_ domain.EmbeddingClient = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient = (*embedding.MockClient)(nil)
	_ domain.TutorClient     = (*llm.ChatClient)(nil)
	_ domain.TutorClient     = (*llm.MockClient)(nil)
	_ handlers.DoubtResolver = (*service.DoubtService)(nil)
)

// Package app wires configuration, stores, providers and services into a
// runnable shop assistant.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shop-assistant/internal/config"
	"shop-assistant/internal/domain/contextengine"
	"shop-assistant/internal/domain/interfaces/repository"
	Iservices "shop-assistant/internal/domain/interfaces/services"
	"shop-assistant/internal/infra/handlers"
	"shop-assistant/internal/infra/logger"
	"shop-assistant/internal/infra/provider"
	infrarepo "shop-assistant/internal/infra/repository"
	"shop-assistant/internal/infra/routes"
	"shop-assistant/internal/infra/services"
	"shop-assistant/internal/metrics"
	"shop-assistant/internal/middleware"
	client "shop-assistant/internal/pkg"
	"shop-assistant/internal/pkg/keylock"
)

type App struct {
	Config   config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Repository   repository.ConversationRepository
	Provider     Iservices.ITextGenerationProvider
	ContextStore *services.ContextStoreService
	Pipeline     *services.ContextPipelineService
	Chat         *services.ChatService
	Interactions *services.InteractionService
	Maintenance  *services.MaintenanceService

	closers []func(context.Context) error
}

// New opens the configured store and text-generation provider and builds the services.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	repo, closer, err := OpenRepository(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	p, err := provider.New(ctx, cfg.LLM)
	if err != nil {
		if closer != nil {
			_ = closer(ctx)
		}
		return nil, fmt.Errorf("error creating %s provider: %w", cfg.LLM.Provider, err)
	}

	a := Assemble(cfg, log, repo, p)
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	return a, nil
}

// Assemble builds the services on top of an already opened store and provider.
func Assemble(cfg config.Config, log *logger.Logger, repo repository.ConversationRepository, p Iservices.ITextGenerationProvider) *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	locks := keylock.New()
	store := services.NewContextStoreService(repo, log, m)
	extractor := services.NewExtractorService(p, log, m, time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)
	pipeline := services.NewContextPipelineService(
		repo,
		store,
		extractor,
		contextengine.NewMerger(cfg.Engine.MaxTopics, cfg.Engine.MaxEntities),
		contextengine.NewAssembler(cfg.Engine.Persona),
		locks,
		log,
		m,
	)

	return &App{
		Config:       cfg,
		Logger:       log,
		Registry:     reg,
		Metrics:      m,
		Repository:   repo,
		Provider:     p,
		ContextStore: store,
		Pipeline:     pipeline,
		Chat:         services.NewChatService(repo, pipeline, p, log),
		Interactions: services.NewInteractionService(repo, store, locks, log, m),
		Maintenance:  services.NewMaintenanceService(repo, store, pipeline, locks, log, cfg.Engine.ReanalyzeConcurrency),
	}
}

// OpenRepository connects the conversation store selected by cfg.Driver. The
// returned closer is nil when the store holds no external resources.
func OpenRepository(ctx context.Context, cfg config.StoreConfig) (repository.ConversationRepository, func(context.Context) error, error) {
	switch cfg.Driver {
	case config.StoreMongo:
		mongoClient, err := client.MongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		repo := infrarepo.NewMongoConversationRepository(mongoClient.Database(cfg.MongoDatabase))
		return repo, mongoClient.Disconnect, nil
	case config.StoreSQLite:
		db, err := client.SQLiteClient(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		repo, err := infrarepo.NewSQLiteConversationRepository(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, func(context.Context) error { return db.Close() }, nil
	case config.StoreDynamoDB:
		dynamoClient, err := client.DynamoClient(ctx, cfg.DynamoEndpoint)
		if err != nil {
			return nil, nil, err
		}
		return infrarepo.NewDynamoConversationRepository(dynamoClient, cfg.DynamoTable), nil, nil
	case config.StoreMemory:
		return infrarepo.NewMemoryConversationRepository(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Handler returns the HTTP surface with logging, recovery and API key middleware.
func (a *App) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(a.Logger, a.Metrics))
	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.APIKeyMiddleware(a.Config.APIKey))

	httpHandlers := handlers.NewHttpHandlers(a.Logger, a.Chat, a.ContextStore, a.Interactions)
	metricsHandler := promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry})
	routes.NewRoutes(router, httpHandlers, metricsHandler).Init()

	return router
}

// Close releases the store connection.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, closer := range a.closers {
		errs = append(errs, closer(ctx))
	}
	return errors.Join(errs...)
}

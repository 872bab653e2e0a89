package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tribehub/backend/internal/api"
	"tribehub/backend/internal/graph"
	"tribehub/backend/internal/metrics"
	"tribehub/backend/pkg/config"
	"tribehub/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...")

	// Connect to Neo4j
	ctx := context.Background()
	store, err := graph.NewNeo4jStore(ctx, connConfig(cfg))
	if err != nil {
		log.Fatal("Failed to connect to Neo4j", zap.Error(err))
	}
	defer store.Close(context.Background())

	applied := graph.EnsureSchema(ctx, store, logger.Named("schema"))
	log.Info("Schema ensured", zap.Int("statements", applied))

	// Initialize dependencies
	m := metrics.New()
	repo := graph.NewRepository(store,
		graph.WithObserver(m),
		graph.WithAggregationConcurrency(cfg.AggregationConcurrency),
	)

	router := api.NewRouter(api.RouterConfig{
		Posts:    repo,
		Comments: repo,
		Likes:    repo,
		Logger:   log,
		Observer: m,
		Metrics:  m.Handler(),
		Release:  cfg.IsProduction(),
	})

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// connConfig maps the environment configuration onto the store adapter
func connConfig(cfg *config.Config) graph.ConnConfig {
	return graph.ConnConfig{
		URI:                   cfg.Neo4jURI,
		User:                  cfg.Neo4jUser,
		Password:              cfg.Neo4jPassword,
		Database:              cfg.Neo4jDatabase,
		MaxConnectionPoolSize: cfg.Neo4jMaxPoolSize,
	}
}

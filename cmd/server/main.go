package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/artifact"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/checks"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/classifier"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/config"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/embed"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/handler"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/index"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/index/opensearch"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/index/qdrant"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/oracle"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/port"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/reconciler"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/repository/postgres"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/router"
	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	runRepo := postgres.NewReviewRunRepo(db)
	verdictRepo := postgres.NewFinalVerdictRepo(db)

	// Initialize retrieval backends
	embedder := embed.NewClient(&cfg.Embedder)
	osClient := opensearch.NewClient(&cfg.Index)
	qdClient := qdrant.NewClient(&cfg.Index)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := qdClient.EnsureCollection(ctx, embedder.Dimension()); err != nil {
		// Vector search degrades to keyword-only; the run records it.
		log.Printf("server: qdrant collection unavailable, starting degraded: %v", err)
	}
	cancel()

	hybrid := index.NewHybrid(osClient, qdClient, embedder)

	// Initialize object storage (model artifacts, issue register archive)
	var s3Store *artifact.S3Store
	if cfg.S3.Bucket != "" {
		s3Store, err = artifact.NewS3Store(&cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 store: %w", err)
		}
	}

	// Load the relevance model. A missing artifact is not fatal: the filter
	// runs as a pass-through and every candidate reaches the oracle.
	var modelStore port.ModelStore = artifact.NewLocalStore(".")
	if cfg.Classifier.Store == "s3" && s3Store != nil {
		modelStore = s3Store
	}
	model := loadModel(modelStore, cfg.Classifier.ArtifactKey)
	filter := classifier.NewFilter(model, embedder, cfg.Classifier.ThresholdHigh, cfg.Classifier.ThresholdLow)

	// Initialize the judgment oracle and reconciliation
	judge := oracle.NewAdapter(oracle.NewClient(&cfg.Oracle), cfg.Oracle.MaxRetries)
	rec := reconciler.New(cfg.Oracle.ConfidenceThreshold)
	registry := checks.NewDefaultRegistry()

	var archiver service.Archiver
	if s3Store != nil {
		archiver = s3Store
	}

	// Initialize services and handlers
	reviewSvc := service.NewReviewService(cfg, hybrid, filter, registry, judge, rec, runRepo, verdictRepo, archiver)
	reviewH := handler.NewReviewHandler(reviewSvc)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(cfg.Worker.Token, reviewH, healthH)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func loadModel(store port.ModelStore, key string) *classifier.Model {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := store.Fetch(ctx, key)
	if err != nil {
		log.Printf("server: classifier model %s unavailable, filter passes through: %v", key, err)
		return nil
	}
	model, err := classifier.Load(data)
	if err != nil {
		log.Printf("server: classifier model %s rejected, filter passes through: %v", key, err)
		return nil
	}
	log.Printf("server: classifier model loaded (version=%s, dimension=%d)", model.Version(), model.Dimension())
	return model
}

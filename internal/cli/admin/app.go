package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/tekstlab/interlink/internal/config"
	"github.com/tekstlab/interlink/internal/contentsource"
	"github.com/tekstlab/interlink/internal/database"
	"github.com/tekstlab/interlink/internal/openai"
	"github.com/tekstlab/interlink/internal/pipeline"
	"github.com/tekstlab/interlink/internal/progress"
	"github.com/tekstlab/interlink/internal/repository"
	"github.com/tekstlab/interlink/internal/service"
	"github.com/tekstlab/interlink/internal/storage"
)

// app bundles the wired components shared by serve and run.
type app struct {
	pool         *pgxpool.Pool
	orchestrator *pipeline.Orchestrator
	links        *repository.LinkRepository
	blacklist    *repository.BlacklistRepository
}

func (a *app) Close() {
	a.pool.Close()
}

// buildApp wires the full pipeline stack from configuration. The embedding
// provider is mandatory for any pipeline work; the evaluator, Redis, and S3
// pieces are optional and degrade to nil.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if !cfg.HasOpenAI() {
		return nil, fmt.Errorf("INTERLINK_OPENAI_API_KEY is required")
	}
	if cfg.ContentSourceURL == "" {
		return nil, fmt.Errorf("INTERLINK_CONTENT_SOURCE_URL is required")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("connected to database")

	var store progress.Store
	if cfg.HasRedis() {
		redisStore, err := progress.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = redisStore
		log.Println("using redis progress store")
	} else {
		store = repository.NewProgressStore(pool)
	}

	source := contentsource.NewHTTPClient(cfg.ContentSourceURL, cfg.ContentSourceAPIKey)
	provider := openai.NewClientWithConfig(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		EmbeddingModel: goopenai.EmbeddingModel(cfg.EmbeddingModel),
	})

	var evaluator service.ContextualEvaluator
	if cfg.Settings.SecondaryFilterEnabled {
		evaluator = openai.NewEvaluator(cfg.OpenAIAPIKey, cfg.EvaluatorModel)
	}

	var uploader service.ReportUploader
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		uploader = s3Client
	}

	embeddingRepo := repository.NewEmbeddingRepository(pool)
	linkRepo := repository.NewLinkRepository(pool)
	blacklistRepo := repository.NewBlacklistRepository(pool)
	customRepo := repository.NewCustomTargetRepository(pool)
	runRepo := repository.NewRunRepository(pool)

	registry := service.NewClusterRegistry(cfg.Settings.ClusterThreshold, cfg.Settings.MaxClusters)
	indexer := service.NewIndexer(source, embeddingRepo, customRepo, provider, cfg.Settings)
	matcher := service.NewMatcher(linkRepo, blacklistRepo, source, registry, provider, cfg.Settings, cfg.Debug)
	reporter := service.NewReporter(runRepo, uploader)

	orchestrator := pipeline.NewOrchestrator(
		store,
		indexer,
		matcher,
		registry,
		linkRepo,
		embeddingRepo,
		customRepo,
		evaluator,
		provider,
		reporter,
		cfg.Settings,
	)

	return &app{
		pool:         pool,
		orchestrator: orchestrator,
		links:        linkRepo,
		blacklist:    blacklistRepo,
	}, nil
}

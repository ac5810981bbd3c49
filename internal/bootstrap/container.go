package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"textbook-qa-be/internal/config"
	"textbook-qa-be/internal/controller"
	"textbook-qa-be/internal/pkg/logger"
	"textbook-qa-be/internal/repository/unitofwork"
	"textbook-qa-be/internal/service"
	"textbook-qa-be/pkg/chunker"
	"textbook-qa-be/pkg/embedding"
	"textbook-qa-be/pkg/embedding/jina"
	"textbook-qa-be/pkg/llm"
	"textbook-qa-be/pkg/llm/dispatcher"
	"textbook-qa-be/pkg/llm/factory"
	"textbook-qa-be/pkg/rag/cache"
	"textbook-qa-be/pkg/rag/indexer"
	"textbook-qa-be/pkg/rag/retriever"
	"textbook-qa-be/pkg/storage"

	pktNats "textbook-qa-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	QAController   controller.IQAController
	BookController controller.IBookController

	// Services, also used directly by the CLI
	QAService   service.IQAService
	BookService service.IBookService
	Indexer     *indexer.Indexer

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Storage storage.Storage
	Logger  logger.ILogger

	closers []func()
}

// NewContainer wires every collaborator from cfg. uowFactory is the gorm
// factory in production and the memory store in CLI dry runs.
func NewContainer(ctx context.Context, uowFactory unitofwork.RepositoryFactory, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{Logger: sysLogger}

	// 1. Storage
	store, err := newStorage(ctx, cfg, c)
	if err != nil {
		return nil, err
	}
	c.Storage = store

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Providers
	embeddingProvider := newEmbeddingProvider(cfg)

	settings := factory.Settings{
		GeminiAPIKey:      cfg.Keys.GoogleGemini,
		HuggingFaceAPIKey: cfg.Keys.HuggingFace,
		HuggingFaceURL:    cfg.Ai.HuggingFaceURL,
		OllamaBaseURL:     cfg.Ai.OllamaBaseURL,
	}
	build := func(provider, model string) (llm.LLMProvider, error) {
		return factory.NewLLMProvider(provider, model, settings)
	}
	plan := dispatcher.NewPlan(cfg.Ai.ModelPriority, cfg.Ai.BranchPriority, build, sysLogger)
	quick := newQuickProvider(cfg, build, sysLogger)

	// 4. Infrastructure
	var events indexer.EventPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			events = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	cacheStore, err := newCacheStore(ctx, cfg, uowFactory, c)
	if err != nil {
		return nil, err
	}

	// 5. RAG pipeline
	ragRetriever := retriever.New(uowFactory, embeddingProvider, retriever.Config{
		Timeout:        cfg.Rag.RetrievalTimeout,
		EmbedTimeout:   cfg.Rag.EmbedTimeout,
		Threshold:      cfg.Rag.SimilarityThreshold,
		Limit:          cfg.Rag.TopK,
		CandidateBatch: retriever.DefaultConfig().CandidateBatch,
	}, sysLogger)

	chunking := chunker.DefaultOptions()
	chunking.FixedWidth = cfg.Rag.ChunkFixedWidth
	chunking.MaxLen = cfg.Rag.ChunkMaxLen
	chunking.MinLen = cfg.Rag.ChunkMinLen
	c.Indexer = indexer.New(uowFactory, store, embeddingProvider, events, indexer.Config{
		BatchSize: cfg.Rag.BatchSize,
		MaxBytes:  cfg.Rag.MaxBookBytes,
		Chunking:  chunking,
	}, sysLogger)

	// 6. Services
	c.QAService = service.NewQAService(
		ragRetriever,
		cache.New(cacheStore, sysLogger, cfg.Cache.TTL),
		dispatcher.New(cfg.Ai.ModelTimeout, sysLogger),
		plan,
		quick,
		service.QAConfig{
			TopK:          cfg.Rag.TopK,
			HistoryWindow: cfg.Rag.HistoryWindow,
			QuickTimeout:  cfg.Ai.ModelTimeout,
		},
		sysLogger,
	)

	publisherService := service.NewPublisherService(cfg.App.IngestTopic, pubSub)
	c.BookService = service.NewBookService(uowFactory, c.Indexer, publisherService, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.App.IngestTopic, c.Indexer, sysLogger)

	// 7. Controllers
	c.QAController = controller.NewQAController(c.QAService)
	c.BookController = controller.NewBookController(c.BookService)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func newEmbeddingProvider(cfg *config.Config) embedding.EmbeddingProvider {
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
		return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	case "jina":
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
		return jina.NewJinaProvider(cfg.Keys.Jina)
	default:
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
		return embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	}
}

// newQuickProvider returns nil when the quick model cannot be built; the
// quick endpoint then answers with the apology.
func newQuickProvider(cfg *config.Config, build dispatcher.BuildFunc, sysLogger logger.ILogger) llm.LLMProvider {
	provider, model, err := factory.ParseEntry(cfg.Ai.QuickModel)
	if err == nil {
		var inner llm.LLMProvider
		if inner, err = build(provider, model); err == nil {
			retryCfg := llm.DefaultRetryConfig()
			retryCfg.OnRetry = func(err error, wait time.Duration) {
				sysLogger.Warn("QUICK", "Rate limited, retrying", map[string]interface{}{
					"model": cfg.Ai.QuickModel,
					"wait":  wait.String(),
					"error": err.Error(),
				})
			}
			return llm.NewRetryingProvider(inner, retryCfg)
		}
	}
	sysLogger.Warn("QUICK", "Quick model disabled", map[string]interface{}{"entry": cfg.Ai.QuickModel, "error": err.Error()})
	return nil
}

func newStorage(ctx context.Context, cfg *config.Config, c *Container) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "gcs":
		gcs, err := storage.NewGCS(ctx, cfg.Storage.GCSBucket, cfg.Rag.MaxBookBytes)
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		c.closers = append(c.closers, func() { _ = gcs.Close() })
		log.Printf("[INFO] Using Storage: GCS (%s)", cfg.Storage.GCSBucket)
		return gcs, nil
	case "local", "":
		log.Printf("[INFO] Using Storage: LOCAL (%s)", cfg.Storage.LocalRoot)
		return storage.NewLocal(cfg.Storage.LocalRoot, cfg.Rag.MaxBookBytes), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

func newCacheStore(ctx context.Context, cfg *config.Config, uowFactory unitofwork.RepositoryFactory, c *Container) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "postgres", "":
		return cache.NewRepositoryStore(uowFactory), nil
	case "memory":
		return cache.NewMemoryStore(cfg.Cache.TTL), nil
	case "redis":
		return cache.NewRedisStore(newRedisClient(ctx, cfg, c), cfg.Cache.TTL), nil
	case "tiered":
		// Redis is shared between instances; go-cache keeps hot keys local.
		l2 := cache.NewRedisStore(newRedisClient(ctx, cfg, c), cfg.Cache.TTL)
		return cache.NewTieredStore(5*time.Minute, l2), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}
}

func newRedisClient(ctx context.Context, cfg *config.Config, c *Container) *redis.Client {
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })
	return rdb
}

package bootstrap

import (
	"context"
	"log"
	"net/http"

	"couple-summary-be/internal/config"
	"couple-summary-be/internal/controller"
	"couple-summary-be/internal/pkg/logger"
	"couple-summary-be/internal/pkg/serverutils"
	"couple-summary-be/internal/repository/cache"
	"couple-summary-be/internal/repository/contract"
	"couple-summary-be/internal/repository/memory"
	"couple-summary-be/internal/repository/unitofwork"
	"couple-summary-be/internal/service"
	"couple-summary-be/pkg/audit"
	"couple-summary-be/pkg/llm/factory"
	"couple-summary-be/pkg/llm/fallback"
	"couple-summary-be/pkg/summary/lease"
	"couple-summary-be/pkg/summary/persist"
	"couple-summary-be/pkg/summary/repair"

	pktNats "couple-summary-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SummaryController controller.ISummaryController
	WebhookController controller.IWebhookController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogFilePath)

	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	// NATS
	var bus service.EventPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
	} else {
		bus = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	// Redis
	summaryCache := cache.NewSummaryCache(newRedis(cfg.App.RedisURL, sysLogger), cfg.Summary.CacheTTL)

	// 4. Generation
	llmProvider, err := factory.NewLLMProvider(providerConfig(cfg.Ai), &http.Client{})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	models := cfg.Ai.Models()
	sysLogger.Info("BOOTSTRAP", "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.Provider,
		"models":   models,
	})
	generator := fallback.NewClient(llmProvider, models, sysLogger)
	repairPipeline := repair.NewPipeline(generator, cfg.Ai.RepairMaxTokens, sysLogger)

	// 5. Lease + persistence
	// Long-lived repositories, bound to the pool rather than a request.
	repos := unitofwork.NewUnitOfWork(db)
	var leaseRepo contract.CoupleSummaryRepository
	if cfg.Summary.LeaseStore == "memory" {
		sysLogger.Warn("BOOTSTRAP", "Using in-memory lease store; leases are not shared across instances", nil)
		leaseRepo = memory.NewCoupleSummaryRepository()
	} else {
		leaseRepo = repos.CoupleSummaryRepository()
	}
	coordinator := lease.NewCoordinator(leaseRepo, cfg.Summary.LeaseTTL, sysLogger)
	writer := persist.NewWriter(repos.UserSummaryRepository(), coordinator, sysLogger)

	// 6. Services
	recorder := audit.NewRecorder(pubSub, audit.Topic, sysLogger)
	c.ConsumerService = service.NewAuditConsumer(pubSub, audit.Topic, uowFactory, bus, auditLogger, sysLogger)

	entitlementService := service.NewEntitlementService(uowFactory, service.EntitlementConfig{
		PurchaseType:  cfg.Summary.PurchaseType,
		EntitlementId: cfg.Summary.EntitlementId,
	}, bus, sysLogger)

	summaryService := service.NewSummaryService(service.SummaryServiceDeps{
		UowFactory:  uowFactory,
		Entitlement: entitlementService,
		Lease:       coordinator,
		Writer:      writer,
		Generator:   generator,
		Repair:      repairPipeline,
		Cache:       summaryCache,
		Audit:       recorder,
		Config: service.SummaryConfig{
			Temperature:     cfg.Ai.Temperature,
			MaxOutputTokens: cfg.Ai.MaxOutputTokens,
			MaxAnswerChars:  cfg.Summary.MaxAnswerChars,
		},
		Logger: sysLogger,
	})

	// 7. Controllers
	verifier := serverutils.NewJWTVerifier(cfg.Auth.JwtSecret)
	c.SummaryController = controller.NewSummaryController(summaryService, verifier.Middleware())
	c.WebhookController = controller.NewWebhookController(entitlementService, cfg.Auth.WebhookSecret, sysLogger)

	return c
}

// Close releases the event bus connections.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func providerConfig(ai config.AIConfig) factory.Config {
	if ai.Provider == "ollama" {
		return factory.Config{Provider: ai.Provider, ModelName: ai.PrimaryModel, BaseURL: ai.OllamaBaseURL}
	}
	return factory.Config{
		Provider:  ai.Provider,
		ModelName: ai.PrimaryModel,
		BaseURL:   ai.GeminiBaseURL,
		APIKey:    ai.GeminiApiKey,
	}
}

// newRedis returns nil when Redis is unreachable so the cache degrades to a no-op.
func newRedis(url string, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{
			Addr: url,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Warn("BOOTSTRAP", "Failed to connect to Redis, summary cache disabled", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}

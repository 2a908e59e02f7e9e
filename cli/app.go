package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"contentpilot/api"
	"contentpilot/common"
	"contentpilot/config"
	"contentpilot/logging"
	"contentpilot/orchestrator"
	"contentpilot/providers"
	"contentpilot/resilience"
	"contentpilot/rssfeeds"
	"contentpilot/scheduler"
	"contentpilot/shared/kafka"
	"contentpilot/storage"
)

// app owns the long-lived clients of one command invocation
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  storage.Store
	checks map[string]api.HealthCheck

	closers []func() error
}

// newApp builds the logger and store. Pipeline collaborators are wired on
// demand by pipeline().
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, checks: map[string]api.HealthCheck{}}
	a.onClose(func() error {
		_ = logger.Sync()
		return nil
	})

	if cfg.Storage.DSN == "" {
		logger.Warn("No storage DSN configured, using in-memory store")
		a.store = storage.NewMemory()
	} else {
		sqlStore, err := storage.OpenSQL(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		a.store = sqlStore
		a.checks["store"] = sqlStore.Ping
	}
	a.onClose(a.store.Close)
	return a, nil
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) scheduler() *scheduler.Service {
	return scheduler.NewService(a.store, a.logger,
		scheduler.WithStrictValidation(a.cfg.Scheduler.StrictValidation))
}

// pipeline wires every configured provider into an orchestrator
func (a *app) pipeline(ctx context.Context) (*orchestrator.Orchestrator, error) {
	cfg := a.cfg
	pc := cfg.Providers

	deps := orchestrator.Dependencies{
		Jobs:    a.store,
		Content: a.store,
		Logger:  a.logger,
	}

	if pc.Research.FeedSearchURL != "" || len(pc.Research.Feeds) > 0 {
		feeds := rssfeeds.NewResearcher(rssfeeds.Config{
			SearchURL:  pc.Research.FeedSearchURL,
			Feeds:      pc.Research.Feeds,
			MaxSources: pc.Research.MaxSources,
			Extract:    pc.Research.Extract,
		}, a.logger.Named("rssfeeds"))
		deps.Researchers = append(deps.Researchers, providers.ResearchProvider("news-feeds", 1, feeds))
	}

	chat := providers.NewChatClient(providers.ChatConfig{
		Endpoint:     pc.Chat.Endpoint,
		APIKey:       pc.Chat.APIKey,
		Model:        pc.Chat.Model,
		SystemPrompt: pc.Chat.SystemPrompt,
		RateLimit:    pc.Chat.RateLimit,
		Timeout:      cfg.Pipeline.CallTimeout,
	})
	if chat.Configured() {
		deps.Researchers = append(deps.Researchers, providers.ResearchProvider("chat", 2, providers.NewChatResearcher(chat)))
	}

	if pc.Cohere.APIKey != "" {
		deps.Writers = append(deps.Writers, providers.WriterProvider("cohere", 1, providers.NewCohereWriter(pc.Cohere.APIKey, pc.Cohere.Model)))
	}
	if chat.Configured() {
		deps.Writers = append(deps.Writers, providers.WriterProvider("chat", 2, providers.NewChatWriter(chat)))
	}

	images := providers.NewImageClient(providers.ImageConfig{
		Endpoint:  pc.Image.Endpoint,
		APIKey:    pc.Image.APIKey,
		Model:     pc.Image.Model,
		Size:      pc.Image.Size,
		RateLimit: pc.Image.RateLimit,
	})
	if images.Configured() {
		deps.Images = images
	}
	if cfg.S3.Bucket != "" {
		objects, err := common.NewS3(ctx, common.S3Config{
			Bucket:        cfg.S3.Bucket,
			Prefix:        cfg.S3.Prefix,
			Region:        cfg.S3.Region,
			Profile:       cfg.S3.Profile,
			UsePathStyle:  cfg.S3.UsePathStyle,
			PublicBaseURL: cfg.S3.PublicBaseURL,
		})
		if err != nil {
			a.logger.Warn("S3 unavailable, images will be skipped", zap.Error(err))
		} else {
			deps.Objects = objects
		}
	}

	wp := providers.NewWordPress(providers.WordPressConfig{
		BaseURL:     cfg.Publisher.BaseURL,
		Username:    cfg.Publisher.Username,
		AppPassword: cfg.Publisher.AppPassword,
	})
	if wp.Configured() {
		deps.Publisher = wp
	}
	if cfg.Notifier.TelegramToken != "" {
		deps.Notifier = providers.NewTelegram(cfg.Notifier.TelegramToken)
	}

	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.UsageTopic,
			Logger:  a.logger,
		})
		if err != nil {
			a.logger.Warn("Kafka producer unavailable, usage events disabled", zap.Error(err))
		} else {
			a.onClose(producer.Close)
			deps.Usage = providers.NewKafkaUsageMeter(producer)
		}
	}

	deps.Cache = a.researchCache(ctx)

	opts := orchestrator.DefaultOptions()
	opts.CallTimeout = cfg.Pipeline.CallTimeout
	opts.ResearchTTL = cfg.Pipeline.ResearchTTL
	opts.ImageRetry.MaxAttempts = cfg.Pipeline.RetryAttempts
	opts.ImageRetry.BaseDelay = cfg.Pipeline.RetryBaseDelay
	opts.ImageRetry.Retryable = providers.IsRetryable

	orch, err := orchestrator.New(deps, opts)
	if err != nil {
		return nil, err
	}
	a.onClose(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return orch.Close(ctx)
	})

	a.logger.Info("Pipeline ready",
		zap.Int("researchers", len(deps.Researchers)),
		zap.Int("writers", len(deps.Writers)),
		zap.Bool("images", deps.Images != nil && deps.Objects != nil),
		zap.Bool("publisher", deps.Publisher != nil),
		zap.Bool("notifier", deps.Notifier != nil),
		zap.Bool("usage", deps.Usage != nil))
	return orch, nil
}

// researchCache prefers Redis so research is shared between processes
func (a *app) researchCache(ctx context.Context) resilience.Cache {
	rc := a.cfg.Redis
	ttl := a.cfg.Pipeline.ResearchTTL
	if rc.Addr != "" {
		cache, err := resilience.NewRedisCache(ctx, resilience.RedisConfig{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
			Prefix:   rc.Prefix,
			TTL:      ttl,
		}, a.logger)
		if err == nil {
			a.onClose(cache.Close)
			a.checks["redis"] = cache.Ping
			return cache
		}
		a.logger.Warn("Redis unavailable, falling back to in-process cache", zap.Error(err))
	}
	return resilience.NewMemoryCache(ttl, time.Now)
}

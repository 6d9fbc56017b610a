package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/ncecere/image_studio/internal/cache"
	"github.com/ncecere/image_studio/internal/config"
	"github.com/ncecere/image_studio/internal/imaging"
	"github.com/ncecere/image_studio/internal/limits"
	"github.com/ncecere/image_studio/internal/observability"
	"github.com/ncecere/image_studio/internal/pipeline"
	"github.com/ncecere/image_studio/internal/providers"
)

// Container aggregates runtime dependencies for handlers.
type Container struct {
	Config        *config.Config
	Logger        *slog.Logger
	Redis         *redis.Client
	Upstream      providers.Upstream
	Normalizer    *imaging.Normalizer
	Editor        *pipeline.Editor
	Generator     *pipeline.Generator
	RateLimiter   *limits.RateLimiter
	ClientLimit   limits.LimitConfig
	Idempotency   *cache.IdempotencyCache
	Observability *observability.Provider
}

// NewContainer builds a dependency container from the provided primitives.
// redisClient may be nil, in which case rate limits and idempotent replays
// are disabled.
func NewContainer(ctx context.Context, cfg *config.Config, upstream providers.Upstream, redisClient *redis.Client, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if upstream == nil {
		return nil, fmt.Errorf("upstream is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	normalizer, err := imaging.NewNormalizer(imaging.Policy{
		MaxBytes:  cfg.Images.MaxBytes(),
		Canonical: cfg.Images.CanonicalFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("init image normalizer: %w", err)
	}

	obsProvider, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("setup observability: %w", err)
	}

	recorder := recorderFor(obsProvider)
	editor, err := pipeline.NewEditor(upstream, normalizer, pipeline.EditConfig{
		Model:           cfg.Upstream.EditModel,
		Size:            cfg.Upstream.EditSize,
		MinPromptLength: cfg.Prompts.EditMinLength,
		Timeout:         cfg.Upstream.Timeout,
	}, recorder, logger.With("component", "edit"))
	if err != nil {
		return nil, fmt.Errorf("init edit pipeline: %w", err)
	}
	generator, err := pipeline.NewGenerator(upstream, pipeline.GenerateConfig{
		ChatModel:       cfg.Upstream.ChatModel,
		ImageModel:      cfg.Upstream.ImageModel,
		MinPromptLength: cfg.Prompts.GenerateMinLength,
		Timeout:         cfg.Upstream.Timeout,
	}, recorder, logger.With("component", "generate"))
	if err != nil {
		return nil, fmt.Errorf("init generate pipeline: %w", err)
	}

	var idem *cache.IdempotencyCache
	if cfg.Idempotency.Enabled {
		idem = cache.NewIdempotencyCache(redisClient, cfg.Idempotency.TTL)
	}

	clientLimit := limits.LimitConfig{
		RequestsPerMinute: cfg.RateLimits.RequestsPerMinute,
		TokensPerMinute:   cfg.RateLimits.TokensPerMinute,
		ParallelRequests:  cfg.RateLimits.ParallelRequests,
	}

	return &Container{
		Config:        cfg,
		Logger:        logger,
		Redis:         redisClient,
		Upstream:      upstream,
		Normalizer:    normalizer,
		Editor:        editor,
		Generator:     generator,
		RateLimiter:   limits.NewRateLimiter(redisClient),
		ClientLimit:   clientLimit,
		Idempotency:   idem,
		Observability: obsProvider,
	}, nil
}

// recorderFor avoids storing a typed nil provider in the Recorder interface.
func recorderFor(p *observability.Provider) pipeline.Recorder {
	if p == nil {
		return nil
	}
	return p
}

// RecordRejection counts a request answered with an error kind.
func (c *Container) RecordRejection(kind string) {
	if c == nil {
		return
	}
	c.Observability.RecordRejection(kind)
}

// Close flushes telemetry and closes the redis client.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if err := c.Observability.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown observability: %w", err))
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

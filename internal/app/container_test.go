package app

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/image_studio/internal/config"
	"github.com/ncecere/image_studio/internal/limits"
	"github.com/ncecere/image_studio/internal/models"
)

type stubUpstream struct{}

func (stubUpstream) Chat(context.Context, models.ChatRequest) (models.ChatResponse, error) {
	return models.ChatResponse{}, nil
}

func (stubUpstream) Generate(context.Context, models.ImageRequest) (models.ImageResponse, error) {
	return models.ImageResponse{}, nil
}

func (stubUpstream) Edit(context.Context, models.ImageEditRequest) (models.ImageResponse, error) {
	return models.ImageResponse{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Upstream: config.UpstreamConfig{
			ChatModel:  "gpt-4o-mini",
			ImageModel: "gpt-image-1",
			EditModel:  "gpt-image-1",
			EditSize:   "1024x1024",
			Timeout:    time.Minute,
		},
		Images: config.ImagesConfig{MaxSizeMB: 4, EditTransport: config.TransportMultipart},
	}
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestNewContainerWithoutRedis(t *testing.T) {
	container, err := NewContainer(context.Background(), testConfig(), stubUpstream{}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, container.Editor)
	require.NotNil(t, container.Generator)
	require.Nil(t, container.Observability)
	require.Nil(t, container.Idempotency)

	release, err := container.AcquireRateLimits(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	release()
	require.NoError(t, container.Close(context.Background()))
}

func TestNewContainerRequiresUpstream(t *testing.T) {
	_, err := NewContainer(context.Background(), testConfig(), nil, nil, nil)
	require.Error(t, err)
}

func TestNewContainerRejectsCanonicalWebP(t *testing.T) {
	cfg := testConfig()
	cfg.Images.CanonicalFormat = "webp"
	_, err := NewContainer(context.Background(), cfg, stubUpstream{}, nil, nil)
	require.Error(t, err)
}

func TestAcquireRateLimits_ParallelLimitPerClient(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimits.ParallelRequests = 1
	container, err := NewContainer(context.Background(), cfg, stubUpstream{}, newRedis(t), nil)
	require.NoError(t, err)

	ctx := context.Background()
	release, err := container.AcquireRateLimits(ctx, "10.0.0.1")
	require.NoError(t, err)

	_, err = container.AcquireRateLimits(ctx, "10.0.0.1")
	require.True(t, errors.Is(err, limits.ErrLimitExceeded), "got %v", err)

	other, err := container.AcquireRateLimits(ctx, "10.0.0.2")
	require.NoError(t, err)
	other()

	release()
	again, err := container.AcquireRateLimits(ctx, "10.0.0.1")
	require.NoError(t, err)
	again()
}

func TestChargeUsageExhaustsTokenBudget(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimits.TokensPerMinute = 100
	container, err := NewContainer(context.Background(), cfg, stubUpstream{}, newRedis(t), nil)
	require.NoError(t, err)

	ctx := context.Background()
	release, err := container.AcquireRateLimits(ctx, "10.0.0.1")
	require.NoError(t, err)
	release()

	container.ChargeUsage(ctx, "10.0.0.1", models.Usage{PromptTokens: 60, CompletionTokens: 50})

	_, err = container.AcquireRateLimits(ctx, "10.0.0.1")
	require.ErrorIs(t, err, limits.ErrLimitExceeded)
}

func TestClientKey(t *testing.T) {
	require.Equal(t, "client:1.2.3.4", ClientKey(" 1.2.3.4 "))
	require.Equal(t, "client:unknown", ClientKey(""))
}

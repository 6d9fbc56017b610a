package providers

import (
	"context"
	"fmt"
	"strings"

	native "github.com/ncecere/image_studio/internal/adapters/openai"
	"github.com/ncecere/image_studio/internal/config"
)

func init() {
	RegisterDefinition(Definition{
		Name:         config.ProviderOpenAI,
		Description:  "OpenAI native API (chat, image generation, image edits)",
		Capabilities: []string{"chat", "images", "image_edits"},
		Builder:      buildOpenAI,
	})
	RegisterDefinition(Definition{
		Name:         config.ProviderOpenAICompatible,
		Description:  "OpenAI API-compatible endpoint (custom base URL)",
		Capabilities: []string{"chat", "images", "image_edits"},
		Builder:      buildOpenAICompatible,
	})
}

func buildOpenAI(_ context.Context, cfg config.UpstreamConfig) (Upstream, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openai provider requires api key (upstream.api_key or OPENAI_API_KEY)")
	}
	adapter, err := native.New(native.Options{
		APIKey:       apiKey,
		BaseURL:      strings.TrimSpace(cfg.BaseURL),
		Organization: strings.TrimSpace(cfg.Organization),
		MaxRetries:   cfg.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

func buildOpenAICompatible(ctx context.Context, cfg config.UpstreamConfig) (Upstream, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("openai-compatible provider requires upstream.base_url")
	}
	return buildOpenAI(ctx, cfg)
}

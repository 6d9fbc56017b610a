package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ncecere/image_studio/internal/config"
)

// Builder constructs the upstream client for a provider definition.
type Builder func(ctx context.Context, cfg config.UpstreamConfig) (Upstream, error)

// New builds the process-wide upstream client named by cfg.Provider.
func New(ctx context.Context, cfg config.UpstreamConfig) (Upstream, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = config.ProviderOpenAI
	}
	def, ok := defaultDefinitions[name]
	if !ok {
		return nil, fmt.Errorf("provider %q unsupported", cfg.Provider)
	}
	upstream, err := def.Builder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", name, err)
	}
	return upstream, nil
}

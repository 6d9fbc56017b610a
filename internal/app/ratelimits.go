package app

import (
	"context"
	"strings"

	"github.com/ncecere/image_studio/internal/models"
)

// ClientKey scopes rate limits to a caller address.
func ClientKey(caller string) string {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		caller = "unknown"
	}
	return "client:" + caller
}

// AcquireRateLimits enforces the per-client limits before any upstream work.
// The release func must be called once the request finishes.
func (c *Container) AcquireRateLimits(ctx context.Context, caller string) (func(), error) {
	return c.RateLimiter.Acquire(ctx, ClientKey(caller), c.ClientLimit)
}

// ChargeUsage records the tokens a successful request consumed.
func (c *Container) ChargeUsage(ctx context.Context, caller string, usage models.Usage) {
	if c.ClientLimit.TokensPerMinute <= 0 {
		return
	}
	tokens := int(usage.TotalTokens)
	if tokens <= 0 {
		tokens = int(usage.PromptTokens + usage.CompletionTokens)
	}
	if tokens <= 0 {
		return
	}
	if err := c.RateLimiter.ChargeTokens(ctx, ClientKey(caller), tokens, c.ClientLimit); err != nil {
		c.Logger.Warn("charge token usage failed", "error", err)
	}
}

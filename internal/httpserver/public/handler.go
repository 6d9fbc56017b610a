package public

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/image_studio/internal/apierr"
	"github.com/ncecere/image_studio/internal/app"
	"github.com/ncecere/image_studio/internal/cache"
	"github.com/ncecere/image_studio/internal/httpserver/httputil"
	"github.com/ncecere/image_studio/internal/limits"
	"github.com/ncecere/image_studio/internal/models"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
)

type handler struct {
	container *app.Container
}

// operation runs one pipeline and returns the value to encode on success.
type operation func(ctx context.Context) (any, models.Usage, error)

// serve wraps an operation with idempotent replay, per-client rate limits,
// error mapping and usage accounting.
func (h *handler) serve(c *fiber.Ctx, route string, op operation) error {
	ctx := userContext(c)
	caller := c.IP()

	idemKey := ""
	if h.container.Idempotency.Enabled() {
		idemKey = cache.ScopedKey(route+"?"+string(c.Request().URI().QueryString()), caller, c.Get(headerIdempotencyKey))
		if cached, ok := h.container.Idempotency.Get(ctx, idemKey); ok {
			c.Set(headerReplayed, "true")
			return sendJSON(c, cached)
		}
	}

	release, err := h.container.AcquireRateLimits(ctx, caller)
	if err != nil {
		if errors.Is(err, limits.ErrLimitExceeded) {
			h.container.RecordRejection("rate_limited")
			return httputil.WriteError(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		// Limiter errors fail open.
		h.container.Logger.Warn("rate limiter unavailable", "error", err)
		release = func() {}
	}
	defer release()

	payload, usage, err := op(ctx)
	if err != nil {
		h.container.RecordRejection(string(apierr.KindOf(err)))
		if _, typed := apierr.As(err); !typed {
			h.container.Logger.Error("request failed", "route", route, "error", err)
		}
		return httputil.WriteAppError(c, err)
	}
	h.container.ChargeUsage(ctx, caller, usage)

	body, err := c.App().Config().JSONEncoder(payload)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, "failed to encode response")
	}
	h.container.Idempotency.Set(ctx, idemKey, body)
	return sendJSON(c, body)
}

func sendJSON(c *fiber.Ctx, body []byte) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(body)
}

func userContext(c *fiber.Ctx) context.Context {
	if c == nil {
		return context.Background()
	}
	if uc := c.UserContext(); uc != nil {
		return uc
	}
	return context.Background()
}

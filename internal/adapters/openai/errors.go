package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"

	"github.com/ncecere/image_studio/internal/apierr"
)

// classifyError maps SDK failures onto the upstream error kinds. Only the
// message reported by the service is kept; request bodies are never echoed.
func classifyError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apierr.Wrap(apierr.KindUpstreamTimeout, err, "upstream request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return apierr.Wrap(apierr.KindUpstreamGeneric, err, "upstream request canceled")
	}

	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return apierr.Upstream(apierr.KindUpstreamGeneric, http.StatusBadGateway, "upstream request failed", err)
	}
	return classifyStatus(apiErr.StatusCode, apiErr.Message, err)
}

func classifyStatus(status int, message string, err error) error {
	message = strings.TrimSpace(message)
	switch status {
	case http.StatusUnauthorized:
		if message == "" {
			message = "upstream rejected the configured credentials"
		}
		return apierr.Upstream(apierr.KindUpstreamAuth, http.StatusUnauthorized, message, err)
	case http.StatusForbidden:
		if message == "" {
			message = "upstream denied access for the configured credentials"
		}
		return apierr.Upstream(apierr.KindUpstreamAuth, http.StatusInternalServerError, message, err)
	case http.StatusTooManyRequests:
		if message == "" {
			message = "upstream rate limit reached"
		}
		return apierr.Upstream(apierr.KindUpstreamRateLimited, http.StatusTooManyRequests, message, err)
	default:
		return apierr.Upstream(apierr.KindUpstreamGeneric, status, message, err)
	}
}

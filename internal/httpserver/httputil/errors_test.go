package httputil

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/image_studio/internal/apierr"
)

func TestWriteAppError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"client", apierr.New(apierr.KindInvalidPrompt, "prompt is required"), 400, `{"error":"prompt is required"}`},
		{"upstream status", apierr.Upstream(apierr.KindUpstreamRateLimited, 429, "slow down", nil), 429, `{"error":"slow down"}`},
		{"timeout", apierr.New(apierr.KindUpstreamTimeout, "upstream timed out"), 504, `{"error":"upstream timed out"}`},
		{"untyped", errors.New("dial tcp: secret host"), 500, `{"error":"internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return WriteAppError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			require.Equal(t, tt.status, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.JSONEq(t, tt.body, string(body))
		})
	}
}

func TestWriteErrorDefaultsMessage(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return WriteError(c, fiber.StatusMethodNotAllowed, "") })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	require.JSONEq(t, `{"error":"Method Not Allowed"}`, string(body))
}

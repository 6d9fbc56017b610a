package public

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/image_studio/internal/apierr"
	"github.com/ncecere/image_studio/internal/models"
	"github.com/ncecere/image_studio/internal/pipeline"
	"github.com/ncecere/image_studio/internal/sheet"
)

type generateRequest struct {
	Prompt         string `json:"prompt"`
	Style          string `json:"style"`
	NegativePrompt string `json:"negative_prompt"`
	pipeline.Options
}

type generateResponse struct {
	pipeline.ImageEnvelope
	Sheet       sheet.Sheet  `json:"sheet"`
	SheetSource sheet.Source `json:"sheet_source"`
	Variants    []string     `json:"variants,omitempty"`
	B64         string       `json:"b64,omitempty"`
}

var usageDescriptor = fiber.Map{
	"ok":    true,
	"usage": "POST /api/generate with JSON body {prompt, style?, negative_prompt?, creativity?, quality?, variants?, ratio?} and optional ?format=url|b64",
	"query_supported": fiber.Map{
		"format": "url | b64 (default: url)",
	},
	"options": fiber.Map{
		"creativity": "0-100 (default: 70)",
		"quality":    "1-4 (low, medium, high, auto)",
		"variants":   "1 | 2 | 4 (default: 1)",
		"ratio":      "1-1 | 3-4 | 9-16 | 4-3 | 16-9 (default: 1-1)",
	},
}

func (h *handler) generateUsage(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(usageDescriptor)
}

func (h *handler) generate(c *fiber.Ctx) error {
	var req generateRequest
	var decodeErr error
	// Unmarshal copies every string, so the request buffer is not retained.
	if body := c.Body(); len(body) > 0 {
		decodeErr = json.Unmarshal(body, &req)
	}
	wantB64 := strings.EqualFold(strings.TrimSpace(c.Query("format")), "b64")

	return h.serve(c, routeGenerate, func(ctx context.Context) (any, models.Usage, error) {
		if decodeErr != nil {
			return nil, models.Usage{}, apierr.Wrap(apierr.KindMalformedRequest, decodeErr, "invalid JSON body")
		}
		result, err := h.container.Generator.Generate(ctx, pipeline.GenerateInput{
			Prompt:         req.Prompt,
			Style:          req.Style,
			NegativePrompt: req.NegativePrompt,
			Options:        req.Options,
		})
		if err != nil {
			return nil, models.Usage{}, err
		}
		resp := generateResponse{
			ImageEnvelope: result.Envelope,
			Sheet:         result.Sheet.Sheet,
			SheetSource:   result.Sheet.Source,
		}
		if len(result.Variants) > 1 {
			resp.Variants = result.Variants
		}
		if wantB64 {
			resp.B64 = result.B64
		}
		return resp, result.Usage, nil
	})
}

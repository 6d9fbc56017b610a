package public

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/image_studio/internal/apierr"
	"github.com/ncecere/image_studio/internal/config"
	"github.com/ncecere/image_studio/internal/imaging"
	"github.com/ncecere/image_studio/internal/models"
	"github.com/ncecere/image_studio/internal/multipart"
	"github.com/ncecere/image_studio/internal/pipeline"
)

// fileField is the multipart part that carries the image to edit.
const fileField = "file"

type editJSONRequest struct {
	Prompt       string `json:"prompt"`
	ImageDataURL string `json:"image_data_url"`
}

func (h *handler) edit(c *fiber.Ctx) error {
	// fasthttp reuses the request buffer once the handler returns; the
	// decoded file part aliases this copy.
	body := bytes.Clone(c.Body())
	contentType := c.Get(fiber.HeaderContentType)

	return h.serve(c, routeEdit, func(ctx context.Context) (any, models.Usage, error) {
		in, err := h.editInput(body, contentType)
		if err != nil {
			return nil, models.Usage{}, err
		}
		result, err := h.container.Editor.Edit(ctx, in)
		if err != nil {
			return nil, models.Usage{}, err
		}
		return result.Envelope, result.Usage, nil
	})
}

func (h *handler) editInput(body []byte, contentType string) (pipeline.EditInput, error) {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))

	if h.container.Config.Images.EditTransport == config.TransportJSON {
		if !strings.HasPrefix(mediaType, fiber.MIMEApplicationJSON) {
			return pipeline.EditInput{}, apierr.New(apierr.KindMalformedRequest, "expected application/json body")
		}
		var req editJSONRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return pipeline.EditInput{}, apierr.Wrap(apierr.KindMalformedRequest, err, "invalid JSON body")
		}
		return pipeline.EditInput{Prompt: req.Prompt, DataURL: req.ImageDataURL}, nil
	}

	if !strings.HasPrefix(mediaType, fiber.MIMEMultipartForm) {
		return pipeline.EditInput{}, apierr.New(apierr.KindMalformedRequest, "expected multipart/form-data body")
	}
	form, err := multipart.Decode(body, contentType)
	if err != nil {
		return pipeline.EditInput{}, err
	}
	prompt, _ := form.Value("prompt")
	in := pipeline.EditInput{Prompt: prompt}
	if file := form.File(fileField); file != nil {
		in.File = &imaging.Candidate{
			MIMEType: file.ContentType,
			Data:     file.Data,
			Filename: file.Filename,
		}
	}
	return in, nil
}

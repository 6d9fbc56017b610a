package pipeline

import (
	"strings"

	"github.com/ncecere/image_studio/internal/apierr"
	"github.com/ncecere/image_studio/internal/dataurl"
	"github.com/ncecere/image_studio/internal/imaging"
	"github.com/ncecere/image_studio/internal/models"
)

// ImageMeta describes the image reference returned to callers.
type ImageMeta struct {
	RevisedPrompt *string `json:"revised_prompt"`
	ContentType   string  `json:"content_type,omitempty"`
}

// ImageEnvelope is the uniform output shape shared by both endpoints.
type ImageEnvelope struct {
	ImageURL  string    `json:"image_url"`
	ImageMeta ImageMeta `json:"image_meta"`
}

// ShapeImage maps the first upstream image to an envelope. Inline base64 is
// preferred over a remote URL and is repackaged as a data URL of contentType
// (image/png when empty).
func ShapeImage(resp models.ImageResponse, contentType string) (ImageEnvelope, error) {
	if len(resp.Data) == 0 {
		return ImageEnvelope{}, emptyResult()
	}
	first := resp.Data[0]
	ref, inline := reference(first, contentType)
	if ref == "" {
		return ImageEnvelope{}, emptyResult()
	}

	env := ImageEnvelope{ImageURL: ref}
	if revised := strings.TrimSpace(first.RevisedPrompt); revised != "" {
		env.ImageMeta.RevisedPrompt = &revised
	}
	if inline {
		env.ImageMeta.ContentType = inlineType(contentType)
	}
	return env, nil
}

// References returns a displayable reference for every usable image.
func References(resp models.ImageResponse, contentType string) []string {
	refs := make([]string, 0, len(resp.Data))
	for _, item := range resp.Data {
		if ref, _ := reference(item, contentType); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

func reference(item models.ImageData, contentType string) (string, bool) {
	if b64 := strings.TrimSpace(item.B64JSON); b64 != "" {
		return dataurl.FromBase64(inlineType(contentType), b64), true
	}
	return strings.TrimSpace(item.URL), false
}

func inlineType(contentType string) string {
	if ct := imaging.NormalizeMIME(contentType); imaging.IsSupported(ct) {
		return ct
	}
	return imaging.MIMEPNG
}

func emptyResult() error {
	return apierr.New(apierr.KindUpstreamEmptyResult, "upstream returned no image")
}

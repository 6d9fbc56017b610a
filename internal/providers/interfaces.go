package providers

import (
	"context"

	"github.com/ncecere/image_studio/internal/models"
)

type ChatCompletions interface {
	Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error)
}

type ImageGenerator interface {
	Generate(ctx context.Context, req models.ImageRequest) (models.ImageResponse, error)
}

type ImageEditor interface {
	Edit(ctx context.Context, req models.ImageEditRequest) (models.ImageResponse, error)
}

// Upstream is the full surface the handlers need from the generative service.
// One implementation is built at process start and shared by every request.
type Upstream interface {
	ChatCompletions
	ImageGenerator
	ImageEditor
}

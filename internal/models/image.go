package models

import (
	"bytes"
	"io"
	"time"
)

// ImageInput stores a binary image payload in-memory so the same data can be
// re-read when the upload is rebuilt.
type ImageInput struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Reader returns a fresh reader for the stored image bytes.
func (in ImageInput) Reader() io.Reader {
	return bytes.NewReader(in.Data)
}

// Size exposes the number of bytes in the image payload.
func (in ImageInput) Size() int64 {
	return int64(len(in.Data))
}

// ImageRequest captures parameters for generating images.
type ImageRequest struct {
	Model   string
	Prompt  string
	Size    string
	Quality string
	N       int
	User    string
}

// ImageEditRequest captures the inputs for an image edit call.
type ImageEditRequest struct {
	Model  string
	Prompt string
	Image  ImageInput
	Size   string
	N      int
	User   string
}

// ImageData represents a single generated image payload.
type ImageData struct {
	B64JSON       string
	URL           string
	RevisedPrompt string
}

// ImageResponse wraps generated images along with creation metadata.
type ImageResponse struct {
	Created time.Time
	Data    []ImageData
	Usage   Usage
}

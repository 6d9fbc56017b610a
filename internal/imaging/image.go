package imaging

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/ncecere/image_studio/internal/apierr"
)

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEWebP = "image/webp"
)

var supported = []string{MIMEPNG, MIMEJPEG, MIMEWebP}

// Supported lists the accepted image MIME types in display order.
func Supported() []string {
	out := make([]string, len(supported))
	copy(out, supported)
	return out
}

// IsSupported reports whether mime (already normalized) is accepted.
func IsSupported(mime string) bool {
	for _, s := range supported {
		if s == mime {
			return true
		}
	}
	return false
}

// NormalizeMIME lower-cases mime, drops parameters and rewrites the
// non-standard image/jpg alias.
func NormalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if mime == "image/jpg" || mime == "image/pjpeg" {
		return MIMEJPEG
	}
	return mime
}

// Extension returns the file extension used when the image is uploaded.
func Extension(mime string) string {
	switch NormalizeMIME(mime) {
	case MIMEJPEG:
		return ".jpg"
	case MIMEWebP:
		return ".webp"
	default:
		return ".png"
	}
}

// Sniff resolves the effective MIME type of data. Content recognized as any
// image type wins over the declared type, even when it is not supported; the
// declared type is used only for content that is not recognized as an image.
func Sniff(data []byte, declared string) string {
	if len(data) > 0 {
		if sniffed := NormalizeMIME(http.DetectContentType(data)); strings.HasPrefix(sniffed, "image/") {
			return sniffed
		}
	}
	return NormalizeMIME(declared)
}

// Image is a decoded image whose MIME type is normalized and supported.
type Image struct {
	MIMEType string
	Data     []byte
	Filename string
}

// NewImage validates mime against the allowlist before constructing an Image.
func NewImage(mime string, data []byte) (Image, error) {
	mime = NormalizeMIME(mime)
	if !IsSupported(mime) {
		return Image{}, unsupported(mime)
	}
	return Image{MIMEType: mime, Data: data}, nil
}

// Reader returns a fresh reader over the image bytes.
func (img Image) Reader() io.Reader {
	return bytes.NewReader(img.Data)
}

// Size exposes the number of bytes in the image payload.
func (img Image) Size() int64 {
	return int64(len(img.Data))
}

func unsupported(mime string) error {
	shown := mime
	if shown == "" {
		shown = "unknown"
	}
	return apierr.New(apierr.KindUnsupportedFormat, "unsupported image format %q (accepted: %s)", shown, strings.Join(supported, ", "))
}

package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/ncecere/image_studio/internal/apierr"
)

const jpegQuality = 92

// Policy configures the normalizer. A zero Canonical keeps the input format.
type Policy struct {
	MaxBytes  int64
	Canonical string
}

// Candidate is an image as received from a transport, before validation.
type Candidate struct {
	MIMEType string
	Data     []byte
	Filename string
}

// Normalizer enforces size and format policy and optionally transcodes to a
// canonical format accepted by the upstream edit endpoint.
type Normalizer struct {
	policy Policy
}

// NewNormalizer validates the policy and returns a Normalizer.
func NewNormalizer(policy Policy) (*Normalizer, error) {
	if policy.MaxBytes <= 0 {
		return nil, fmt.Errorf("imaging: max bytes must be > 0")
	}
	policy.Canonical = CanonicalMIME(policy.Canonical)
	switch policy.Canonical {
	case "", MIMEPNG, MIMEJPEG:
	default:
		return nil, fmt.Errorf("imaging: canonical format %q cannot be encoded", policy.Canonical)
	}
	return &Normalizer{policy: policy}, nil
}

// Policy returns the effective policy.
func (n *Normalizer) Policy() Policy {
	return n.policy
}

// CanonicalMIME accepts either a short format name ("png") or a MIME type.
func CanonicalMIME(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", "none", "original":
		return ""
	case "png":
		return MIMEPNG
	case "jpg", "jpeg":
		return MIMEJPEG
	case "webp":
		return MIMEWebP
	}
	return NormalizeMIME(format)
}

// Normalize applies, in order: the size gate, the format gate and the
// optional canonicalization.
func (n *Normalizer) Normalize(c Candidate) (Image, error) {
	if size := int64(len(c.Data)); size > n.policy.MaxBytes {
		return Image{}, apierr.New(apierr.KindPayloadTooLarge, "image is %d bytes, maximum is %d bytes", size, n.policy.MaxBytes)
	}
	img, err := NewImage(c.MIMEType, c.Data)
	if err != nil {
		return Image{}, err
	}
	img.Filename = c.Filename

	target := n.policy.Canonical
	if target == "" || target == img.MIMEType {
		return img, nil
	}
	out, err := Transcode(img.Data, target)
	if err != nil {
		return Image{}, apierr.Wrap(apierr.KindTranscodeFailed, err, "could not convert %s to %s", img.MIMEType, target)
	}
	return Image{
		MIMEType: target,
		Data:     out,
		Filename: replaceExtension(img.Filename, Extension(target)),
	}, nil
}

// Transcode decodes data in any registered format and re-encodes it as target.
func Transcode(data []byte, target string) ([]byte, error) {
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	var buf bytes.Buffer
	switch target {
	case MIMEPNG:
		err = png.Encode(&buf, decoded)
	case MIMEJPEG:
		err = jpeg.Encode(&buf, decoded, &jpeg.Options{Quality: jpegQuality})
	default:
		return nil, fmt.Errorf("no encoder for %s", target)
	}
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

func replaceExtension(name, ext string) string {
	if name == "" {
		return ""
	}
	if idx := strings.LastIndexByte(name, '.'); idx > 0 {
		name = name[:idx]
	}
	return name + ext
}

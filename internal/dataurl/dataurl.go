// Package dataurl converts between base64 data URLs and decoded images.
package dataurl

import (
	"encoding/base64"
	"regexp"

	"github.com/ncecere/image_studio/internal/apierr"
	"github.com/ncecere/image_studio/internal/imaging"
)

var pattern = regexp.MustCompile(`(?i)^data:(image/(?:png|jpe?g|webp));base64,(.+)$`)

// Decode parses a data:image/...;base64 string into a validated image.
func Decode(s string) (imaging.Image, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return imaging.Image{}, apierr.New(apierr.KindInvalidDataURL, "image_data_url must look like data:image/<png|jpeg|webp>;base64,<payload>")
	}
	mime := imaging.NormalizeMIME(m[1])
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return imaging.Image{}, apierr.Wrap(apierr.KindInvalidDataURL, err, "image_data_url payload is not valid base64")
	}
	if !imaging.IsSupported(mime) {
		return imaging.Image{}, apierr.New(apierr.KindInvalidDataURL, "image_data_url has unsupported type %q", mime)
	}
	return imaging.Image{MIMEType: mime, Data: data}, nil
}

// Encode renders data as a base64 data URL.
func Encode(mime string, data []byte) string {
	return FromBase64(mime, base64.StdEncoding.EncodeToString(data))
}

// FromBase64 wraps an already-encoded payload in a data URL.
func FromBase64(mime, payload string) string {
	return "data:" + mime + ";base64," + payload
}

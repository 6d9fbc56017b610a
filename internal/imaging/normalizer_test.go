package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/image_studio/internal/apierr"
)

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func newNormalizer(t *testing.T, policy Policy) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(policy)
	require.NoError(t, err)
	return n
}

func requireKind(t *testing.T, err error, kind apierr.Kind) {
	t.Helper()
	require.Error(t, err)
	got, ok := apierr.As(err)
	require.True(t, ok, "expected typed error, got %v", err)
	require.Equal(t, kind, got.Kind)
}

func TestNormalizeMIME(t *testing.T) {
	tests := map[string]string{
		"image/jpg":                 MIMEJPEG,
		"IMAGE/JPG":                 MIMEJPEG,
		"image/png; charset=binary": MIMEPNG,
		" image/webp ":              MIMEWebP,
		"text/plain":                "text/plain",
	}
	for in, want := range tests {
		require.Equal(t, want, NormalizeMIME(in), in)
	}
}

func TestSizeGateRunsBeforeFormatGate(t *testing.T) {
	n := newNormalizer(t, Policy{MaxBytes: 8})
	_, err := n.Normalize(Candidate{MIMEType: "application/zip", Data: bytes.Repeat([]byte{1}, 9)})
	requireKind(t, err, apierr.KindPayloadTooLarge)

	_, err = n.Normalize(Candidate{MIMEType: MIMEPNG, Data: bytes.Repeat([]byte{1}, 9)})
	requireKind(t, err, apierr.KindPayloadTooLarge)
}

func TestSizeGateAcceptsExactLimit(t *testing.T) {
	n := newNormalizer(t, Policy{MaxBytes: 4})
	img, err := n.Normalize(Candidate{MIMEType: MIMEPNG, Data: []byte{1, 2, 3, 4}})
	require.NoError(t, err)
	require.Equal(t, MIMEPNG, img.MIMEType)
}

func TestFormatGateNamesRejectedAndAccepted(t *testing.T) {
	n := newNormalizer(t, Policy{MaxBytes: 1024})
	_, err := n.Normalize(Candidate{MIMEType: "image/gif", Data: []byte("GIF89a")})
	requireKind(t, err, apierr.KindUnsupportedFormat)
	require.Contains(t, err.Error(), "image/gif")
	for _, mime := range Supported() {
		require.Contains(t, err.Error(), mime)
	}
}

func TestJPGAliasPassesFormatGate(t *testing.T) {
	n := newNormalizer(t, Policy{MaxBytes: 1024})
	img, err := n.Normalize(Candidate{MIMEType: "image/jpg", Data: []byte{0xff, 0xd8}})
	require.NoError(t, err)
	require.Equal(t, MIMEJPEG, img.MIMEType)
}

func TestCanonicalPNGTranscodesJPEG(t *testing.T) {
	n := newNormalizer(t, Policy{MaxBytes: 1 << 20, Canonical: "png"})
	img, err := n.Normalize(Candidate{MIMEType: MIMEJPEG, Data: encodeJPEG(t), Filename: "photo.jpeg"})
	require.NoError(t, err)
	require.Equal(t, MIMEPNG, img.MIMEType)
	require.Equal(t, "photo.png", img.Filename)

	_, format, err := image.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	require.Equal(t, "png", format)
}

func TestCanonicalKeepsMatchingInputUntouched(t *testing.T) {
	data := encodePNG(t)
	n := newNormalizer(t, Policy{MaxBytes: 1 << 20, Canonical: MIMEPNG})
	img, err := n.Normalize(Candidate{MIMEType: MIMEPNG, Data: data})
	require.NoError(t, err)
	require.Equal(t, data, img.Data)
}

func TestTranscodeFailureDoesNotPassThrough(t *testing.T) {
	n := newNormalizer(t, Policy{MaxBytes: 1 << 20, Canonical: "jpeg"})
	img, err := n.Normalize(Candidate{MIMEType: MIMEWebP, Data: []byte("RIFF\x00\x00\x00\x00WEBPVP8 garbage")})
	requireKind(t, err, apierr.KindTranscodeFailed)
	require.Nil(t, img.Data)
}

func TestNewNormalizerRejectsBadPolicy(t *testing.T) {
	_, err := NewNormalizer(Policy{})
	require.Error(t, err)

	_, err = NewNormalizer(Policy{MaxBytes: 10, Canonical: "webp"})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "image/webp"))
}

func TestSniffPrefersContent(t *testing.T) {
	require.Equal(t, MIMEPNG, Sniff(encodePNG(t), "application/octet-stream"))
	require.Equal(t, MIMEJPEG, Sniff(encodeJPEG(t), ""))
	require.Equal(t, MIMEJPEG, Sniff([]byte("not an image"), "image/jpg"))
	require.Equal(t, "", Sniff(nil, ""))
}

func TestSniffedUnsupportedImageOverridesDeclaredType(t *testing.T) {
	gif := []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\xff\xff\xff\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")
	require.Equal(t, "image/gif", Sniff(gif, "image/png"))

	n := newNormalizer(t, Policy{MaxBytes: 1024})
	_, err := n.Normalize(Candidate{MIMEType: Sniff(gif, "image/png"), Data: gif})
	requireKind(t, err, apierr.KindUnsupportedFormat)
	require.Contains(t, err.Error(), "image/gif")
}

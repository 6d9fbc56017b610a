package pipeline

import (
	"math"
	"strings"

	"github.com/ncecere/image_studio/internal/apierr"
)

const defaultTemperature = 0.7

var (
	qualityLevels = map[int]string{1: "low", 2: "medium", 3: "high", 4: "auto"}
	ratioSizes    = map[string]string{
		"1-1":  "1024x1024",
		"3-4":  "1024x1536",
		"9-16": "1024x1536",
		"4-3":  "1536x1024",
		"16-9": "1536x1024",
	}
)

// Options are the optional generation knobs as received from clients.
// Numbers arrive as JSON numbers and are validated here.
type Options struct {
	Creativity *float64 `json:"creativity,omitempty"`
	Quality    *float64 `json:"quality,omitempty"`
	Variants   *float64 `json:"variants,omitempty"`
	Ratio      string   `json:"ratio,omitempty"`
}

// Resolved are Options mapped onto upstream parameters.
type Resolved struct {
	Temperature float32
	Quality     string
	N           int
	Size        string
}

// Resolve validates o and maps it to upstream parameters.
func (o Options) Resolve() (Resolved, error) {
	out := Resolved{Temperature: defaultTemperature, N: 1, Size: ratioSizes["1-1"]}

	if o.Creativity != nil {
		c := *o.Creativity
		if math.IsNaN(c) || c < 0 || c > 100 {
			return Resolved{}, apierr.New(apierr.KindInvalidOption, "creativity must be between 0 and 100, got %v", c)
		}
		out.Temperature = float32(c / 100)
	}
	if o.Quality != nil {
		q, ok := wholeNumber(*o.Quality)
		level, known := qualityLevels[q]
		if !ok || !known {
			return Resolved{}, apierr.New(apierr.KindInvalidOption, "quality must be 1, 2, 3 or 4, got %v", *o.Quality)
		}
		out.Quality = level
	}
	if o.Variants != nil {
		v, ok := wholeNumber(*o.Variants)
		if !ok || (v != 1 && v != 2 && v != 4) {
			return Resolved{}, apierr.New(apierr.KindInvalidOption, "variants must be 1, 2 or 4, got %v", *o.Variants)
		}
		out.N = v
	}
	if ratio := strings.TrimSpace(o.Ratio); ratio != "" {
		size, ok := ratioSizes[ratio]
		if !ok {
			return Resolved{}, apierr.New(apierr.KindInvalidOption, "ratio %q is not one of 1-1, 3-4, 9-16, 4-3, 16-9", ratio)
		}
		out.Size = size
	}
	return out, nil
}

func wholeNumber(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

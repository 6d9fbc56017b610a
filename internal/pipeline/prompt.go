package pipeline

import (
	"strings"
	"unicode/utf8"

	"github.com/ncecere/image_studio/internal/apierr"
)

func validatePrompt(raw string, min int) (string, error) {
	prompt := strings.TrimSpace(raw)
	if prompt == "" {
		return "", apierr.New(apierr.KindInvalidPrompt, "prompt is required")
	}
	if utf8.RuneCountInString(prompt) < min {
		return "", apierr.New(apierr.KindInvalidPrompt, "prompt too short: must be at least %d characters", min)
	}
	return prompt, nil
}

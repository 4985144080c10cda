package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/facturaIA/amount-extractor-bot/internal/models"
)

// VisionEngine reads text from an image with a vision model so that
// its output can be fed to the same amount extraction as Tesseract.
type VisionEngine struct {
	provider Provider
	timeout  time.Duration
}

// NewVisionEngine creates a recognition engine backed by provider
func NewVisionEngine(provider Provider, timeout time.Duration) *VisionEngine {
	return &VisionEngine{
		provider: provider,
		timeout:  timeout,
	}
}

// Recognize asks the provider to transcribe the image for profile
func (e *VisionEngine) Recognize(ctx context.Context, image []byte, profile models.RecognitionProfile) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	text, err := e.provider.Transcribe(ctx, buildPrompt(profile), image)
	if err != nil {
		return "", fmt.Errorf("%s transcription failed: %w", e.provider.Name(), err)
	}

	return cleanResponse(text), nil
}

// buildPrompt creates the transcription prompt for profile
func buildPrompt(profile models.RecognitionProfile) string {
	var b strings.Builder

	b.WriteString(`Transcribe all text in this image exactly as it appears.

Rules:
- Return ONLY the transcribed text (no markdown, no code blocks, no commentary)
- Keep digits, commas and currency symbols as printed
- Keep one line of output per line in the image
`)

	if profile.Language != "" {
		fmt.Fprintf(&b, "- The text is written in: %s\n", describeLanguages(profile.Language))
	}
	if profile.Whitelist != "" {
		fmt.Fprintf(&b, "- Only these characters matter: %s\n", profile.Whitelist)
	}

	return b.String()
}

var languageNames = map[string]string{
	"jpn": "Japanese",
	"eng": "English",
}

func describeLanguages(tag string) string {
	parts := strings.Split(tag, "+")
	for i, p := range parts {
		if name, ok := languageNames[p]; ok {
			parts[i] = name
		}
	}
	return strings.Join(parts, ", ")
}

// cleanResponse removes markdown code fences models sometimes add
func cleanResponse(response string) string {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```text")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

// Package recognition runs an ordered list of OCR profiles against one image
// and stops at the first profile whose text yields an amount.
package recognition

import (
	"context"
	"time"

	"github.com/facturaIA/amount-extractor-bot/internal/amount"
	"github.com/facturaIA/amount-extractor-bot/internal/models"
)

// AttemptFunc recognizes text for a single profile
type AttemptFunc func(ctx context.Context, profile models.RecognitionProfile) (string, error)

// Run tries each profile in order and returns after the first match.
// A failing profile is recorded as an attempt with empty text and never aborts the run.
// Profiles not yet started when ctx is done are not tried.
func Run(ctx context.Context, profiles []models.RecognitionProfile, attempt AttemptFunc) models.ExtractionResult {
	result := models.ExtractionResult{
		Attempts: make([]models.RecognitionAttempt, 0, len(profiles)),
	}

	for _, profile := range profiles {
		if ctx.Err() != nil {
			break
		}

		started := time.Now()
		text, err := attempt(ctx, profile)
		record := models.RecognitionAttempt{
			Profile:  profile.Identifier(),
			Duration: time.Since(started),
		}
		if err != nil {
			record.Error = err.Error()
			result.Attempts = append(result.Attempts, record)
			continue
		}

		record.Text = text
		// A zero amount counts as no match.
		if n, ok := amount.FromText(text); ok && n > 0 {
			record.Amount = n
			record.Found = true
		}
		result.Attempts = append(result.Attempts, record)

		if record.Found {
			result.Amount = record.Amount
			result.Found = true
			break
		}
	}

	return result
}

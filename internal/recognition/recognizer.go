package recognition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facturaIA/amount-extractor-bot/internal/amount"
	"github.com/facturaIA/amount-extractor-bot/internal/models"
	"github.com/rs/zerolog"
)

// ErrUnknownEngine is returned for a profile routed to an unregistered engine
var ErrUnknownEngine = errors.New("unknown recognition engine")

// Engine converts an image into raw text for one profile
type Engine interface {
	Recognize(ctx context.Context, image []byte, profile models.RecognitionProfile) (string, error)
}

// Observer receives the outcome of every attempt
type Observer interface {
	ObserveAttempt(profile string, outcome string, duration time.Duration)
}

// Attempt outcomes reported to the Observer
const (
	OutcomeMatched  = "matched"
	OutcomeNoAmount = "no_amount"
	OutcomeError    = "error"
)

// Recognizer runs the configured profiles against a preprocessed image
type Recognizer struct {
	engines  map[string]Engine
	profiles []models.RecognitionProfile
	observer Observer
}

// NewRecognizer creates a recognizer over an ordered profile list
func NewRecognizer(profiles []models.RecognitionProfile, engines map[string]Engine, observer Observer) (*Recognizer, error) {
	if len(profiles) == 0 {
		return nil, ErrNoProfiles
	}

	return &Recognizer{
		engines:  engines,
		profiles: profiles,
		observer: observer,
	}, nil
}

// Profiles returns the trial order
func (r *Recognizer) Profiles() []models.RecognitionProfile {
	return r.profiles
}

// Recognize runs the profiles in order against image
func (r *Recognizer) Recognize(ctx context.Context, image []byte) models.ExtractionResult {
	logger := zerolog.Ctx(ctx)

	result := Run(ctx, r.profiles, func(ctx context.Context, profile models.RecognitionProfile) (string, error) {
		engine, ok := r.engines[engineName(profile)]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownEngine, engineName(profile))
		}
		return engine.Recognize(ctx, image, profile)
	})

	for _, attempt := range result.Attempts {
		outcome := OutcomeNoAmount
		switch {
		case attempt.Error != "":
			outcome = OutcomeError
			logger.Warn().
				Str("profile", attempt.Profile).
				Str("error", attempt.Error).
				Msg("Recognition attempt failed")
		case attempt.Found:
			outcome = OutcomeMatched
		}

		logger.Debug().
			Str("profile", attempt.Profile).
			Str("text", attempt.Text).
			Str("normalized", amount.Normalize(attempt.Text)).
			Int64("amount", attempt.Amount).
			Dur("duration", attempt.Duration).
			Msg("Recognition attempt")

		if r.observer != nil {
			r.observer.ObserveAttempt(attempt.Profile, outcome, attempt.Duration)
		}
	}

	return result
}

func engineName(p models.RecognitionProfile) string {
	if p.Engine == "" {
		return models.EngineTesseract
	}
	return p.Engine
}

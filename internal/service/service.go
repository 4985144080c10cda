// Package service wires preprocessing and recognition into one extraction call
// shared by the chat bot, the HTTP API and the CLI.
package service

import (
	"context"

	"github.com/facturaIA/amount-extractor-bot/internal/models"
	"github.com/facturaIA/amount-extractor-bot/internal/preprocess"
	"github.com/rs/zerolog"
)

// Recognizer runs the profile list against an image
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) models.ExtractionResult
}

// Metrics receives pipeline events
type Metrics interface {
	PreprocessFallback()
}

// Extraction is the outcome of one Process call
type Extraction struct {
	models.ExtractionResult
	Preprocessed bool
}

// Service extracts amounts from uploaded images
type Service struct {
	preprocessor preprocess.Preprocessor
	recognizer   Recognizer
	metrics      Metrics
}

// New creates an extraction service. preprocessor may be nil to feed images to OCR as-is.
func New(preprocessor preprocess.Preprocessor, recognizer Recognizer, metrics Metrics) *Service {
	return &Service{
		preprocessor: preprocessor,
		recognizer:   recognizer,
		metrics:      metrics,
	}
}

// Process preprocesses imageData and runs recognition on it.
// A preprocessing failure falls back to the original bytes.
func (s *Service) Process(ctx context.Context, imageData []byte) Extraction {
	logger := zerolog.Ctx(ctx)

	image := imageData
	preprocessed := false
	if s.preprocessor != nil {
		out, err := s.preprocessor.Preprocess(ctx, imageData)
		if err != nil {
			logger.Warn().Err(err).Msg("Image preprocessing failed, using original image")
			if s.metrics != nil {
				s.metrics.PreprocessFallback()
			}
		} else {
			image = out
			preprocessed = true
		}
	}

	result := s.recognizer.Recognize(ctx, image)

	if result.Found {
		logger.Info().
			Int64("amount", result.Amount).
			Int("attempts", len(result.Attempts)).
			Msg("Amount extracted")
	} else {
		logger.Info().
			Int("attempts", len(result.Attempts)).
			Msg("No amount found")
	}

	return Extraction{
		ExtractionResult: result,
		Preprocessed:     preprocessed,
	}
}

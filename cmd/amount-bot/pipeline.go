package main

import (
	"fmt"

	"github.com/facturaIA/amount-extractor-bot/internal/ai"
	"github.com/facturaIA/amount-extractor-bot/internal/config"
	"github.com/facturaIA/amount-extractor-bot/internal/models"
	"github.com/facturaIA/amount-extractor-bot/internal/observability"
	"github.com/facturaIA/amount-extractor-bot/internal/ocr"
	"github.com/facturaIA/amount-extractor-bot/internal/preprocess"
	"github.com/facturaIA/amount-extractor-bot/internal/recognition"
	"github.com/facturaIA/amount-extractor-bot/internal/service"
	"github.com/rs/zerolog/log"
)

// pipeline is the assembled extraction service
type pipeline struct {
	service  *service.Service
	profiles []models.RecognitionProfile
	cleanup  func()
}

// buildPipeline wires preprocessing, engines and profiles from cfg.
// metrics may be nil.
func buildPipeline(cfg *config.Config, metrics *observability.Metrics, withPreprocess bool) (*pipeline, error) {
	profiles := recognition.DefaultProfiles()
	if cfg.Recognition.ProfilesFile != "" {
		loaded, err := recognition.LoadProfilesFile(cfg.Recognition.ProfilesFile)
		if err != nil {
			return nil, err
		}
		profiles = loaded
		log.Info().Str("file", cfg.Recognition.ProfilesFile).Int("count", len(profiles)).Msg("Recognition profiles loaded")
	}

	var observer recognition.Observer
	var serviceMetrics service.Metrics
	if metrics != nil {
		observer = metrics
		serviceMetrics = metrics
	}

	recognizer, err := recognition.NewRecognizer(profiles, buildEngines(cfg), observer)
	if err != nil {
		return nil, err
	}

	p := &pipeline{profiles: profiles, cleanup: func() {}}

	var pre preprocess.Preprocessor
	if withPreprocess {
		pre, p.cleanup, err = buildPreprocessor(cfg.Preprocess)
		if err != nil {
			return nil, err
		}
	}

	p.service = service.New(pre, recognizer, serviceMetrics)
	return p, nil
}

func buildPreprocessor(cfg config.PreprocessConfig) (preprocess.Preprocessor, func(), error) {
	opts := preprocess.Options{
		Crop:         cfg.Crop,
		SharpenSigma: cfg.SharpenSigma,
	}

	var pre preprocess.Preprocessor
	cleanup := func() {}
	switch cfg.Backend {
	case preprocess.BackendImagick:
		pre = ocr.NewPreprocessor(opts)
		cleanup = ocr.Terminate
	case preprocess.BackendImaging:
		pre = preprocess.NewImagingPreprocessor(opts)
	default:
		return nil, nil, fmt.Errorf("unknown preprocess backend %q", cfg.Backend)
	}

	if cfg.DebugOutput != "" {
		pre = &preprocess.DebugWriter{Next: pre, Path: cfg.DebugOutput}
	}
	return pre, cleanup, nil
}

// buildEngines registers Tesseract and every vision provider with credentials
func buildEngines(cfg *config.Config) map[string]recognition.Engine {
	engines := map[string]recognition.Engine{
		models.EngineTesseract: ocr.NewTesseractOCR(cfg.Recognition.TessdataPrefix),
	}

	timeout := cfg.Recognition.VisionTimeout
	if c := cfg.AI.OpenAI; c.APIKey != "" {
		engines[models.EngineOpenAI] = ai.NewVisionEngine(ai.NewOpenAIProvider(c.APIKey, c.BaseURL, c.Model), timeout)
	}
	if c := cfg.AI.Gemini; c.APIKey != "" {
		engines[models.EngineGemini] = ai.NewVisionEngine(ai.NewGeminiProvider(c.APIKey, c.Model), timeout)
	}
	if c := cfg.AI.Ollama; c.BaseURL != "" {
		engines[models.EngineOllama] = ai.NewVisionEngine(ai.NewOllamaProvider(c.BaseURL, c.Model), timeout)
	}

	return engines
}

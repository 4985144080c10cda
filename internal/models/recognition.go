package models

import (
	"time"
)

// Engine names a recognition backend a profile is routed to
const (
	EngineTesseract = "tesseract"
	EngineOpenAI    = "openai"
	EngineGemini    = "gemini"
	EngineOllama    = "ollama"
)

// Tesseract engine modes accepted in RecognitionProfile.EngineMode
const (
	EngineModeDefault  = ""
	EngineModeLegacy   = "legacy"
	EngineModeLSTM     = "lstm"
	EngineModeCombined = "combined"
)

// RecognitionProfile is one OCR configuration tried against an image
type RecognitionProfile struct {
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`                 // Display name (defaults to Language)
	Engine      string            `json:"engine,omitempty" yaml:"engine,omitempty"`             // "tesseract", "openai", "gemini", "ollama"
	Language    string            `json:"language" yaml:"language"`                             // Language tag, e.g. "jpn+eng"
	PageSegMode int               `json:"pageSegMode,omitempty" yaml:"page_seg_mode,omitempty"` // Tesseract PSM, 0 keeps the engine default
	EngineMode  string            `json:"engineMode,omitempty" yaml:"engine_mode,omitempty"`    // "", "legacy", "lstm", "combined"
	Whitelist   string            `json:"whitelist,omitempty" yaml:"whitelist,omitempty"`       // Allowed characters, empty for all
	Variables   map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`       // Extra engine variables
}

// Identifier returns the name used in logs, metrics and diagnostics
func (p RecognitionProfile) Identifier() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Language
}

// RecognitionAttempt is the outcome of running one profile
type RecognitionAttempt struct {
	Profile  string        `json:"profile"`
	Text     string        `json:"text"`
	Amount   int64         `json:"amount,omitempty"`
	Found    bool          `json:"found"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ExtractionResult is produced once per submitted image
type ExtractionResult struct {
	Amount   int64                `json:"amount,omitempty"`
	Found    bool                 `json:"found"`
	Attempts []RecognitionAttempt `json:"attempts"`
}

// ProcessResponse represents the output of the HTTP extraction endpoint
type ProcessResponse struct {
	Success    bool                 `json:"success"`
	RequestID  string               `json:"requestId"`
	Amount     int64                `json:"amount,omitempty"`
	HalfAmount int64                `json:"halfAmount,omitempty"`
	Attempts   []RecognitionAttempt `json:"attempts,omitempty"`
	Error      string               `json:"error,omitempty"`

	// Processing metadata
	Preprocessed  bool    `json:"preprocessed"`
	TotalDuration float64 `json:"totalDuration"` // Total processing time in seconds
}

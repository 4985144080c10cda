package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/facturaIA/amount-extractor-bot/internal/models"
	"github.com/otiai10/gosseract/v2"
)

// engineModes maps profile engine modes to tessedit_ocr_engine_mode values
var engineModes = map[string]string{
	models.EngineModeLegacy:   "0",
	models.EngineModeLSTM:     "1",
	models.EngineModeCombined: "2",
}

// TesseractOCR implements OCR using Tesseract engine
type TesseractOCR struct {
	tessdataPrefix string
}

// NewTesseractOCR creates a new Tesseract OCR engine
func NewTesseractOCR(tessdataPrefix string) *TesseractOCR {
	return &TesseractOCR{
		tessdataPrefix: tessdataPrefix,
	}
}

type ocrOutput struct {
	text string
	err  error
}

// Recognize performs OCR on preprocessed image bytes using profile.
// Tesseract cannot be interrupted, so on ctx expiry the call returns early
// and the client is released once the engine finishes.
func (t *TesseractOCR) Recognize(ctx context.Context, imageBytes []byte, profile models.RecognitionProfile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	done := make(chan ocrOutput, 1)
	go func() {
		text, err := t.recognize(imageBytes, profile)
		done <- ocrOutput{text: text, err: err}
	}()

	select {
	case out := <-done:
		return out.text, out.err
	case <-ctx.Done():
		return "", fmt.Errorf("OCR %s aborted: %w", profile.Identifier(), ctx.Err())
	}
}

func (t *TesseractOCR) recognize(imageBytes []byte, profile models.RecognitionProfile) (string, error) {
	// Create Tesseract client
	client := gosseract.NewClient()
	defer client.Close()

	if t.tessdataPrefix != "" {
		client.TessdataPrefix = t.tessdataPrefix
	}

	// Set language
	err := client.SetLanguage(strings.Split(profile.Language, "+")...)
	if err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}

	// Engine mode is only read at init, so it goes through a config file
	if mode, ok := engineModes[profile.EngineMode]; ok {
		configPath, err := writeInitConfig(mode)
		if err != nil {
			return "", err
		}
		defer os.Remove(configPath)

		err = client.SetConfigFile(configPath)
		if err != nil {
			return "", fmt.Errorf("failed to set engine mode: %w", err)
		}
	}

	if profile.PageSegMode > 0 {
		err = client.SetPageSegMode(gosseract.PageSegMode(profile.PageSegMode))
		if err != nil {
			return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
		}
	}

	if profile.Whitelist != "" {
		err = client.SetWhitelist(profile.Whitelist)
		if err != nil {
			return "", fmt.Errorf("failed to set whitelist: %w", err)
		}
	}

	for key, value := range profile.Variables {
		err = client.SetVariable(gosseract.SettableVariable(key), value)
		if err != nil {
			return "", fmt.Errorf("failed to set variable %s: %w", key, err)
		}
	}

	// Set image from bytes
	err = client.SetImageFromBytes(imageBytes)
	if err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	// Extract text
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR extraction failed: %w", err)
	}

	return text, nil
}

// writeInitConfig writes a Tesseract config file holding init-only parameters
func writeInitConfig(engineMode string) (string, error) {
	f, err := os.CreateTemp("", "tess-config-*")
	if err != nil {
		return "", fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "tessedit_ocr_engine_mode %s\n", engineMode)
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return f.Name(), nil
}

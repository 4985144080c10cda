package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/facturaIA/amount-extractor-bot/internal/amount"
	"github.com/facturaIA/amount-extractor-bot/internal/models"
	"github.com/facturaIA/amount-extractor-bot/internal/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	extractJSON         bool
	extractNoPreprocess bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <image>",
	Short: "Extract the amount from a local image",
	Example: `  amount-bot extract receipt.png
  amount-bot extract --json --no-preprocess cropped.png`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the full result as JSON")
	extractCmd.Flags().BoolVar(&extractNoPreprocess, "no-preprocess", false, "skip cropping and enhancement")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	imageData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	p, err := buildPipeline(cfg, nil, !extractNoPreprocess)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer p.cleanup()

	requestID := uuid.NewString()
	logger := log.With().Str("request_id", requestID).Logger()
	ctx, cancel := context.WithTimeout(logger.WithContext(cmd.Context()), cfg.Bot.RequestTimeout)
	defer cancel()

	start := time.Now()
	result := p.service.Process(ctx, imageData)

	if extractJSON {
		return writeJSONResult(cmd.OutOrStdout(), requestID, result, time.Since(start))
	}
	if !result.Found {
		writeAttempts(cmd.OutOrStdout(), result.Attempts)
		return fmt.Errorf("no amount found in %s", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ご利用金額合計: %s円\n半額: %s円\n",
		amount.FormatYen(result.Amount), amount.FormatYen(amount.Half(result.Amount)))
	return nil
}

func writeJSONResult(w io.Writer, requestID string, result service.Extraction, elapsed time.Duration) error {
	response := models.ProcessResponse{
		Success:       result.Found,
		RequestID:     requestID,
		Attempts:      result.Attempts,
		Preprocessed:  result.Preprocessed,
		TotalDuration: elapsed.Seconds(),
	}
	if result.Found {
		response.Amount = result.Amount
		response.HalfAmount = amount.Half(result.Amount)
	} else {
		response.Error = "no amount found"
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(response)
}

func writeAttempts(w io.Writer, attempts []models.RecognitionAttempt) {
	for i, a := range attempts {
		status := a.Text
		if a.Error != "" {
			status = "error: " + a.Error
		}
		fmt.Fprintf(w, "%d. %s (%s): %q\n", i+1, a.Profile, a.Duration.Round(time.Millisecond), status)
	}
}

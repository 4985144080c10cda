package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/facturaIA/amount-extractor-bot/internal/amount"
	"github.com/facturaIA/amount-extractor-bot/internal/models"
	"github.com/facturaIA/amount-extractor-bot/internal/observability"
	"github.com/facturaIA/amount-extractor-bot/internal/service"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	MaxUploadSize = 10 * 1024 * 1024 // 10MB
	Version       = "2.0.0"
)

// Extractor runs the extraction pipeline
type Extractor interface {
	Process(ctx context.Context, imageData []byte) service.Extraction
}

// Metrics receives request outcomes and serves the scrape endpoint
type Metrics interface {
	ObserveRequest(source, outcome string)
	Handler() http.Handler
}

// Handler handles HTTP requests for amount extraction
type Handler struct {
	extractor Extractor
	metrics   Metrics
	profiles  []string
	connected func() bool
	probe     func(name string, args ...string) ([]byte, error)
	startTime time.Time
}

// Option customizes a Handler
type Option func(*Handler)

// WithBotStatus reports the chat connection state on /health
func WithBotStatus(connected func() bool) Option {
	return func(h *Handler) { h.connected = connected }
}

// WithProfiles lists the active recognition profiles on /health
func WithProfiles(profiles []models.RecognitionProfile) Option {
	return func(h *Handler) {
		h.profiles = make([]string, 0, len(profiles))
		for _, p := range profiles {
			h.profiles = append(h.profiles, p.Identifier())
		}
	}
}

// NewHandler creates a new API handler
func NewHandler(extractor Extractor, metrics Metrics, opts ...Option) *Handler {
	h := &Handler{
		extractor: extractor,
		metrics:   metrics,
		probe:     runProbe,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	// Main endpoint
	router.HandleFunc("/api/extract-amount", h.ExtractAmount).Methods("POST")

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	if h.metrics != nil {
		router.Handle("/metrics", h.metrics.Handler()).Methods("GET")
	}

	return router
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status      string        `json:"status"`
	Version     string        `json:"version"`
	Timestamp   string        `json:"timestamp"`
	Uptime      string        `json:"uptime"`
	Memory      MemoryStats   `json:"memory"`
	Tesseract   ServiceStatus `json:"tesseract"`
	ImageMagick ServiceStatus `json:"imageMagick"`
	Discord     *BotStatus    `json:"discord,omitempty"`
	Profiles    []string      `json:"profiles"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BotStatus reports the chat gateway session
type BotStatus struct {
	Connected bool `json:"connected"`
}

// Health reports dependency availability
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Memory statistics
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	tesseractStatus := h.checkDependency("tesseract", "--version")
	imageMagickStatus := h.checkDependency("convert", "-version")

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Memory: MemoryStats{
			Allocated: humanize.IBytes(m.Alloc),
			Total:     humanize.IBytes(m.TotalAlloc),
			System:    humanize.IBytes(m.Sys),
		},
		Tesseract:   tesseractStatus,
		ImageMagick: imageMagickStatus,
		Profiles:    h.profiles,
	}

	degraded := !tesseractStatus.Available || !imageMagickStatus.Available
	if h.connected != nil {
		connected := h.connected()
		response.Discord = &BotStatus{Connected: connected}
		degraded = degraded || !connected
	}

	// If critical dependencies are down, mark as unhealthy
	if degraded {
		response.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to write health response")
	}
}

// checkDependency runs a version command and reports its first output line
func (h *Handler) checkDependency(name string, args ...string) ServiceStatus {
	output, err := h.probe(name, args...)
	if err != nil {
		return ServiceStatus{
			Available: false,
			Error:     name + " not found or not executable",
		}
	}

	// First line usually contains the version
	version := "unknown"
	if line, _, _ := strings.Cut(string(output), "\n"); strings.TrimSpace(line) != "" {
		version = strings.TrimSpace(line)
	}

	return ServiceStatus{
		Available: true,
		Version:   version,
	}
}

func runProbe(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// ExtractAmount handles uploaded screenshots
func (h *Handler) ExtractAmount(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	startTime := time.Now()
	requestID := uuid.NewString()
	logger := log.With().Str("request_id", requestID).Logger()
	ctx := logger.WithContext(r.Context())

	// Parse multipart form
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.observe(observability.OutcomeError)
		h.sendError(w, http.StatusBadRequest, "File too large or invalid form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.observe(observability.OutcomeError)
		h.sendError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		h.observe(observability.OutcomeError)
		h.sendError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}

	zerolog.Ctx(ctx).Info().Str("filename", header.Filename).Int("size", len(imageData)).Msg("Processing uploaded image")

	result := h.extractor.Process(ctx, imageData)

	response := models.ProcessResponse{
		Success:       result.Found,
		RequestID:     requestID,
		Attempts:      result.Attempts,
		Preprocessed:  result.Preprocessed,
		TotalDuration: time.Since(startTime).Seconds(),
	}
	if result.Found {
		response.Amount = result.Amount
		response.HalfAmount = amount.Half(result.Amount)
		h.observe(observability.OutcomeAmount)
	} else {
		response.Error = "no amount found"
		h.observe(observability.OutcomeNoAmount)
	}

	// Still return 200 when no amount is found; the body carries the outcome
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to write response")
	}
}

func (h *Handler) observe(outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveRequest("http", outcome)
	}
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/facturaIA/amount-extractor-bot/internal/models"
	"github.com/facturaIA/amount-extractor-bot/internal/observability"
	"github.com/facturaIA/amount-extractor-bot/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	result service.Extraction
	got    []byte
}

func (s *stubExtractor) Process(_ context.Context, imageData []byte) service.Extraction {
	s.got = imageData
	return s.result
}

func uploadRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "receipt.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/extract-amount", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestExtractAmount_Found(t *testing.T) {
	ex := &stubExtractor{result: service.Extraction{
		ExtractionResult: models.ExtractionResult{
			Amount:   12501,
			Found:    true,
			Attempts: []models.RecognitionAttempt{{Profile: "jpn+eng", Text: "ご利用金額合計12501円", Amount: 12501, Found: true}},
		},
		Preprocessed: true,
	}}
	metrics := observability.NewMetrics()
	router := NewHandler(ex, metrics).SetupRoutes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "file", []byte("png-bytes")))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(12501), resp.Amount)
	assert.Equal(t, int64(6250), resp.HalfAmount)
	assert.True(t, resp.Preprocessed)
	assert.NotEmpty(t, resp.RequestID)
	assert.Len(t, resp.Attempts, 1)
	assert.Equal(t, []byte("png-bytes"), ex.got)

	scrape := httptest.NewRecorder()
	router.ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), `amountbot_requests_total{outcome="amount",source="http"} 1`)
}

func TestExtractAmount_NotFound(t *testing.T) {
	ex := &stubExtractor{result: service.Extraction{
		ExtractionResult: models.ExtractionResult{Attempts: make([]models.RecognitionAttempt, 3)},
	}}
	router := NewHandler(ex, nil).SetupRoutes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "file", []byte("png-bytes")))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Zero(t, resp.Amount)
	assert.Equal(t, "no amount found", resp.Error)
	assert.Len(t, resp.Attempts, 3)
}

func TestExtractAmount_MissingFile(t *testing.T) {
	ex := &stubExtractor{}
	router := NewHandler(ex, nil).SetupRoutes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "image", []byte("png-bytes")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file provided")
	assert.Nil(t, ex.got)
}

func TestExtractAmount_TooLarge(t *testing.T) {
	router := NewHandler(&stubExtractor{}, nil).SetupRoutes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "file", bytes.Repeat([]byte("x"), MaxUploadSize+1)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractAmount_MethodNotAllowed(t *testing.T) {
	router := NewHandler(&stubExtractor{}, nil).SetupRoutes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/extract-amount", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func fakeProbe(missing string) func(string, ...string) ([]byte, error) {
	return func(name string, _ ...string) ([]byte, error) {
		if name == missing {
			return nil, errors.New("executable file not found in $PATH")
		}
		return []byte(name + " 1.2.3\nmore details\n"), nil
	}
}

func TestHealth(t *testing.T) {
	connected := true
	h := NewHandler(&stubExtractor{}, nil,
		WithBotStatus(func() bool { return connected }),
		WithProfiles([]models.RecognitionProfile{{Language: "jpn+eng"}, {Name: "vision", Language: "jpn"}}),
	)
	h.probe = fakeProbe("")
	router := h.SetupRoutes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "tesseract 1.2.3", resp.Tesseract.Version)
	assert.True(t, resp.ImageMagick.Available)
	require.NotNil(t, resp.Discord)
	assert.True(t, resp.Discord.Connected)
	assert.Equal(t, []string{"jpn+eng", "vision"}, resp.Profiles)

	connected = false
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth_MissingDependency(t *testing.T) {
	h := NewHandler(&stubExtractor{}, nil)
	h.probe = fakeProbe("convert")

	rec := httptest.NewRecorder()
	h.SetupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.False(t, resp.ImageMagick.Available)
	assert.Nil(t, resp.Discord)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := observability.NewMetrics()
	metrics.ObserveRequest("http", observability.OutcomeNoAmount)
	router := NewHandler(&stubExtractor{}, metrics).SetupRoutes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "amountbot_requests_total")
}

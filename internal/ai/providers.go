package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

// Provider interface for vision-capable AI providers
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, prompt string, image []byte) (string, error)
}

// OpenAIProvider implements Provider for OpenAI/Azure OpenAI
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o" // Default vision model
	}

	var config openai.ClientConfig

	// Check if Azure OpenAI
	if strings.Contains(baseURL, "azure") {
		config = openai.DefaultAzureConfig(apiKey, baseURL)
	} else {
		config = openai.DefaultConfig(apiKey)
		if baseURL != "" {
			config.BaseURL = baseURL
		}
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Transcribe sends prompt and image to OpenAI
func (p *OpenAIProvider) Transcribe(ctx context.Context, prompt string, image []byte) (string, error) {
	dataURL := "data:" + detectMIMEType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)

	messages := []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type: openai.ChatMessagePartTypeText,
					Text: prompt,
				},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailHigh,
					},
				},
			},
		},
	}

	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       p.model,
			Messages:    messages,
			Temperature: 0, // Deterministic results
		},
	)
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	apiKey string
	model  string
	opts   []option.ClientOption
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(apiKey, model string, opts ...option.ClientOption) *GeminiProvider {
	if model == "" {
		model = "gemini-1.5-flash" // Default model
	}
	return &GeminiProvider{
		apiKey: apiKey,
		model:  model,
		opts:   opts,
	}
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Transcribe sends prompt and image to Gemini
func (p *GeminiProvider) Transcribe(ctx context.Context, prompt string, image []byte) (string, error) {
	opts := append([]option.ClientOption{option.WithAPIKey(p.apiKey)}, p.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(p.model)
	model.SetTemperature(0)

	format := strings.TrimPrefix(detectMIMEType(image), "image/")
	resp, err := model.GenerateContent(ctx, genai.Text(prompt), genai.ImageData(format, image))
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from Gemini")
	}

	// Extract text from first candidate
	var result strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			result.WriteString(string(text))
		}
	}

	return result.String(), nil
}

// OllamaProvider implements Provider for local Ollama
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434" // Default Ollama URL
	}
	if model == "" {
		model = "llava" // Default vision model
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // Ollama can be slow on CPU
		},
	}
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Transcribe sends prompt and image to Ollama
func (p *OllamaProvider) Transcribe(ctx context.Context, prompt string, image []byte) (string, error) {
	// Build message
	message := map[string]interface{}{
		"role":    "user",
		"content": prompt,
		"images":  []string{base64.StdEncoding.EncodeToString(image)},
	}

	// Build request body
	body := map[string]interface{}{
		"model":    p.model,
		"messages": []interface{}{message},
		"stream":   false,
		"options": map[string]interface{}{
			"temperature": 0,
		},
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Ollama API call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyText, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("Ollama returned status %d: %s", resp.StatusCode, string(bodyText))
	}

	var responseObj struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}

	err = json.NewDecoder(resp.Body).Decode(&responseObj)
	if err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	return responseObj.Message.Content, nil
}

// Helper functions

func detectMIMEType(data []byte) string {
	// Simple MIME type detection based on magic bytes
	if len(data) < 4 {
		return "image/png"
	}

	// JPEG
	if data[0] == 0xFF && data[1] == 0xD8 {
		return "image/jpeg"
	}

	// PNG
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}

	// GIF
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 {
		return "image/gif"
	}

	// WebP
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "image/webp"
	}

	return "image/png" // Preprocessed images are PNG
}

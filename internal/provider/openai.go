package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/craftforge/forge-backend/internal/pipeline/domain"
)

// Default OpenAI configuration values
const (
	DefaultOpenAIBaseURL = "https://api.openai.com"
	DefaultOpenAITimeout = 120 * time.Second
)

// OpenAIGenerator calls the OpenAI chat completions API.
type OpenAIGenerator struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// OpenAIOption configures the OpenAI client.
type OpenAIOption func(*OpenAIGenerator)

// WithOpenAIAPIKey sets the API key.
func WithOpenAIAPIKey(key string) OpenAIOption {
	return func(o *OpenAIGenerator) { o.apiKey = key }
}

// WithOpenAIBaseURL sets the API base URL.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(o *OpenAIGenerator) { o.baseURL = strings.TrimRight(url, "/") }
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(o *OpenAIGenerator) { o.httpClient = client }
}

// NewOpenAI creates a new OpenAI generator.
func NewOpenAI(opts ...OpenAIOption) *OpenAIGenerator {
	o := &OpenAIGenerator{
		baseURL:    DefaultOpenAIBaseURL,
		httpClient: &http.Client{Timeout: DefaultOpenAITimeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 4),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type openaiRequest struct {
	Model     string      `json:"model"`
	MaxTokens int         `json:"max_tokens"`
	Messages  []openaiMsg `json:"messages"`
}

type openaiMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one user prompt and returns the response text.
func (o *OpenAIGenerator) Generate(ctx context.Context, prompt, model string, maxTokens int) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", &domain.TransientProviderError{Provider: "openai", Err: err}
	}

	body, err := json.Marshal(openaiRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  []openaiMsg{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", &domain.TransientProviderError{Provider: "openai", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.TransientProviderError{Provider: "openai", Err: err}
	}

	if transientStatus(resp.StatusCode) {
		return "", &domain.TransientProviderError{
			Provider: "openai",
			Err:      fmt.Errorf("API status %d: %s", resp.StatusCode, truncate(raw)),
		}
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("openai: API status %d: %s", resp.StatusCode, truncate(raw))
	}

	var out openaiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("openai: %s: %s", out.Error.Type, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: response has no choices")
	}
	if out.Choices[0].Message.Content == "" {
		return "", &domain.EmptyResponseError{Operation: "openai"}
	}
	return out.Choices[0].Message.Content, nil
}

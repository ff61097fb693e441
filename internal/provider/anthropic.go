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

// Default Anthropic configuration values
const (
	DefaultAnthropicBaseURL = "https://api.anthropic.com"
	DefaultAnthropicTimeout = 120 * time.Second
	anthropicVersion        = "2023-06-01"
)

// AnthropicGenerator calls the Anthropic Messages API.
type AnthropicGenerator struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// AnthropicOption configures the Anthropic client.
type AnthropicOption func(*AnthropicGenerator)

// WithAnthropicAPIKey sets the API key.
func WithAnthropicAPIKey(key string) AnthropicOption {
	return func(a *AnthropicGenerator) { a.apiKey = key }
}

// WithAnthropicBaseURL sets the API base URL.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(a *AnthropicGenerator) { a.baseURL = strings.TrimRight(url, "/") }
}

// WithAnthropicHTTPClient sets a custom HTTP client.
func WithAnthropicHTTPClient(client *http.Client) AnthropicOption {
	return func(a *AnthropicGenerator) { a.httpClient = client }
}

// NewAnthropic creates a new Anthropic generator.
func NewAnthropic(opts ...AnthropicOption) *AnthropicGenerator {
	a := &AnthropicGenerator{
		baseURL:    DefaultAnthropicBaseURL,
		httpClient: &http.Client{Timeout: DefaultAnthropicTimeout},
		// Anthropic rate limits are per-org; keep requests spaced out so
		// fan-out bursts don't trip 429s immediately.
		limiter: rate.NewLimiter(rate.Every(time.Second), 4),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type anthropicRequest struct {
	Model     string         `json:"model"`
	MaxTokens int            `json:"max_tokens"`
	Messages  []anthropicMsg `json:"messages"`
}

type anthropicMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one user prompt and returns the response text.
func (a *AnthropicGenerator) Generate(ctx context.Context, prompt, model string, maxTokens int) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", &domain.TransientProviderError{Provider: "anthropic", Err: err}
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  []anthropicMsg{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("anthropic: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", &domain.TransientProviderError{Provider: "anthropic", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.TransientProviderError{Provider: "anthropic", Err: err}
	}

	if transientStatus(resp.StatusCode) {
		return "", &domain.TransientProviderError{
			Provider: "anthropic",
			Err:      fmt.Errorf("API status %d: %s", resp.StatusCode, truncate(raw)),
		}
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("anthropic: API status %d: %s", resp.StatusCode, truncate(raw))
	}

	var out anthropicResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("anthropic: %s: %s", out.Error.Type, out.Error.Message)
	}

	var b strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", &domain.EmptyResponseError{Operation: "anthropic"}
	}
	return b.String(), nil
}

// transientStatus reports whether the HTTP status is worth a caller retry:
// rate limits, overload and server-side failures.
func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == 529 || code >= 500
}

func truncate(raw []byte) string {
	s := string(raw)
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}

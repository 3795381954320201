// Package anthropic implements the analysis.Provider interface for the
// Anthropic Messages API.
//
// Anthropic's API differs from OpenAI's in several key ways:
//   - The system prompt is a top-level field, not a message.
//   - The response body uses "content" as an array of typed blocks.
//   - Authentication uses the "x-api-key" header, not Bearer tokens.
//   - max_tokens is required (not optional).
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/autorevd/autorev/internal/analysis"
)

func init() {
	analysis.Register("anthropic", NewProvider)
}

const anthropicVersion = "2023-06-01"

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiRequest struct {
	Model     string       `json:"model"`
	Messages  []apiMessage `json:"messages"`
	System    string       `json:"system,omitempty"`
	MaxTokens int          `json:"max_tokens"`
}

type apiContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiResponse struct {
	ID         string            `json:"id"`
	Content    []apiContentBlock `json:"content"`
	Model      string            `json:"model"`
	StopReason string            `json:"stop_reason"`
	Usage      apiUsage          `json:"usage"`
}

type apiError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Provider implements analysis.Provider for the Anthropic Messages API.
type Provider struct {
	client   *http.Client
	apiKey   string
	baseURL  string
	model    string
	maxTok   int
	retryCfg analysis.RetryConfig
}

// NewProvider is the factory function registered with the registry.
func NewProvider(v *viper.Viper) (analysis.Provider, error) {
	apiKey := v.GetString("api_key")
	baseURL := v.GetString("base_url")
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	model := v.GetString("model")
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	maxTok := v.GetInt("max_tokens")
	if maxTok == 0 {
		maxTok = 2048
	}
	timeout := v.GetDuration("timeout")
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Provider{
		client:   &http.Client{Timeout: timeout},
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		model:    model,
		maxTok:   maxTok,
		retryCfg: analysis.DefaultRetryConfig(),
	}, nil
}

func (p *Provider) Info() analysis.ProviderInfo {
	return analysis.ProviderInfo{
		Name:         "anthropic",
		DisplayName:  "Anthropic (Claude)",
		DefaultModel: "claude-sonnet-4-20250514",
	}
}

func (p *Provider) Validate(_ context.Context) error {
	if p.apiKey == "" {
		return &analysis.ProviderError{
			Code:     analysis.ErrCodeAuthentication,
			Message:  "ANTHROPIC_API_KEY is not set",
			Provider: "anthropic",
		}
	}
	return nil
}

// Analyze submits one file for review, retrying transient failures.
func (p *Provider) Analyze(ctx context.Context, req analysis.Request) (*analysis.Response, error) {
	return analysis.WithRetry(ctx, p.retryCfg, func() (*analysis.Response, error) {
		return p.doAnalyze(ctx, req)
	})
}

func (p *Provider) doAnalyze(ctx context.Context, req analysis.Request) (*analysis.Response, error) {
	maxTok := req.MaxTokens
	if maxTok == 0 {
		maxTok = p.maxTok
	}

	body := apiRequest{
		Model:  p.model,
		System: analysis.SystemPrompt,
		Messages: []apiMessage{
			{Role: "user", Content: analysis.UserPrompt(req)},
		},
		MaxTokens: maxTok,
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, &analysis.ProviderError{
			Code: analysis.ErrCodeUnknown, Message: "failed to marshal request",
			Provider: "anthropic", Cause: err,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, &analysis.ProviderError{
			Code: analysis.ErrCodeUnknown, Message: "failed to build request",
			Provider: "anthropic", Cause: err,
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &analysis.ProviderError{
				Code: analysis.ErrCodeTimeout, Message: "request cancelled or timed out",
				Provider: "anthropic", Cause: err,
			}
		}
		return nil, &analysis.ProviderError{
			Code: analysis.ErrCodeProviderUnavailable, Message: "HTTP request failed",
			Provider: "anthropic", Cause: err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &analysis.ProviderError{
			Code: analysis.ErrCodeUnknown, Message: "failed to read response",
			Provider: "anthropic", Cause: err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(resp.StatusCode, respBody)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, &analysis.ProviderError{
			Code: analysis.ErrCodeUnknown, Message: "failed to decode response",
			Provider: "anthropic", Cause: err,
		}
	}

	var text string
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return &analysis.Response{
		Text:  text,
		Model: apiResp.Model,
		Usage: analysis.Usage{
			PromptTokens:     apiResp.Usage.InputTokens,
			CompletionTokens: apiResp.Usage.OutputTokens,
			TotalTokens:      apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens,
		},
	}, nil
}

// classifyHTTPError maps HTTP status codes to normalized provider errors
// for the Anthropic API.
func classifyHTTPError(statusCode int, body []byte) *analysis.ProviderError {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Error.Message
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", statusCode)
	}

	pe := &analysis.ProviderError{
		Provider:   "anthropic",
		Message:    msg,
		StatusCode: statusCode,
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		pe.Code = analysis.ErrCodeAuthentication
	case statusCode == http.StatusTooManyRequests:
		pe.Code = analysis.ErrCodeRateLimit
	case statusCode == http.StatusBadRequest:
		if apiErr.Error.Type == "invalid_request_error" &&
			(strings.Contains(msg, "max_tokens") || strings.Contains(msg, "too long")) {
			pe.Code = analysis.ErrCodeContextLength
		} else {
			pe.Code = analysis.ErrCodeInvalidRequest
		}
	case statusCode == 529: // Anthropic overloaded
		pe.Code = analysis.ErrCodeProviderUnavailable
	case statusCode >= 500:
		pe.Code = analysis.ErrCodeProviderUnavailable
	default:
		pe.Code = analysis.ErrCodeUnknown
	}

	return pe
}

// Package openai implements the analysis.Provider interface for the
// OpenAI Chat Completions API and any OpenAI-compatible endpoint.
//
// It uses go-resty/v2 for HTTP transport.
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/viper"

	"github.com/autorevd/autorev/internal/analysis"
)

func init() {
	analysis.Register("openai", NewProvider)
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiRequest struct {
	Model     string       `json:"model"`
	Messages  []apiMessage `json:"messages"`
	MaxTokens int          `json:"max_tokens,omitempty"`
}

type apiChoice struct {
	Index        int        `json:"index"`
	Message      apiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiResponse struct {
	ID      string      `json:"id"`
	Model   string      `json:"model"`
	Choices []apiChoice `json:"choices"`
	Usage   apiUsage    `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Provider implements analysis.Provider for OpenAI-compatible APIs.
type Provider struct {
	client   *resty.Client
	apiKey   string
	model    string
	maxTok   int
	retryCfg analysis.RetryConfig
}

// NewProvider is the factory function registered with the registry.
// It reads configuration from the supplied viper instance.
func NewProvider(v *viper.Viper) (analysis.Provider, error) {
	apiKey := v.GetString("api_key")
	baseURL := v.GetString("base_url")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := v.GetString("model")
	if model == "" {
		model = "gpt-4o"
	}
	maxTok := v.GetInt("max_tokens")
	if maxTok == 0 {
		maxTok = 2048
	}
	timeout := v.GetDuration("timeout")
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Provider{
		client:   client,
		apiKey:   apiKey,
		model:    model,
		maxTok:   maxTok,
		retryCfg: analysis.DefaultRetryConfig(),
	}, nil
}

func (p *Provider) Info() analysis.ProviderInfo {
	return analysis.ProviderInfo{
		Name:         "openai",
		DisplayName:  "OpenAI",
		DefaultModel: "gpt-4o",
	}
}

func (p *Provider) Validate(_ context.Context) error {
	if p.apiKey == "" {
		return &analysis.ProviderError{
			Code:     analysis.ErrCodeAuthentication,
			Message:  "OPENAI_API_KEY is not set",
			Provider: "openai",
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
		Model: p.model,
		Messages: []apiMessage{
			{Role: "system", Content: analysis.SystemPrompt},
			{Role: "user", Content: analysis.UserPrompt(req)},
		},
		MaxTokens: maxTok,
	}

	var apiResp apiResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		SetBody(body).
		SetResult(&apiResp).
		Post("/chat/completions")
	if err != nil {
		if ctx.Err() != nil {
			return nil, &analysis.ProviderError{
				Code: analysis.ErrCodeTimeout, Message: "request cancelled or timed out",
				Provider: "openai", Cause: err,
			}
		}
		return nil, &analysis.ProviderError{
			Code: analysis.ErrCodeProviderUnavailable, Message: "HTTP request failed",
			Provider: "openai", Cause: err,
		}
	}

	if resp.IsError() {
		return nil, classifyHTTPError(resp.StatusCode(), resp.Body())
	}

	if len(apiResp.Choices) == 0 {
		return nil, &analysis.ProviderError{
			Code: analysis.ErrCodeUnknown, Message: "empty choices in response",
			Provider: "openai",
		}
	}

	return &analysis.Response{
		Text:  apiResp.Choices[0].Message.Content,
		Model: apiResp.Model,
		Usage: analysis.Usage{
			PromptTokens:     apiResp.Usage.PromptTokens,
			CompletionTokens: apiResp.Usage.CompletionTokens,
			TotalTokens:      apiResp.Usage.TotalTokens,
		},
	}, nil
}

// classifyHTTPError maps HTTP status codes to normalized provider errors.
func classifyHTTPError(statusCode int, body []byte) *analysis.ProviderError {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Error.Message
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	pe := &analysis.ProviderError{
		Provider:   "openai",
		Message:    msg,
		StatusCode: statusCode,
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		pe.Code = analysis.ErrCodeAuthentication
	case statusCode == http.StatusTooManyRequests:
		pe.Code = analysis.ErrCodeRateLimit
	case statusCode == http.StatusBadRequest:
		if apiErr.Error.Code == "context_length_exceeded" ||
			strings.Contains(msg, "maximum context length") {
			pe.Code = analysis.ErrCodeContextLength
		} else {
			pe.Code = analysis.ErrCodeInvalidRequest
		}
	case statusCode >= 500:
		pe.Code = analysis.ErrCodeProviderUnavailable
	default:
		pe.Code = analysis.ErrCodeUnknown
	}

	return pe
}

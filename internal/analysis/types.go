// Package analysis defines the abstraction over the external analysis
// capability. A capability takes review instructions plus one file's
// diff and content, and returns free-form text expected to contain one
// embedded structured review record. Implementations (OpenAI-compatible,
// Anthropic) normalize their transport and error differences behind the
// Provider interface.
package analysis

import (
	"context"
	"fmt"
	"time"
)

// Request carries everything the capability needs to review one file.
// Stateless; never mutated after construction.
type Request struct {
	// Instructions is the process-wide review-instructions blob.
	Instructions string

	// Path is the file path under review.
	Path string

	// Diff is this file's slice of the unified diff. May be empty when
	// no fragment could be located.
	Diff string

	// Content is the full file content at the head ref. May be empty
	// when the file could not be fetched.
	Content string

	// MaxTokens limits the response length. Zero means provider default.
	MaxTokens int
}

// Response is the capability's raw reply.
type Response struct {
	// Text is the free-form reply, expected to embed one JSON record
	// conforming to the review report schema.
	Text string

	// Model is the model that actually served the request.
	Model string

	// Usage contains token accounting when the provider reports it.
	Usage Usage
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ProviderInfo describes a registered provider for introspection.
type ProviderInfo struct {
	Name         string
	DisplayName  string
	DefaultModel string
}

// Provider is the central abstraction over an analysis capability.
type Provider interface {
	// Info returns static metadata about this provider.
	Info() ProviderInfo

	// Analyze submits one file for review and blocks until the full
	// response is available. The context controls cancellation and the
	// per-file timeout.
	Analyze(ctx context.Context, req Request) (*Response, error)

	// Validate checks that the provider is correctly configured (API
	// key present, etc.) and returns a descriptive error if not.
	Validate(ctx context.Context) error
}

// ErrorCode classifies provider errors into actionable categories so
// the caller can decide how to react without inspecting provider-
// specific payloads.
type ErrorCode string

const (
	ErrCodeAuthentication      ErrorCode = "authentication"
	ErrCodeRateLimit           ErrorCode = "rate_limit"
	ErrCodeInvalidRequest      ErrorCode = "invalid_request"
	ErrCodeContextLength       ErrorCode = "context_length"
	ErrCodeProviderUnavailable ErrorCode = "provider_unavailable"
	ErrCodeTimeout             ErrorCode = "timeout"
	ErrCodeUnknown             ErrorCode = "unknown"
)

// ProviderError carries a normalized code plus the original provider-
// specific details. Supports errors.Is / errors.As unwrapping.
type ProviderError struct {
	Code       ErrorCode
	Message    string
	Provider   string
	StatusCode int
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (status %d): %v",
			e.Provider, e.Code, e.Message, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s (status %d)",
		e.Provider, e.Code, e.Message, e.StatusCode)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is to match ProviderErrors by code.
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel errors for use with errors.Is().
var (
	ErrAuthentication      = &ProviderError{Code: ErrCodeAuthentication}
	ErrRateLimit           = &ProviderError{Code: ErrCodeRateLimit}
	ErrInvalidRequest      = &ProviderError{Code: ErrCodeInvalidRequest}
	ErrContextLength       = &ProviderError{Code: ErrCodeContextLength}
	ErrProviderUnavailable = &ProviderError{Code: ErrCodeProviderUnavailable}
	ErrTimeout             = &ProviderError{Code: ErrCodeTimeout}
)

// RetryConfig controls exponential-backoff retry behaviour. The zero
// value disables retries.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryConfig returns the default retry configuration:
// 3 retries, starting at 1 s, capped at 30 s, with a 2x multiplier.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}
}

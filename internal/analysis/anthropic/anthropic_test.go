package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autorevd/autorev/internal/analysis"
)

func newTestProvider(t *testing.T, handler http.Handler) analysis.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	v := viper.New()
	v.Set("api_key", "sk-ant-test")
	v.Set("base_url", srv.URL)

	p, err := NewProvider(v)
	require.NoError(t, err)
	p.(*Provider).retryCfg = analysis.RetryConfig{}
	return p
}

func TestAnalyze(t *testing.T) {
	var reqBody apiRequest
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "msg_1",
			"model": "claude-sonnet-4-20250514",
			"content": [
				{"type": "text", "text": "{\"score\": "},
				{"type": "text", "text": "6}"}
			],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 90, "output_tokens": 10}
		}`)
	}))

	resp, err := p.Analyze(context.Background(), analysis.Request{Path: "a.go", Content: "package a"})
	require.NoError(t, err)

	// Text blocks concatenate in order.
	assert.Equal(t, `{"score": 6}`, resp.Text)
	assert.Equal(t, 100, resp.Usage.TotalTokens)

	// System prompt rides as a top-level field, not a message.
	assert.Equal(t, analysis.SystemPrompt, reqBody.System)
	require.Len(t, reqBody.Messages, 1)
	assert.Equal(t, "user", reqBody.Messages[0].Role)
	assert.NotZero(t, reqBody.MaxTokens)
}

func TestAnalyze_OverloadedClassified(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		fmt.Fprint(w, `{"type": "error", "error": {"type": "overloaded_error", "message": "Overloaded"}}`)
	}))

	_, err := p.Analyze(context.Background(), analysis.Request{Path: "a.go"})
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrProviderUnavailable)
}

func TestAnalyze_AuthClassified(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`)
	}))

	_, err := p.Analyze(context.Background(), analysis.Request{Path: "a.go"})
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrAuthentication)
}

func TestAnalyze_ContextLengthClassified(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"type": "error", "error": {"type": "invalid_request_error", "message": "prompt is too long"}}`)
	}))

	_, err := p.Analyze(context.Background(), analysis.Request{Path: "a.go"})
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrContextLength)
}

func TestValidate(t *testing.T) {
	p, err := NewProvider(viper.New())
	require.NoError(t, err)
	assert.ErrorIs(t, p.Validate(context.Background()), analysis.ErrAuthentication)
}

func TestRegistryRegistration(t *testing.T) {
	assert.Contains(t, analysis.Names(), "anthropic")
}

package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ucpllm/internal/config"
)

func TestGroqAnalyzer_Analyze(t *testing.T) {
	var got groqChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"analysis text"}}]}`))
	}))
	defer srv.Close()

	g, err := NewGroqAnalyzer(GroqOptions{APIKey: "k", Model: "m", BaseURL: srv.URL + "/", Temperature: 0.3, MaxTokens: 3000})
	require.NoError(t, err)
	assert.Equal(t, "groq:m", g.Name())

	text, err := g.Analyze(context.Background(), "REQ")
	require.NoError(t, err)
	assert.Equal(t, "analysis text", text)

	assert.Equal(t, "m", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, SystemPrompt, got.Messages[0].Content)
	assert.Equal(t, "REQ", got.Messages[1].Content)
	assert.InDelta(t, 0.3, got.Temperature, 1e-6)
	assert.Equal(t, 3000, got.MaxTokens)
}

func TestGroqAnalyzer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"api error body", http.StatusTooManyRequests, `{"error":{"message":"rate limited","type":"tokens"}}`, "rate limited"},
		{"bare status", http.StatusBadGateway, `<html>`, "unexpected status"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
		{"bad json", http.StatusOK, `{`, "decode response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g, err := NewGroqAnalyzer(GroqOptions{APIKey: "k", Model: "m", BaseURL: srv.URL})
			require.NoError(t, err)
			_, err = g.Analyze(context.Background(), "REQ")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestNewGroqAnalyzer_Validation(t *testing.T) {
	_, err := NewGroqAnalyzer(GroqOptions{Model: "m"})
	assert.Error(t, err)
	_, err = NewGroqAnalyzer(GroqOptions{APIKey: "k"})
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	_, err := FromConfig(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrNoAnalyzer, "groq without key")

	cfg.Analysis.Groq.APIKey = "k"
	a, err := FromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "groq:meta-llama/llama-4-scout-17b-16e-instruct", a.Name())

	cfg.Analysis.Provider = "none"
	_, err = FromConfig(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrNoAnalyzer)

	cfg.Analysis.Provider = "gemini"
	_, err = FromConfig(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrNoAnalyzer, "gemini without key")
}

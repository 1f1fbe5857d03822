package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GroqAnalyzer calls the Groq Chat Completions API (OpenAI-compatible).
// See: https://console.groq.com/docs/api-reference
type GroqAnalyzer struct {
	http        *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float32
	maxTokens   int
}

// GroqOptions configures a GroqAnalyzer.
type GroqOptions struct {
	APIKey      string
	Model       string
	BaseURL     string // default https://api.groq.com/openai/v1
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// NewGroqAnalyzer creates a Groq analyzer.
func NewGroqAnalyzer(opts GroqOptions) (*GroqAnalyzer, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("groq: API key required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("groq: model required")
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.groq.com/openai/v1"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &GroqAnalyzer{
		http:        &http.Client{Timeout: timeout},
		apiKey:      opts.APIKey,
		model:       opts.Model,
		baseURL:     base,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}, nil
}

func (g *GroqAnalyzer) Name() string { return "groq:" + g.model }

type groqChatReq struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Analyze sends the request as a user message after the system prompt.
func (g *GroqAnalyzer) Analyze(ctx context.Context, request string) (string, error) {
	body, err := json.Marshal(groqChatReq{
		Model: g.model,
		Messages: []groqMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: request},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("groq: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("groq: read response: %w", err)
	}

	var out groqChatResp
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("groq: %s: %s", resp.Status, out.Error.Message)
		}
		return "", fmt.Errorf("groq: unexpected status %s", resp.Status)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("groq: decode response: %w", decodeErr)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("groq: response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

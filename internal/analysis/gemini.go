package analysis

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiAnalyzer is a thin wrapper around the official genai client.
type GeminiAnalyzer struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int
}

// GeminiOptions configures a GeminiAnalyzer.
type GeminiOptions struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// NewGeminiAnalyzer creates a Gemini analyzer.
func NewGeminiAnalyzer(ctx context.Context, opts GeminiOptions) (*GeminiAnalyzer, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key required")
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiAnalyzer{
		client:      client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}, nil
}

func (g *GeminiAnalyzer) Name() string { return "gemini:" + g.model }

// Analyze sends the request with the system prompt as system instruction.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, request string) (string, error) {
	temp := g.temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SystemPrompt}}},
		Temperature:       &temp,
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.maxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: request}}}},
		cfg,
	)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: response has no candidates")
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" {
			b.WriteString(p.Text)
		}
	}
	return b.String(), nil
}

package analysis

import (
	"context"
	"fmt"

	"ucpllm/internal/config"
)

// FromConfig builds the analyzer selected by cfg.Analysis. It returns
// ErrNoAnalyzer when the provider is "none" or lacks a key.
func FromConfig(ctx context.Context, cfg *config.Config) (Analyzer, error) {
	a := cfg.Analysis
	p, ok := a.Active()
	if !ok || p.APIKey == "" {
		return nil, ErrNoAnalyzer
	}

	switch a.Provider {
	case "groq":
		g, err := NewGroqAnalyzer(GroqOptions{
			APIKey:      p.APIKey,
			Model:       p.Model,
			BaseURL:     p.BaseURL,
			Temperature: a.Temperature,
			MaxTokens:   a.MaxTokens,
			Timeout:     cfg.AnalysisTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	case "gemini":
		g, err := NewGeminiAnalyzer(ctx, GeminiOptions{
			APIKey:      p.APIKey,
			Model:       p.Model,
			Temperature: a.Temperature,
			MaxTokens:   a.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("unsupported analysis provider %q", a.Provider)
}

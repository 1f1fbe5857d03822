package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"UCP_ANALYSIS_PROVIDER", "GROQ_API_KEY", "GROQ_MODEL",
		"GEMINI_API_KEY", "GEMINI_MODEL", "UCP_DOCUMENTS_DIR", "UCP_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "ucp" {
		t.Errorf("expected Name=ucp, got %s", cfg.Name)
	}
	if cfg.Analysis.Provider != "groq" {
		t.Errorf("expected Provider=groq, got %s", cfg.Analysis.Provider)
	}
	if cfg.Analysis.MaxTokens != 3000 {
		t.Errorf("expected MaxTokens=3000, got %d", cfg.Analysis.MaxTokens)
	}
	if !cfg.Interview.AskMentalState {
		t.Error("expected mental state step enabled by default")
	}
	require.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".ucp", "config.yaml")

	cfg := DefaultConfig()
	cfg.Analysis.Provider = "gemini"
	cfg.Analysis.Gemini.APIKey = "g-test"
	cfg.Storage.DocumentsDir = "docs"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", loaded.Analysis.Provider)
	assert.Equal(t, "g-test", loaded.Analysis.Gemini.APIKey)
	assert.Equal(t, "docs", loaded.Storage.DocumentsDir)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_DotEnvSuppliesKeys(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("GROQ_API_KEY")

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("GROQ_API_KEY=from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("GROQ_API_KEY") })

	cfg, err := Load(filepath.Join(root, ".ucp", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Analysis.Groq.APIKey)
	assert.True(t, cfg.Analysis.Enabled())
}

func TestAnalysisTimeout(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Duration
	}{
		{"explicit", "45s", 45 * time.Second},
		{"empty falls back", "", 3 * time.Minute},
		{"garbage falls back", "soon", 3 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Analysis.Timeout = tt.in
			assert.Equal(t, tt.want, cfg.AnalysisTimeout())
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"none provider", func(c *Config) { c.Analysis.Provider = "none" }, false},
		{"unknown provider", func(c *Config) { c.Analysis.Provider = "openai" }, true},
		{"bad timeout", func(c *Config) { c.Analysis.Timeout = "3 minutes" }, true},
		{"negative tokens", func(c *Config) { c.Analysis.MaxTokens = -1 }, true},
		{"no documents dir", func(c *Config) { c.Storage.DocumentsDir = "" }, true},
		{"negative keep", func(c *Config) { c.Storage.Keep = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAnalysisConfig_Active(t *testing.T) {
	a := DefaultConfig().Analysis
	a.Groq.APIKey = "k"

	p, ok := a.Active()
	require.True(t, ok)
	assert.Equal(t, "k", p.APIKey)
	assert.True(t, a.Enabled())

	a.Provider = "none"
	_, ok = a.Active()
	assert.False(t, ok)
	assert.False(t, a.Enabled())
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	c := LoggingConfig{}
	assert.False(t, c.IsCategoryEnabled("render"), "debug mode off disables everything")

	c.DebugMode = true
	assert.True(t, c.IsCategoryEnabled("render"))

	c.Categories = map[string]bool{"render": false}
	assert.False(t, c.IsCategoryEnabled("render"))
	assert.True(t, c.IsCategoryEnabled("analysis"))
}

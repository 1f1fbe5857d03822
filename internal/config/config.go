package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where ucp looks for its config relative to the workspace.
const DefaultPath = ".ucp/config.yaml"

// Config holds all ucp configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// External analysis of the exported protocol
	Analysis AnalysisConfig `yaml:"analysis"`

	// Document files and snapshot history
	Storage StorageConfig `yaml:"storage"`

	// Interview behavior
	Interview InterviewConfig `yaml:"interview"`

	// Protocol rendering
	Render RenderConfig `yaml:"render"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig configures where documents and snapshots live.
type StorageConfig struct {
	DocumentsDir string `yaml:"documents_dir"`
	SnapshotDB   string `yaml:"snapshot_db"`
	Snapshots    bool   `yaml:"snapshots"`
	Keep         int    `yaml:"keep"` // snapshots kept per document, 0 = all
}

// InterviewConfig configures the interview flow.
type InterviewConfig struct {
	AskMentalState bool   `yaml:"ask_mental_state"`
	CatalogPath    string `yaml:"catalog_path"` // empty = embedded catalog
}

// RenderConfig configures the protocol renderer and preview.
type RenderConfig struct {
	AppName      string `yaml:"app_name"`
	PreviewStyle string `yaml:"preview_style"` // glamour style: dark, light, notty, auto
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "ucp",
		Version: "1.1.0",

		Analysis: AnalysisConfig{
			Provider:    "groq",
			Timeout:     "3m",
			Temperature: 0.3,
			MaxTokens:   3000,
			Groq: ProviderConfig{
				Model:   "meta-llama/llama-4-scout-17b-16e-instruct",
				BaseURL: "https://api.groq.com/openai/v1",
			},
			Gemini: ProviderConfig{
				Model: "gemini-2.5-flash",
			},
		},

		Storage: StorageConfig{
			DocumentsDir: ".ucp/documents",
			SnapshotDB:   ".ucp/history.db",
			Snapshots:    true,
			Keep:         20,
		},

		Interview: InterviewConfig{
			AskMentalState: true,
		},

		Render: RenderConfig{
			AppName:      "UCP-LLM Generator",
			PreviewStyle: "dark",
		},

		Logging: LoggingConfig{
			Level:     "info",
			Directory: ".ucp/logs",
			DebugMode: false,
		},
	}
}

// Load loads configuration from a YAML file.
// A .env file next to the workspace is read first so API keys can live there.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	loadDotEnv(".env", filepath.Join(filepath.Dir(filepath.Dir(path)), ".env"))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// loadDotEnv loads whichever of the given files exist. Variables already
// present in the environment win.
func loadDotEnv(paths ...string) {
	seen := make(map[string]bool)
	var existing []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); err == nil {
			existing = append(existing, abs)
		}
	}
	if len(existing) == 0 {
		return
	}
	_ = godotenv.Load(existing...)
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("UCP_ANALYSIS_PROVIDER"); p != "" {
		c.Analysis.Provider = p
	}

	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.Analysis.Groq.APIKey = key
	}
	if model := os.Getenv("GROQ_MODEL"); model != "" {
		c.Analysis.Groq.Model = model
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Analysis.Gemini.APIKey = key
		// Gemini only becomes the provider when nothing else has a key.
		if c.Analysis.Groq.APIKey == "" && os.Getenv("UCP_ANALYSIS_PROVIDER") == "" {
			c.Analysis.Provider = "gemini"
		}
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		c.Analysis.Gemini.Model = model
	}

	if dir := os.Getenv("UCP_DOCUMENTS_DIR"); dir != "" {
		c.Storage.DocumentsDir = dir
	}
	if level := os.Getenv("UCP_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// AnalysisTimeout returns the analysis transport timeout as a duration.
func (c *Config) AnalysisTimeout() time.Duration {
	d, err := time.ParseDuration(c.Analysis.Timeout)
	if err != nil {
		return 3 * time.Minute
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.Analysis.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid analysis provider: %s (valid: %v)", c.Analysis.Provider, ValidProviders)
	}

	if c.Analysis.Timeout != "" {
		if _, err := time.ParseDuration(c.Analysis.Timeout); err != nil {
			return fmt.Errorf("invalid analysis timeout %q: %w", c.Analysis.Timeout, err)
		}
	}
	if c.Analysis.MaxTokens < 0 {
		return fmt.Errorf("analysis max_tokens must not be negative")
	}
	if c.Storage.DocumentsDir == "" {
		return fmt.Errorf("storage documents_dir is required")
	}
	if c.Storage.Keep < 0 {
		return fmt.Errorf("storage keep must not be negative")
	}

	return nil
}

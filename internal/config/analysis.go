package config

// ValidProviders lists all supported analysis providers.
var ValidProviders = []string{"groq", "gemini", "none"}

// AnalysisConfig configures the external analysis step.
type AnalysisConfig struct {
	Provider    string         `yaml:"provider"` // groq, gemini, none
	Timeout     string         `yaml:"timeout"`
	Temperature float32        `yaml:"temperature"`
	MaxTokens   int            `yaml:"max_tokens"`
	Groq        ProviderConfig `yaml:"groq"`
	Gemini      ProviderConfig `yaml:"gemini"`
}

// ProviderConfig holds per-provider credentials and model selection.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// Active returns the provider config selected by Provider.
func (a AnalysisConfig) Active() (ProviderConfig, bool) {
	switch a.Provider {
	case "groq":
		return a.Groq, true
	case "gemini":
		return a.Gemini, true
	default:
		return ProviderConfig{}, false
	}
}

// Enabled reports whether an analysis provider is configured with a key.
func (a AnalysisConfig) Enabled() bool {
	p, ok := a.Active()
	return ok && p.APIKey != ""
}

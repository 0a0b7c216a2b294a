package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level confidant configuration, corresponding to
// .confidant.yml.
type Config struct {
	Provider ProviderType `yaml:"provider" koanf:"provider"`
	Model    string       `yaml:"model" koanf:"model"`
	// AdjustModel runs the style-adjustment phase; empty means Model.
	AdjustModel string `yaml:"adjust_model" koanf:"adjust_model"`
	DataDir     string `yaml:"data_dir" koanf:"data_dir"`
	Port        int    `yaml:"port" koanf:"port"`
	AllowAll    bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	// PhaseTimeoutSeconds bounds each pipeline phase; 0 disables it.
	PhaseTimeoutSeconds int `yaml:"phase_timeout_seconds" koanf:"phase_timeout_seconds"`
	// RateLimitRPM caps LLM requests per minute; 0 means unlimited.
	RateLimitRPM int `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
}

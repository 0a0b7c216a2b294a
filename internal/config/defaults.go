package config

// defaultModels maps each provider to its default chat model.
var defaultModels = map[ProviderType]string{
	ProviderAnthropic: "claude-sonnet-4-5-20250929",
	ProviderOpenAI:    "gpt-4o",
	ProviderOllama:    "llama3",
}

// DefaultModel returns the default model for the given provider.
func DefaultModel(provider ProviderType) string {
	if model, ok := defaultModels[provider]; ok {
		return model
	}
	return defaultModels[ProviderOpenAI]
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:            ProviderOpenAI,
		Model:               DefaultModel(ProviderOpenAI),
		DataDir:             "data",
		Port:                8080,
		PhaseTimeoutSeconds: 60,
		RateLimitRPM:        0,
	}
}

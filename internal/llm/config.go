// Package llm provides centralized LLM configuration and client abstractions.
package llm

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Config holds the model configuration for article generation
type Config struct {
	Provider Provider
	// Model is the model name used for article generation
	Model string
	// MaxOutputTokens caps the length of a generated article
	MaxOutputTokens int32
	// Temperature controls sampling; articles use a moderate value for
	// readable but consistent prose
	Temperature float32
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return &Config{
		Provider:        ProviderGemini,
		Model:           "gemini-2.5-flash",
		MaxOutputTokens: 4096,
		Temperature:     0.4,
	}
}

package llm

import (
	"context"
	"net/http"
)

// Provider defines the interface for text-completion oracles
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete runs one deterministic completion for the prompt
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest contains the input for a single oracle call
type CompletionRequest struct {
	// System is the system instruction
	System string

	// Prompt is the user prompt
	Prompt string

	// Model overrides the configured model (provider-specific)
	Model string

	// MaxTokens bounds the response length
	MaxTokens int

	// JSON asks the provider for a JSON object response where supported
	JSON bool
}

// CompletionResponse contains the oracle's raw output
type CompletionResponse struct {
	// Text is the generated text, trimmed
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// HTTPClient carries proxy and throttling settings; nil uses a plain client
	HTTPClient *http.Client
}

// maxTokensOrDefault picks the request's limit, then the config's, then 300
func maxTokensOrDefault(req CompletionRequest, cfg Config) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if cfg.MaxTokens > 0 {
		return cfg.MaxTokens
	}
	return 300
}

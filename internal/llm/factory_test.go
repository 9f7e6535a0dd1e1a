package llm

import (
	"testing"

	"github.com/ppiankov/qaverify/internal/model"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantErr  bool
	}{
		{"openai", Config{Provider: "openai", APIKey: "k"}, "openai", false},
		{"anthropic", Config{Provider: "anthropic", APIKey: "k"}, "anthropic", false},
		{"claude alias", Config{Provider: "Claude", APIKey: "k"}, "anthropic", false},
		{"ollama", Config{Provider: "ollama", Model: "llama3.1"}, "ollama", false},
		{"openai without key", Config{Provider: "openai"}, "", true},
		{"unknown", Config{Provider: "gemini"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got provider %v", p)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewProvider failed: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Expected %s, got %s", tt.wantName, p.Name())
			}
		})
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(model.LLMConfig{
		Provider:  "ollama",
		Model:     "mistral",
		BaseURL:   "http://localhost:11434",
		Timeout:   45,
		MaxTokens: 200,
	})
	if cfg.Provider != "ollama" || cfg.Model != "mistral" || cfg.Timeout != 45 || cfg.MaxTokens != 200 {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.HTTPClient != nil {
		t.Error("Expected nil HTTPClient")
	}
}

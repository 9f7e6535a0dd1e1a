package model

import (
	"fmt"
	"strings"
	"time"
)

// Judge strategy names
const (
	JudgeHeuristic = "heuristic"
	JudgeOracle    = "oracle"
)

// Config holds the complete qaverify configuration
type Config struct {
	Input        string             `yaml:"input" mapstructure:"input"`
	Output       string             `yaml:"output" mapstructure:"output"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Evidence     EvidenceConfig     `yaml:"evidence" mapstructure:"evidence"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Judge        JudgeConfig        `yaml:"judge" mapstructure:"judge"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Progress     ProgressConfig     `yaml:"progress" mapstructure:"progress"`
}

// HTTPConfig holds settings shared by every outbound client
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent  string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"` // Retries on HTTP 429 only
	HTTPProxy  string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// EvidenceConfig configures the Wikipedia evidence source
type EvidenceConfig struct {
	SearchURL     string        `yaml:"search_url" mapstructure:"search_url"`   // MediaWiki action API
	SummaryURL    string        `yaml:"summary_url" mapstructure:"summary_url"` // REST page/summary prefix
	MaxChars      int           `yaml:"max_chars" mapstructure:"max_chars"`     // Evidence text truncation limit
	Delay         time.Duration `yaml:"delay" mapstructure:"delay"`             // Fixed pause after each evidence call
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// RateLimitingConfig caps outbound requests per host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"` // 0 disables the cap
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// JudgeConfig selects the verdict strategy
type JudgeConfig struct {
	Strategy string `yaml:"strategy" mapstructure:"strategy"` // heuristic or oracle
}

// LLMConfig configures the oracle provider
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model     string `yaml:"model" mapstructure:"model"`       // Empty picks the provider's default
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Preflight bool   `yaml:"preflight" mapstructure:"preflight"` // Check the provider is reachable before the run
}

// ProgressConfig controls periodic progress reporting
type ProgressConfig struct {
	Every int `yaml:"every" mapstructure:"every"` // Report every N input rows
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Output: "outputs/results.csv",
		HTTP: HTTPConfig{
			Timeout:    20 * time.Second,
			UserAgent:  "qaverify/0.1 (+https://github.com/ppiankov/qaverify)",
			MaxRetries: 2,
		},
		Evidence: EvidenceConfig{
			SearchURL:  "https://en.wikipedia.org/w/api.php",
			SummaryURL: "https://en.wikipedia.org/api/rest_v1/page/summary/",
			MaxChars:   600,
			Delay:      200 * time.Millisecond,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 10,
			BurstSize:         5,
		},
		Judge: JudgeConfig{
			Strategy: JudgeHeuristic,
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Timeout:   30,
			MaxTokens: 300,
		},
		Progress: ProgressConfig{
			Every: 100,
		},
	}
}

// UsesOracle reports whether the oracle-backed judge is selected
func (c *Config) UsesOracle() bool {
	return strings.EqualFold(c.Judge.Strategy, JudgeOracle)
}

// Validate checks structural settings. It returns a description of the first
// problem found; callers wrap it as a configuration error.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return fmt.Errorf("input path is required")
	}
	if strings.TrimSpace(c.Output) == "" {
		return fmt.Errorf("output path is required")
	}
	if c.Evidence.MaxChars <= 0 {
		return fmt.Errorf("evidence.max_chars must be positive, got %d", c.Evidence.MaxChars)
	}
	if c.Evidence.Delay < 0 {
		return fmt.Errorf("evidence.delay must not be negative, got %v", c.Evidence.Delay)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %v", c.HTTP.Timeout)
	}

	switch strings.ToLower(c.Judge.Strategy) {
	case JudgeHeuristic:
	case JudgeOracle:
		if c.LLM.Timeout <= 0 {
			return fmt.Errorf("llm.timeout must be positive, got %d", c.LLM.Timeout)
		}
		// openai and anthropic pick their own model when none is set; ollama has none
		if strings.EqualFold(c.LLM.Provider, "ollama") && strings.TrimSpace(c.LLM.Model) == "" {
			return fmt.Errorf("llm.model is required for provider ollama")
		}
	default:
		return fmt.Errorf("unknown judge strategy: %s (supported: heuristic, oracle)", c.Judge.Strategy)
	}
	return nil
}

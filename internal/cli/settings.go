package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"

	"github.com/ppiankov/qaverify/internal/apperr"
	"github.com/ppiankov/qaverify/internal/model"
	"github.com/ppiankov/qaverify/internal/throttle"
	"github.com/ppiankov/qaverify/internal/util"
)

func init() {
	setDefaults(model.DefaultConfig())
}

// setDefaults registers every configuration key so QAVERIFY_* variables
// resolve even when no config file or flag mentions the key
func setDefaults(d *model.Config) {
	viper.SetDefault("input", d.Input)
	viper.SetDefault("output", d.Output)

	viper.SetDefault("http.timeout", d.HTTP.Timeout)
	viper.SetDefault("http.user_agent", d.HTTP.UserAgent)
	viper.SetDefault("http.max_retries", d.HTTP.MaxRetries)
	viper.SetDefault("http.http_proxy", d.HTTP.HTTPProxy)
	viper.SetDefault("http.https_proxy", d.HTTP.HTTPSProxy)
	viper.SetDefault("http.no_proxy", d.HTTP.NoProxy)

	viper.SetDefault("evidence.search_url", d.Evidence.SearchURL)
	viper.SetDefault("evidence.summary_url", d.Evidence.SummaryURL)
	viper.SetDefault("evidence.max_chars", d.Evidence.MaxChars)
	viper.SetDefault("evidence.delay", d.Evidence.Delay)
	viper.SetDefault("evidence.respect_robots", d.Evidence.RespectRobots)

	viper.SetDefault("rate_limiting.requests_per_second", d.RateLimiting.RequestsPerSecond)
	viper.SetDefault("rate_limiting.burst_size", d.RateLimiting.BurstSize)

	viper.SetDefault("judge.strategy", d.Judge.Strategy)

	viper.SetDefault("llm.provider", d.LLM.Provider)
	viper.SetDefault("llm.model", d.LLM.Model)
	viper.SetDefault("llm.api_key", d.LLM.APIKey)
	viper.SetDefault("llm.base_url", d.LLM.BaseURL)
	viper.SetDefault("llm.timeout", d.LLM.Timeout)
	viper.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	viper.SetDefault("llm.preflight", d.LLM.Preflight)

	viper.SetDefault("progress.every", d.Progress.Every)
}

// loadConfig merges flags, QAVERIFY_* variables, the config file and defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, apperr.NewConfiguration("", fmt.Sprintf("decode configuration: %v", err))
	}
	resolveCredentials(cfg)
	return cfg, nil
}

// resolveCredentials fills oracle credentials from the provider's
// conventional environment variables when not configured explicitly
func resolveCredentials(cfg *model.Config) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		// Ollama doesn't need an API key
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
}

// checkConfig validates cfg before any row is processed
func checkConfig(cfg *model.Config) error {
	if err := cfg.Validate(); err != nil {
		return apperr.NewConfiguration("", err.Error())
	}
	if !cfg.UsesOracle() {
		return nil
	}
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.APIKey == "" {
			return apperr.NewConfiguration("llm.api_key", "OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			return apperr.NewConfiguration("llm.api_key", "ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
	default:
		return apperr.NewConfiguration("llm.provider",
			fmt.Sprintf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", cfg.LLM.Provider))
	}
	return nil
}

// newLogger writes text to a terminal and JSON otherwise
func newLogger(w *os.File, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}

	fd := w.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// newHTTPClient builds a client with the configured proxy and the shared
// per-host limiter
func newHTTPClient(cfg model.HTTPConfig, timeout time.Duration, limiter *throttle.Limiter) *http.Client {
	base := util.NewTransport(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	return &http.Client{
		Timeout:   timeout,
		Transport: throttle.NewTransport(base, limiter),
	}
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_MatchesDocumentedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "outputs/results.csv", cfg.Output)
	assert.Equal(t, 600, cfg.Evidence.MaxChars)
	assert.Equal(t, "200ms", cfg.Evidence.Delay.String())
	assert.Equal(t, JudgeHeuristic, cfg.Judge.Strategy)
	assert.False(t, cfg.UsesOracle())
	assert.Empty(t, cfg.LLM.Model, "each provider picks its own default model")
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "input is required")

	cfg.Input = "in.csv"
	assert.NoError(t, cfg.Validate())

	cfg.Judge.Strategy = "magic"
	assert.Error(t, cfg.Validate())

	cfg.Judge.Strategy = "ORACLE"
	assert.True(t, cfg.UsesOracle())
	assert.NoError(t, cfg.Validate())

	cfg.LLM.Timeout = 0
	assert.Error(t, cfg.Validate())
	cfg.LLM.Timeout = 30

	cfg.LLM.Provider = "ollama"
	assert.Error(t, cfg.Validate())
	cfg.LLM.Model = "llama3.1"
	assert.NoError(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Input = "in.csv"
	cfg.Evidence.MaxChars = 0
	assert.Error(t, cfg.Validate())
}

// Package judge turns a (question, answer, evidence) triple into a verdict.
//
// Two strategies share the Judge contract: a lexical substring heuristic and
// an oracle-backed judge that asks an LLM provider for a structured verdict.
// The strategy is picked once at startup by New.
package judge

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/qaverify/internal/apperr"
	"github.com/ppiankov/qaverify/internal/llm"
	"github.com/ppiankov/qaverify/internal/model"
)

// Judge decides whether evidence supports a proposed answer.
// Implementations hold no per-call state and never cache evidence.
type Judge interface {
	// Name identifies the strategy in logs
	Name() string

	// Judge returns the verdict for one work unit. Errors are transport or
	// parse failures the caller records as unknown.
	Judge(ctx context.Context, question, answer string, ev model.Evidence) (model.Judgment, error)
}

// New selects the strategy named by strategy. The oracle strategy requires a
// provider; without one it fails with a configuration error.
func New(strategy string, provider llm.Provider, opts OracleOptions) (Judge, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", model.JudgeHeuristic:
		return NewLexical(), nil
	case model.JudgeOracle:
		if provider == nil {
			return nil, apperr.NewConfiguration("judge.strategy", "oracle judge requires an LLM provider")
		}
		return NewOracle(provider, opts), nil
	default:
		return nil, apperr.NewConfiguration("judge.strategy",
			fmt.Sprintf("unknown strategy %q (supported: heuristic, oracle)", strategy))
	}
}

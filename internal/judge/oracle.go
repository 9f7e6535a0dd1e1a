package judge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/ppiankov/qaverify/internal/apperr"
	"github.com/ppiankov/qaverify/internal/llm"
	"github.com/ppiankov/qaverify/internal/model"
)

// OracleOptions tunes the oracle call
type OracleOptions struct {
	Model     string // Overrides the provider's configured model
	MaxTokens int
}

// Oracle asks an LLM provider for a structured verdict. It is the only
// strategy that can report unsupported.
type Oracle struct {
	provider llm.Provider
	opts     OracleOptions
}

type oraclePayload struct {
	Verdict    string   `json:"verdict"`
	Confidence *float64 `json:"confidence"`
	Quote      string   `json:"quote"`
}

// NewOracle creates an oracle-backed judge
func NewOracle(provider llm.Provider, opts OracleOptions) *Oracle {
	return &Oracle{provider: provider, opts: opts}
}

// Name returns the strategy name
func (o *Oracle) Name() string {
	return model.JudgeOracle + "/" + o.provider.Name()
}

// Judge makes one provider call. Provider failures are transport errors.
// Unparsable output is not an error: it yields unknown at 0.0 with the raw
// text kept for audit.
func (o *Oracle) Judge(ctx context.Context, question, answer string, ev model.Evidence) (model.Judgment, error) {
	resp, err := o.provider.Complete(ctx, llm.CompletionRequest{
		System:    oracleSystemPrompt,
		Prompt:    buildPrompt(question, answer, ev.URL, ev.Text),
		Model:     o.opts.Model,
		MaxTokens: o.opts.MaxTokens,
		JSON:      true,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.Judgment{}, ctxErr
		}
		return model.Judgment{}, apperr.NewTransport("oracle "+o.provider.Name(), err)
	}

	j, perr := ParseOracleOutput(resp.Text)
	if perr != nil {
		// declined and malformed outputs are deliberately not told apart
		j = model.Unknown(0)
		j.RawOutput = resp.Text
		return j, nil
	}
	return j, nil
}

// ParseOracleOutput decodes the oracle's JSON verdict. It tolerates code
// fences and prose around a single JSON object. An out-of-enum verdict is a
// parse error. A missing confidence reads as 0.
func ParseOracleOutput(raw string) (model.Judgment, error) {
	var p oraclePayload
	if err := decodeJSON(raw, &p); err != nil {
		return model.Judgment{}, &apperr.ParseError{Raw: raw, Err: err}
	}

	v, err := model.ParseVerdict(p.Verdict)
	if err != nil {
		return model.Judgment{}, &apperr.ParseError{Raw: raw, Err: err}
	}

	conf := 0.0
	if p.Confidence != nil {
		conf = *p.Confidence
	}

	return model.Judgment{
		Verdict:    v,
		Confidence: model.ClampConfidence(conf),
		Rationale:  strings.TrimSpace(p.Quote),
		RawOutput:  raw,
	}, nil
}

// decodeJSON tries a direct unmarshal, then retries on the payload with code
// fences removed and surrounding prose cut away
func decodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return directErr
	}
	return json.Unmarshal([]byte(sanitized), target)
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" || trimmed[0] == '{' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

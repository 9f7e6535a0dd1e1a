package judge

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ppiankov/qaverify/internal/model"
)

const (
	lexicalBaseConfidence = 0.65
	lexicalMaxBoost       = 0.25
	lexicalMissConfidence = 0.3
)

var (
	whitespaceRe    = regexp.MustCompile(`\s+`)
	parentheticalRe = regexp.MustCompile(`\s*\([^)]*\)\s*`)
	quoteReplacer   = strings.NewReplacer(`"`, "'", "“", "'", "”", "'", "‘", "'", "’", "'")
)

// Lexical confirms an answer when one of its variants appears verbatim in the
// normalized evidence. It can only confirm or abstain; it never reports
// unsupported.
type Lexical struct{}

// NewLexical creates the substring-match judge
func NewLexical() *Lexical {
	return &Lexical{}
}

// Name returns the strategy name
func (l *Lexical) Name() string {
	return model.JudgeHeuristic
}

// Judge never fails; a miss is inconclusive at a fixed confidence
func (l *Lexical) Judge(_ context.Context, _ string, answer string, ev model.Evidence) (model.Judgment, error) {
	// a Caser is stateful, so each call gets its own
	lower := cases.Lower(language.Und)
	hay := normalize(lower, ev.Text)

	for _, v := range answerVariants(lower, answer) {
		needle := normalize(lower, v)
		if needle == "" || !strings.Contains(hay, needle) {
			continue
		}
		boost := float64(utf8.RuneCountInString(v)) / 100
		if boost > lexicalMaxBoost {
			boost = lexicalMaxBoost
		}
		return model.Judgment{
			Verdict:    model.VerdictSupported,
			Confidence: lexicalBaseConfidence + boost,
			Rationale:  "matched " + v,
		}, nil
	}

	return model.Unknown(lexicalMissConfidence), nil
}

// normalize lowercases, collapses whitespace and unifies quote characters
func normalize(lower cases.Caser, s string) string {
	s = lower.String(strings.TrimSpace(s))
	s = whitespaceRe.ReplaceAllString(s, " ")
	return quoteReplacer.Replace(s)
}

// answerVariants returns the distinct non-empty match candidates for answer,
// longest first
func answerVariants(lower cases.Caser, answer string) []string {
	a := strings.TrimSpace(answer)
	raw := []string{
		a,
		lower.String(a),
		strings.Trim(a, `"'`),
		strings.TrimSpace(parentheticalRe.ReplaceAllString(a, "")),
	}

	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, v := range raw {
		if strings.TrimSpace(v) == "" {
			continue
		}
		v = strings.TrimSpace(whitespaceRe.ReplaceAllString(v, " "))
		v = strings.TrimRight(v, ".?!,;:")
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	sort.SliceStable(out, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(out[i]), utf8.RuneCountInString(out[j])
		if li != lj {
			return li > lj
		}
		return out[i] < out[j]
	})
	return out
}

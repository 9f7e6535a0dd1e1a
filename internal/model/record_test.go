package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatConfidence(t *testing.T) {
	assert.Equal(t, "0.300", FormatConfidence(0.3))
	assert.Equal(t, "0.700", FormatConfidence(0.7))
	assert.Equal(t, "0.000", FormatConfidence(0))
	assert.Equal(t, "0.667", FormatConfidence(2.0/3.0))
}

func TestColumns(t *testing.T) {
	assert.Equal(t, BaseColumns, Columns(false))
	cols := Columns(true)
	assert.Len(t, cols, len(BaseColumns)+1)
	assert.Equal(t, ColumnJudgeOutput, cols[len(cols)-1])
	// BaseColumns must not be mutated by Columns
	assert.Len(t, BaseColumns, 8)
}

func TestResultRecord_Row(t *testing.T) {
	unit := WorkUnit{QuestionID: "q1", QuestionText: "Q?", AnswerText: "Paris"}
	rec := NewRecord(unit, Judgment{Verdict: VerdictSupported, Confidence: 0.7, RawOutput: `{"verdict":"SUPPORTED"}`},
		&Evidence{URL: "https://en.wikipedia.org/wiki/Paris", Text: "Paris is the capital of France."})

	row := rec.Row(Columns(true))
	assert.Equal(t, []string{
		string(unit.Key()), "q1", "Q?", "Paris", "supported", "0.700",
		"https://en.wikipedia.org/wiki/Paris", "Paris is the capital of France.", `{"verdict":"SUPPORTED"}`,
	}, row)

	assert.Len(t, rec.Row(Columns(false)), 8)
}

func TestNewRecord_NoEvidence(t *testing.T) {
	rec := NewRecord(WorkUnit{QuestionID: "q1"}, Unknown(0), nil)
	assert.Equal(t, VerdictUnknown, rec.Verdict)
	assert.Equal(t, "", rec.EvidenceURL)
	assert.Equal(t, "", rec.EvidenceText)
}

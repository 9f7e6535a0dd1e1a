package model

import "strconv"

// Output column names
const (
	ColumnKey          = "key"
	ColumnID           = "id"
	ColumnQuestion     = "question"
	ColumnAnswer       = "answer"
	ColumnVerdict      = "verdict"
	ColumnConfidence   = "confidence"
	ColumnEvidenceURL  = "evidence_url"
	ColumnEvidenceText = "evidence_text"
	ColumnJudgeOutput  = "judge_output"
)

// BaseColumns is the output header written by every judge strategy
var BaseColumns = []string{
	ColumnKey,
	ColumnID,
	ColumnQuestion,
	ColumnAnswer,
	ColumnVerdict,
	ColumnConfidence,
	ColumnEvidenceURL,
	ColumnEvidenceText,
}

// Columns returns the output header, with judge_output appended when requested
func Columns(withJudgeOutput bool) []string {
	cols := append([]string(nil), BaseColumns...)
	if withJudgeOutput {
		cols = append(cols, ColumnJudgeOutput)
	}
	return cols
}

// ResultRecord is the single persisted entity: one row per processed unit.
// Once appended it is never mutated.
type ResultRecord struct {
	Key          UnitKey
	QuestionID   string
	QuestionText string
	AnswerText   string
	Verdict      Verdict
	Confidence   float64
	EvidenceURL  string
	EvidenceText string
	JudgeOutput  string
}

// NewRecord assembles a record from a unit, its judgment and optional evidence
func NewRecord(unit WorkUnit, j Judgment, ev *Evidence) ResultRecord {
	rec := ResultRecord{
		Key:          unit.Key(),
		QuestionID:   unit.QuestionID,
		QuestionText: unit.QuestionText,
		AnswerText:   unit.AnswerText,
		Verdict:      j.Verdict,
		Confidence:   ClampConfidence(j.Confidence),
		JudgeOutput:  j.RawOutput,
	}
	if ev != nil {
		rec.EvidenceURL = ev.URL
		rec.EvidenceText = ev.Text
	}
	return rec
}

// FormatConfidence renders a confidence with fixed 3-decimal precision
func FormatConfidence(c float64) string {
	return strconv.FormatFloat(c, 'f', 3, 64)
}

// Row renders the record in the given column order; unknown columns are left empty
func (r ResultRecord) Row(columns []string) []string {
	row := make([]string, len(columns))
	for i, col := range columns {
		switch col {
		case ColumnKey:
			row[i] = string(r.Key)
		case ColumnID:
			row[i] = r.QuestionID
		case ColumnQuestion:
			row[i] = r.QuestionText
		case ColumnAnswer:
			row[i] = r.AnswerText
		case ColumnVerdict:
			row[i] = string(r.Verdict)
		case ColumnConfidence:
			row[i] = FormatConfidence(r.Confidence)
		case ColumnEvidenceURL:
			row[i] = r.EvidenceURL
		case ColumnEvidenceText:
			row[i] = r.EvidenceText
		case ColumnJudgeOutput:
			row[i] = r.JudgeOutput
		}
	}
	return row
}

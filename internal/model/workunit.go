package model

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// UnitKey is the content-addressed identity of a work unit.
// The set of keys present in the output file is the complete "already processed" set.
type UnitKey string

// keySeparator joins question id and answer text before hashing
const keySeparator = "\t"

// DeriveKey returns the hex SHA-1 digest of questionID + "\t" + answerText.
// Identical inputs give identical keys across runs and processes.
func DeriveKey(questionID, answerText string) UnitKey {
	h := sha1.New()
	h.Write([]byte(questionID + keySeparator + answerText))
	return UnitKey(hex.EncodeToString(h.Sum(nil)))
}

// WorkUnit is one (question, single answer) pair to verify
type WorkUnit struct {
	QuestionID   string
	QuestionText string
	AnswerText   string
}

// Key returns the unit's identity
func (u WorkUnit) Key() UnitKey {
	return DeriveKey(u.QuestionID, u.AnswerText)
}

// HasAnswer reports whether the unit carries a candidate answer
func (u WorkUnit) HasAnswer() bool {
	return u.AnswerText != ""
}

// AnswerSeparator delimits candidate answers inside the Answers column
const AnswerSeparator = ";"

// ParseAnswers splits an Answers field on ';', trimming each entry and dropping empties
func ParseAnswers(field string) []string {
	var answers []string
	for _, part := range strings.Split(field, AnswerSeparator) {
		if p := strings.TrimSpace(part); p != "" {
			answers = append(answers, p)
		}
	}
	return answers
}

// ExpandRow turns one input row into its work units.
// A row without answers yields a single unit with an empty answer so the
// question still shows up in the output.
func ExpandRow(questionID, questionText, answersField string) []WorkUnit {
	questionID = strings.TrimSpace(questionID)
	questionText = strings.TrimSpace(questionText)

	answers := ParseAnswers(answersField)
	if len(answers) == 0 {
		return []WorkUnit{{QuestionID: questionID, QuestionText: questionText}}
	}

	units := make([]WorkUnit, 0, len(answers))
	for _, a := range answers {
		units = append(units, WorkUnit{
			QuestionID:   questionID,
			QuestionText: questionText,
			AnswerText:   a,
		})
	}
	return units
}

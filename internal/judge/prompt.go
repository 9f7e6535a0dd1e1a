package judge

import "strings"

const oracleSystemPrompt = `You are a careful fact-checking assistant.
Judge the proposed answer using ONLY the evidence provided. Do not use outside knowledge.
If the evidence does not settle the question, answer UNKNOWN.
Respond with a single JSON object and nothing else.`

// buildPrompt renders the user prompt for one work unit
func buildPrompt(question, answer, evidenceURL, evidenceText string) string {
	var b strings.Builder

	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\nProposed answer: ")
	b.WriteString(answer)
	b.WriteString("\n\nEvidence URL: ")
	if evidenceURL == "" {
		b.WriteString("(none)")
	} else {
		b.WriteString(evidenceURL)
	}
	b.WriteString("\nEvidence text:\n")
	b.WriteString(evidenceText)
	b.WriteString("\n\n")

	b.WriteString("Does the evidence support the proposed answer to the question?\n")
	b.WriteString(`Return JSON: {"verdict": "SUPPORTED" | "UNSUPPORTED" | "UNKNOWN", "confidence": <number between 0 and 1>, "quote": "<short supporting quote from the evidence, or empty>"}`)
	b.WriteString("\n- SUPPORTED: the evidence states or directly implies the answer.")
	b.WriteString("\n- UNSUPPORTED: the evidence contradicts the answer.")
	b.WriteString("\n- UNKNOWN: the evidence is insufficient.")

	return b.String()
}

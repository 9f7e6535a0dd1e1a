package model

// Evidence is the retrieved source text used to judge one work unit.
// It is owned by a single verification attempt and never shared between units.
type Evidence struct {
	URL  string `json:"url"`  // Canonical page URL
	Text string `json:"text"` // Summary text, possibly truncated
}

// IsEmpty reports whether the evidence carries no text to judge against
func (e *Evidence) IsEmpty() bool {
	return e == nil || e.Text == ""
}

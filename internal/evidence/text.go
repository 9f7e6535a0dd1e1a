package evidence

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/qaverify/internal/model"
	"golang.org/x/net/html"
)

// TruncationMarker is appended once to text cut at the configured maximum
const TruncationMarker = "…"

// Truncate cuts text to maxChars characters and appends TruncationMarker.
// Text at or under the limit is returned unchanged.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	runes := []rune(text)
	return string(runes[:maxChars]) + TruncationMarker
}

// TruncateEvidence applies Truncate to ev's text, returning a new value
func TruncateEvidence(ev *model.Evidence, maxChars int) *model.Evidence {
	if ev == nil {
		return nil
	}
	out := *ev
	out.Text = Truncate(ev.Text, maxChars)
	return &out
}

// htmlToText flattens an extract_html fragment into plain text
func htmlToText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "p" || string(name) == "br" || string(name) == "li" {
				b.WriteByte(' ')
			}
		}
	}
}

package llm

import (
	"fmt"
	"os"
	"strings"
	"text/template"
)

// NotFoundMarker is the literal the model is told to answer with when it sees
// no identifier.
const NotFoundMarker = "NOT_FOUND"

// DefaultPromptTemplate asks for labeled lines only. {{.Text}} receives the
// truncated canonical text.
const DefaultPromptTemplate = `You extract Indian identity numbers from OCR text of a PAN card or an Aadhaar card.

Rules:
1. An Aadhaar number is exactly 12 digits. Write it without spaces or dashes.
2. A PAN is exactly 10 characters: 5 letters, 4 digits, 1 letter. Write it in capitals.
3. Answer one line per number found, starting with "AADHAAR:" or "PAN:".
4. Do not explain and do not add any other words.
5. If no number can be identified, answer exactly "{{.NotFound}}".

OCR text:
{{.Text}}

Answer:
`

// Prompt renders the fallback instruction around canonical text.
type Prompt struct {
	tmpl *template.Template
}

// NewPrompt parses a template; empty text selects DefaultPromptTemplate.
func NewPrompt(text string) (*Prompt, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultPromptTemplate
	}
	t, err := template.New("fallback").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &Prompt{tmpl: t}, nil
}

// LoadPrompt reads a template file; an empty path selects the default.
func LoadPrompt(path string) (*Prompt, error) {
	if path == "" {
		return NewPrompt("")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt template: %w", err)
	}
	return NewPrompt(string(b))
}

// Render embeds text, which the caller has already truncated.
func (p *Prompt) Render(text string) (string, error) {
	var b strings.Builder
	err := p.tmpl.Execute(&b, struct {
		Text     string
		NotFound string
	}{Text: text, NotFound: NotFoundMarker})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// TruncatePrefix keeps at most maxChars runes from the start of s. The second
// result reports whether anything was dropped.
func TruncatePrefix(s string, maxChars int) (string, bool) {
	if maxChars <= 0 {
		return s, false
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i], true
		}
		n++
	}
	return s, false
}

package extract

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/idcard-extractor/constants"
)

// Confidence is the coarse trust tier attached to an extracted field.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Confidence) UnmarshalText(b []byte) error {
	v, ok := ParseConfidence(string(b))
	if !ok {
		return fmt.Errorf("unknown confidence %q", b)
	}
	*c = v
	return nil
}

func ParseConfidence(s string) (Confidence, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return ConfidenceLow, true
	case "medium":
		return ConfidenceMedium, true
	case "high":
		return ConfidenceHigh, true
	}
	return ConfidenceLow, false
}

// Method names the extraction technique that produced a field.
type Method string

const (
	MethodNone          Method = ""
	MethodStrictPattern Method = "strict-pattern"
	MethodRelaxedShape  Method = "relaxed-pattern"
	MethodLLM           Method = "llm"
)

// certainty orders methods within one confidence tier.
func (m Method) certainty() int {
	switch m {
	case MethodStrictPattern:
		return 3
	case MethodRelaxedShape:
		return 2
	case MethodLLM:
		return 1
	}
	return 0
}

// Field is one extracted identifier.
type Field struct {
	Value      string     `json:"value"`
	Confidence Confidence `json:"confidence"`
	Method     Method     `json:"method"`
	Rule       string     `json:"rule,omitempty"`
}

func (f Field) Found() bool { return f.Value != "" }

// Details are descriptive card fields. They never influence confidence.
type Details struct {
	DocumentType constants.DocumentType `json:"document_type"`
	Name         string                 `json:"name,omitempty"`
	FatherName   string                 `json:"father_name,omitempty"`
	DateOfBirth  string                 `json:"date_of_birth,omitempty"`
	Gender       string                 `json:"gender,omitempty"`
}

// Result is the outcome of one extraction run, or a partial result from a
// single stage.
type Result struct {
	Aadhaar  Field    `json:"aadhaar"`
	PAN      Field    `json:"pan"`
	Details  Details  `json:"details"`
	Warnings []string `json:"warnings,omitempty"`
}

// Confidence is the highest tier of any populated field, low when none is.
func (r Result) Confidence() Confidence {
	c := ConfidenceLow
	for _, f := range []Field{r.Aadhaar, r.PAN} {
		if f.Found() && f.Confidence > c {
			c = f.Confidence
		}
	}
	return c
}

func (r Result) Empty() bool {
	return !r.Aadhaar.Found() && !r.PAN.Found()
}

// FormatAadhaar renders a 12-digit number as "XXXX XXXX XXXX".
func FormatAadhaar(digits string) string {
	if len(digits) != 12 {
		return digits
	}
	return digits[:4] + " " + digits[4:8] + " " + digits[8:]
}

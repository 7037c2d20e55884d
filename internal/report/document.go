// Package report renders finished runs as the plain-text audit file, a
// schema-checked JSON document and spreadsheet rows.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/joseph-ayodele/idcard-extractor/internal/core"
	"github.com/joseph-ayodele/idcard-extractor/internal/extract"
)

// Number is one identifier as reported.
type Number struct {
	Value      string `json:"value"`
	Display    string `json:"display"`
	Confidence string `json:"confidence"`
	Method     string `json:"method"`
}

type Pass struct {
	Pass    string `json:"pass"`
	Chars   int    `json:"chars"`
	Failure string `json:"failure,omitempty"`
}

type Fallback struct {
	Invoked bool   `json:"invoked"`
	Failure string `json:"failure,omitempty"`
}

// Document is the serializable view of a core.Run.
type Document struct {
	RunID        string          `json:"run_id"`
	Source       string          `json:"source"`
	Aadhaar      *Number         `json:"aadhaar,omitempty"`
	PAN          *Number         `json:"pan,omitempty"`
	Confidence   string          `json:"confidence"`
	Details      extract.Details `json:"details"`
	Warnings     []string        `json:"warnings,omitempty"`
	Passes       []Pass          `json:"passes"`
	Fallback     Fallback        `json:"fallback"`
	CanonicalLen int             `json:"canonical_chars"`
	StartedAt    time.Time       `json:"started_at"`
	ProcessingMS int64           `json:"processing_ms"`
}

func FromRun(run core.Run) Document {
	doc := Document{
		RunID:        run.ID.String(),
		Source:       run.Source,
		Aadhaar:      number(run.Result.Aadhaar, extract.FormatAadhaar),
		PAN:          number(run.Result.PAN, nil),
		Confidence:   run.Confidence().String(),
		Details:      run.Result.Details,
		Warnings:     run.Result.Warnings,
		Passes:       make([]Pass, 0, len(run.Passes)),
		Fallback:     Fallback{Invoked: run.FallbackInvoked, Failure: string(run.Fallback.Failure)},
		CanonicalLen: len(run.Canonical.String()),
		StartedAt:    run.StartedAt.UTC(),
		ProcessingMS: run.Duration.Milliseconds(),
	}
	for _, p := range run.Passes {
		doc.Passes = append(doc.Passes, Pass{Pass: p.Spec.String(), Chars: len(p.Text), Failure: string(p.Failure)})
	}
	return doc
}

func number(f extract.Field, display func(string) string) *Number {
	if !f.Found() {
		return nil
	}
	n := &Number{Value: f.Value, Display: f.Value, Confidence: f.Confidence.String(), Method: string(f.Method)}
	if display != nil {
		n.Display = display(f.Value)
	}
	return n
}

// MarshalJSON encodes doc and checks it against Schema.
func MarshalJSON(doc Document) ([]byte, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if err := ValidateJSONAgainstSchema(Schema(), b); err != nil {
		return nil, err
	}
	return b, nil
}

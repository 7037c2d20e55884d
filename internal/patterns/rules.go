package patterns

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/idcard-extractor/internal/extract"
)

// Target selects which result field a rule fills.
type Target int

const (
	TargetAadhaar Target = iota
	TargetPAN
)

func (t Target) String() string {
	if t == TargetPAN {
		return "pan"
	}
	return "aadhaar"
}

// Rule is one row of the ordered extraction table. Rules are evaluated in
// order; the first rule yielding a valid candidate fills its target and later
// rules for the same target are skipped.
type Rule struct {
	Name       string
	Target     Target
	Pattern    *regexp.Regexp
	FoldCase   bool                                  // match against uppercased text
	Candidates func(text string) []string            // overrides Pattern when set
	Validate   func(candidate string) (string, bool) // returns the normalized value
	Confidence extract.Confidence
	Method     extract.Method
}

func (r Rule) candidates(text string) []string {
	if r.Candidates != nil {
		return r.Candidates(text)
	}
	return r.Pattern.FindAllString(text, -1)
}

// DefaultRules returns the Aadhaar and PAN table in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:       "aadhaar-spaced",
			Target:     TargetAadhaar,
			Pattern:    regexp.MustCompile(`\b\d{4}\s\d{4}\s\d{4}\b`),
			Validate:   ValidAadhaar,
			Confidence: extract.ConfidenceHigh,
			Method:     extract.MethodStrictPattern,
		},
		{
			Name:       "aadhaar-contiguous",
			Target:     TargetAadhaar,
			Pattern:    regexp.MustCompile(`\b\d{12}\b`),
			Validate:   ValidAadhaar,
			Confidence: extract.ConfidenceHigh,
			Method:     extract.MethodStrictPattern,
		},
		{
			Name:       "aadhaar-dashed",
			Target:     TargetAadhaar,
			Pattern:    regexp.MustCompile(`\b\d{4}-\d{4}-\d{4}\b`),
			Validate:   ValidAadhaar,
			Confidence: extract.ConfidenceHigh,
			Method:     extract.MethodStrictPattern,
		},
		{
			Name:       "pan-generic",
			Target:     TargetPAN,
			Pattern:    regexp.MustCompile(`\b[A-Z]{5}[0-9]{4}[A-Z]\b`),
			FoldCase:   true,
			Validate:   ValidPAN,
			Confidence: extract.ConfidenceHigh,
			Method:     extract.MethodStrictPattern,
		},
		{
			Name:       "pan-personal",
			Target:     TargetPAN,
			Pattern:    regexp.MustCompile(`\b[A-Z]{3}P[A-Z][0-9]{4}[A-Z]\b`),
			FoldCase:   true,
			Validate:   ValidPAN,
			Confidence: extract.ConfidenceHigh,
			Method:     extract.MethodStrictPattern,
		},
		{
			Name:       "pan-relaxed",
			Target:     TargetPAN,
			FoldCase:   true,
			Candidates: relaxedPANWindows,
			Validate:   ValidPAN,
			Confidence: extract.ConfidenceMedium,
			Method:     extract.MethodRelaxedShape,
		},
	}
}

var reAlnumRun = regexp.MustCompile(`[A-Z0-9]{10,}`)

// relaxedPANWindows yields every 10-character window of every alphanumeric
// run, so a PAN glued to OCR debris ("XABCDE1234F") is still seen.
func relaxedPANWindows(text string) []string {
	var out []string
	for _, run := range reAlnumRun.FindAllString(text, -1) {
		for i := 0; i+10 <= len(run); i++ {
			out = append(out, run[i:i+10])
		}
	}
	return out
}

// ValidAadhaar strips separators and accepts exactly 12 digits.
func ValidAadhaar(candidate string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t', '\n':
			return -1
		}
		return r
	}, candidate)
	if len(digits) != 12 {
		return "", false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return "", false
		}
	}
	return digits, true
}

// ValidPAN accepts five letters, four digits, one letter.
func ValidPAN(candidate string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(candidate))
	if len(s) != 10 {
		return "", false
	}
	for i := 0; i < 10; i++ {
		c := s[i]
		letter := c >= 'A' && c <= 'Z'
		digit := c >= '0' && c <= '9'
		switch {
		case i < 5 && !letter, i >= 5 && i < 9 && !digit, i == 9 && !letter:
			return "", false
		}
	}
	return s, true
}

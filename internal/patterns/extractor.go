package patterns

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/extract"
)

var reWhitespace = regexp.MustCompile(`\s+`)

// Extractor applies the rule table and the details heuristics.
type Extractor struct {
	rules  []Rule
	logger *slog.Logger
}

// NewExtractor uses DefaultRules when no rules are given.
func NewExtractor(logger *slog.Logger, rules ...Rule) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Extractor{rules: rules, logger: logger}
}

// Extract accepts canonical or raw OCR text; whitespace runs, including line
// breaks, are collapsed before matching.
func (e *Extractor) Extract(text string) extract.Result {
	collapsed := strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
	upper := strings.ToUpper(collapsed)

	var res extract.Result
	for _, rule := range e.rules {
		field := &res.Aadhaar
		if rule.Target == TargetPAN {
			field = &res.PAN
		}
		if field.Found() {
			continue
		}

		input := collapsed
		if rule.FoldCase {
			input = upper
		}
		for _, cand := range rule.candidates(input) {
			value, ok := rule.Validate(cand)
			if !ok {
				e.logger.Debug("patterns.candidate.rejected", "rule", rule.Name, "candidate", cand)
				continue
			}
			*field = extract.Field{
				Value:      value,
				Confidence: rule.Confidence,
				Method:     rule.Method,
				Rule:       rule.Name,
			}
			e.logger.Debug("patterns.rule.matched", "rule", rule.Name, "target", rule.Target.String(), "confidence", rule.Confidence.String())
			break
		}
	}

	if res.Aadhaar.Found() {
		res.Warnings = append(res.Warnings, AadhaarWarnings(res.Aadhaar.Value)...)
	}
	res.Details = ExtractDetails(text)
	res.Details.DocumentType = DocumentType(res, upper)
	return res
}

// AadhaarWarnings flags structurally valid numbers UIDAI would never issue.
// They are informational; the value is kept.
func AadhaarWarnings(digits string) []string {
	var out []string
	if len(digits) == 12 && (digits[0] == '0' || digits[0] == '1') {
		out = append(out, "aadhaar number starts with 0 or 1")
	}
	if !VerhoeffValid(digits) {
		out = append(out, "aadhaar checksum mismatch")
	}
	return out
}

// DocumentType decides from the identifiers found, then from header keywords
// in upper. A tie between keyword sets is Unknown.
func DocumentType(res extract.Result, upper string) constants.DocumentType {
	switch {
	case res.PAN.Found() && !res.Aadhaar.Found():
		return constants.DocumentPAN
	case res.Aadhaar.Found() && !res.PAN.Found():
		return constants.DocumentAadhaar
	}

	score := map[constants.DocumentType]int{}
	for kw, doc := range constants.DocumentKeywords {
		if strings.Contains(upper, kw) {
			score[doc]++
		}
	}
	switch pan, aadhaar := score[constants.DocumentPAN], score[constants.DocumentAadhaar]; {
	case pan > aadhaar:
		return constants.DocumentPAN
	case aadhaar > pan:
		return constants.DocumentAadhaar
	}
	return constants.DocumentUnknown
}

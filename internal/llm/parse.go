package llm

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/idcard-extractor/internal/extract"
	"github.com/joseph-ayodele/idcard-extractor/internal/patterns"
)

var (
	// Labeled values are read from their first characters; trailing junk
	// after twelve digits or a PAN shape is ignored.
	reReplyAadhaar = regexp.MustCompile(`(?i)\bAADHAAR:\s*(\d{4}[ -]?\d{4}[ -]?\d{4})`)
	reReplyPAN     = regexp.MustCompile(`(?i)\bPAN:\s*([A-Z]{5}\d{4}[A-Z])`)
)

// ParseReply reads a model answer. Labeled lines win; without any labeled
// line the whole trimmed reply is tried as a bare Aadhaar or PAN. Values
// found here are medium confidence. The not-found marker, unparsable text
// and empty replies yield an empty result.
func ParseReply(reply string) extract.Result {
	var res extract.Result

	if m := reReplyAadhaar.FindStringSubmatch(reply); m != nil {
		if v, ok := patterns.ValidAadhaar(m[1]); ok {
			res.Aadhaar = llmField(v, "llm-labeled")
		}
	}
	if m := reReplyPAN.FindStringSubmatch(reply); m != nil {
		if v, ok := patterns.ValidPAN(m[1]); ok {
			res.PAN = llmField(v, "llm-labeled")
		}
	}
	if !res.Empty() {
		return res
	}

	bare := strings.Trim(strings.TrimSpace(reply), "\"'`")
	bare = strings.NewReplacer(" ", "", "-", "").Replace(bare)
	if v, ok := patterns.ValidAadhaar(bare); ok {
		res.Aadhaar = llmField(v, "llm-unlabeled")
	} else if v, ok := patterns.ValidPAN(bare); ok {
		res.PAN = llmField(v, "llm-unlabeled")
	}
	return res
}

// IsNotFound reports whether the reply carries the not-found marker.
func IsNotFound(reply string) bool {
	return strings.Contains(strings.ToUpper(reply), NotFoundMarker)
}

func llmField(v, rule string) extract.Field {
	return extract.Field{Value: v, Confidence: extract.ConfidenceMedium, Method: extract.MethodLLM, Rule: rule}
}

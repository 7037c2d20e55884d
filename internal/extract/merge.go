package extract

import (
	"slices"

	"github.com/joseph-ayodele/idcard-extractor/constants"
)

// Merge combines a deterministic result with a fallback result.
//
// Per field the better-ranked candidate wins: higher confidence first, then
// method certainty (strict > relaxed > llm). A pattern match therefore always
// keeps its value and only unset fields are filled by the fallback. Exact ties
// resolve on the value itself so Merge(a, b) == Merge(b, a).
func Merge(det, fb Result) Result {
	out := Result{
		Aadhaar: mergeField(det.Aadhaar, fb.Aadhaar),
		PAN:     mergeField(det.PAN, fb.PAN),
		Details: mergeDetails(det.Details, fb.Details),
	}
	for _, w := range append(slices.Clone(det.Warnings), fb.Warnings...) {
		if !slices.Contains(out.Warnings, w) {
			out.Warnings = append(out.Warnings, w)
		}
	}
	slices.Sort(out.Warnings)
	return out
}

func mergeField(a, b Field) Field {
	switch {
	case !a.Found():
		return b
	case !b.Found():
		return a
	case a.Confidence != b.Confidence:
		if a.Confidence > b.Confidence {
			return a
		}
		return b
	case a.Method.certainty() != b.Method.certainty():
		if a.Method.certainty() > b.Method.certainty() {
			return a
		}
		return b
	case a.Value <= b.Value:
		return a
	default:
		return b
	}
}

func mergeDetails(a, b Details) Details {
	return Details{
		DocumentType: pickDocument(a.DocumentType, b.DocumentType),
		Name:         pickString(a.Name, b.Name),
		FatherName:   pickString(a.FatherName, b.FatherName),
		DateOfBirth:  pickString(a.DateOfBirth, b.DateOfBirth),
		Gender:       pickString(a.Gender, b.Gender),
	}
}

func pickDocument(a, b constants.DocumentType) constants.DocumentType {
	known := func(d constants.DocumentType) bool { return d != "" && d != constants.DocumentUnknown }
	switch {
	case known(a) && known(b):
		return constants.DocumentType(pickString(string(a), string(b)))
	case known(a):
		return a
	case known(b):
		return b
	case a != "" || b != "":
		return constants.DocumentUnknown
	}
	return ""
}

func pickString(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case a <= b:
		return a
	default:
		return b
	}
}

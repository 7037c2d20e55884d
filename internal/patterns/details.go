package patterns

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/idcard-extractor/internal/extract"
)

var (
	reDOBLabeled = regexp.MustCompile(`(?i)\b(?:dob|d\.o\.b|date of birth|birth)\b[^0-9]{0,12}(\d{2}[/\-.]\d{2}[/\-.]\d{4})`)
	reYOB        = regexp.MustCompile(`(?i)\b(?:yob|year of birth)\b\D{0,6}(\d{4})\b`)
	reAnyDate    = regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`)
	reGender     = regexp.MustCompile(`(?i)\b(female|male|transgender)\b`)
	reNameInline = regexp.MustCompile(`(?i)^name\s*[:\-]\s*(.+)$`)
	reNameLabel  = regexp.MustCompile(`(?i)^name\s*:?$`)
	reFatherInl  = regexp.MustCompile(`(?i)^(?:father'?s?\s*name|s/o|d/o|w/o|c/o)\s*[:\-]?\s*(.+)$`)
	reFatherLbl  = regexp.MustCompile(`(?i)^father'?s?\s*name\s*:?$`)
	reNameLike   = regexp.MustCompile(`^[A-Za-z][A-Za-z .]{1,48}$`)
)

// Words that mark a line as card furniture rather than a person's name.
var nonNameWords = map[string]struct{}{
	"GOVT": {}, "GOVERNMENT": {}, "INDIA": {}, "INCOME": {}, "TAX": {},
	"DEPARTMENT": {}, "PERMANENT": {}, "ACCOUNT": {}, "NUMBER": {}, "CARD": {},
	"MALE": {}, "FEMALE": {}, "DOB": {}, "NAME": {}, "FATHER": {}, "FATHERS": {},
	"SIGNATURE": {}, "AADHAAR": {}, "AADHAR": {}, "UNIQUE": {}, "IDENTIFICATION": {},
	"AUTHORITY": {}, "BIRTH": {}, "DATE": {}, "YEAR": {}, "ENROLMENT": {}, "VID": {},
}

// ExtractDetails runs the descriptive-field heuristics over text lines.
// DocumentType is left for the caller.
func ExtractDetails(text string) extract.Details {
	lines := splitLines(text)
	var d extract.Details

	if m := reDOBLabeled.FindStringSubmatch(text); m != nil {
		d.DateOfBirth = m[1]
	} else if m := reYOB.FindStringSubmatch(text); m != nil {
		d.DateOfBirth = m[1]
	} else if m := reAnyDate.FindStringSubmatch(text); m != nil {
		d.DateOfBirth = m[1]
	}

	if m := reGender.FindStringSubmatch(text); m != nil {
		g := strings.ToLower(m[1])
		d.Gender = strings.ToUpper(g[:1]) + g[1:]
	}

	d.Name = labeledValue(lines, reNameInline, reNameLabel)
	d.FatherName = labeledValue(lines, reFatherInl, reFatherLbl)

	if d.Name == "" {
		d.Name = nameBeforeDOB(lines)
	}
	if d.Name == "" || d.FatherName == "" {
		// PAN layout: holder then father on the lines under the header.
		names := namesAfterHeader(lines)
		if d.Name == "" && len(names) > 0 {
			d.Name = names[0]
			names = names[1:]
		}
		if d.FatherName == "" && len(names) > 0 && names[0] != d.Name {
			d.FatherName = names[0]
		}
	}
	return d
}

func splitLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func labeledValue(lines []string, inline, label *regexp.Regexp) string {
	for i, l := range lines {
		if m := inline.FindStringSubmatch(l); m != nil && isNameLike(m[1]) {
			return strings.TrimSpace(m[1])
		}
		if label.MatchString(l) && i+1 < len(lines) && isNameLike(lines[i+1]) {
			return lines[i+1]
		}
	}
	return ""
}

// nameBeforeDOB follows the Aadhaar front layout: name line, then DOB line.
func nameBeforeDOB(lines []string) string {
	for i, l := range lines {
		if reDOBLabeled.MatchString(l) || reYOB.MatchString(l) {
			if i > 0 && isNameLike(lines[i-1]) {
				return lines[i-1]
			}
			return ""
		}
	}
	return ""
}

func namesAfterHeader(lines []string) []string {
	start := -1
	for i, l := range lines {
		u := strings.ToUpper(l)
		if strings.Contains(u, "INCOME TAX") || strings.Contains(u, "GOVT") {
			start = i
		}
	}
	if start < 0 {
		return nil
	}
	var out []string
	for _, l := range lines[start+1:] {
		if reAnyDate.MatchString(l) {
			break
		}
		if isNameLike(l) {
			out = append(out, l)
		}
	}
	return out
}

func isNameLike(s string) bool {
	s = strings.TrimSpace(s)
	if !reNameLike.MatchString(s) {
		return false
	}
	words := strings.Fields(strings.ReplaceAll(s, ".", " "))
	if len(words) == 0 || len(words) > 5 {
		return false
	}
	for _, w := range words {
		if _, bad := nonNameWords[strings.ToUpper(w)]; bad {
			return false
		}
	}
	return true
}

package constants

type DocumentType string

const (
	DocumentPAN     DocumentType = "PAN"
	DocumentAadhaar DocumentType = "Aadhaar"
	DocumentUnknown DocumentType = "Unknown"
)

var allDocumentTypes = []DocumentType{
	DocumentPAN,
	DocumentAadhaar,
	DocumentUnknown,
}

func DocumentTypeStrings() []string {
	result := make([]string, len(allDocumentTypes))
	for i, d := range allDocumentTypes {
		result[i] = string(d)
	}
	return result
}

// DocumentKeywords maps uppercase header phrases printed on the cards to the
// document they identify. Checked as substrings of uppercased OCR text.
var DocumentKeywords = map[string]DocumentType{
	"INCOME TAX DEPARTMENT":     DocumentPAN,
	"INCOME TAX":                DocumentPAN,
	"PERMANENT ACCOUNT NUMBER":  DocumentPAN,
	"AADHAAR":                   DocumentAadhaar,
	"AADHAR":                    DocumentAadhaar,
	"UIDAI":                     DocumentAadhaar,
	"UNIQUE IDENTIFICATION":     DocumentAadhaar,
	"ENROLMENT NO":              DocumentAadhaar,
	"MERA AADHAAR MERI PEHCHAN": DocumentAadhaar,
}

package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/idcard-extractor/constants"
)

const panCardText = `INCOME TAX DEPARTMENT GOVT. OF INDIA
RAHUL KUMAR SHARMA
SURESH KUMAR SHARMA
14/08/1989
Permanent Account Number
ABCPS1234K
Signature`

const aadhaarCardText = `Government of India
Priya Verma
DOB: 21/03/1994
Female
2341 2341 2346
Mera Aadhaar Meri Pehchan`

func TestDetailsPANLayout(t *testing.T) {
	res := NewExtractor(nil).Extract(panCardText)

	assert.Equal(t, "ABCPS1234K", res.PAN.Value)
	assert.Equal(t, constants.DocumentPAN, res.Details.DocumentType)
	assert.Equal(t, "RAHUL KUMAR SHARMA", res.Details.Name)
	assert.Equal(t, "SURESH KUMAR SHARMA", res.Details.FatherName)
	assert.Equal(t, "14/08/1989", res.Details.DateOfBirth)
	assert.Empty(t, res.Details.Gender)
}

func TestDetailsAadhaarLayout(t *testing.T) {
	res := NewExtractor(nil).Extract(aadhaarCardText)

	assert.Equal(t, "234123412346", res.Aadhaar.Value)
	assert.Equal(t, constants.DocumentAadhaar, res.Details.DocumentType)
	assert.Equal(t, "Priya Verma", res.Details.Name)
	assert.Equal(t, "21/03/1994", res.Details.DateOfBirth)
	assert.Equal(t, "Female", res.Details.Gender)
}

func TestDetailsLabels(t *testing.T) {
	d := ExtractDetails("Name\nAnita Rao\nFathers Name\nM Rao\nYear of Birth : 1971\nMALE")

	assert.Equal(t, "Anita Rao", d.Name)
	assert.Equal(t, "M Rao", d.FatherName)
	assert.Equal(t, "1971", d.DateOfBirth)
	assert.Equal(t, "Male", d.Gender)
}

func TestDetailsInlineRelation(t *testing.T) {
	d := ExtractDetails("Name: Dr. Kiran Das\nS/O: Mohan Das\nDOB 02-11-1980")

	assert.Equal(t, "Dr. Kiran Das", d.Name)
	assert.Equal(t, "Mohan Das", d.FatherName)
	assert.Equal(t, "02-11-1980", d.DateOfBirth)
}

func TestDocumentTypeFromKeywords(t *testing.T) {
	e := NewExtractor(nil)

	res := e.Extract("INCOME TAX DEPARTMENT\nnothing readable")
	assert.True(t, res.Empty())
	assert.Equal(t, constants.DocumentPAN, res.Details.DocumentType)

	res = e.Extract("Unique Identification Authority of India")
	assert.Equal(t, constants.DocumentAadhaar, res.Details.DocumentType)

	res = e.Extract("blurred")
	assert.Equal(t, constants.DocumentUnknown, res.Details.DocumentType)
}

func TestIsNameLike(t *testing.T) {
	assert.True(t, isNameLike("A.K. Singh"))
	assert.True(t, isNameLike("RAHUL KUMAR"))
	assert.False(t, isNameLike("GOVT. OF INDIA"))
	assert.False(t, isNameLike("DOB 01/01/1990"))
	assert.False(t, isNameLike("x"))
	assert.False(t, isNameLike("one two three four five six"))
}

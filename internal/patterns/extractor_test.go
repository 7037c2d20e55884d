package patterns

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/extract"
	"github.com/joseph-ayodele/idcard-extractor/internal/textclean"
)

func TestAadhaarSeparators(t *testing.T) {
	e := NewExtractor(nil)
	numbers := []string{"123456789012", "234123412346", "999988887777", "500012340000"}
	for _, n := range numbers {
		spaced := n[:4] + " " + n[4:8] + " " + n[8:]
		dashed := n[:4] + "-" + n[4:8] + "-" + n[8:]
		for _, text := range []string{
			"Aadhaar No: " + spaced + " issued",
			"VID " + n + "\nMale",
			"Your number " + dashed + ".",
			"line one\n" + spaced,
		} {
			res := e.Extract(text)
			assert.Equal(t, n, res.Aadhaar.Value, "text %q", text)
			assert.Equal(t, extract.ConfidenceHigh, res.Confidence(), "text %q", text)
			assert.Equal(t, extract.MethodStrictPattern, res.Aadhaar.Method)
		}
	}
}

func TestAadhaarRulePriority(t *testing.T) {
	e := NewExtractor(nil)

	res := e.Extract("ref 111122223333 then 4444 5555 6666")
	assert.Equal(t, "444455556666", res.Aadhaar.Value)
	assert.Equal(t, "aadhaar-spaced", res.Aadhaar.Rule)

	res = e.Extract("ref 1111-2222-3333 then 444455556666")
	assert.Equal(t, "444455556666", res.Aadhaar.Value)
	assert.Equal(t, "aadhaar-contiguous", res.Aadhaar.Rule)
}

func TestAadhaarRejectsLongerDigitRuns(t *testing.T) {
	res := NewExtractor(nil).Extract("account 1234567890123456")
	assert.False(t, res.Aadhaar.Found())
	assert.Equal(t, extract.ConfidenceLow, res.Confidence())
}

func TestAadhaarSpacedAcrossLines(t *testing.T) {
	res := NewExtractor(nil).Extract("1234\n5678 9012")
	assert.Equal(t, "123456789012", res.Aadhaar.Value)
}

func TestStrictPANCaseInsensitive(t *testing.T) {
	e := NewExtractor(nil)
	for _, pan := range []string{"ABCPX1234F", "AAACB1234C", "ZZZZZ0000Z", "BNZPM2501F"} {
		for _, text := range []string{pan, strings.ToLower(pan), "PAN " + pan + " GOVT", "noise\n" + strings.ToLower(pan[:5]) + pan[5:]} {
			res := e.Extract(text)
			assert.Equal(t, pan, res.PAN.Value, "text %q", text)
			assert.Equal(t, extract.ConfidenceHigh, res.Confidence(), "text %q", text)
		}
	}
}

func TestPANExample(t *testing.T) {
	res := NewExtractor(nil).Extract("ABCPX1234F some noise")
	assert.Equal(t, "ABCPX1234F", res.PAN.Value)
	assert.Equal(t, extract.ConfidenceHigh, res.Confidence())
	assert.False(t, res.Aadhaar.Found())
	assert.Equal(t, constants.DocumentPAN, res.Details.DocumentType)
}

func TestRelaxedPAN(t *testing.T) {
	e := NewExtractor(nil)

	res := e.Extract("Permanent Account Number XABCDE1234FY")
	require.True(t, res.PAN.Found())
	assert.Equal(t, "ABCDE1234F", res.PAN.Value)
	assert.Equal(t, extract.ConfidenceMedium, res.PAN.Confidence)
	assert.Equal(t, extract.MethodRelaxedShape, res.PAN.Method)
	assert.Equal(t, extract.ConfidenceMedium, res.Confidence())

	res = e.Extract("code 12ABCDE1234F")
	assert.Equal(t, "ABCDE1234F", res.PAN.Value)
	assert.Equal(t, extract.ConfidenceMedium, res.Confidence())
}

func TestRelaxedPANRejectsBadShape(t *testing.T) {
	res := NewExtractor(nil).Extract("SERIAL ABC1234567 AND 1234ABCDEF")
	assert.False(t, res.PAN.Found())
}

func TestRelaxedDoesNotLowerAadhaarConfidence(t *testing.T) {
	res := NewExtractor(nil).Extract("1234 5678 9012 XABCDE1234FY")
	assert.Equal(t, extract.ConfidenceHigh, res.Aadhaar.Confidence)
	assert.Equal(t, extract.ConfidenceMedium, res.PAN.Confidence)
	assert.Equal(t, extract.ConfidenceHigh, res.Confidence())
}

func TestBothFieldsIndependent(t *testing.T) {
	res := NewExtractor(nil).Extract("PAN: ABCPK1234F\nUID: 2341 2341 2346")
	assert.Equal(t, "ABCPK1234F", res.PAN.Value)
	assert.Equal(t, "234123412346", res.Aadhaar.Value)
	assert.Equal(t, extract.ConfidenceHigh, res.Confidence())
}

func TestNothingFound(t *testing.T) {
	res := NewExtractor(nil).Extract("GOVERNMENT OF INDIA\nSignature")
	assert.True(t, res.Empty())
	assert.Equal(t, extract.ConfidenceLow, res.Confidence())
}

func TestCanonicalExample(t *testing.T) {
	canonical := textclean.Clean("1234 5678 9012\nName: A.K. Singh\n@#$%")
	res := NewExtractor(nil).Extract(canonical.String())

	assert.Equal(t, "123456789012", res.Aadhaar.Value)
	assert.Equal(t, extract.ConfidenceHigh, res.Confidence())
	assert.Equal(t, "A.K. Singh", res.Details.Name)
	assert.Equal(t, constants.DocumentAadhaar, res.Details.DocumentType)
}

func TestCustomRuleTable(t *testing.T) {
	rules := []Rule{DefaultRules()[1]}
	e := NewExtractor(nil, rules...)

	res := e.Extract("1234 5678 9012")
	assert.False(t, res.Aadhaar.Found())
	res = e.Extract("123456789012")
	assert.True(t, res.Aadhaar.Found())
}

func TestValidators(t *testing.T) {
	v, ok := ValidAadhaar("1234-5678 9012")
	assert.True(t, ok)
	assert.Equal(t, "123456789012", v)
	_, ok = ValidAadhaar("1234 5678 901")
	assert.False(t, ok)
	_, ok = ValidAadhaar("1234 5678 901O")
	assert.False(t, ok)

	v, ok = ValidPAN("abcde1234f")
	assert.True(t, ok)
	assert.Equal(t, "ABCDE1234F", v)
	for _, bad := range []string{"ABCD01234F", "ABCDE123F4", "ABCDE12345", "ABCDE1234"} {
		_, ok = ValidPAN(bad)
		assert.False(t, ok, bad)
	}
}

func verhoeffCheckDigit(prefix string) byte {
	c := 0
	for i := 0; i < len(prefix); i++ {
		d := prefix[len(prefix)-1-i]
		c = verhoeffD[c][verhoeffP[(i+1)%8][d-'0']]
	}
	return byte('0' + verhoeffInv[c])
}

func TestVerhoeff(t *testing.T) {
	assert.True(t, VerhoeffValid("2363"))
	assert.False(t, VerhoeffValid("2364"))
	assert.False(t, VerhoeffValid(""))
	assert.False(t, VerhoeffValid("23a3"))

	for _, prefix := range []string{"23412341234", "49876543210", "55550000111"} {
		n := prefix + string(verhoeffCheckDigit(prefix))
		assert.True(t, VerhoeffValid(n), n)
		assert.Empty(t, AadhaarWarnings(n), n)
	}
}

func TestAadhaarWarningsKeepValue(t *testing.T) {
	prefix := "12341234123"
	n := prefix + string(verhoeffCheckDigit(prefix))
	assert.Equal(t, []string{"aadhaar number starts with 0 or 1"}, AadhaarWarnings(n))

	bad := prefix + string('0'+(verhoeffCheckDigit(prefix)-'0'+1)%10)
	res := NewExtractor(nil).Extract(bad)
	assert.Equal(t, bad, res.Aadhaar.Value)
	assert.Contains(t, res.Warnings, "aadhaar checksum mismatch")
}

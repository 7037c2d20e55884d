package export

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/extract"
	"github.com/joseph-ayodele/idcard-extractor/internal/report"
)

func TestRunsXLSX(t *testing.T) {
	rows := []Row{
		{Doc: report.Document{
			Source:       "cards/pan.jpg",
			PAN:          &report.Number{Value: "ABCPK1234Q", Display: "ABCPK1234Q", Confidence: "high", Method: "strict-pattern"},
			Confidence:   "high",
			Details:      extract.Details{DocumentType: constants.DocumentPAN, Name: "RAHUL KUMAR"},
			ProcessingMS: 1200,
		}},
		{Doc: report.Document{
			Source:     "cards/aadhaar.png",
			Aadhaar:    &report.Number{Value: "123456789012", Display: "1234 5678 9012", Confidence: "medium", Method: "llm"},
			Confidence: "medium",
			Fallback:   report.Fallback{Invoked: true},
			Warnings:   []string{"aadhaar checksum mismatch"},
		}},
		{Doc: report.Document{Source: "cards/missing.png"}, Err: errors.New("IMAGE_NOT_FOUND: image not found")},
	}

	b, err := NewService(nil).RunsXLSX(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	got, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, headers, got[0])
	assert.Equal(t, []string{"cards/pan.jpg", "PAN", "", "ABCPK1234Q", "high", "RAHUL KUMAR", "", "skipped", "", "1200"}, got[1])
	assert.Equal(t, "1234 5678 9012", got[2][2])
	assert.Equal(t, "ok", got[2][7])
	assert.Equal(t, "aadhaar checksum mismatch", got[2][8])
	assert.Equal(t, "cards/missing.png", got[3][0])
	assert.Equal(t, "IMAGE_NOT_FOUND: image not found", got[3][10])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}

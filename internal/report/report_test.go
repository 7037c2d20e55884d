package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/core"
	"github.com/joseph-ayodele/idcard-extractor/internal/extract"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
	"github.com/joseph-ayodele/idcard-extractor/internal/ocr"
	"github.com/joseph-ayodele/idcard-extractor/internal/preprocess"
	"github.com/joseph-ayodele/idcard-extractor/internal/textclean"
)

func sampleRun() core.Run {
	return core.Run{
		ID:     uuid.MustParse("6f1c1f3e-8f2a-4a57-9d1e-2b1c3c4d5e6f"),
		Source: "/cards/aadhaar.jpg",
		Result: extract.Result{
			Aadhaar:  extract.Field{Value: "123456789012", Confidence: extract.ConfidenceHigh, Method: extract.MethodStrictPattern},
			Details:  extract.Details{DocumentType: constants.DocumentAadhaar, Name: "Rahul Kumar", DateOfBirth: "01/02/1990", Gender: "Male"},
			Warnings: []string{"aadhaar checksum mismatch"},
		},
		Canonical: textclean.FromLines("1234 5678 9012"),
		Passes: []ocr.Pass{
			{Spec: ocr.PassSpec{Recipe: preprocess.RecipeEnhanced, PageSegMode: ocr.PSMSingleBlock}, Text: "1234 5678 9012"},
			{Spec: ocr.PassSpec{Recipe: preprocess.RecipeOriginal, PageSegMode: ocr.PSMSingleBlock}, Failure: ocr.FailureTimeout},
		},
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  1530 * time.Millisecond,
	}
}

func TestFromRun(t *testing.T) {
	doc := FromRun(sampleRun())
	require.NotNil(t, doc.Aadhaar)
	assert.Nil(t, doc.PAN)
	assert.Equal(t, "1234 5678 9012", doc.Aadhaar.Display)
	assert.Equal(t, "high", doc.Confidence)
	assert.Equal(t, []Pass{{Pass: "enhanced:6", Chars: 14}, {Pass: "original:6", Failure: "timeout"}}, doc.Passes)
	assert.EqualValues(t, 1530, doc.ProcessingMS)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, FromRun(sampleRun())))
	out := buf.String()

	assert.Contains(t, out, "EXTRACTION RESULTS\n========================================\n")
	assert.Contains(t, out, "Aadhaar: 1234 5678 9012 (high, strict-pattern)\n")
	assert.NotContains(t, out, "PAN:")
	assert.Contains(t, out, "Document Type: Aadhaar\n")
	assert.Contains(t, out, "Name: Rahul Kumar\n")
	assert.Contains(t, out, "- aadhaar checksum mismatch\n")
	assert.NotContains(t, out, "LLM fallback")
	assert.Contains(t, out, "Confidence: high\n")
	assert.Contains(t, out, "Processing Time: 1.53s\n")
}

func TestWriteTextNothingFound(t *testing.T) {
	run := core.Run{
		ID:              uuid.New(),
		Source:          "blank.png",
		FallbackInvoked: true,
		Fallback:        llm.Reply{Failure: llm.FailureTimeout},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, FromRun(run)))
	assert.Contains(t, buf.String(), "No Aadhaar or PAN number found\n")
	assert.Contains(t, buf.String(), "LLM fallback: timeout\n")
	assert.Contains(t, buf.String(), "Confidence: low\n")
}

func TestSaveText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extracted_ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	require.NoError(t, SaveText(path, FromRun(sampleRun())))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Aadhaar: 1234 5678 9012")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Error(t, SaveText(filepath.Join(t.TempDir(), "missing", "r.txt"), Document{}))
}

func TestSaveTextIsWorldReadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "extracted_ids.txt")
	require.NoError(t, SaveText(path, FromRun(sampleRun())))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestMarshalJSONValidates(t *testing.T) {
	b, err := MarshalJSON(FromRun(sampleRun()))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "high", m["confidence"])
	assert.NotContains(t, m, "pan")

	bad := FromRun(sampleRun())
	bad.Aadhaar.Value = "1234"
	_, err = MarshalJSON(bad)
	assert.Error(t, err)
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"required":   []string{"a"},
		"properties": map[string]any{"a": map[string]any{"type": "string"}},
	}
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{"a":"x"}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"b":1}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`not json`)))
}

func TestSidecarPath(t *testing.T) {
	assert.Equal(t, "/in/card.ids.txt", SidecarPath("/in/card.jpg"))
	assert.Equal(t, "noext.ids.txt", SidecarPath("noext"))
}

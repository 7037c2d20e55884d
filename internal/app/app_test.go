package app

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/extract"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
	"github.com/joseph-ayodele/idcard-extractor/internal/ocr"
	"github.com/joseph-ayodele/idcard-extractor/internal/report"
)

type stubEngine struct{ text string }

func (s stubEngine) Name() string                { return "stub" }
func (s stubEngine) Check(context.Context) error { return nil }
func (s stubEngine) Recognize(context.Context, []byte, ocr.Config) (string, error) {
	return s.text, nil
}

func cardPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * y)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestBuildWiresFallbackAndMetrics(t *testing.T) {
	cfg := common.LoadConfig()
	var calls atomic.Int32
	gen := llm.GeneratorFunc(func(context.Context, string) llm.Reply {
		calls.Add(1)
		return llm.Reply{Text: "PAN: ABCPK1234Q"}
	})
	reg := prometheus.NewRegistry()

	a, err := Build(context.Background(), cfg, nil, Options{
		Engine:     stubEngine{text: "INCOME TAX DEPARTMENT\nGOVT OF INDIA"},
		Generator:  gen,
		Registerer: reg,
	})
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Guard)
	assert.Nil(t, a.Ollama)
	assert.Nil(t, a.Runs)

	run, err := a.ProcessBytes(context.Background(), cardPNG(t), "upload.png")
	require.NoError(t, err)
	assert.True(t, run.FallbackInvoked)
	assert.Equal(t, "ABCPK1234Q", run.Result.PAN.Value)
	assert.Equal(t, extract.ConfidenceMedium, run.Confidence())
	assert.EqualValues(t, 1, calls.Load())

	_, err = a.ProcessPath(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.True(t, common.IsSetupError(err))

	expected := `
# HELP idextract_setup_failures_total Runs aborted by setup errors.
# TYPE idextract_setup_failures_total counter
idextract_setup_failures_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "idextract_setup_failures_total"))
}

func TestBuildWithoutLLM(t *testing.T) {
	cfg := common.LoadConfig()
	a, err := Build(context.Background(), cfg, nil, Options{
		Engine:     stubEngine{text: "GOVT OF INDIA"},
		DisableLLM: true,
	})
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Guard)

	run, err := a.ProcessBytes(context.Background(), cardPNG(t), "upload.png")
	require.NoError(t, err)
	assert.False(t, run.FallbackInvoked)
	assert.Equal(t, extract.ConfidenceLow, run.Confidence())
}

func TestBuildWithStore(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.Database.DSN = ":memory:"
	a, err := Build(context.Background(), cfg, nil, Options{
		Engine:     stubEngine{text: "Permanent Account Number\nABCPK1234Q"},
		DisableLLM: true,
	})
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Runs)
	require.NoError(t, a.Check(context.Background()))

	ctx := context.Background()
	seen, err := a.Seen(ctx, "hash-1")
	require.NoError(t, err)
	assert.False(t, seen)

	run, err := a.ProcessBytes(ctx, cardPNG(t), "pan.png")
	require.NoError(t, err)
	require.NoError(t, a.SaveRun(ctx, report.FromRun(run), "hash-1", nil))

	seen, err = a.Seen(ctx, "hash-1")
	require.NoError(t, err)
	assert.True(t, seen)

	recent, err := a.Runs.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "ABCPK1234Q", recent[0].PAN)
}

func TestBuildRejectsBadConfig(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.OCR.Passes = "enhanced:x"
	_, err := Build(context.Background(), cfg, nil, Options{Engine: stubEngine{}})
	require.Error(t, err)
	assert.True(t, common.IsSetupError(err))
	assert.Equal(t, common.CodeConfig, common.ErrorCode(err))

	cfg = common.LoadConfig()
	cfg.LLM.PromptFile = filepath.Join(t.TempDir(), "absent.tmpl")
	_, err = Build(context.Background(), cfg, nil, Options{Engine: stubEngine{}})
	require.Error(t, err)
	assert.Equal(t, common.CodeConfig, common.ErrorCode(err))
}

func TestNewEngine(t *testing.T) {
	e, err := NewEngine(common.OCRConfig{Backend: "exec", TesseractPath: "tesseract"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "tesseract-exec", e.Name())

	_, err = NewEngine(common.OCRConfig{Backend: "paddle"}, nil)
	assert.Equal(t, common.CodeConfig, common.ErrorCode(err))

	_, err = NewEngine(common.OCRConfig{Backend: "gosseract"}, nil)
	if ocr.GosseractAvailable {
		assert.NoError(t, err)
	} else {
		assert.Equal(t, common.CodeOCRUnavailable, common.ErrorCode(err))
	}
}

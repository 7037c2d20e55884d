package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/idcard-extractor/internal/extract"
	"github.com/joseph-ayodele/idcard-extractor/internal/textclean"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		aadhaar string
		pan     string
	}{
		{"labeled both", "AADHAAR: 123456789012\nPAN: ABCDE1234F", "123456789012", "ABCDE1234F"},
		{"labeled aadhaar with spaces", "Aadhaar: 1234 5678 9012", "123456789012", ""},
		{"labeled pan lowercase", "pan: abcpk1234q", "", "ABCPK1234Q"},
		{"labeled in prose", "Sure. PAN: ABCPK1234Q is the number.", "", "ABCPK1234Q"},
		{"unlabeled aadhaar", "  1234-5678-9012 \n", "123456789012", ""},
		{"unlabeled pan", "ABCPK1234Q", "", "ABCPK1234Q"},
		{"not found", "NOT_FOUND", "", ""},
		{"empty", "", "", ""},
		{"garbage", "I cannot read this card.", "", ""},
		{"labeled aadhaar keeps first twelve digits", "AADHAAR: 1234567890123", "123456789012", ""},
		{"labeled pan with trailing junk", "PAN: ABCDE1234FX", "", "ABCDE1234F"},
		{"unlabeled aadhaar too long", "1234567890123", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseReply(tt.reply)
			assert.Equal(t, tt.aadhaar, res.Aadhaar.Value)
			assert.Equal(t, tt.pan, res.PAN.Value)
			for _, f := range []extract.Field{res.Aadhaar, res.PAN} {
				if f.Found() {
					assert.Equal(t, extract.ConfidenceMedium, f.Confidence)
					assert.Equal(t, extract.MethodLLM, f.Method)
				}
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound("not_found"))
	assert.False(t, IsNotFound("PAN: ABCPK1234Q"))
}

func TestPromptRender(t *testing.T) {
	p, err := NewPrompt("")
	require.NoError(t, err)
	out, err := p.Render("INCOME TAX DEPARTMENT")
	require.NoError(t, err)
	assert.Contains(t, out, "INCOME TAX DEPARTMENT")
	assert.Contains(t, out, `"NOT_FOUND"`)

	p, err = NewPrompt("ids in: {{.Text}}")
	require.NoError(t, err)
	out, err = p.Render("x")
	require.NoError(t, err)
	assert.Equal(t, "ids in: x", out)

	_, err = NewPrompt("{{.Text")
	assert.Error(t, err)

	_, err = LoadPrompt("/nonexistent/prompt.tmpl")
	assert.Error(t, err)
}

func TestTruncatePrefix(t *testing.T) {
	s, cut := TruncatePrefix("abcdef", 3)
	assert.Equal(t, "abc", s)
	assert.True(t, cut)

	s, cut = TruncatePrefix("abc", 3)
	assert.Equal(t, "abc", s)
	assert.False(t, cut)

	s, cut = TruncatePrefix("नमस्ते", 2)
	assert.Equal(t, "नम", s)
	assert.True(t, cut)

	s, cut = TruncatePrefix("abc", 0)
	assert.Equal(t, "abc", s)
	assert.False(t, cut)
}

func TestFallbackExtract(t *testing.T) {
	var seen string
	gen := GeneratorFunc(func(_ context.Context, prompt string) Reply {
		seen = prompt
		return Reply{Text: "PAN: ABCPK1234Q"}
	})
	fb := NewFallback(gen, nil, FallbackConfig{MaxTextChars: 10}, nil)

	res, reply := fb.Extract(context.Background(), textclean.FromLines("ABCPK 1234Q debris", "second line"))
	assert.True(t, reply.OK())
	assert.Equal(t, "ABCPK1234Q", res.PAN.Value)
	assert.Contains(t, seen, "ABCPK 1234")
	assert.NotContains(t, seen, "debris")
}

func TestFallbackAbsorbsFailures(t *testing.T) {
	gen := GeneratorFunc(func(ctx context.Context, _ string) Reply {
		<-ctx.Done()
		return Reply{Failure: ClassifyError(ctx.Err()), Err: ctx.Err()}
	})
	fb := NewFallback(gen, nil, FallbackConfig{Timeout: 10 * time.Millisecond}, nil)

	res, reply := fb.Extract(context.Background(), textclean.FromLines("some text"))
	assert.True(t, res.Empty())
	assert.Equal(t, FailureTimeout, reply.Failure)
}

func TestFallbackSkipsEmptyText(t *testing.T) {
	var calls atomic.Int32
	gen := GeneratorFunc(func(context.Context, string) Reply {
		calls.Add(1)
		return Reply{}
	})
	res, reply := NewFallback(gen, nil, FallbackConfig{}, nil).Extract(context.Background(), textclean.CanonicalText{})
	assert.True(t, res.Empty())
	assert.True(t, reply.OK())
	assert.Zero(t, calls.Load())
}

func TestGuardTripsBreaker(t *testing.T) {
	var calls atomic.Int32
	gen := GeneratorFunc(func(context.Context, string) Reply {
		calls.Add(1)
		return Reply{Failure: FailureTransport, Err: errors.New("connection refused")}
	})
	g := NewGuard(gen, GuardConfig{Failures: 2, Cooldown: time.Minute}, nil)

	assert.Equal(t, FailureTransport, g.Generate(context.Background(), "p").Failure)
	assert.Equal(t, FailureTransport, g.Generate(context.Background(), "p").Failure)
	assert.Equal(t, "open", g.State())

	r := g.Generate(context.Background(), "p")
	assert.Equal(t, FailureCircuitOpen, r.Failure)
	assert.EqualValues(t, 2, calls.Load())
}

func TestGuardPassesThroughSuccess(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, string) Reply { return Reply{Text: "NOT_FOUND"} })
	g := NewGuard(gen, GuardConfig{RPS: 100, Failures: 3}, nil)
	r := g.Generate(context.Background(), "p")
	assert.True(t, r.OK())
	assert.Equal(t, "NOT_FOUND", r.Text)
	assert.Equal(t, "closed", g.State())
	assert.Equal(t, "disabled", NewGuard(gen, GuardConfig{}, nil).State())
}

func TestGuardLimiterHonoursContext(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, string) Reply { return Reply{Text: "ok"} })
	g := NewGuard(gen, GuardConfig{RPS: 0.001, Burst: 1}, nil)
	require.True(t, g.Generate(context.Background(), "p").OK())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r := g.Generate(ctx, "p")
	assert.Equal(t, FailureTimeout, r.Failure)
}

func TestSendJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		if strings.HasSuffix(r.URL.Path, "/fail") {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	raw, code, err := SendJSON(context.Background(), srv.Client(), srv.URL+"/ok", map[string]any{"a": 1}, map[string]string{"X-Test": "yes"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"ok":true}`, string(raw))

	_, code, err = SendJSON(context.Background(), srv.Client(), srv.URL+"/fail", nil, map[string]string{"X-Test": "yes"}, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, FailureHTTPStatus, ClassifyError(err))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "upstream down", se.Body)
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, FailureNone, ClassifyError(nil))
	assert.Equal(t, FailureTimeout, ClassifyError(context.DeadlineExceeded))
	assert.Equal(t, FailureCanceled, ClassifyError(context.Canceled))
	assert.Equal(t, FailureTransport, ClassifyError(errors.New("dial tcp: connection refused")))
}

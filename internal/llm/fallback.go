package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/idcard-extractor/internal/extract"
	"github.com/joseph-ayodele/idcard-extractor/internal/textclean"
)

const (
	DefaultMaxTextChars = 3000
	DefaultTimeout      = 90 * time.Second
)

// FallbackConfig bounds one fallback call.
type FallbackConfig struct {
	MaxTextChars int
	Timeout      time.Duration
}

// Fallback asks a generator for identifiers the pattern rules could not find.
// Every failure is absorbed into the returned Reply; callers always get a
// usable (possibly empty) Result.
type Fallback struct {
	gen    Generator
	prompt *Prompt
	cfg    FallbackConfig
	logger *slog.Logger
}

func NewFallback(gen Generator, prompt *Prompt, cfg FallbackConfig, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	if prompt == nil {
		prompt, _ = NewPrompt("")
	}
	if cfg.MaxTextChars <= 0 {
		cfg.MaxTextChars = DefaultMaxTextChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Fallback{gen: gen, prompt: prompt, cfg: cfg, logger: logger}
}

// Extract sends the truncated canonical text and parses the reply.
func (f *Fallback) Extract(ctx context.Context, text textclean.CanonicalText) (extract.Result, Reply) {
	if text.IsEmpty() {
		f.logger.Debug("llm.fallback.skip_empty")
		return extract.Result{}, Reply{}
	}

	body, cut := TruncatePrefix(text.String(), f.cfg.MaxTextChars)
	if cut {
		f.logger.Info("llm.fallback.truncated", "max_chars", f.cfg.MaxTextChars)
	}
	prompt, err := f.prompt.Render(body)
	if err != nil {
		f.logger.Error("llm.fallback.prompt_error", "error", err)
		return extract.Result{}, Reply{Failure: FailurePrompt, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	reply := f.gen.Generate(ctx, prompt)
	if !reply.OK() {
		f.logger.Warn("llm.fallback.failed",
			"failure", string(reply.Failure),
			"error", reply.Err,
			"elapsed_ms", reply.Duration.Milliseconds(),
		)
		return extract.Result{}, reply
	}

	res := ParseReply(reply.Text)
	f.logger.Info("llm.fallback.ok",
		"aadhaar_found", res.Aadhaar.Found(),
		"pan_found", res.PAN.Found(),
		"not_found_marker", res.Empty() && IsNotFound(reply.Text),
		"elapsed_ms", reply.Duration.Milliseconds(),
	)
	return res, reply
}

package core

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/extract"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
	"github.com/joseph-ayodele/idcard-extractor/internal/ocr"
	"github.com/joseph-ayodele/idcard-extractor/internal/patterns"
	"github.com/joseph-ayodele/idcard-extractor/internal/preprocess"
	"github.com/joseph-ayodele/idcard-extractor/internal/textclean"
)

// Stage names used for timings and metrics.
const (
	StageNormalize = "normalize"
	StageOCR       = "ocr"
	StageClean     = "clean"
	StagePatterns  = "patterns"
	StageFallback  = "fallback"
)

// FallbackExtractor is the LLM stage as seen by the Processor.
type FallbackExtractor interface {
	Extract(ctx context.Context, text textclean.CanonicalText) (extract.Result, llm.Reply)
}

// Recorder observes finished runs.
type Recorder interface {
	ObserveRun(run Run)
}

// Config is the per-process pipeline policy.
type Config struct {
	Image       preprocess.Config
	OCR         ocr.Config
	Passes      []ocr.PassSpec
	ParallelOCR bool
	Clean       textclean.Config
}

// Run is everything one extraction produced.
type Run struct {
	ID              uuid.UUID
	Source          string
	Result          extract.Result
	Detected        extract.Result
	Canonical       textclean.CanonicalText
	Passes          []ocr.Pass
	FallbackInvoked bool
	Fallback        llm.Reply
	Stages          map[string]time.Duration
	StartedAt       time.Time
	Duration        time.Duration
}

func (r Run) Confidence() extract.Confidence { return r.Result.Confidence() }

// Processor sequences normalize, OCR, clean, pattern match and the optional
// LLM fallback. It holds no per-request state.
type Processor struct {
	logger     *slog.Logger
	cfg        Config
	normalizer *preprocess.Normalizer
	engine     ocr.Engine
	cleaner    *textclean.Cleaner
	extractor  *patterns.Extractor
	fallback   FallbackExtractor
	recorder   Recorder
}

type Option func(*Processor)

// WithRecorder registers an observer for finished runs.
func WithRecorder(r Recorder) Option {
	return func(p *Processor) { p.recorder = r }
}

// WithRules replaces the default pattern table.
func WithRules(rules ...Rule) Option {
	return func(p *Processor) { p.extractor = patterns.NewExtractor(p.logger, rules...) }
}

// Rule is re-exported so callers configuring the Processor need not import
// patterns.
type Rule = patterns.Rule

// NewProcessor wires the pipeline. fallback may be nil to disable the LLM
// stage.
func NewProcessor(logger *slog.Logger, cfg Config, engine ocr.Engine, fallback FallbackExtractor, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Passes) == 0 {
		cfg.Passes, _ = ocr.ParsePassSpecs(ocr.DefaultPasses)
	}
	p := &Processor{
		logger:     logger,
		cfg:        cfg,
		normalizer: preprocess.NewNormalizer(cfg.Image, logger),
		engine:     engine,
		cleaner:    textclean.New(cfg.Clean),
		extractor:  patterns.NewExtractor(logger),
		fallback:   fallback,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessPath loads an image file and runs the pipeline on it.
func (p *Processor) ProcessPath(ctx context.Context, path string) (Run, error) {
	raw, err := preprocess.Load(path)
	if err != nil {
		p.logger.Error("processor.load.failed", "source", path, "error", err)
		return Run{Source: path}, err
	}
	return p.ProcessImage(ctx, raw)
}

// ProcessBytes runs the pipeline on encoded image data.
func (p *Processor) ProcessBytes(ctx context.Context, data []byte, source string) (Run, error) {
	raw, err := preprocess.Decode(data, source)
	if err != nil {
		return Run{Source: source}, err
	}
	return p.ProcessImage(ctx, raw)
}

// ProcessImage runs the pipeline. Only setup errors are returned; every other
// failure lowers confidence and the Run is still complete.
func (p *Processor) ProcessImage(ctx context.Context, raw preprocess.RawImage) (Run, error) {
	run := Run{
		ID:        uuid.New(),
		Source:    raw.Source,
		StartedAt: time.Now(),
		Stages:    make(map[string]time.Duration, 5),
	}
	ctx = common.WithRunID(ctx, run.ID.String())
	logger := p.logger.With("run_id", run.ID.String())

	if p.engine == nil {
		return run, common.NewSetupError(common.CodeOCRUnavailable, "no OCR engine configured", ocr.ErrEngineUnavailable)
	}

	t := time.Now()
	variants, err := p.normalizer.Normalize(raw, ocr.Recipes(p.cfg.Passes)...)
	run.Stages[StageNormalize] = time.Since(t)
	if err != nil {
		logger.Error("processor.normalize.failed", "source", raw.Source, "error", err)
		return run, err
	}

	t = time.Now()
	passes, err := ocr.RunPasses(ctx, p.engine, variants, p.cfg.Passes, p.cfg.OCR, ocr.PassOptions{
		Parallel: p.cfg.ParallelOCR,
		Logger:   logger,
	})
	run.Stages[StageOCR] = time.Since(t)
	if err != nil {
		logger.Error("processor.ocr.failed", "engine", p.engine.Name(), "error", err)
		if errors.Is(err, ocr.ErrEngineUnavailable) {
			return run, common.NewSetupError(common.CodeOCRUnavailable, "OCR engine "+p.engine.Name()+" is not available", err)
		}
		return run, err
	}
	run.Passes = passes

	p.finish(ctx, logger, &run, ocr.JoinText(passes))
	return run, nil
}

// ProcessText runs the text stages on already recognized text.
func (p *Processor) ProcessText(ctx context.Context, text, source string) Run {
	run := Run{
		ID:        uuid.New(),
		Source:    source,
		StartedAt: time.Now(),
		Stages:    make(map[string]time.Duration, 3),
	}
	ctx = common.WithRunID(ctx, run.ID.String())
	p.finish(ctx, p.logger.With("run_id", run.ID.String()), &run, text)
	return run
}

func (p *Processor) finish(ctx context.Context, logger *slog.Logger, run *Run, rawText string) {
	t := time.Now()
	run.Canonical = p.cleaner.Clean(rawText)
	run.Stages[StageClean] = time.Since(t)

	if run.Canonical.IsEmpty() {
		logger.Warn("processor.clean.empty", "source", run.Source, "raw_chars", len(rawText))
		run.Result.Details.DocumentType = constants.DocumentUnknown
		p.complete(logger, run)
		return
	}

	t = time.Now()
	run.Detected = p.extractor.Extract(run.Canonical.String())
	run.Stages[StagePatterns] = time.Since(t)
	run.Result = run.Detected

	if run.Detected.Confidence() == extract.ConfidenceHigh || p.fallback == nil {
		p.complete(logger, run)
		return
	}

	t = time.Now()
	run.FallbackInvoked = true
	fb, reply := p.fallback.Extract(ctx, run.Canonical)
	run.Stages[StageFallback] = time.Since(t)
	run.Fallback = reply
	run.Result = extract.Merge(run.Detected, fb)
	// The fallback may have filled an ID the patterns missed.
	if doc := patterns.DocumentType(run.Result, strings.ToUpper(run.Canonical.String())); doc != constants.DocumentUnknown {
		run.Result.Details.DocumentType = doc
	}
	p.complete(logger, run)
}

func (p *Processor) complete(logger *slog.Logger, run *Run) {
	run.Duration = time.Since(run.StartedAt)
	logger.Info("processor.run.completed",
		"source", run.Source,
		"confidence", run.Confidence().String(),
		"aadhaar_found", run.Result.Aadhaar.Found(),
		"pan_found", run.Result.PAN.Found(),
		"document_type", string(run.Result.Details.DocumentType),
		"fallback_invoked", run.FallbackInvoked,
		"fallback_failure", string(run.Fallback.Failure),
		"elapsed_ms", run.Duration.Milliseconds(),
	)
	if p.recorder != nil {
		p.recorder.ObserveRun(*run)
	}
}

// Package app builds the extraction pipeline and its optional collaborators
// (run store, metrics, LLM fallback) from common.Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/core"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
	"github.com/joseph-ayodele/idcard-extractor/internal/llm/ollama"
	"github.com/joseph-ayodele/idcard-extractor/internal/metrics"
	"github.com/joseph-ayodele/idcard-extractor/internal/ocr"
	"github.com/joseph-ayodele/idcard-extractor/internal/preprocess"
	"github.com/joseph-ayodele/idcard-extractor/internal/report"
	"github.com/joseph-ayodele/idcard-extractor/internal/repository"
	"github.com/joseph-ayodele/idcard-extractor/internal/textclean"
)

// Options toggles the optional parts of an App.
type Options struct {
	// DisableLLM forces the pattern-only pipeline regardless of LLM_ENABLED.
	DisableLLM bool
	// Registerer enables Prometheus metrics when non-nil.
	Registerer prometheus.Registerer
	// Engine overrides the configured OCR backend.
	Engine ocr.Engine
	// Generator overrides the Ollama client; it is still wrapped by the guard.
	Generator llm.Generator
}

// App is a wired pipeline. Runs and Store are nil without DB_URL; Guard and
// Ollama are nil when the fallback is disabled.
type App struct {
	Processor *core.Processor
	Engine    ocr.Engine
	Guard     *llm.Guard
	Ollama    *ollama.Client
	Metrics   *metrics.Recorder
	Store     *repository.DB
	Runs      repository.RunRepository

	logger *slog.Logger
}

// Build wires every component. Only configuration and store failures are
// returned; an absent OCR binary surfaces on the first run or on Check.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pcfg, err := ProcessorConfig(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{logger: logger, Engine: opts.Engine}
	if a.Engine == nil {
		if a.Engine, err = NewEngine(cfg.OCR, logger); err != nil {
			return nil, err
		}
	}

	var fallback core.FallbackExtractor
	if cfg.LLM.Enabled && !opts.DisableLLM {
		gen := opts.Generator
		if gen == nil {
			a.Ollama = ollama.NewClient(ollama.Config{
				URL:         cfg.LLM.URL,
				Model:       cfg.LLM.Model,
				Temperature: cfg.LLM.Temperature,
				NumCtx:      cfg.LLM.NumCtx,
				NumPredict:  cfg.LLM.NumPredict,
				TopP:        cfg.LLM.TopP,
				Timeout:     cfg.LLM.Timeout,
			}, logger)
			gen = a.Ollama
		}
		fb, guard, err := NewFallback(cfg.LLM, gen, logger)
		if err != nil {
			return nil, err
		}
		a.Guard = guard
		fallback = fb
	}

	var popts []core.Option
	if opts.Registerer != nil {
		a.Metrics = metrics.NewRecorder(opts.Registerer)
		popts = append(popts, core.WithRecorder(a.Metrics))
	}
	a.Processor = core.NewProcessor(logger, pcfg, a.Engine, fallback, popts...)

	if cfg.Database.DSN != "" {
		db, err := repository.Open(ctx, repository.Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, common.WrapError(err, "migrate run store")
		}
		a.Store = db
		a.Runs = repository.NewRunRepository(db, logger)
	}

	logger.Info("app.built",
		"ocr_engine", a.Engine.Name(),
		"passes", len(pcfg.Passes),
		"llm", fallback != nil,
		"store", a.Store != nil,
		"metrics", a.Metrics != nil,
	)
	return a, nil
}

// ProcessorConfig maps environment configuration onto the pipeline policy.
func ProcessorConfig(cfg *common.Config) (core.Config, error) {
	passes, err := ocr.ParsePassSpecs(cfg.OCR.Passes)
	if err != nil {
		return core.Config{}, common.NewSetupError(common.CodeConfig, "invalid OCR_PASSES", err)
	}
	return core.Config{
		Image: preprocess.Config{
			MaxDimension:    cfg.Image.MaxDimension,
			ContrastFactor:  cfg.Image.ContrastFactor,
			SharpenSigma:    cfg.Image.SharpenSigma,
			ThresholdBlock:  cfg.Image.ThresholdBlock,
			ThresholdOffset: cfg.Image.ThresholdOffset,
			DenoiseRadius:   cfg.Image.DenoiseRadius,
		},
		OCR: ocr.Config{
			EngineMode:              cfg.OCR.EngineMode,
			Languages:               cfg.OCR.Languages,
			PreserveInterwordSpaces: cfg.OCR.PreserveInterwordSpaces,
		},
		Passes:      passes,
		ParallelOCR: cfg.OCR.Parallel,
		Clean: textclean.Config{
			Punctuation:   cfg.Clean.Punctuation,
			MinLineLength: cfg.Clean.MinLineLength,
		},
	}, nil
}

// NewEngine selects the OCR backend.
func NewEngine(cfg common.OCRConfig, logger *slog.Logger) (ocr.Engine, error) {
	switch cfg.Backend {
	case "", "exec":
		return ocr.NewTesseract(ocr.TesseractConfig{
			Binary:      cfg.TesseractPath,
			TessdataDir: cfg.TessdataDir,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case "gosseract":
		g, err := ocr.NewGosseract(cfg.TessdataDir, logger)
		if err != nil {
			return nil, common.NewSetupError(common.CodeOCRUnavailable, "gosseract backend", err)
		}
		return g, nil
	default:
		return nil, common.NewSetupError(common.CodeConfig, fmt.Sprintf("unknown OCR_BACKEND %q", cfg.Backend), common.ErrInvalidInput)
	}
}

// NewFallback wraps gen in the rate limiter and breaker and loads the prompt.
func NewFallback(cfg common.LLMConfig, gen llm.Generator, logger *slog.Logger) (*llm.Fallback, *llm.Guard, error) {
	prompt, err := llm.LoadPrompt(cfg.PromptFile)
	if err != nil {
		return nil, nil, common.NewSetupError(common.CodeConfig, "invalid LLM_PROMPT_FILE", err)
	}
	failures := cfg.BreakerFailures
	if failures < 0 {
		failures = 0
	}
	guard := llm.NewGuard(gen, llm.GuardConfig{
		Name:     "ollama",
		RPS:      cfg.RPS,
		Burst:    1,
		Failures: uint32(failures),
		Cooldown: cfg.BreakerCooldown,
	}, logger)
	fb := llm.NewFallback(guard, prompt, llm.FallbackConfig{
		MaxTextChars: cfg.MaxTextChars,
		Timeout:      cfg.Timeout,
	}, logger)
	return fb, guard, nil
}

// Check probes the OCR engine and, when configured, the store. The LLM is
// not probed; an unreachable endpoint only degrades runs.
func (a *App) Check(ctx context.Context) error {
	if err := a.Engine.Check(ctx); err != nil {
		return common.NewSetupError(common.CodeOCRUnavailable, "ocr engine check", err)
	}
	if a.Store != nil {
		if err := a.Store.HealthCheck(ctx, 0); err != nil {
			return err
		}
	}
	return nil
}

// ProcessPath runs the pipeline and counts setup failures.
func (a *App) ProcessPath(ctx context.Context, path string) (core.Run, error) {
	run, err := a.Processor.ProcessPath(ctx, path)
	if err != nil && a.Metrics != nil && common.IsSetupError(err) {
		a.Metrics.ObserveSetupFailure()
	}
	return run, err
}

// ProcessBytes is ProcessPath for an uploaded image.
func (a *App) ProcessBytes(ctx context.Context, data []byte, source string) (core.Run, error) {
	run, err := a.Processor.ProcessBytes(ctx, data, source)
	if err != nil && a.Metrics != nil && common.IsSetupError(err) {
		a.Metrics.ObserveSetupFailure()
	}
	return run, err
}

// SaveRun stores the outcome of a run when a store is configured.
func (a *App) SaveRun(ctx context.Context, doc report.Document, contentHash string, runErr error) error {
	if a.Runs == nil {
		return nil
	}
	rec := repository.NewRunRecord(doc, contentHash, runErr)
	if err := a.Runs.Save(ctx, rec); err != nil {
		a.logger.Warn("app.run.save_failed", "source", doc.Source, "error", err)
		return err
	}
	return nil
}

// Seen reports whether a completed run already covers the content hash.
// Without a store nothing is seen.
func (a *App) Seen(ctx context.Context, hash string) (bool, error) {
	if a.Runs == nil {
		return false, nil
	}
	_, err := a.Runs.FindByHash(ctx, hash)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
}

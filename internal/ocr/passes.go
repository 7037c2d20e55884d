package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/idcard-extractor/internal/preprocess"
)

// Pass is the typed outcome of one OCR invocation.
type Pass struct {
	Spec     PassSpec
	Text     string
	Failure  Failure
	Err      error
	Duration time.Duration
}

func (p Pass) OK() bool { return p.Failure == FailureNone }

type PassOptions struct {
	// Parallel runs passes concurrently; they share only read-only inputs.
	Parallel bool
	Logger   *slog.Logger
}

// RunPasses recognizes each pass spec against the variant with the matching recipe.
// Only ErrEngineUnavailable is returned as an error; every other failure is
// recorded on its Pass. Results keep PassSpec order.
func RunPasses(ctx context.Context, engine Engine, variants []preprocess.Variant, specs []PassSpec, base Config, opts PassOptions) ([]Pass, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	byRecipe := make(map[preprocess.Recipe][]byte, len(variants))
	for _, v := range variants {
		byRecipe[v.Recipe] = v.Data
	}
	for _, s := range specs {
		if _, ok := byRecipe[s.Recipe]; !ok {
			return nil, fmt.Errorf("no %s variant for pass %s", s.Recipe, s)
		}
	}

	results := make([]Pass, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	if !opts.Parallel {
		g.SetLimit(1)
	}
	for i, spec := range specs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Pass{Spec: spec, Failure: FailureCanceled, Err: err}
				return nil
			}
			cfg := base
			cfg.PageSegMode = spec.PageSegMode
			start := time.Now()

			text, err := engine.Recognize(gctx, byRecipe[spec.Recipe], cfg)
			p := Pass{Spec: spec, Text: text, Duration: time.Since(start)}
			if err != nil {
				if errors.Is(err, ErrEngineUnavailable) {
					return err
				}
				p.Text = ""
				p.Err = err
				switch {
				case errors.Is(err, context.DeadlineExceeded):
					p.Failure = FailureTimeout
				case errors.Is(err, context.Canceled):
					p.Failure = FailureCanceled
				default:
					p.Failure = FailureUnreadable
				}
				logger.Warn("ocr.pass.failed", "pass", spec.String(), "engine", engine.Name(), "failure", string(p.Failure), "error", err)
			} else {
				logger.Debug("ocr.pass.completed", "pass", spec.String(), "engine", engine.Name(), "chars", len(text), "elapsed_ms", p.Duration.Milliseconds())
			}
			results[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// JoinText concatenates the text of successful passes with newlines. Passes
// are not deduplicated.
func JoinText(passes []Pass) string {
	parts := make([]string, 0, len(passes))
	for _, p := range passes {
		if p.OK() {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}

//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// GosseractAvailable reports whether the in-process engine was compiled in.
const GosseractAvailable = true

// Gosseract recognizes through libtesseract. Each call gets its own client,
// so one engine can serve concurrent passes.
type Gosseract struct {
	tessdataDir string
	logger      *slog.Logger
}

func NewGosseract(tessdataDir string, logger *slog.Logger) (*Gosseract, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gosseract{tessdataDir: tessdataDir, logger: logger}, nil
}

func (g *Gosseract) Name() string { return "gosseract" }

func (g *Gosseract) Recognize(ctx context.Context, image []byte, cfg Config) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer func() {
		if err := client.Close(); err != nil {
			g.logger.Warn("ocr.gosseract.close_error", "error", err)
		}
	}()

	if g.tessdataDir != "" {
		client.SetTessdataPrefix(g.tessdataDir)
	}
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	if err := client.SetLanguage(langs...); err != nil {
		return "", fmt.Errorf("%w: set language: %v", ErrEngineUnavailable, err)
	}
	if cfg.PageSegMode > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
			return "", fmt.Errorf("set page seg mode: %w", err)
		}
	}
	if cfg.PreserveInterwordSpaces {
		if err := client.SetVariable("preserve_interword_spaces", "1"); err != nil {
			return "", fmt.Errorf("set variable: %w", err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}

	text, err := client.Text()
	if err != nil {
		if strings.Contains(err.Error(), "language") || strings.Contains(err.Error(), "Init") {
			return "", fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		return "", fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	return text, nil
}

func (g *Gosseract) Check(_ context.Context) error {
	if v := gosseract.Version(); v == "" {
		return fmt.Errorf("%w: libtesseract reports no version", ErrEngineUnavailable)
	}
	return nil
}

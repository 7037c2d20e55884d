package ocr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

type TesseractConfig struct {
	Binary      string        // binary name or absolute path; if empty -> "tesseract"
	TessdataDir string        // passed as --tessdata-dir when set
	Timeout     time.Duration // per invocation; 0 means no extra limit
}

// Tesseract drives the tesseract CLI, feeding the image on stdin.
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseract(cfg TesseractConfig, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	return NewTesseractWithRunner(cfg, execRunner{logger: logger}, logger)
}

func NewTesseractWithRunner(cfg TesseractConfig, runner Runner, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	return &Tesseract{cfg: cfg, runner: runner, logger: logger}
}

func (t *Tesseract) Name() string { return "tesseract-exec" }

func (t *Tesseract) args(cfg Config) []string {
	// tesseract stdin stdout -l <lang> [--oem n] [--psm n]
	args := []string{"stdin", "stdout", "-l", cfg.lang()}
	if cfg.EngineMode > 0 {
		args = append(args, "--oem", strconv.Itoa(cfg.EngineMode))
	}
	if cfg.PageSegMode > 0 {
		args = append(args, "--psm", strconv.Itoa(int(cfg.PageSegMode)))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	if cfg.PreserveInterwordSpaces {
		args = append(args, "-c", "preserve_interword_spaces=1")
	}
	return args
}

func (t *Tesseract) Recognize(ctx context.Context, image []byte, cfg Config) (string, error) {
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, image, t.args(cfg)...)
	if err != nil {
		return "", t.classify(ctx, err, errb)
	}
	return string(out), nil
}

// Check runs `tesseract --version`.
func (t *Tesseract) Check(ctx context.Context) error {
	_, errb, err := t.runner.Run(ctx, t.cfg.Binary, nil, "--version")
	if err != nil {
		return t.classify(ctx, err, errb)
	}
	return nil
}

func (t *Tesseract) classify(ctx context.Context, err error, stderr []byte) error {
	msg := strings.TrimSpace(truncate(string(stderr), 512))
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s: %v", ErrEngineUnavailable, t.cfg.Binary, err)
	case strings.Contains(msg, "Failed loading language"), strings.Contains(msg, "Error opening data file"):
		return fmt.Errorf("%w: language data missing: %s", ErrEngineUnavailable, msg)
	case ctx.Err() != nil:
		return fmt.Errorf("tesseract: %w", ctx.Err())
	}
	if msg == "" {
		msg = err.Error()
	}
	return fmt.Errorf("%w: %s", ErrUnreadableImage, msg)
}

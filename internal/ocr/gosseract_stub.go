//go:build !gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"
)

// GosseractAvailable reports whether the in-process engine was compiled in.
const GosseractAvailable = false

// Gosseract is a placeholder when built without -tags gosseract; every call
// reports ErrEngineUnavailable.
type Gosseract struct{}

func NewGosseract(_ string, _ *slog.Logger) (*Gosseract, error) {
	return nil, fmt.Errorf("%w: built without the gosseract tag", ErrEngineUnavailable)
}

func (*Gosseract) Name() string { return "gosseract" }

func (*Gosseract) Recognize(context.Context, []byte, Config) (string, error) {
	return "", fmt.Errorf("%w: built without the gosseract tag", ErrEngineUnavailable)
}

func (*Gosseract) Check(context.Context) error {
	return fmt.Errorf("%w: built without the gosseract tag", ErrEngineUnavailable)
}

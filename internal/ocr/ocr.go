// Package ocr runs text recognition over image variants. The engine itself is
// external: the tesseract binary by default, or libtesseract through
// gosseract when built with -tags gosseract.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/idcard-extractor/internal/preprocess"
)

// PageSegMode is tesseract's page segmentation mode.
type PageSegMode int

const (
	PSMAuto         PageSegMode = 3  // fully automatic layout analysis
	PSMSingleColumn PageSegMode = 4  // single column of variable sizes
	PSMSingleBlock  PageSegMode = 6  // uniform block of text
	PSMSparseText   PageSegMode = 11 // as much text as possible, no order
)

// Config selects how one image is recognized.
type Config struct {
	EngineMode              int // --oem; 0 leaves the engine default
	PageSegMode             PageSegMode
	Languages               []string
	PreserveInterwordSpaces bool
}

func (c Config) lang() string {
	if len(c.Languages) == 0 {
		return "eng"
	}
	return strings.Join(c.Languages, "+")
}

// Engine recognizes text in one encoded image.
//
// Recognize returns ErrEngineUnavailable (wrapped) when the engine is not
// installed or cannot start, and ErrUnreadableImage when the engine rejects
// this particular image. Check probes availability without an image.
type Engine interface {
	Recognize(ctx context.Context, image []byte, cfg Config) (string, error)
	Check(ctx context.Context) error
	Name() string
}

var (
	ErrEngineUnavailable = errors.New("ocr engine unavailable")
	ErrUnreadableImage   = errors.New("ocr engine could not read image")
)

// Failure classifies a pass that produced no text.
type Failure string

const (
	FailureNone       Failure = ""
	FailureUnreadable Failure = "unreadable"
	FailureTimeout    Failure = "timeout"
	FailureCanceled   Failure = "canceled"
)

// DefaultPasses reads the enhanced variant as a block and as a column, then
// the untouched variant as a block.
const DefaultPasses = "enhanced:6,enhanced:4,original:6"

// PassSpec pairs an image recipe with a segmentation mode.
type PassSpec struct {
	Recipe      preprocess.Recipe
	PageSegMode PageSegMode
}

func (s PassSpec) String() string {
	return fmt.Sprintf("%s:%d", s.Recipe, s.PageSegMode)
}

// ParsePassSpecs reads a "recipe:psm,recipe:psm" list.
func ParsePassSpecs(s string) ([]PassSpec, error) {
	var specs []PassSpec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, psmStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("pass %q: want recipe:psm", part)
		}
		recipe, err := preprocess.ParseRecipe(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("pass %q: %w", part, err)
		}
		psm, err := strconv.Atoi(strings.TrimSpace(psmStr))
		if err != nil || psm < 0 || psm > 13 {
			return nil, fmt.Errorf("pass %q: invalid page segmentation mode", part)
		}
		specs = append(specs, PassSpec{Recipe: recipe, PageSegMode: PageSegMode(psm)})
	}
	if len(specs) == 0 {
		return nil, errors.New("no OCR passes configured")
	}
	return specs, nil
}

// Recipes lists the distinct recipes the specs need, in first-use order.
func Recipes(specs []PassSpec) []preprocess.Recipe {
	var out []preprocess.Recipe
	seen := map[preprocess.Recipe]bool{}
	for _, s := range specs {
		if !seen[s.Recipe] {
			seen[s.Recipe] = true
			out = append(out, s.Recipe)
		}
	}
	return out
}

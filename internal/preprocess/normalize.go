package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/idcard-extractor/internal/common"
)

// Recipe tags how a variant was produced.
type Recipe string

const (
	// RecipeOriginal is the decoded image, only downscaled.
	RecipeOriginal Recipe = "original"
	// RecipeGrayscale adds grayscale conversion.
	RecipeGrayscale Recipe = "grayscale"
	// RecipeEnhanced is grayscale, adaptive threshold, denoise, contrast, sharpen.
	RecipeEnhanced Recipe = "enhanced"
)

func ParseRecipe(s string) (Recipe, error) {
	switch r := Recipe(s); r {
	case RecipeOriginal, RecipeGrayscale, RecipeEnhanced:
		return r, nil
	}
	return "", fmt.Errorf("unknown recipe %q", s)
}

// Variant is one normalized image, PNG encoded.
type Variant struct {
	Recipe Recipe
	Data   []byte
	Width  int
	Height int
}

type Config struct {
	MaxDimension    int     // largest side after downscaling; 0 disables
	ContrastFactor  float64 // multiplicative, 1 is unchanged
	SharpenSigma    float64
	ThresholdBlock  int // odd neighbourhood size of the adaptive threshold
	ThresholdOffset int // subtracted from the local mean; 0 means 2
	DenoiseRadius   int // median filter radius; 0 means 1, negative disables
}

func (c Config) withDefaults() Config {
	if c.ContrastFactor <= 0 {
		c.ContrastFactor = 2.0
	}
	if c.SharpenSigma <= 0 {
		c.SharpenSigma = 1.0
	}
	if c.ThresholdBlock <= 1 {
		c.ThresholdBlock = 11
	}
	if c.ThresholdBlock%2 == 0 {
		c.ThresholdBlock++
	}
	if c.ThresholdOffset == 0 {
		c.ThresholdOffset = 2
	}
	if c.DenoiseRadius == 0 {
		c.DenoiseRadius = 1
	}
	return c
}

type Normalizer struct {
	cfg    Config
	logger *slog.Logger
}

func NewNormalizer(cfg Config, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{cfg: cfg.withDefaults(), logger: logger}
}

// Normalize produces one variant per distinct recipe, in the order given.
// With no recipes it returns enhanced then original.
func (n *Normalizer) Normalize(raw RawImage, recipes ...Recipe) ([]Variant, error) {
	start := time.Now()
	if len(recipes) == 0 {
		recipes = []Recipe{RecipeEnhanced, RecipeOriginal}
	}

	img, err := imaging.Decode(bytes.NewReader(raw.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, common.NewSetupError(common.CodeImageUndecodable, fmt.Sprintf("decoding image %q", raw.Source), err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, common.NewSetupError(common.CodeImageUndecodable, fmt.Sprintf("image %q has no pixels", raw.Source), nil)
	}

	base := n.downscale(img)

	seen := map[Recipe]bool{}
	out := make([]Variant, 0, len(recipes))
	for _, r := range recipes {
		if seen[r] {
			continue
		}
		seen[r] = true

		var processed image.Image
		switch r {
		case RecipeOriginal:
			processed = base
		case RecipeGrayscale:
			processed = imaging.Grayscale(base)
		case RecipeEnhanced:
			enhanced := n.enhance(base)
			if uniform(enhanced) {
				// Thresholding flattened the card; OCR the plain grayscale instead.
				n.logger.Warn("preprocess.enhance.uniform", "source", raw.Source, "value", enhanced.Pix[0])
				processed = imaging.Grayscale(base)
			} else {
				processed = enhanced
			}
		default:
			return nil, fmt.Errorf("unknown recipe %q", r)
		}

		v, err := encodeVariant(r, processed)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	n.logger.Debug("preprocess.normalize.completed",
		"source", raw.Source,
		"src_width", raw.Width,
		"src_height", raw.Height,
		"width", base.Bounds().Dx(),
		"height", base.Bounds().Dy(),
		"variants", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (n *Normalizer) downscale(img image.Image) image.Image {
	limit := n.cfg.MaxDimension
	b := img.Bounds()
	if limit <= 0 || (b.Dx() <= limit && b.Dy() <= limit) {
		return img
	}
	return imaging.Fit(img, limit, limit, imaging.Lanczos)
}

func (n *Normalizer) enhance(img image.Image) *image.NRGBA {
	gray := imaging.Grayscale(img)
	bin := adaptiveThreshold(gray, n.cfg.ThresholdBlock, n.cfg.ThresholdOffset)
	if n.cfg.DenoiseRadius > 0 {
		bin = medianDenoise(bin, n.cfg.DenoiseRadius)
	}
	// imaging takes contrast as a percentage change around mid-grey.
	out := imaging.AdjustContrast(bin, (n.cfg.ContrastFactor-1)*100)
	return imaging.Sharpen(out, n.cfg.SharpenSigma)
}

// uniform reports whether every pixel of a grayscale image has one value.
func uniform(img *image.NRGBA) bool {
	b := img.Bounds()
	if b.Empty() {
		return true
	}
	first := img.Pix[img.PixOffset(b.Min.X, b.Min.Y)]
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y) : img.PixOffset(b.Min.X, y)+4*b.Dx()]
		for i := 0; i < len(row); i += 4 {
			if row[i] != first {
				return false
			}
		}
	}
	return true
}

func encodeVariant(r Recipe, img image.Image) (Variant, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Variant{}, fmt.Errorf("recipe %s produced an empty image", r)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return Variant{}, fmt.Errorf("encode %s variant: %w", r, err)
	}
	return Variant{Recipe: r, Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

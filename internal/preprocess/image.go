// Package preprocess decodes card photos and produces the image variants fed
// to OCR.
package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"

	"github.com/joseph-ayodele/idcard-extractor/internal/common"
)

// RawImage is the caller's encoded image plus its dimensions. Data is not
// modified by this package.
type RawImage struct {
	Data   []byte
	Format string
	Width  int
	Height int
	Source string
}

// Load reads and sniffs an image file.
func Load(path string) (RawImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RawImage{}, common.NewSetupError(common.CodeImageNotFound, fmt.Sprintf("image %q not found", path), err)
		}
		return RawImage{}, common.NewSetupError(common.CodeImageNotFound, fmt.Sprintf("reading image %q", path), err)
	}
	return Decode(data, path)
}

// Decode validates the header of data and records format and dimensions.
func Decode(data []byte, source string) (RawImage, error) {
	if len(data) == 0 {
		return RawImage{}, common.NewSetupError(common.CodeImageUndecodable, fmt.Sprintf("image %q is empty", source), nil)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return RawImage{}, common.NewSetupError(common.CodeImageUndecodable, fmt.Sprintf("decoding image %q", source), err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return RawImage{}, common.NewSetupError(common.CodeImageUndecodable, fmt.Sprintf("image %q has no pixels", source), nil)
	}
	return RawImage{
		Data:   data,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		Source: source,
	}, nil
}

package preprocess

import (
	"image"
	"slices"

	"github.com/disintegration/imaging"
)

// adaptiveThreshold binarizes a grayscale image against a Gaussian-weighted
// local mean, so shadows across a card do not swallow the print. The sigma
// follows the usual block-size relation 0.3*((block-1)/2-1)+0.8.
func adaptiveThreshold(gray *image.NRGBA, block, offset int) *image.NRGBA {
	sigma := 0.3*(float64(block-1)*0.5-1) + 0.8
	mean := imaging.Blur(gray, sigma)

	b := gray.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := gray.PixOffset(b.Min.X+x, b.Min.Y+y)
			j := mean.PixOffset(mean.Bounds().Min.X+x, mean.Bounds().Min.Y+y)
			v := uint8(0)
			if int(gray.Pix[i]) > int(mean.Pix[j])-offset {
				v = 255
			}
			o := out.PixOffset(x, y)
			out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = v, v, v, 255
		}
	}
	return out
}

// medianDenoise removes salt-and-pepper specks left by thresholding. It reads
// the red channel, which equals the others for grayscale input.
func medianDenoise(img *image.NRGBA, radius int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	window := make([]uint8, 0, (2*radius+1)*(2*radius+1))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			window = window[:0]
			for dy := -radius; dy <= radius; dy++ {
				yy := clamp(y+dy, 0, h-1)
				for dx := -radius; dx <= radius; dx++ {
					xx := clamp(x+dx, 0, w-1)
					window = append(window, img.Pix[img.PixOffset(b.Min.X+xx, b.Min.Y+yy)])
				}
			}
			slices.Sort(window)
			v := window[len(window)/2]
			o := out.PixOffset(x, y)
			out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = v, v, v, 255
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

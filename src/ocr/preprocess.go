package ocr

import (
	"image"
	"image/color"
)

// Binarize converts an image to grayscale and applies a fixed threshold:
// pixels below the threshold become black, the rest white. Subtitles are
// usually light text on dark video, so this strips most of the background
// before tesseract sees it.
func Binarize(img image.Image, threshold int) *image.Gray {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 255 {
		threshold = 255
	}

	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if int(g.Y) < threshold {
				out.SetGray(x, y, color.Gray{Y: 0})
			} else {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

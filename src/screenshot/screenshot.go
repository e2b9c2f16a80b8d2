package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/kbinani/screenshot"
)

// Region is the screen rectangle to capture (virtual-screen coordinates).
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (r Region) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("invalid region dimensions: width=%d, height=%d", r.Width, r.Height)
	}
	return nil
}

// CaptureRegion captures a specific region of the screen.
func CaptureRegion(region Region) (*image.RGBA, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}

	bounds := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)

	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %v", err)
	}

	return img, nil
}

// EncodePNG converts an image to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %v", err)
	}
	return buf.Bytes(), nil
}

// GetDisplayBounds returns the bounds of the primary display.
func GetDisplayBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}

	return screenshot.GetDisplayBounds(0), nil
}

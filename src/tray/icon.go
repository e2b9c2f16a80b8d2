package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

var (
	iconOnce sync.Once
	iconPNG  []byte
)

// iconBytes renders a 16x16 speech-bubble icon at runtime. Keeping it
// generated avoids shipping a binary asset for a two-color glyph.
func iconBytes() []byte {
	iconOnce.Do(func() {
		const size = 16
		img := image.NewRGBA(image.Rect(0, 0, size, size))

		bubble := color.RGBA{R: 0x00, G: 0x78, B: 0xD4, A: 0xFF}
		text := color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

		// Rounded-ish bubble body
		for y := 2; y <= 10; y++ {
			for x := 1; x <= 14; x++ {
				corner := (y == 2 || y == 10) && (x == 1 || x == 14)
				if !corner {
					img.SetRGBA(x, y, bubble)
				}
			}
		}
		// Tail
		img.SetRGBA(4, 11, bubble)
		img.SetRGBA(4, 12, bubble)
		img.SetRGBA(5, 11, bubble)

		// Three "text" lines inside the bubble
		for x := 3; x <= 12; x++ {
			img.SetRGBA(x, 4, text)
		}
		for x := 3; x <= 10; x++ {
			img.SetRGBA(x, 6, text)
		}
		for x := 3; x <= 12; x++ {
			img.SetRGBA(x, 8, text)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			iconPNG = nil
			return
		}
		iconPNG = buf.Bytes()
	})
	return iconPNG
}

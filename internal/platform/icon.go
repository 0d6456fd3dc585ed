package platform

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// defaultIcon renders the tray icon at runtime: a white play triangle on a
// red disc, PNG-encoded for the widget toolkit.
func defaultIcon() ([]byte, error) {
	const size = 22
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	center := float64(size) / 2
	radius := center - 1
	disc := color.RGBA{R: 0xE6, G: 0x2E, B: 0x2E, A: 0xFF}
	glyph := color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) - center + 0.5
			dy := float64(y) - center + 0.5
			if dx*dx+dy*dy <= radius*radius {
				img.SetRGBA(x, y, disc)
			}
		}
	}

	// Play triangle: left edge at x=8, apex at x=15, vertically centered.
	for x := 8; x <= 15; x++ {
		half := (15 - x) * 4 / 7
		for y := size/2 - half; y <= size/2+half; y++ {
			img.SetRGBA(x, y, glyph)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

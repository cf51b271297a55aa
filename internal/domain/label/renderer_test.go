package label

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestPixelsForMM(t *testing.T) {
	tests := []struct {
		name     string
		mm       float64
		dpi      int
		expected int
	}{
		{name: "label width 56mm at 108dpi", mm: 56, dpi: 108, expected: 238},
		{name: "label height 31mm at 108dpi", mm: 31, dpi: 108, expected: 131},
		{name: "one inch", mm: 25.4, dpi: 100, expected: 100},
		{name: "zero size", mm: 0, dpi: 108, expected: 0},
		{name: "zero dpi", mm: 56, dpi: 0, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PixelsForMM(tt.mm, tt.dpi)
			if result != tt.expected {
				t.Errorf("PixelsForMM(%g, %d) = %d, expected %d", tt.mm, tt.dpi, result, tt.expected)
			}
		})
	}
}

func defaultSpec() Spec {
	return Spec{
		WidthMM:  56,
		HeightMM: 31,
		DPI:      108,
		Text:     "TEST",
	}
}

func decodeRendered(t *testing.T, rendered *Rendered) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(rendered.Bytes))
	if err != nil {
		t.Fatalf("rendered label is not valid png: %v", err)
	}
	return img
}

func isBlack(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == 0 && g == 0 && b == 0
}

func isWhite(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == 0xffff && g == 0xffff && b == 0xffff
}

func TestRenderer_Render(t *testing.T) {
	rendered, err := NewRenderer().Render(defaultSpec())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if rendered.Width != 238 || rendered.Height != 131 {
		t.Errorf("expected 238x131 raster, got %dx%d", rendered.Width, rendered.Height)
	}
	if rendered.Format != "png" {
		t.Errorf("expected png format, got %s", rendered.Format)
	}

	img := decodeRendered(t, rendered)
	bounds := img.Bounds()
	if bounds.Dx() != 238 || bounds.Dy() != 131 {
		t.Fatalf("decoded raster is %dx%d, expected 238x131", bounds.Dx(), bounds.Dy())
	}

	// The margin outside the border stays white.
	if !isWhite(img.At(0, 0)) {
		t.Error("expected white canvas at (0,0)")
	}
	// Border corners sit at the 2px inset.
	for _, p := range []image.Point{
		{X: 2, Y: 2},
		{X: 236, Y: 2},
		{X: 2, Y: 129},
		{X: 236, Y: 129},
	} {
		if !isBlack(img.At(p.X, p.Y)) {
			t.Errorf("expected black border pixel at (%d,%d)", p.X, p.Y)
		}
	}
}

func TestRenderer_RenderText(t *testing.T) {
	rendered, err := NewRenderer().Render(defaultSpec())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	img := decodeRendered(t, rendered)

	// Text is anchored at (width/4, height/3); the glyphs for TEST occupy a
	// band roughly 28px wide and 13px tall from there.
	found := false
	for y := 43; y < 57 && !found; y++ {
		for x := 59; x < 59+28; x++ {
			if isBlack(img.At(x, y)) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("expected text pixels inside the label body")
	}
}

func TestRenderer_TinyCanvas(t *testing.T) {
	rendered, err := NewRenderer().Render(Spec{
		WidthMM:  1,
		HeightMM: 1,
		DPI:      108,
		Text:     "X",
	})
	if err != nil {
		t.Fatalf("tiny canvas should render, got: %v", err)
	}

	img := decodeRendered(t, rendered)
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
		t.Errorf("expected 4x4 raster, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestRenderer_EmptyRaster(t *testing.T) {
	_, err := NewRenderer().Render(Spec{
		WidthMM:  0.1,
		HeightMM: 0.1,
		DPI:      25,
	})
	if err == nil {
		t.Fatal("expected error for empty raster geometry")
	}
}

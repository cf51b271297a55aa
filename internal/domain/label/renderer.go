package label

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	platformerrors "printbridge-probe/internal/platform/errors"
)

// borderInset is the pixel offset of the 1px border from each canvas edge.
const borderInset = 2

// MillimetresPerInch converts between label geometry and raster dimensions.
const MillimetresPerInch = 25.4

// PixelsForMM converts a physical dimension to pixels at the given DPI,
// truncating toward zero. 56 mm at 108 DPI yields 238 px, 31 mm yields 131 px.
func PixelsForMM(mm float64, dpi int) int {
	return int(mm / MillimetresPerInch * float64(dpi))
}

// Renderer produces label rasters from a Spec.
type Renderer struct{}

// NewRenderer constructs a renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render draws the label: white canvas, black border rectangle inset from the
// edges, label text starting at a quarter of the width and a third of the
// height, PNG encoded.
func (r *Renderer) Render(spec Spec) (*Rendered, error) {
	width := PixelsForMM(spec.WidthMM, spec.DPI)
	height := PixelsForMM(spec.HeightMM, spec.DPI)
	if width < 1 || height < 1 {
		return nil, platformerrors.New(
			platformerrors.KindLabel,
			"label:render",
			"label geometry produces an empty raster",
		)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	black := color.RGBA{A: 255}
	drawBorder(img, width, height, black)
	drawText(img, width, height, spec.Text, black)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, platformerrors.Wrap(
			platformerrors.KindLabel,
			"label:render",
			"failed to encode label png",
			err,
		)
	}

	return &Rendered{
		Bytes:  buf.Bytes(),
		Width:  width,
		Height: height,
		Format: "png",
	}, nil
}

// drawBorder traces a 1px rectangle outline. The far edge is clamped so tiny
// canvases still get a mark instead of panicking or inverting.
func drawBorder(img *image.RGBA, width, height int, c color.RGBA) {
	x1 := width - borderInset
	if x1 < borderInset {
		x1 = borderInset
	}
	y1 := height - borderInset
	if y1 < borderInset {
		y1 = borderInset
	}

	for x := borderInset; x <= x1; x++ {
		img.Set(x, borderInset, c)
		img.Set(x, y1, c)
	}
	for y := borderInset; y <= y1; y++ {
		img.Set(borderInset, y, c)
		img.Set(x1, y, c)
	}
}

func drawText(img *image.RGBA, width, height int, text string, c color.RGBA) {
	if text == "" {
		return
	}

	textX := 0
	if width >= 4 {
		textX = width / 4
	}
	textY := 0
	if height >= 3 {
		textY = height / 3
	}

	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		// Text is anchored by the glyph top; the drawer positions by baseline.
		Dot: fixed.P(textX, textY+face.Metrics().Ascent.Ceil()),
	}
	drawer.DrawString(text)
}

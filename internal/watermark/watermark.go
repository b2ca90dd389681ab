// Package watermark stamps finished composites with a shop identifier before
// they are surfaced for download or stored in the recents history. The stamp
// is a product requirement, not an enhancement: a composite that cannot be
// watermarked is not returned at all.
package watermark

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

// Options controls stamp placement and output encoding.
type Options struct {
	// Text is the shop identifier rendered onto the image.
	Text string
	// Quality is the JPEG quality of the re-encoded output (1-100).
	Quality int
}

// Apply decodes src, draws the watermark text near the bottom center at the
// image's native resolution, and re-encodes as JPEG. Output dimensions always
// equal input dimensions. A decode failure is returned as an error; an
// unwatermarked image is never handed back.
func Apply(src []byte, opts Options) ([]byte, error) {
	if opts.Text == "" {
		return nil, fmt.Errorf("watermark text is required")
	}
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 90
	}

	decoded, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode composite: %w", err)
	}

	bounds := decoded.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, decoded, bounds.Min, draw.Src)

	drawLabel(canvas, opts.Text)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode watermarked jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// drawLabel renders the text centered horizontally, a little above the
// bottom edge, with a drop shadow so it stays legible on both light and
// dark composites. The label is rasterized at the font's native size and
// upscaled in proportion to the image width (4% of the width, at least
// 24px tall) so it stays readable on large composites.
func drawLabel(canvas *image.RGBA, text string) {
	face := basicfont.Face7x13
	textW := font.MeasureString(face, text).Ceil()
	if textW <= 0 {
		return
	}

	label := image.NewRGBA(image.Rect(0, 0, textW+1, face.Height+1))
	shadow := color.NRGBA{A: 160}
	fill := color.NRGBA{R: 255, G: 255, B: 255, A: 200}
	drawString(label, face, 1, face.Ascent+1, text, shadow)
	drawString(label, face, 0, face.Ascent, text, fill)

	bounds := canvas.Bounds()
	targetH := bounds.Dx() * 4 / 100
	if targetH < 24 {
		targetH = 24
	}
	targetW := label.Bounds().Dx() * targetH / label.Bounds().Dy()

	x := bounds.Min.X + (bounds.Dx()-targetW)/2
	if x < bounds.Min.X {
		x = bounds.Min.X
	}
	margin := targetH / 4
	y := bounds.Max.Y - margin - targetH
	if y < bounds.Min.Y {
		y = bounds.Min.Y
	}

	dst := image.Rect(x, y, x+targetW, y+targetH)
	xdraw.CatmullRom.Scale(canvas, dst, label, label.Bounds(), xdraw.Over, nil)
}

func drawString(dst *image.RGBA, face font.Face, x, y int, text string, c color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

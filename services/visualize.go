package services

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"vlmax-platform/models"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var boxPalette = []color.RGBA{
	{R: 0, G: 114, B: 189, A: 255},
	{R: 217, G: 83, B: 25, A: 255},
	{R: 237, G: 177, B: 32, A: 255},
	{R: 126, G: 47, B: 142, A: 255},
	{R: 119, G: 172, B: 48, A: 255},
	{R: 77, G: 190, B: 238, A: 255},
}

var labelBackground = color.RGBA{R: 255, G: 255, B: 0, A: 128}

// Visualizer draws detection boxes and their labels over a copy of an image.
type Visualizer struct {
	LineWidth int
}

func NewVisualizer() *Visualizer {
	return &Visualizer{LineWidth: 3}
}

// Render writes the annotated image to path. With no detections the plain
// image is written.
func (v *Visualizer) Render(img image.Image, detections []models.Detection, path string) error {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)

	for i, d := range detections {
		rect := image.Rect(int(d.Box[0]), int(d.Box[1]), int(d.Box[2]), int(d.Box[3])).
			Add(bounds.Min).Intersect(bounds)
		if rect.Empty() {
			continue
		}
		v.strokeRect(canvas, rect, boxPalette[i%len(boxPalette)])
		drawLabel(canvas, rect.Min, fmt.Sprintf("%s: %.2f", d.Label, d.Score))
	}

	return savePNG(canvas, path)
}

func (v *Visualizer) strokeRect(dst *image.RGBA, r image.Rectangle, c color.Color) {
	w := v.LineWidth
	if w <= 0 {
		w = 1
	}
	src := &image.Uniform{C: c}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w),
		image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y),
		image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}

func drawLabel(dst *image.RGBA, at image.Point, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()

	bg := image.Rect(at.X, at.Y, at.X+width+4, at.Y+face.Height+4).Intersect(dst.Bounds())
	draw.Draw(dst, bg, &image.Uniform{C: labelBackground}, image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(at.X+2, at.Y+2+face.Ascent),
	}
	d.DrawString(text)
}

func savePNG(img image.Image, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

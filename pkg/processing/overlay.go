package processing

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/menta2k/color-analyzer/pkg/segmentation"
	"github.com/menta2k/color-analyzer/pkg/types"
)

// classPalette colors mask classes in overlays; background is transparent
var classPalette = color.Palette{
	color.NRGBA{0, 0, 0, 0},
	color.NRGBA{255, 170, 0, 255},
	color.NRGBA{0, 200, 255, 255},
	color.NRGBA{255, 0, 120, 255},
	color.NRGBA{0, 255, 0, 255},
	color.NRGBA{160, 80, 255, 255},
}

// MaskImage renders a mask as a paletted image, one color per class
func MaskImage(mask *segmentation.Mask) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, mask.Width(), mask.Height()), classPalette)
	for y := 0; y < mask.Height(); y++ {
		for x := 0; x < mask.Width(); x++ {
			img.SetColorIndex(x, y, uint8(mask.At(x, y)))
		}
	}
	return img
}

// CreateDebugOverlay tints img with the mask classes and outlines the
// landmark polygons used for sampling. mask and landmarks may be nil.
func (p *Processor) CreateDebugOverlay(img image.Image, mask *segmentation.Mask, landmarks *types.LandmarkSet) image.Image {
	out := imaging.Clone(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()

	if mask != nil {
		scaled := image.NewNRGBA(out.Bounds())
		draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), MaskImage(mask), image.Rect(0, 0, mask.Width(), mask.Height()), draw.Src, nil)
		out = imaging.Overlay(out, scaled, image.Pt(0, 0), 0.35)
	}

	if landmarks != nil {
		stroke := int(math.Max(1, 0.003*float64(min(w, h))))
		outlines := []struct {
			indices []int
			sorted  bool
			c       color.NRGBA
		}{
			{segmentation.FaceOval, false, color.NRGBA{255, 255, 255, 255}},
			{segmentation.LeftCheek, true, color.NRGBA{0, 255, 0, 255}},
			{segmentation.RightCheek, true, color.NRGBA{0, 255, 0, 255}},
			{segmentation.Forehead, true, color.NRGBA{255, 204, 0, 255}},
			{segmentation.LeftEye, true, color.NRGBA{0, 170, 255, 255}},
			{segmentation.RightEye, true, color.NRGBA{0, 170, 255, 255}},
		}
		for _, o := range outlines {
			var (
				poly segmentation.Polygon
				err  error
			)
			if o.sorted {
				poly, err = segmentation.FromLandmarks(landmarks, o.indices)
			} else {
				poly, err = segmentation.Ring(landmarks, o.indices)
			}
			if err != nil {
				continue
			}
			drawPolygon(out, poly, w, h, o.c, stroke)
		}

		// face center crosshair
		if c, ok := landmarks.At(segmentation.ForeheadTop); ok {
			if chin, ok := landmarks.At(segmentation.Chin); ok {
				px := int((c.X+chin.X)/2*float64(w) + 0.5)
				py := int((c.Y+chin.Y)/2*float64(h) + 0.5)
				red := color.NRGBA{255, 0, 0, 255}
				drawHLine(out, py, px-6, px+6, red)
				drawVLine(out, px, py-6, py+6, red)
			}
		}
	}

	// image center marker
	blue := color.NRGBA{0, 170, 255, 255}
	drawHLine(out, h/2, w/2-6, w/2+6, blue)
	drawVLine(out, w/2, h/2-6, h/2+6, blue)

	return out
}

func drawPolygon(img *image.NRGBA, poly segmentation.Polygon, w, h int, c color.NRGBA, stroke int) {
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		drawLine(img,
			int(a.X*float64(w)+0.5), int(a.Y*float64(h)+0.5),
			int(b.X*float64(w)+0.5), int(b.Y*float64(h)+0.5),
			c, stroke)
	}
}

// drawLine draws a Bresenham line with a square pen of the given width
func drawLine(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA, stroke int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		for s := 0; s < stroke; s++ {
			drawHLine(img, y0+s, x0, x0+stroke, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	x0 = max(x0, 0)
	x1 = min(x1, img.Bounds().Dx())
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	y0 = max(y0, 0)
	y1 = min(y1, img.Bounds().Dy())
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}

// Package cropper frames the face of a segmented frame for previews
package cropper

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/color-analyzer/pkg/segmentation"
)

// ErrNoFace is returned when the mask labels no face pixels
var ErrNoFace = errors.New("no face pixels in mask")

// FaceCropper crops frames around the labelled face
type FaceCropper struct {
	config CropConfig
}

// CropConfig holds configuration for face cropping
type CropConfig struct {
	// PaddingRatio grows the face box by this fraction of its size on each side
	PaddingRatio float64 `json:"paddingRatio" yaml:"paddingRatio"`
	// Aspect is the output aspect ratio; the zero value keeps the padded face box
	Aspect AspectRatio `json:"aspect" yaml:"aspect"`
	// IncludeHair counts hair pixels as part of the face
	IncludeHair bool `json:"includeHair" yaml:"includeHair"`
}

// AspectRatio represents common aspect ratios
type AspectRatio struct {
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Name   string `json:"name" yaml:"name"`
}

// Common aspect ratios
var (
	Square    = AspectRatio{1, 1, "square"}
	Portrait  = AspectRatio{3, 4, "portrait"}
	Instagram = AspectRatio{4, 5, "instagram"}
)

// CommonAspectRatios returns the ratios used for previews
func CommonAspectRatios() []AspectRatio {
	return []AspectRatio{Square, Portrait, Instagram}
}

// Ratio returns width/height, or 0 for the zero value
func (a AspectRatio) Ratio() float64 {
	if a.Width <= 0 || a.Height <= 0 {
		return 0
	}
	return float64(a.Width) / float64(a.Height)
}

// DefaultConfig returns the default crop configuration
func DefaultConfig() CropConfig {
	return CropConfig{
		PaddingRatio: 0.15,
		Aspect:       Square,
		IncludeHair:  true,
	}
}

// New creates a new FaceCropper with default configuration
func New() *FaceCropper {
	return &FaceCropper{config: DefaultConfig()}
}

// NewWithConfig creates a new FaceCropper with custom configuration
func NewWithConfig(config CropConfig) *FaceCropper {
	return &FaceCropper{config: config}
}

// CropResult contains the result of a cropping operation
type CropResult struct {
	Image       image.Image
	Region      image.Rectangle
	AspectRatio float64
	// Quality rates the crop in [0,1] by face fill, ratio accuracy and centering
	Quality float64
}

// isFace reports whether c belongs to the face box
func (c *FaceCropper) isFace(class segmentation.Class) bool {
	switch class {
	case segmentation.Skin, segmentation.Lips, segmentation.Eyes, segmentation.Eyebrows:
		return true
	case segmentation.Hair:
		return c.config.IncludeHair
	}
	return false
}

// FaceBounds returns the face box scaled to a width x height frame
func (c *FaceCropper) FaceBounds(mask *segmentation.Mask, width, height int) (image.Rectangle, error) {
	if mask == nil {
		return image.Rectangle{}, ErrNoFace
	}
	mw, mh := mask.Width(), mask.Height()
	minX, minY, maxX, maxY := mw, mh, -1, -1
	for y := 0; y < mh; y++ {
		for x := 0; x < mw; x++ {
			if !c.isFace(mask.At(x, y)) {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < 0 {
		return image.Rectangle{}, ErrNoFace
	}

	sx := float64(width) / float64(mw)
	sy := float64(height) / float64(mh)
	return image.Rect(
		int(math.Floor(float64(minX)*sx)),
		int(math.Floor(float64(minY)*sy)),
		int(math.Ceil(float64(maxX+1)*sx)),
		int(math.Ceil(float64(maxY+1)*sy)),
	), nil
}

// Crop crops img around the face labelled in mask
func (c *FaceCropper) Crop(img image.Image, mask *segmentation.Mask) (CropResult, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return CropResult{}, fmt.Errorf("invalid image dimensions")
	}

	face, err := c.FaceBounds(mask, bounds.Dx(), bounds.Dy())
	if err != nil {
		return CropResult{}, err
	}
	face = face.Add(bounds.Min)

	padX := int(math.Round(float64(face.Dx()) * c.config.PaddingRatio))
	padY := int(math.Round(float64(face.Dy()) * c.config.PaddingRatio))
	region := image.Rect(face.Min.X-padX, face.Min.Y-padY, face.Max.X+padX, face.Max.Y+padY)

	ratio := c.config.Aspect.Ratio()
	if ratio > 0 {
		region = expandToRatio(region, ratio)
	}
	region = fitInside(region, bounds)
	if region.Empty() {
		return CropResult{}, ErrNoFace
	}

	return CropResult{
		Image:       imaging.Crop(img, region),
		Region:      region,
		AspectRatio: float64(region.Dx()) / float64(region.Dy()),
		Quality:     cropQuality(face, region, ratio),
	}, nil
}

// expandToRatio grows r around its center until it has the given ratio
func expandToRatio(r image.Rectangle, ratio float64) image.Rectangle {
	w, h := float64(r.Dx()), float64(r.Dy())
	if w/h < ratio {
		w = h * ratio
	} else {
		h = w / ratio
	}
	cx := float64(r.Min.X+r.Max.X) / 2
	cy := float64(r.Min.Y+r.Max.Y) / 2
	x0 := int(math.Round(cx - w/2))
	y0 := int(math.Round(cy - h/2))
	return image.Rect(x0, y0, x0+int(math.Round(w)), y0+int(math.Round(h)))
}

// fitInside shifts r into bounds, shrinking it only when it is larger
func fitInside(r, bounds image.Rectangle) image.Rectangle {
	if r.Dx() > bounds.Dx() {
		r.Min.X, r.Max.X = bounds.Min.X, bounds.Max.X
	}
	if r.Dy() > bounds.Dy() {
		r.Min.Y, r.Max.Y = bounds.Min.Y, bounds.Max.Y
	}
	if r.Min.X < bounds.Min.X {
		r = r.Add(image.Pt(bounds.Min.X-r.Min.X, 0))
	}
	if r.Max.X > bounds.Max.X {
		r = r.Add(image.Pt(bounds.Max.X-r.Max.X, 0))
	}
	if r.Min.Y < bounds.Min.Y {
		r = r.Add(image.Pt(0, bounds.Min.Y-r.Min.Y))
	}
	if r.Max.Y > bounds.Max.Y {
		r = r.Add(image.Pt(0, bounds.Max.Y-r.Max.Y))
	}
	return r
}

func cropQuality(face, region image.Rectangle, targetRatio float64) float64 {
	// 1. How much of the crop is face
	inside := face.Intersect(region)
	fill := float64(inside.Dx()*inside.Dy()) / float64(region.Dx()*region.Dy())

	// 2. How close the crop ratio is to the target ratio
	ratioAccuracy := 1.0
	if targetRatio > 0 {
		cropRatio := float64(region.Dx()) / float64(region.Dy())
		ratioAccuracy = 1 - math.Abs(cropRatio-targetRatio)/math.Max(cropRatio, targetRatio)
	}

	// 3. How well the face is centered in the crop
	fc := image.Pt((face.Min.X+face.Max.X)/2, (face.Min.Y+face.Max.Y)/2)
	rc := image.Pt((region.Min.X+region.Max.X)/2, (region.Min.Y+region.Max.Y)/2)
	d := fc.Sub(rc)
	maxDistance := math.Hypot(float64(region.Dx()), float64(region.Dy())) / 2
	centering := 1 - math.Hypot(float64(d.X), float64(d.Y))/maxDistance

	quality := 0.4*fill + 0.4*ratioAccuracy + 0.2*centering
	return math.Max(0, math.Min(1, quality))
}

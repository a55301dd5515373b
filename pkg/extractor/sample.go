package extractor

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/menta2k/color-analyzer/pkg/segmentation"
	"github.com/menta2k/color-analyzer/pkg/types"
)

var (
	// ErrDimensionMismatch is returned when the mask cannot be mapped onto
	// the frame
	ErrDimensionMismatch = errors.New("mask and frame dimensions disagree")
	// ErrInsufficientData is returned when a frame yields no valid skin, hair or eye sample
	ErrInsufficientData = errors.New("no valid color samples")
	// ErrNoMask is returned for sampling input without a mask
	ErrNoMask = errors.New("sampling input has no mask")
)

// Measurement is the refined color of one region in one frame
type Measurement struct {
	Color types.RGB
	// Count is the number of pixels averaged after outlier rejection
	Count int
	// Candidates is the number of pixels that passed the gates
	Candidates int
	Valid      bool
}

// Sample is the result of sampling one frame
type Sample struct {
	Skin     Measurement
	Hair     Measurement
	LeftEye  Measurement
	RightEye Measurement
	// Landmarks is set when polygon sampling was used
	Landmarks bool
	// SkippedPolygons counts malformed polygons
	SkippedPolygons int
	// SkinFromMask is set when every skin polygon was malformed and skin
	// was sampled from the whole mask instead
	SkinFromMask bool
}

// Empty reports whether the frame produced no valid measurement
func (s Sample) Empty() bool {
	return !s.Skin.Valid && !s.Hair.Valid && !s.LeftEye.Valid && !s.RightEye.Valid
}

// candidates are the gated pixels of one frame, reused across frames
type candidates struct {
	skin, hair, left, right [][3]uint8
}

func (c *candidates) reset() {
	c.skin = c.skin[:0]
	c.hair = c.hair[:0]
	c.left = c.left[:0]
	c.right = c.right[:0]
}

var candidatePool = sync.Pool{
	New: func() interface{} {
		return &candidates{}
	},
}

// Sample walks pixels against in and returns refined colors. Malformed
// landmark polygons are skipped and counted; when no skin polygon is usable
// skin falls back to the mask walk. ErrInsufficientData is returned with the
// sample when nothing valid was found.
func (e *Extractor) Sample(px Pixels, in SamplingInput) (Sample, error) {
	mask := Mask(in)
	if mask == nil {
		return Sample{}, ErrNoMask
	}
	mapping, ok := mask.MapTo(px.Width, px.Height)
	if !ok {
		return Sample{}, fmt.Errorf("%w: mask %dx%d, frame %dx%d",
			ErrDimensionMismatch, mask.Width(), mask.Height(), px.Width, px.Height)
	}

	c := candidatePool.Get().(*candidates)
	c.reset()
	defer candidatePool.Put(c)

	var out Sample
	switch v := in.(type) {
	case MaskOnly:
		e.walkMask(px, mapping, c, true)
	case MaskAndLandmarks:
		out.Landmarks = true
		skinPolygons, skipped := e.walkLandmarks(px, mapping, v.Landmarks, c)
		out.SkippedPolygons = skipped
		out.SkinFromMask = skinPolygons == 0
		// hair has no landmark polygon
		e.walkMask(px, mapping, c, out.SkinFromMask)
	default:
		return Sample{}, fmt.Errorf("unsupported sampling input %T", in)
	}

	out.Skin = e.refine(c.skin)
	out.Hair = e.refine(c.hair)
	out.LeftEye = e.refine(c.left)
	out.RightEye = e.refine(c.right)
	if out.Empty() {
		return out, ErrInsufficientData
	}
	return out, nil
}

func (e *Extractor) refine(pixels [][3]uint8) Measurement {
	color, kept, ok := RefineColor(pixels, e.config.MinSamples, e.config.Sigma)
	return Measurement{Color: color, Count: kept, Candidates: len(pixels), Valid: ok}
}

// walkMask buckets every stride-th pixel by mask class
func (e *Extractor) walkMask(px Pixels, mapping segmentation.Mapping, c *candidates, withSkin bool) {
	stride := max(e.config.Stride, 1)
	for y := 0; y < px.Height; y += stride {
		for x := 0; x < px.Width; x += stride {
			switch mapping.ClassAt(x, y) {
			case segmentation.Skin:
				if !withSkin {
					continue
				}
				if p := px.At(x, y); e.config.Skin.Contains(brightness(p)) {
					c.skin = append(c.skin, p)
				}
			case segmentation.Hair:
				if p := px.At(x, y); e.config.Hair.Contains(brightness(p)) {
					c.hair = append(c.hair, p)
				}
			}
		}
	}
}

// walkLandmarks collects skin from the cheek and forehead polygons and iris
// pixels from each eye. It returns the number of skin polygons walked and
// the number of polygons skipped.
func (e *Extractor) walkLandmarks(px Pixels, mapping segmentation.Mapping, lms *types.LandmarkSet, c *candidates) (skinPolygons, skipped int) {
	for _, region := range segmentation.SkinRegions() {
		poly, err := segmentation.FromLandmarks(lms, region.Indices)
		if err != nil {
			e.logger.Printf("skipping %s polygon: %v", region.Name, err)
			skipped++
			continue
		}
		c.skin = e.walkPolygon(px, mapping, poly, c.skin)
		skinPolygons++
	}

	eyes := []struct {
		name       string
		indices    []int
		confidence float64
		dst        *[][3]uint8
	}{
		{"left eye", segmentation.LeftEye, lms.LeftEyeConfidence, &c.left},
		{"right eye", segmentation.RightEye, lms.RightEyeConfidence, &c.right},
	}
	for _, eye := range eyes {
		if eye.confidence < e.config.Eye.MinConfidence {
			continue
		}
		poly, err := segmentation.FromLandmarks(lms, eye.indices)
		if err != nil {
			e.logger.Printf("skipping %s polygon: %v", eye.name, err)
			skipped++
			continue
		}
		*eye.dst = e.walkIris(px, mapping, poly, *eye.dst)
	}
	return skinPolygons, skipped
}

func (e *Extractor) walkPolygon(px Pixels, mapping segmentation.Mapping, poly segmentation.Polygon, dst [][3]uint8) [][3]uint8 {
	r := poly.PixelBounds(px.Width, px.Height)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if !poly.IncludesPixel(x, y, px.Width, px.Height, e.config.Supersample, e.config.MinCoverage) {
				continue
			}
			if mapping.ClassAt(x, y) != segmentation.Skin {
				continue
			}
			if p := px.At(x, y); e.config.Skin.Contains(brightness(p)) {
				dst = append(dst, p)
			}
		}
	}
	return dst
}

// walkIris samples an annulus around the eye centroid, excluding pupil,
// sclera and desaturated eyelid pixels
func (e *Extractor) walkIris(px Pixels, mapping segmentation.Mapping, poly segmentation.Polygon, dst [][3]uint8) [][3]uint8 {
	cfg := e.config.Eye
	center := poly.Centroid()
	eyeWidth := poly.Width() * float64(px.Width)
	inner := cfg.IrisInner * eyeWidth
	outer := cfg.IrisOuter * eyeWidth
	cx := center.X * float64(px.Width)
	cy := center.Y * float64(px.Height)

	r := poly.PixelBounds(px.Width, px.Height)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			if d < inner || d > outer {
				continue
			}
			if !poly.IncludesPixel(x, y, px.Width, px.Height, false, 0) {
				continue
			}
			if mapping.ClassAt(x, y) != segmentation.Eyes {
				continue
			}
			p := px.At(x, y)
			b := brightness(p)
			if b < cfg.MaxPupilBrightness || b > cfg.MaxScleraBrightness || saturation(p) < cfg.MinSaturation {
				continue
			}
			dst = append(dst, p)
		}
	}
	return dst
}

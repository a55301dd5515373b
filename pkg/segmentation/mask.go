// Package segmentation holds the per-frame output of the external face
// segmentation model: a class-id mask and the face-mesh landmark topology
// used to build sampling polygons.
package segmentation

import (
	"fmt"
	"math"
)

// Class is a per-pixel segmentation label
type Class uint8

const (
	Background Class = iota
	Hair
	Skin
	Lips
	Eyes
	Eyebrows
)

func (c Class) String() string {
	switch c {
	case Background:
		return "background"
	case Hair:
		return "hair"
	case Skin:
		return "skin"
	case Lips:
		return "lips"
	case Eyes:
		return "eyes"
	case Eyebrows:
		return "eyebrows"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// aspectTolerance is the relative aspect-ratio difference accepted when a
// mask is sampled against a frame of another resolution
const aspectTolerance = 0.02

// Mask is a dense width x height grid of class ids, one byte per pixel, row
// major. A mask is immutable once constructed.
type Mask struct {
	width  int
	height int
	data   []uint8
}

// NewMask wraps data as a mask. data must hold exactly width*height bytes.
func NewMask(width, height int, data []uint8) (*Mask, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid mask dimensions %dx%d", width, height)
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("mask data has %d bytes, expected %d for %dx%d",
			len(data), width*height, width, height)
	}
	return &Mask{width: width, height: height, data: data}, nil
}

// Width returns the mask width in pixels
func (m *Mask) Width() int { return m.width }

// Height returns the mask height in pixels
func (m *Mask) Height() int { return m.height }

// At returns the class at mask pixel (x, y). Out-of-range coordinates are
// Background.
func (m *Mask) At(x, y int) Class {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return Background
	}
	return Class(m.data[y*m.width+x])
}

// AtNormalized returns the class at normalized coordinates (u, v) in [0,1]
func (m *Mask) AtNormalized(u, v float64) Class {
	return m.At(int(u*float64(m.width)), int(v*float64(m.height)))
}

// Count returns the number of pixels labelled c
func (m *Mask) Count(c Class) int {
	n := 0
	for _, v := range m.data {
		if Class(v) == c {
			n++
		}
	}
	return n
}

// Ratio returns the fraction of the mask labelled c
func (m *Mask) Ratio(c Class) float64 {
	return float64(m.Count(c)) / float64(len(m.data))
}

// Centroid returns the normalized centroid of pixels labelled c and whether
// any such pixel exists
func (m *Mask) Centroid(c Class) (x, y float64, ok bool) {
	var sx, sy float64
	n := 0
	for py := 0; py < m.height; py++ {
		row := m.data[py*m.width : (py+1)*m.width]
		for px, v := range row {
			if Class(v) == c {
				sx += float64(px) + 0.5
				sy += float64(py) + 0.5
				n++
			}
		}
	}
	if n == 0 {
		return 0, 0, false
	}
	return sx / float64(n) / float64(m.width), sy / float64(n) / float64(m.height), true
}

// Mapping looks up mask classes using frame pixel coordinates
type Mapping struct {
	mask     *Mask
	sx, sy   float64
	identity bool
}

// MapTo returns a mapping from a width x height frame onto the mask. It
// fails when the aspect ratios differ, since rescaling would then sample
// the wrong anatomy.
func (m *Mask) MapTo(width, height int) (Mapping, bool) {
	if width <= 0 || height <= 0 {
		return Mapping{}, false
	}
	if width == m.width && height == m.height {
		return Mapping{mask: m, sx: 1, sy: 1, identity: true}, true
	}
	frameAspect := float64(width) / float64(height)
	maskAspect := float64(m.width) / float64(m.height)
	if math.Abs(frameAspect-maskAspect)/frameAspect > aspectTolerance {
		return Mapping{}, false
	}
	return Mapping{
		mask: m,
		sx:   float64(m.width) / float64(width),
		sy:   float64(m.height) / float64(height),
	}, true
}

// ClassAt returns the mask class under frame pixel (x, y)
func (mp Mapping) ClassAt(x, y int) Class {
	if mp.identity {
		return mp.mask.At(x, y)
	}
	return mp.mask.At(int((float64(x)+0.5)*mp.sx), int((float64(y)+0.5)*mp.sy))
}

// Identity reports whether frame and mask have the same resolution
func (mp Mapping) Identity() bool { return mp.identity }

package segmentation

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/menta2k/color-analyzer/pkg/types"
)

// ErrMalformedPolygon is returned for polygons with fewer than three points
// or landmark indices outside the mesh
var ErrMalformedPolygon = errors.New("malformed polygon")

// Point is a vertex in normalized frame coordinates
type Point struct {
	X float64
	Y float64
}

// Polygon is a closed ring of normalized points
type Polygon []Point

// FromLandmarks builds a polygon from the given landmark indices and orders
// it by angle around its centroid so the ring does not self-intersect
func FromLandmarks(set *types.LandmarkSet, indices []int) (Polygon, error) {
	poly, err := Ring(set, indices)
	if err != nil {
		return nil, err
	}
	poly.SortByAngle()
	return poly, nil
}

// Ring builds a polygon from landmark indices in the given order
func Ring(set *types.LandmarkSet, indices []int) (Polygon, error) {
	if len(indices) < 3 {
		return nil, fmt.Errorf("%w: %d points", ErrMalformedPolygon, len(indices))
	}
	poly := make(Polygon, 0, len(indices))
	for _, idx := range indices {
		lm, ok := set.At(idx)
		if !ok {
			return nil, fmt.Errorf("%w: landmark index %d out of range", ErrMalformedPolygon, idx)
		}
		poly = append(poly, Point{X: lm.X, Y: lm.Y})
	}
	return poly, nil
}

// Centroid returns the vertex mean
func (p Polygon) Centroid() Point {
	var c Point
	if len(p) == 0 {
		return c
	}
	for _, v := range p {
		c.X += v.X
		c.Y += v.Y
	}
	c.X /= float64(len(p))
	c.Y /= float64(len(p))
	return c
}

// SortByAngle orders the vertices by angle around the centroid
func (p Polygon) SortByAngle() {
	c := p.Centroid()
	sort.SliceStable(p, func(i, j int) bool {
		return math.Atan2(p[i].Y-c.Y, p[i].X-c.X) < math.Atan2(p[j].Y-c.Y, p[j].X-c.X)
	})
}

// Contains reports whether (x, y) lies inside the polygon (even-odd rule)
func (p Polygon) Contains(x, y float64) bool {
	inside := false
	n := len(p)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := p[i], p[j]
		if (pi.Y > y) != (pj.Y > y) &&
			x < (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}
	return inside
}

// Area returns the enclosed area using the shoelace formula
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}
	var sum float64
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return math.Abs(sum) / 2
}

// Bounds returns the normalized bounding box as min and max corners
func (p Polygon) Bounds() (lo, hi Point) {
	if len(p) == 0 {
		return
	}
	lo, hi = p[0], p[0]
	for _, v := range p[1:] {
		lo.X = math.Min(lo.X, v.X)
		lo.Y = math.Min(lo.Y, v.Y)
		hi.X = math.Max(hi.X, v.X)
		hi.Y = math.Max(hi.Y, v.Y)
	}
	return
}

// PixelBounds returns the pixel rectangle covering the polygon in a
// width x height frame, clipped to the frame
func (p Polygon) PixelBounds(width, height int) image.Rectangle {
	lo, hi := p.Bounds()
	r := image.Rect(
		int(math.Floor(lo.X*float64(width))),
		int(math.Floor(lo.Y*float64(height))),
		int(math.Ceil(hi.X*float64(width)))+1,
		int(math.Ceil(hi.Y*float64(height)))+1,
	)
	return r.Intersect(image.Rect(0, 0, width, height))
}

// Coverage returns how many of the 3x3 sub-pixel samples of pixel (x, y) in
// a width x height frame fall inside the polygon
func (p Polygon) Coverage(x, y, width, height int) int {
	n := 0
	for sy := 0; sy < 3; sy++ {
		v := (float64(y) + (float64(sy)+0.5)/3) / float64(height)
		for sx := 0; sx < 3; sx++ {
			u := (float64(x) + (float64(sx)+0.5)/3) / float64(width)
			if p.Contains(u, v) {
				n++
			}
		}
	}
	return n
}

// IncludesPixel reports whether pixel (x, y) belongs to the polygon. With
// supersample set, at least minCoverage of nine sub-samples must be inside;
// otherwise only the pixel center is tested.
func (p Polygon) IncludesPixel(x, y, width, height int, supersample bool, minCoverage int) bool {
	if !supersample {
		return p.Contains((float64(x)+0.5)/float64(width), (float64(y)+0.5)/float64(height))
	}
	return p.Coverage(x, y, width, height) >= minCoverage
}

// Width returns the horizontal extent of the polygon
func (p Polygon) Width() float64 {
	lo, hi := p.Bounds()
	return hi.X - lo.X
}

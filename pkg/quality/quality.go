// Package quality scores how usable a camera frame is for color analysis.
package quality

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/menta2k/color-analyzer/pkg/segmentation"
	"github.com/menta2k/color-analyzer/pkg/types"
)

// ErrNoInput is returned when neither a mask nor landmarks are available
var ErrNoInput = errors.New("quality: no mask or landmarks")

// Range is an inclusive band of acceptable values
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Weights combine sub-scores into the overall score
type Weights struct {
	Size       float64 `json:"size" yaml:"size"`
	Position   float64 `json:"position" yaml:"position"`
	Brightness float64 `json:"brightness" yaml:"brightness"`
	Sharpness  float64 `json:"sharpness" yaml:"sharpness"`
}

// Config holds quality analysis configuration
type Config struct {
	// FaceRatio is the ideal fraction of skin pixels in the mask
	FaceRatio Range `json:"faceRatio" yaml:"faceRatio"`
	// OvalRatio is the ideal fraction of the frame inside the face oval
	OvalRatio Range `json:"ovalRatio" yaml:"ovalRatio"`
	// MaxCenterOffset is the distance from center at which position scores 0
	MaxCenterOffset float64 `json:"maxCenterOffset" yaml:"maxCenterOffset"`
	// Brightness is the ideal mean luminance band
	Brightness Range `json:"brightness" yaml:"brightness"`
	// SharpEdge is the mean Laplacian magnitude treated as fully sharp
	SharpEdge     float64 `json:"sharpEdge" yaml:"sharpEdge"`
	ThumbnailSize int     `json:"thumbnailSize" yaml:"thumbnailSize"`

	AcceptThreshold float64 `json:"acceptThreshold" yaml:"acceptThreshold"`
	// MinSubScore is the per-check threshold used for feedback
	MinSubScore float64 `json:"minSubScore" yaml:"minSubScore"`
	// EarlyExitFactor stops evaluation when a sub-score drops below
	// MinSubScore*EarlyExitFactor
	EarlyExitFactor float64 `json:"earlyExitFactor" yaml:"earlyExitFactor"`

	MaskWeights     Weights `json:"maskWeights" yaml:"maskWeights"`
	LandmarkWeights Weights `json:"landmarkWeights" yaml:"landmarkWeights"`
}

// DefaultConfig returns the default quality configuration
func DefaultConfig() Config {
	return Config{
		FaceRatio:       Range{Min: 0.15, Max: 0.35},
		OvalRatio:       Range{Min: 0.15, Max: 0.40},
		MaxCenterOffset: 0.25,
		Brightness:      Range{Min: 0.35, Max: 0.75},
		SharpEdge:       0.05,
		ThumbnailSize:   128,
		AcceptThreshold: 0.7,
		MinSubScore:     0.5,
		EarlyExitFactor: 0.4,
		MaskWeights:     Weights{Size: 0.3, Position: 0.3, Brightness: 0.2, Sharpness: 0.2},
		LandmarkWeights: Weights{Size: 0.25, Position: 0.25, Brightness: 0.3, Sharpness: 0.2},
	}
}

// Analyzer evaluates frame quality
type Analyzer struct {
	config Config
}

// New creates an Analyzer with default configuration
func New() *Analyzer {
	return &Analyzer{config: DefaultConfig()}
}

// NewWithConfig creates an Analyzer with custom configuration
func NewWithConfig(config Config) *Analyzer {
	return &Analyzer{config: config}
}

// Config returns the analyzer configuration
func (a *Analyzer) Config() Config {
	return a.config
}

// Evaluate scores a frame. Landmarks are preferred when they form a valid
// face oval; otherwise the mask is used. frame may be nil, in which case
// brightness and sharpness are skipped and the remaining weights rescaled.
func (a *Analyzer) Evaluate(frame image.Image, mask *segmentation.Mask, landmarks *types.LandmarkSet) (types.QualityScore, error) {
	var (
		g       geometry
		weights Weights
		ok      bool
	)
	if landmarks != nil {
		g, ok = a.landmarkGeometry(landmarks)
		weights = a.config.LandmarkWeights
	}
	if !ok {
		if mask == nil {
			return types.QualityScore{}, ErrNoInput
		}
		g = a.maskGeometry(mask)
		weights = a.config.MaskWeights
	}
	if frame == nil {
		weights.Brightness, weights.Sharpness = 0, 0
	}

	e := evaluation{hasFrame: frame != nil, tooLarge: g.tooLarge}
	e.score.FaceSize = g.size
	if a.tooLow(g.size) {
		return a.finish(e, weights, true), nil
	}
	e.score.FacePosition = g.position
	if a.tooLow(g.position) {
		return a.finish(e, weights, true), nil
	}
	if frame == nil {
		return a.finish(e, weights, false), nil
	}

	thumb := imaging.Resize(frame, a.config.ThumbnailSize, 0, imaging.Box)
	lum := MeanLuminance(thumb)
	e.tooBright = lum > a.config.Brightness.Max
	e.score.Brightness = a.BrightnessScore(lum)
	if a.tooLow(e.score.Brightness) {
		return a.finish(e, weights, true), nil
	}
	e.score.Sharpness = a.SharpnessScore(EdgeMagnitude(thumb))

	return a.finish(e, weights, false), nil
}

type geometry struct {
	size     float64
	position float64
	tooLarge bool
}

// evaluation carries the score plus the direction hints feedback needs
type evaluation struct {
	score     types.QualityScore
	hasFrame  bool
	tooLarge  bool
	tooBright bool
}

func (a *Analyzer) tooLow(sub float64) bool {
	return sub < a.config.MinSubScore*a.config.EarlyExitFactor
}

func (a *Analyzer) finish(e evaluation, weights Weights, partial bool) types.QualityScore {
	e.score.Partial = partial
	e.score.Overall = weighted(e.score, weights)
	e.score.IsAcceptable = !partial && e.score.Overall >= a.config.AcceptThreshold
	e.score.Feedback = a.feedback(e)
	return e.score
}

// weighted combines the sub-scores, normalizing by the total weight so a
// zeroed weight rescales the others
func weighted(s types.QualityScore, w Weights) float64 {
	ws := []float64{w.Size, w.Position, w.Brightness, w.Sharpness}
	total := floats.Sum(ws)
	if total <= 0 {
		return 0
	}
	vs := []float64{s.FaceSize, s.FacePosition, s.Brightness, s.Sharpness}
	return clamp01(floats.Dot(ws, vs) / total)
}

func (a *Analyzer) maskGeometry(mask *segmentation.Mask) geometry {
	ratio := mask.Ratio(segmentation.Skin)
	g := geometry{
		size:     a.SizeScore(ratio, a.config.FaceRatio),
		tooLarge: ratio > a.config.FaceRatio.Max,
	}
	if cx, cy, ok := mask.Centroid(segmentation.Skin); ok {
		g.position = a.PositionScore(cx, cy)
	}
	return g
}

func (a *Analyzer) landmarkGeometry(landmarks *types.LandmarkSet) (geometry, bool) {
	oval, err := segmentation.Ring(landmarks, segmentation.FaceOval)
	if err != nil {
		return geometry{}, false
	}

	// every key landmark is on the oval, so lookups cannot fail here
	var cx, cy float64
	keys := []int{segmentation.Chin, segmentation.ForeheadTop, segmentation.LeftTemple, segmentation.RightTemple}
	for _, idx := range keys {
		lm, _ := landmarks.At(idx)
		cx += lm.X
		cy += lm.Y
	}
	cx /= float64(len(keys))
	cy /= float64(len(keys))

	area := oval.Area()
	return geometry{
		size:     a.SizeScore(area, a.config.OvalRatio),
		position: a.PositionScore(cx, cy),
		tooLarge: area > a.config.OvalRatio.Max,
	}, true
}

// SizeScore is 1 inside the ideal band and falls off linearly outside it
func (a *Analyzer) SizeScore(ratio float64, band Range) float64 {
	switch {
	case ratio < band.Min:
		return clamp01(ratio / band.Min)
	case ratio > band.Max:
		return clamp01(1 - (ratio-band.Max)/band.Max)
	default:
		return 1
	}
}

// PositionScore falls off linearly with the distance of (x, y) from the
// frame center, reaching 0 at MaxCenterOffset
func (a *Analyzer) PositionScore(x, y float64) float64 {
	dist := math.Hypot(x-0.5, y-0.5)
	return clamp01(1 - dist/a.config.MaxCenterOffset)
}

// BrightnessScore maps mean luminance onto [0,1], peaking in the ideal band
func (a *Analyzer) BrightnessScore(luminance float64) float64 {
	band := a.config.Brightness
	switch {
	case luminance < band.Min:
		return clamp01(luminance / band.Min)
	case luminance > band.Max:
		return clamp01((1 - luminance) / (1 - band.Max))
	default:
		return 1
	}
}

// SharpnessScore returns 1 - blur, where blur falls as the mean edge
// magnitude approaches SharpEdge
func (a *Analyzer) SharpnessScore(edge float64) float64 {
	blur := 1 - clamp01(edge/a.config.SharpEdge)
	return 1 - blur
}

// MeanLuminance returns the mean Rec. 709 luma of img in [0,1]
func MeanLuminance(img *image.NRGBA) float64 {
	b := img.Bounds()
	lum := make([]float64, 0, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			lum = append(lum, (0.2126*float64(row[x])+0.7152*float64(row[x+1])+0.0722*float64(row[x+2]))/255)
		}
	}
	if len(lum) == 0 {
		return 0
	}
	return stat.Mean(lum, nil)
}

var laplacian = [9]float64{
	0, 1, 0,
	1, -4, 1,
	0, 1, 0,
}

// EdgeMagnitude returns the mean absolute Laplacian response of the
// grayscale image, normalized to [0,1]
func EdgeMagnitude(img *image.NRGBA) float64 {
	gray := imaging.Grayscale(img)
	edges := imaging.Convolve3x3(gray, laplacian, &imaging.ConvolveOptions{Abs: true})

	b := edges.Bounds()
	if b.Empty() {
		return 0
	}
	var sum float64
	for y := 0; y < b.Dy(); y++ {
		row := edges.Pix[y*edges.Stride : y*edges.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			sum += float64(row[x])
		}
	}
	return sum / float64(b.Dx()*b.Dy()) / 255
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

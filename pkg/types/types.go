package types

import (
	"math"
	"time"
)

// RGB is a color with 0-255 channels. Channels are float64 so that
// smoothing across frames never quantizes intermediate values.
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Brightness returns the mean channel value normalized to [0,1]
func (c RGB) Brightness() float64 {
	return (c.R + c.G + c.B) / (3 * 255)
}

// Normalized returns the channels scaled to [0,1]
func (c RGB) Normalized() (r, g, b float64) {
	return c.R / 255, c.G / 255, c.B / 255
}

// HSV is a hue/saturation/value decomposition. H is in degrees [0,360), S and V in [0,1].
type HSV struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// LabColor is a CIELAB triple (D65)
type LabColor struct {
	L float64 `json:"l"`
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// Chroma returns sqrt(a*^2 + b*^2)
func (c LabColor) Chroma() float64 {
	return math.Sqrt(c.A*c.A + c.B*c.B)
}

// ColorEstimate is the smoothed color of one facial region
type ColorEstimate struct {
	RGB       RGB       `json:"rgb"`
	HSV       HSV       `json:"hsv"`
	Valid     bool      `json:"valid"`
	Samples   int       `json:"samples"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Landmark is a face-mesh point in normalized [0,1] frame coordinates
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LandmarkSet is the ordered 468-point mesh of one detected face, plus the
// producer's per-eye confidence scalars.
type LandmarkSet struct {
	Points             []Landmark `json:"points"`
	LeftEyeConfidence  float64    `json:"leftEyeConfidence"`
	RightEyeConfidence float64    `json:"rightEyeConfidence"`
}

// At returns the landmark at index i, or false when i is out of range
func (s *LandmarkSet) At(i int) (Landmark, bool) {
	if s == nil || i < 0 || i >= len(s.Points) {
		return Landmark{}, false
	}
	return s.Points[i], true
}

// Season is one of the four macro color seasons
type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
	Winter Season = "winter"
)

// Seasons lists the seasons in their tie-break order
var Seasons = []Season{Spring, Summer, Autumn, Winter}

// ClassificationResult is the outcome of one season classification.
//
// DeltaEToNextClosest is a margin in rule-score units between the winning
// season and the runner-up. It is not a CIE color difference.
type ClassificationResult struct {
	Season              Season  `json:"season"`
	Confidence          float64 `json:"confidence"`
	DeltaEToNextClosest float64 `json:"deltaEToNextClosest"`
	NextClosestSeason   Season  `json:"nextClosestSeason"`
}

// QualityScore rates how usable a captured frame is. All scores are in [0,1].
type QualityScore struct {
	Overall      float64 `json:"overall"`
	FaceSize     float64 `json:"faceSize"`
	FacePosition float64 `json:"facePosition"`
	Brightness   float64 `json:"brightness"`
	Sharpness    float64 `json:"sharpness"`
	IsAcceptable bool    `json:"isAcceptable"`
	Feedback     string  `json:"feedback"`
	// Partial is set when evaluation stopped early and downstream fields are zero
	Partial bool `json:"partial,omitempty"`
}

// ContrastLevel buckets the lightness contrast between skin, hair and eyes
type ContrastLevel string

const (
	ContrastLow    ContrastLevel = "low"
	ContrastMedium ContrastLevel = "medium"
	ContrastHigh   ContrastLevel = "high"
)

// EyeColor is one sampled eye color with its Lab value
type EyeColor struct {
	Side  string   `json:"side"`
	Color RGB      `json:"color"`
	Lab   LabColor `json:"lab"`
	Hex   string   `json:"hex"`
}

// AnalysisResult is the record handed to presentation and storage collaborators
type AnalysisResult struct {
	Season              Season        `json:"season"`
	Confidence          float64       `json:"confidence"`
	DeltaEToNextClosest float64       `json:"deltaEToNextClosest"`
	NextClosestSeason   Season        `json:"nextClosestSeason"`
	SkinColor           RGB           `json:"skinColor"`
	SkinColorLab        LabColor      `json:"skinColorLab"`
	SkinHex             string        `json:"skinHex"`
	HairColor           *RGB          `json:"hairColor,omitempty"`
	HairColorLab        *LabColor     `json:"hairColorLab,omitempty"`
	HairHex             string        `json:"hairHex,omitempty"`
	EyeColors           []EyeColor    `json:"eyeColors,omitempty"`
	ContrastValue       float64       `json:"contrastValue"`
	ContrastLevel       ContrastLevel `json:"contrastLevel"`
	ContrastDescription string        `json:"contrastDescription"`
	Quality             QualityScore  `json:"quality"`
	Timestamp           time.Time     `json:"timestamp"`
	Thumbnail           []byte        `json:"thumbnail,omitempty"`
	ThumbnailFormat     string        `json:"thumbnailFormat,omitempty"`
}

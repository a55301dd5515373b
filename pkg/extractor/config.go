package extractor

// Window is an inclusive brightness band in [0,1]
type Window struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies inside the window
func (w Window) Contains(v float64) bool {
	return v >= w.Min && v <= w.Max
}

// EyeConfig controls iris sampling
type EyeConfig struct {
	// MinConfidence skips an eye whose producer confidence is lower
	MinConfidence float64 `json:"minConfidence" yaml:"minConfidence"`
	// MaxPupilBrightness rejects darker pixels as pupil
	MaxPupilBrightness float64 `json:"maxPupilBrightness" yaml:"maxPupilBrightness"`
	// MaxScleraBrightness rejects brighter pixels as sclera
	MaxScleraBrightness float64 `json:"maxScleraBrightness" yaml:"maxScleraBrightness"`
	MinSaturation       float64 `json:"minSaturation" yaml:"minSaturation"`
	// IrisInner and IrisOuter bound the sampled annulus as fractions of the
	// eye width
	IrisInner float64 `json:"irisInner" yaml:"irisInner"`
	IrisOuter float64 `json:"irisOuter" yaml:"irisOuter"`
}

// Config holds color extraction configuration
type Config struct {
	Skin Window    `json:"skin" yaml:"skin"`
	Hair Window    `json:"hair" yaml:"hair"`
	Eye  EyeConfig `json:"eye" yaml:"eye"`

	// MinSamples is the candidate count above which outliers are filtered
	MinSamples int `json:"minSamples" yaml:"minSamples"`
	// Sigma is the outlier cutoff in standard deviations
	Sigma float64 `json:"sigma" yaml:"sigma"`
	// SmoothingFactor is the weight of a new sample in the moving average
	SmoothingFactor float64 `json:"smoothingFactor" yaml:"smoothingFactor"`

	// Stride is the pixel step of the mask-only walk
	Stride int `json:"stride" yaml:"stride"`
	// Supersample enables 3x3 sub-pixel tests on polygon edges
	Supersample bool `json:"supersample" yaml:"supersample"`
	MinCoverage int  `json:"minCoverage" yaml:"minCoverage"`

	// FallbackScale is the downsampling factor of the CPU fallback path
	FallbackScale int `json:"fallbackScale" yaml:"fallbackScale"`
}

// DefaultConfig returns the default extraction configuration
func DefaultConfig() Config {
	return Config{
		Skin: Window{Min: 0.2, Max: 0.92},
		Hair: Window{Min: 0.02, Max: 0.85},
		Eye: EyeConfig{
			MinConfidence:       0.5,
			MaxPupilBrightness:  0.15,
			MaxScleraBrightness: 0.9,
			MinSaturation:       0.12,
			IrisInner:           0.08,
			IrisOuter:           0.25,
		},
		MinSamples:      10,
		Sigma:           2,
		SmoothingFactor: 0.3,
		Stride:          2,
		Supersample:     true,
		MinCoverage:     5,
		FallbackScale:   4,
	}
}

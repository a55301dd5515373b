package season

import (
	"math"

	"github.com/menta2k/color-analyzer/pkg/types"
)

// Contrast level boundaries in L* units
const (
	lowContrastMax    = 30.0
	mediumContrastMax = 55.0
)

// Contrast describes the lightness contrast of a subject's coloring
type Contrast struct {
	Value       float64             `json:"value"`
	Level       types.ContrastLevel `json:"level"`
	Description string              `json:"description"`
}

// AnalyzeContrast measures the largest L* difference between skin and the
// available hair and eye colors
func AnalyzeContrast(skin types.LabColor, hair, eye *types.LabColor) Contrast {
	var value float64
	if hair != nil {
		value = math.Abs(skin.L - hair.L)
	}
	if eye != nil {
		value = math.Max(value, math.Abs(skin.L-eye.L))
	}

	switch {
	case value < lowContrastMax:
		return Contrast{
			Value:       value,
			Level:       types.ContrastLow,
			Description: "Soft, blended coloring with little difference between skin, hair and eyes",
		}
	case value < mediumContrastMax:
		return Contrast{
			Value:       value,
			Level:       types.ContrastMedium,
			Description: "Moderate contrast between skin and features",
		}
	default:
		return Contrast{
			Value:       value,
			Level:       types.ContrastHigh,
			Description: "Striking contrast between skin and features",
		}
	}
}

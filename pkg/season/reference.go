package season

import (
	"github.com/menta2k/color-analyzer/pkg/colorspace"
	"github.com/menta2k/color-analyzer/pkg/types"
)

// References are typical skin Lab values of each season, used for
// calibration diagnostics
var References = map[types.Season]types.LabColor{
	types.Spring: {L: 72, A: 12, B: 24},
	types.Summer: {L: 70, A: 8, B: 8},
	types.Autumn: {L: 58, A: 14, B: 26},
	types.Winter: {L: 55, A: 10, B: 6},
}

// ReferenceDistances returns the CIEDE2000 distance from skin to every
// season reference. It does not affect classification.
func ReferenceDistances(skin types.LabColor) map[types.Season]float64 {
	out := make(map[types.Season]float64, len(References))
	for s, ref := range References {
		out[s] = colorspace.DeltaE2000(skin, ref)
	}
	return out
}

// NearestReference returns the season whose reference is perceptually
// closest to skin
func NearestReference(skin types.LabColor) (types.Season, float64) {
	dists := ReferenceDistances(skin)
	best := types.Seasons[0]
	for _, s := range types.Seasons[1:] {
		if dists[s] < dists[best] {
			best = s
		}
	}
	return best, dists[best]
}

// Swatch renders a season reference as sRGB
func Swatch(s types.Season) (types.RGB, bool) {
	ref, ok := References[s]
	if !ok {
		return types.RGB{}, false
	}
	return colorspace.FromLab(ref), true
}

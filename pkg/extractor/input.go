package extractor

import (
	"github.com/menta2k/color-analyzer/pkg/segmentation"
	"github.com/menta2k/color-analyzer/pkg/types"
)

// SamplingInput is the per-frame segmentation output. It is one of
// MaskOnly or MaskAndLandmarks.
type SamplingInput interface {
	mask() *segmentation.Mask
	sealed()
}

// MaskOnly samples by walking the whole mask
type MaskOnly struct {
	Mask *segmentation.Mask
}

// MaskAndLandmarks samples skin and eyes from landmark polygons, confirmed
// against the mask
type MaskAndLandmarks struct {
	Mask      *segmentation.Mask
	Landmarks *types.LandmarkSet
}

func (in MaskOnly) mask() *segmentation.Mask         { return in.Mask }
func (in MaskAndLandmarks) mask() *segmentation.Mask { return in.Mask }
func (MaskOnly) sealed()                             {}
func (MaskAndLandmarks) sealed()                     {}

// InputFor returns MaskAndLandmarks when landmarks are present, MaskOnly
// otherwise
func InputFor(mask *segmentation.Mask, landmarks *types.LandmarkSet) SamplingInput {
	if landmarks != nil && len(landmarks.Points) > 0 {
		return MaskAndLandmarks{Mask: mask, Landmarks: landmarks}
	}
	return MaskOnly{Mask: mask}
}

// Landmarks returns the landmark set carried by in, if any
func Landmarks(in SamplingInput) *types.LandmarkSet {
	if v, ok := in.(MaskAndLandmarks); ok {
		return v.Landmarks
	}
	return nil
}

// Mask returns the mask carried by in
func Mask(in SamplingInput) *segmentation.Mask {
	if in == nil {
		return nil
	}
	return in.mask()
}

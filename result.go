package coloranalyzer

import (
	"fmt"
	"time"

	"github.com/menta2k/color-analyzer/pkg/colorspace"
	"github.com/menta2k/color-analyzer/pkg/extractor"
	"github.com/menta2k/color-analyzer/pkg/season"
	"github.com/menta2k/color-analyzer/pkg/types"
)

// Classify classifies the current smoothed colors. It returns
// season.ErrInsufficientData until a valid skin estimate exists.
func (p *Pipeline) Classify() (types.ClassificationResult, error) {
	return p.classify(p.state.Estimates())
}

func (p *Pipeline) classify(est extractor.Estimates) (types.ClassificationResult, error) {
	if !est.Skin.Valid {
		return types.ClassificationResult{}, season.ErrInsufficientData
	}
	skin := colorspace.Lab(est.Skin.RGB)
	var hair *types.LabColor
	if est.Hair.Valid {
		h := colorspace.Lab(est.Hair.RGB)
		hair = &h
	}
	return p.classifier.Classify(&skin, hair)
}

// Result assembles the full analysis record from the current state
func (p *Pipeline) Result() (*types.AnalysisResult, error) {
	est := p.state.Estimates()
	class, err := p.classify(est)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	q := p.lastQuality
	frame := p.lastFrame
	p.mu.Unlock()

	skinLab := colorspace.Lab(est.Skin.RGB)
	result := &types.AnalysisResult{
		Season:              class.Season,
		Confidence:          class.Confidence,
		DeltaEToNextClosest: class.DeltaEToNextClosest,
		NextClosestSeason:   class.NextClosestSeason,
		SkinColor:           est.Skin.RGB,
		SkinColorLab:        skinLab,
		SkinHex:             colorspace.Hex(est.Skin.RGB),
		Quality:             q,
		Timestamp:           time.Now(),
	}

	var hairLab, eyeLab *types.LabColor
	if est.Hair.Valid {
		hair := est.Hair.RGB
		lab := colorspace.Lab(hair)
		result.HairColor = &hair
		result.HairColorLab = &lab
		result.HairHex = colorspace.Hex(hair)
		hairLab = &lab
	}
	for _, eye := range []struct {
		side string
		est  types.ColorEstimate
	}{{"left", est.LeftEye}, {"right", est.RightEye}} {
		if !eye.est.Valid {
			continue
		}
		result.EyeColors = append(result.EyeColors, types.EyeColor{
			Side:  eye.side,
			Color: eye.est.RGB,
			Lab:   colorspace.Lab(eye.est.RGB),
			Hex:   colorspace.Hex(eye.est.RGB),
		})
	}
	if est.Eye.Valid {
		lab := colorspace.Lab(est.Eye.RGB)
		eyeLab = &lab
	}

	contrast := season.AnalyzeContrast(skinLab, hairLab, eyeLab)
	result.ContrastValue = contrast.Value
	result.ContrastLevel = contrast.Level
	result.ContrastDescription = contrast.Description

	if tc := p.config.Thumbnail; tc.Format != "" && frame != nil && frame.Image != nil {
		img := frame.Image
		if tc.CropToFace {
			if crop, err := p.cropper.Crop(img, frame.Mask); err == nil {
				img = crop.Image
			}
		}
		thumb, err := p.processor.EncodeThumbnail(img, tc.MaxDim, tc.Format, tc.Quality)
		if err != nil {
			return nil, fmt.Errorf("thumbnail: %w", err)
		}
		result.Thumbnail = thumb
		result.ThumbnailFormat = tc.Format
		if !frame.Timestamp.IsZero() {
			result.Timestamp = frame.Timestamp
		}
	}
	return result, nil
}

// Package season classifies a subject into one of four color seasons from
// the Lab values of their skin and, when available, hair.
package season

import (
	"errors"

	"github.com/menta2k/color-analyzer/pkg/types"
)

// ErrInsufficientData is returned when no skin color is available
var ErrInsufficientData = errors.New("season: insufficient color data")

const (
	primaryWeight   = 1.0
	secondaryWeight = 0.5
	// hairWeight is added per matching hair trait, two traits per season
	hairWeight = 0.25

	maxSkinScore = 2*primaryWeight + secondaryWeight
	maxHairScore = 2 * hairWeight
)

// Features are the binary skin traits the rules are written against
type Features struct {
	Warm   bool `json:"warm"`
	Bright bool `json:"bright"`
	Clear  bool `json:"clear"`
}

// Classifier scores seasons from Lab colors. It is stateless apart from its
// thresholds and safe for concurrent use.
type Classifier struct {
	thresholds Thresholds
}

// New creates a Classifier with default thresholds
func New() *Classifier {
	return &Classifier{thresholds: DefaultThresholds()}
}

// NewWithThresholds creates a Classifier with custom thresholds
func NewWithThresholds(t Thresholds) *Classifier {
	return &Classifier{thresholds: t}
}

// Thresholds returns the classifier thresholds
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Features derives the binary skin traits
func (c *Classifier) Features(skin types.LabColor) Features {
	return Features{
		Warm:   skin.B > c.thresholds.WarmCool,
		Bright: skin.L > c.thresholds.BrightMuted,
		Clear:  skin.Chroma() > c.thresholds.ClearSoft,
	}
}

// Scores returns the rule score of every season. hair may be nil.
func (c *Classifier) Scores(skin types.LabColor, hair *types.LabColor) map[types.Season]float64 {
	f := c.Features(skin)
	scores := map[types.Season]float64{
		types.Spring: weight(f.Warm, primaryWeight) + weight(f.Bright, primaryWeight) + weight(f.Clear, secondaryWeight),
		types.Summer: weight(!f.Warm, primaryWeight) + weight(f.Bright, primaryWeight) + weight(!f.Clear, secondaryWeight),
		types.Autumn: weight(f.Warm, primaryWeight) + weight(!f.Bright, primaryWeight) + weight(!f.Clear, secondaryWeight),
		types.Winter: weight(!f.Warm, primaryWeight) + weight(f.Clear, primaryWeight) + weight(!f.Bright, secondaryWeight),
	}

	if hair != nil {
		warm := hair.B > c.thresholds.HairWarm
		light := hair.L > c.thresholds.HairLight
		scores[types.Spring] += hairScore(warm, light)
		scores[types.Summer] += hairScore(!warm, light)
		scores[types.Autumn] += hairScore(warm, !light)
		scores[types.Winter] += hairScore(!warm, !light)
	}
	return scores
}

// Classify picks the highest scoring season. Ties go to the season listed
// first in types.Seasons. skin is required; hair may be nil.
func (c *Classifier) Classify(skin, hair *types.LabColor) (types.ClassificationResult, error) {
	if skin == nil {
		return types.ClassificationResult{}, ErrInsufficientData
	}

	scores := c.Scores(*skin, hair)
	maxScore := maxSkinScore
	if hair != nil {
		maxScore += maxHairScore
	}

	best, second := types.Seasons[0], types.Season("")
	for _, s := range types.Seasons[1:] {
		if scores[s] > scores[best] {
			best = s
		}
	}
	for _, s := range types.Seasons {
		if s == best {
			continue
		}
		if second == "" || scores[s] > scores[second] {
			second = s
		}
	}

	return types.ClassificationResult{
		Season:              best,
		Confidence:          scores[best] / maxScore,
		DeltaEToNextClosest: scores[best] - scores[second],
		NextClosestSeason:   second,
	}, nil
}

func weight(match bool, w float64) float64 {
	if match {
		return w
	}
	return 0
}

func hairScore(a, b bool) float64 {
	return weight(a, hairWeight) + weight(b, hairWeight)
}

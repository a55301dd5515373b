package extractor

import (
	"sync"
	"time"

	"github.com/menta2k/color-analyzer/pkg/colorspace"
	"github.com/menta2k/color-analyzer/pkg/types"
)

// Estimates is a snapshot of the smoothed colors
type Estimates struct {
	Skin     types.ColorEstimate `json:"skin"`
	Hair     types.ColorEstimate `json:"hair"`
	LeftEye  types.ColorEstimate `json:"leftEye"`
	RightEye types.ColorEstimate `json:"rightEye"`
	// Eye averages the valid eye estimates
	Eye types.ColorEstimate `json:"eye"`
}

// State holds the smoothed color estimates. Apply is the only mutator;
// regions without data in a sample keep their previous value.
type State struct {
	mu     sync.RWMutex
	est    Estimates
	factor float64
	now    func() time.Time
}

// NewState creates an empty state blending new samples with weight factor
func NewState(factor float64) *State {
	return &State{factor: factor, now: time.Now}
}

// Blend returns the exponential moving average of old and sample. Channels
// are blended independently in float space.
func Blend(old, sample types.RGB, factor float64) types.RGB {
	return types.RGB{
		R: old.R*(1-factor) + sample.R*factor,
		G: old.G*(1-factor) + sample.G*factor,
		B: old.B*(1-factor) + sample.B*factor,
	}
}

func (s *State) update(est types.ColorEstimate, m Measurement, now time.Time) types.ColorEstimate {
	if !m.Valid {
		return est
	}
	rgb := m.Color
	if est.Valid {
		rgb = Blend(est.RGB, m.Color, s.factor)
	}
	return types.ColorEstimate{
		RGB:       rgb,
		HSV:       colorspace.HSV(rgb),
		Valid:     true,
		Samples:   m.Count,
		UpdatedAt: now,
	}
}

// Apply folds a frame sample into the estimates and returns the new snapshot
func (s *State) Apply(sample Sample) Estimates {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.est.Skin = s.update(s.est.Skin, sample.Skin, now)
	s.est.Hair = s.update(s.est.Hair, sample.Hair, now)
	s.est.LeftEye = s.update(s.est.LeftEye, sample.LeftEye, now)
	s.est.RightEye = s.update(s.est.RightEye, sample.RightEye, now)
	s.est.Eye = averageEye(s.est.LeftEye, s.est.RightEye)
	return s.est
}

// Estimates returns the current snapshot
func (s *State) Estimates() Estimates {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.est
}

// Reset forgets all estimates
func (s *State) Reset() {
	s.mu.Lock()
	s.est = Estimates{}
	s.mu.Unlock()
}

func averageEye(left, right types.ColorEstimate) types.ColorEstimate {
	switch {
	case left.Valid && right.Valid:
		rgb := Blend(left.RGB, right.RGB, 0.5)
		updated := left.UpdatedAt
		if right.UpdatedAt.After(updated) {
			updated = right.UpdatedAt
		}
		return types.ColorEstimate{
			RGB:       rgb,
			HSV:       colorspace.HSV(rgb),
			Valid:     true,
			Samples:   left.Samples + right.Samples,
			UpdatedAt: updated,
		}
	case left.Valid:
		return left
	default:
		return right
	}
}

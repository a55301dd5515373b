package season

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Thresholds are the feature cutoffs of the season rules
type Thresholds struct {
	// WarmCool is the b* above which skin counts as warm
	WarmCool float64 `json:"warmCoolThreshold" yaml:"warmCoolThreshold"`
	// BrightMuted is the L* above which skin counts as bright
	BrightMuted float64 `json:"brightMutedThreshold" yaml:"brightMutedThreshold"`
	// ClearSoft is the chroma above which skin counts as clear
	ClearSoft float64 `json:"clearSoftThreshold" yaml:"clearSoftThreshold"`

	// HairWarm is the hair b* above which hair counts as warm
	HairWarm float64 `json:"hairWarmThreshold" yaml:"hairWarmThreshold"`
	// HairLight is the hair L* above which hair counts as light
	HairLight float64 `json:"hairLightThreshold" yaml:"hairLightThreshold"`
}

// DefaultThresholds returns the built-in thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarmCool:    0.0,
		BrightMuted: 65.0,
		ClearSoft:   25.0,
		HairWarm:    5.0,
		HairLight:   45.0,
	}
}

// Validate checks that the thresholds are in range for Lab values
func (t Thresholds) Validate() error {
	if t.BrightMuted < 0 || t.BrightMuted > 100 {
		return fmt.Errorf("brightMutedThreshold %.2f outside [0,100]", t.BrightMuted)
	}
	if t.HairLight < 0 || t.HairLight > 100 {
		return fmt.Errorf("hairLightThreshold %.2f outside [0,100]", t.HairLight)
	}
	if t.ClearSoft < 0 {
		return fmt.Errorf("clearSoftThreshold %.2f is negative", t.ClearSoft)
	}
	return nil
}

// ReadThresholds reads thresholds from a JSON or YAML file. Keys missing
// from the file keep their default values.
func ReadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("failed to read thresholds: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &t)
	default:
		err = json.Unmarshal(data, &t)
	}
	if err != nil {
		return DefaultThresholds(), fmt.Errorf("failed to parse thresholds %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return DefaultThresholds(), fmt.Errorf("invalid thresholds %s: %w", path, err)
	}
	return t, nil
}

// LoadThresholds reads thresholds from path. A missing or malformed file is
// logged and the defaults are returned; an empty path means defaults.
func LoadThresholds(path string, logger *log.Logger) Thresholds {
	if path == "" {
		return DefaultThresholds()
	}
	t, err := ReadThresholds(path)
	if err != nil {
		if logger != nil {
			logger.Printf("Using default season thresholds: %v", err)
		}
		return DefaultThresholds()
	}
	return t
}

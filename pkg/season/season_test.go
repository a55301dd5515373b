package season

import (
	"bytes"
	"errors"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/menta2k/color-analyzer/pkg/colorspace"
	"github.com/menta2k/color-analyzer/pkg/types"
)

// labWithChroma builds a Lab color with the given L*, b* and chroma
func labWithChroma(l, b, chroma float64) types.LabColor {
	return types.LabColor{L: l, A: math.Sqrt(chroma*chroma - b*b), B: b}
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestClassifySpring(t *testing.T) {
	c := New()
	skin := labWithChroma(75, 20, 30)

	result, err := c.Classify(&skin, nil)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Season != types.Spring {
		t.Errorf("Expected spring, got %s", result.Season)
	}
	if result.DeltaEToNextClosest <= 0 {
		t.Errorf("Expected positive margin, got %.3f", result.DeltaEToNextClosest)
	}
	if result.Confidence != 1 {
		t.Errorf("Expected full confidence for a perfect spring, got %.3f", result.Confidence)
	}
}

func TestClassifyAllSeasons(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		skin types.LabColor
		want types.Season
	}{
		{"warm bright clear", labWithChroma(75, 20, 30), types.Spring},
		{"cool bright soft", labWithChroma(75, -5, 10), types.Summer},
		{"warm muted soft", labWithChroma(55, 15, 20), types.Autumn},
		{"cool muted clear", labWithChroma(55, -10, 30), types.Winter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := c.Classify(&tt.skin, nil)
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if result.Season != tt.want {
				t.Errorf("Expected %s, got %s (scores %v)", tt.want, result.Season, c.Scores(tt.skin, nil))
			}
			if result.NextClosestSeason == result.Season || result.NextClosestSeason == "" {
				t.Errorf("Invalid runner-up %q", result.NextClosestSeason)
			}
		})
	}
}

func TestClassifyWithHair(t *testing.T) {
	c := New()
	skin := colorspace.Lab(types.RGB{R: 220, G: 180, B: 150})
	hair := colorspace.Lab(types.RGB{R: 40, G: 25, B: 15})

	result, err := c.Classify(&skin, &hair)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if result.Season != types.Spring || result.NextClosestSeason != types.Autumn {
		t.Errorf("Expected spring over autumn, got %s over %s", result.Season, result.NextClosestSeason)
	}
	if math.Abs(result.DeltaEToNextClosest-0.25) > 1e-9 {
		t.Errorf("Expected margin 0.25, got %.3f", result.DeltaEToNextClosest)
	}
	if math.Abs(result.Confidence-0.75) > 1e-9 {
		t.Errorf("Expected confidence 2.25/3.0, got %.3f", result.Confidence)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := New()
	skin := types.LabColor{L: 65, A: 0, B: 0}
	hair := types.LabColor{L: 45, A: 3, B: 5}

	first, err := c.Classify(&skin, &hair)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	for i := 0; i < 100; i++ {
		got, _ := c.Classify(&skin, &hair)
		if got != first {
			t.Fatalf("Run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestClassifyTieBreak(t *testing.T) {
	c := New()
	// cool, muted, soft: summer, autumn and winter all score 1.5
	skin := labWithChroma(50, -5, 10)

	result, err := c.Classify(&skin, nil)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Season != types.Summer || result.NextClosestSeason != types.Autumn {
		t.Errorf("Expected summer then autumn on a tie, got %s then %s", result.Season, result.NextClosestSeason)
	}
	if result.DeltaEToNextClosest != 0 {
		t.Errorf("Expected zero margin on a tie, got %.3f", result.DeltaEToNextClosest)
	}
}

func TestClassifyInsufficientData(t *testing.T) {
	hair := types.LabColor{L: 30, A: 5, B: 10}
	if _, err := New().Classify(nil, &hair); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestLoadThresholds(t *testing.T) {
	jsonPath := writeTestFile(t, "thresholds.json", `{"warmCoolThreshold": 2.5, "clearSoftThreshold": 20}`)
	got := LoadThresholds(jsonPath, nil)
	if got.WarmCool != 2.5 || got.ClearSoft != 20 {
		t.Errorf("JSON thresholds not applied: %+v", got)
	}
	if got.BrightMuted != 65 {
		t.Errorf("Missing key should keep default, got %.1f", got.BrightMuted)
	}

	yamlPath := writeTestFile(t, "thresholds.yaml", "brightMutedThreshold: 60\nhairLightThreshold: 40\n")
	got = LoadThresholds(yamlPath, nil)
	if got.BrightMuted != 60 || got.HairLight != 40 {
		t.Errorf("YAML thresholds not applied: %+v", got)
	}
}

func TestLoadThresholdsFallsBack(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(t.TempDir(), "absent.json")},
		{"malformed", writeTestFile(t, "bad.json", `{"warmCoolThreshold": "warm"`)},
		{"out of range", writeTestFile(t, "range.yaml", "brightMutedThreshold: 140\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			got := LoadThresholds(tt.path, logger)
			if got != DefaultThresholds() {
				t.Errorf("Expected defaults, got %+v", got)
			}
			if !strings.Contains(buf.String(), "Using default season thresholds") {
				t.Errorf("Expected the failure to be logged, got %q", buf.String())
			}
		})
	}

	if got := LoadThresholds("", logger); got != DefaultThresholds() {
		t.Errorf("Empty path should use defaults, got %+v", got)
	}
}

func TestReferenceDistances(t *testing.T) {
	dists := ReferenceDistances(References[types.Winter])
	if dists[types.Winter] != 0 {
		t.Errorf("Expected zero distance to own reference, got %.4f", dists[types.Winter])
	}
	if len(dists) != 4 {
		t.Errorf("Expected 4 distances, got %d", len(dists))
	}

	skin := colorspace.Lab(types.RGB{R: 220, G: 180, B: 150})
	season, d := NearestReference(skin)
	if season != types.Spring {
		t.Errorf("Expected spring reference nearest, got %s", season)
	}
	if math.Abs(d-3.52) > 0.01 {
		t.Errorf("Expected distance ~3.52, got %.4f", d)
	}
}

func TestSwatch(t *testing.T) {
	for _, s := range types.Seasons {
		rgb, ok := Swatch(s)
		if !ok {
			t.Fatalf("No swatch for %s", s)
		}
		back := colorspace.Lab(rgb)
		if colorspace.DeltaE2000(back, References[s]) > 0.5 {
			t.Errorf("%s swatch does not round-trip: %+v", s, back)
		}
	}
	if _, ok := Swatch("monsoon"); ok {
		t.Error("Unknown season should have no swatch")
	}
}

func TestAnalyzeContrast(t *testing.T) {
	skin := types.LabColor{L: 75}

	tests := []struct {
		name  string
		hair  *types.LabColor
		eye   *types.LabColor
		level types.ContrastLevel
		value float64
	}{
		{"no features", nil, nil, types.ContrastLow, 0},
		{"light hair", &types.LabColor{L: 60}, nil, types.ContrastLow, 15},
		{"medium hair", &types.LabColor{L: 35}, nil, types.ContrastMedium, 40},
		{"dark eyes win", &types.LabColor{L: 60}, &types.LabColor{L: 15}, types.ContrastHigh, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeContrast(skin, tt.hair, tt.eye)
			if got.Level != tt.level || got.Value != tt.value {
				t.Errorf("Expected %s/%.0f, got %s/%.2f", tt.level, tt.value, got.Level, got.Value)
			}
			if got.Description == "" {
				t.Error("Expected a description")
			}
		})
	}
}

func BenchmarkClassify(b *testing.B) {
	c := New()
	skin := types.LabColor{L: 70, A: 12, B: 18}
	hair := types.LabColor{L: 30, A: 6, B: 12}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Classify(&skin, &hair)
	}
}

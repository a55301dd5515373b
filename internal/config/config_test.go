package config

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config is invalid: %v", err)
	}
	if cfg.Pipeline.ExtractEveryNth != 2 {
		t.Errorf("Expected extract_every_nth 2, got %d", cfg.Pipeline.ExtractEveryNth)
	}
}

func TestSaveAndLoad(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := Default()
			cfg.Pipeline.ExtractEveryNth = 3
			cfg.Quality.AcceptThreshold = 0.8
			cfg.Stylist.Model = "qwen2.5"

			if err := cfg.SaveToFile(path); err != nil {
				t.Fatalf("SaveToFile failed: %v", err)
			}
			loaded, err := LoadFromFile(path)
			if err != nil {
				t.Fatalf("LoadFromFile failed: %v", err)
			}
			if loaded.Pipeline.ExtractEveryNth != 3 || loaded.Quality.AcceptThreshold != 0.8 || loaded.Stylist.Model != "qwen2.5" {
				t.Errorf("Config not preserved: %+v", loaded)
			}
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("pipeline:\n  extract_every_nth: 4\n"), 0644)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Pipeline.ExtractEveryNth != 4 {
		t.Errorf("Expected 4, got %d", cfg.Pipeline.ExtractEveryNth)
	}
	if cfg.Quality.AcceptThreshold != Default().Quality.AcceptThreshold {
		t.Errorf("Expected default accept threshold, got %v", cfg.Quality.AcceptThreshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Partial config should validate: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{not json"), 0644)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected error for malformed file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"pool capacity", func(c *Config) { c.Pool.Capacity = 0 }},
		{"accept threshold", func(c *Config) { c.Quality.AcceptThreshold = 1.5 }},
		{"face ratio", func(c *Config) { c.Quality.FaceRatio.Min = 0.5 }},
		{"smoothing", func(c *Config) { c.Extractor.SmoothingFactor = 0 }},
		{"skin window", func(c *Config) { c.Extractor.Skin.Min = 0.95 }},
		{"throttle", func(c *Config) { c.Pipeline.ExtractEveryNth = 0 }},
		{"device budget", func(c *Config) { c.Pipeline.DeviceBudgetMB = -1 }},
		{"thumbnail quality", func(c *Config) { c.Output.ThumbnailQuality = 0 }},
		{"stylist backend", func(c *Config) { c.Stylist.Enabled = true; c.Stylist.Backend = "openai" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestPipeline(t *testing.T) {
	dir := t.TempDir()
	thresholds := filepath.Join(dir, "thresholds.json")
	os.WriteFile(thresholds, []byte(`{"warmCoolThreshold": 2.5}`), 0644)

	cfg := Default()
	cfg.Season.ThresholdsFile = thresholds
	cfg.Pipeline.DeviceBudgetMB = 64

	var buf bytes.Buffer
	p := cfg.PipelineConfig(log.New(&buf, "", 0))
	if p.Thresholds.WarmCool != 2.5 {
		t.Errorf("Expected thresholds from file, got %+v", p.Thresholds)
	}
	if p.DeviceBudget != 64<<20 {
		t.Errorf("Expected 64MB budget, got %d", p.DeviceBudget)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Pipeline config invalid: %v", err)
	}

	cfg.Season.ThresholdsFile = filepath.Join(dir, "missing.yaml")
	p = cfg.PipelineConfig(log.New(&buf, "", 0))
	if p.Thresholds.WarmCool != 0 {
		t.Errorf("Expected default thresholds, got %+v", p.Thresholds)
	}
	if !strings.Contains(buf.String(), "Using default season thresholds") {
		t.Errorf("Expected fallback to be logged, got %q", buf.String())
	}
}

func TestStylistAdvisorConfig(t *testing.T) {
	cfg := Default()
	cfg.Stylist.TimeoutSeconds = 30
	cfg.Stylist.AttachImage = true

	ac := cfg.StylistAdvisorConfig()
	if ac.Timeout != 30*time.Second || !ac.AttachImage || ac.Model != cfg.Stylist.Model {
		t.Errorf("Unexpected advisor config %+v", ac)
	}
}

func TestGetConfigPath(t *testing.T) {
	if !strings.HasSuffix(GetConfigPath(), "config.json") {
		t.Errorf("Unexpected config path %s", GetConfigPath())
	}
}

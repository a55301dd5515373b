package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	coloranalyzer "github.com/menta2k/color-analyzer"
	"github.com/menta2k/color-analyzer/pkg/extractor"
	"github.com/menta2k/color-analyzer/pkg/pool"
	"github.com/menta2k/color-analyzer/pkg/quality"
	"github.com/menta2k/color-analyzer/pkg/season"
	"github.com/menta2k/color-analyzer/pkg/stylist"
)

// Config holds the application configuration
type Config struct {
	Pool      pool.Config      `json:"pool" yaml:"pool"`
	Quality   quality.Config   `json:"quality" yaml:"quality"`
	Extractor extractor.Config `json:"extractor" yaml:"extractor"`
	Season    SeasonConfig     `json:"season" yaml:"season"`
	Pipeline  PipelineConfig   `json:"pipeline" yaml:"pipeline"`
	Output    OutputConfig     `json:"output" yaml:"output"`
	Stylist   StylistConfig    `json:"stylist" yaml:"stylist"`
	Store     StoreConfig      `json:"store" yaml:"store"`
	Live      LiveConfig       `json:"live" yaml:"live"`
}

// SeasonConfig points at the thresholds artifact
type SeasonConfig struct {
	// ThresholdsFile is a JSON or YAML thresholds file; empty uses defaults
	ThresholdsFile string `json:"thresholds_file" yaml:"thresholds_file"`
}

// PipelineConfig holds frame scheduling and device settings
type PipelineConfig struct {
	ExtractEveryNth int `json:"extract_every_nth" yaml:"extract_every_nth"`
	DeviceBudgetMB  int `json:"device_budget_mb" yaml:"device_budget_mb"`
	LogSampleRate   int `json:"log_sample_rate" yaml:"log_sample_rate"`
	SampleQueue     int `json:"sample_queue" yaml:"sample_queue"`
}

// OutputConfig holds configuration for result output
type OutputConfig struct {
	OutputDir        string `json:"output_dir" yaml:"output_dir"`
	ThumbnailFormat  string `json:"thumbnail_format" yaml:"thumbnail_format"`
	ThumbnailMaxDim  int    `json:"thumbnail_max_dim" yaml:"thumbnail_max_dim"`
	ThumbnailQuality int    `json:"thumbnail_quality" yaml:"thumbnail_quality"`
	ThumbnailFace    bool   `json:"thumbnail_face" yaml:"thumbnail_face"`
	Debug            bool   `json:"debug" yaml:"debug"`
	Suffix           string `json:"suffix" yaml:"suffix"`
}

// StylistConfig selects the optional styling model
type StylistConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	Backend        string `json:"backend" yaml:"backend"`
	URL            string `json:"url" yaml:"url"`
	Model          string `json:"model" yaml:"model"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	AttachImage    bool   `json:"attach_image" yaml:"attach_image"`
}

// StoreConfig holds the result history database settings
type StoreConfig struct {
	DSN   string `json:"dsn" yaml:"dsn"`
	Table string `json:"table" yaml:"table"`
}

// LiveConfig holds the live feed server settings
type LiveConfig struct {
	Addr string `json:"addr" yaml:"addr"`
	Path string `json:"path" yaml:"path"`
}

// Default returns a configuration with default values
func Default() *Config {
	pipeline := coloranalyzer.DefaultConfig()
	return &Config{
		Pool:      pipeline.Pool,
		Quality:   pipeline.Quality,
		Extractor: pipeline.Extractor,
		Pipeline: PipelineConfig{
			ExtractEveryNth: pipeline.ExtractEveryNth,
			DeviceBudgetMB:  int(pipeline.DeviceBudget >> 20),
			LogSampleRate:   pipeline.LogSampleRate,
			SampleQueue:     pipeline.SampleQueue,
		},
		Output: OutputConfig{
			OutputDir:        "./output",
			ThumbnailFormat:  pipeline.Thumbnail.Format,
			ThumbnailMaxDim:  pipeline.Thumbnail.MaxDim,
			ThumbnailQuality: pipeline.Thumbnail.Quality,
			ThumbnailFace:    pipeline.Thumbnail.CropToFace,
			Suffix:           "_analysis",
		},
		Stylist: StylistConfig{
			Backend:        "ollama",
			URL:            "http://localhost:11434",
			Model:          stylist.DefaultConfig().Model,
			TimeoutSeconds: 120,
		},
		Store: StoreConfig{
			Table: "color_results",
		},
		Live: LiveConfig{
			Addr: ":8090",
			Path: "/ws",
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file. Keys missing
// from the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(filename) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// SaveToFile saves configuration as JSON, or YAML for .yaml/.yml files
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Pool.Capacity < 1 {
		return fmt.Errorf("pool.capacity must be positive")
	}
	if c.Quality.AcceptThreshold < 0 || c.Quality.AcceptThreshold > 1 {
		return fmt.Errorf("quality.acceptThreshold must be between 0 and 1")
	}
	if c.Quality.FaceRatio.Min >= c.Quality.FaceRatio.Max {
		return fmt.Errorf("quality.faceRatio.min must be below max")
	}
	if c.Extractor.SmoothingFactor <= 0 || c.Extractor.SmoothingFactor > 1 {
		return fmt.Errorf("extractor.smoothingFactor must be in (0,1]")
	}
	if c.Extractor.Skin.Min >= c.Extractor.Skin.Max {
		return fmt.Errorf("extractor.skin.min must be below max")
	}
	if c.Pipeline.ExtractEveryNth < 1 {
		return fmt.Errorf("pipeline.extract_every_nth must be at least 1")
	}
	if c.Pipeline.DeviceBudgetMB < 0 {
		return fmt.Errorf("pipeline.device_budget_mb must not be negative")
	}
	if q := c.Output.ThumbnailQuality; c.Output.ThumbnailFormat != "" && (q < 1 || q > 100) {
		return fmt.Errorf("output.thumbnail_quality must be between 1 and 100")
	}
	if c.Stylist.Enabled {
		switch c.Stylist.Backend {
		case "ollama", "llamacpp":
		default:
			return fmt.Errorf("stylist.backend must be ollama or llamacpp, got %q", c.Stylist.Backend)
		}
	}
	return nil
}

// PipelineConfig converts the file configuration into a pipeline configuration.
// Season thresholds are read from Season.ThresholdsFile; a missing or
// malformed file is logged to logger and the defaults are used.
func (c *Config) PipelineConfig(logger *log.Logger) coloranalyzer.Config {
	cfg := coloranalyzer.DefaultConfig()
	cfg.Pool = c.Pool
	cfg.Quality = c.Quality
	cfg.Extractor = c.Extractor
	cfg.Thresholds = season.LoadThresholds(c.Season.ThresholdsFile, logger)
	cfg.ExtractEveryNth = c.Pipeline.ExtractEveryNth
	cfg.DeviceBudget = int64(c.Pipeline.DeviceBudgetMB) << 20
	cfg.LogSampleRate = c.Pipeline.LogSampleRate
	cfg.SampleQueue = c.Pipeline.SampleQueue
	cfg.Thumbnail.Format = c.Output.ThumbnailFormat
	cfg.Thumbnail.MaxDim = c.Output.ThumbnailMaxDim
	cfg.Thumbnail.Quality = c.Output.ThumbnailQuality
	cfg.Thumbnail.CropToFace = c.Output.ThumbnailFace
	return cfg
}

// StylistAdvisorConfig converts the stylist section into an advisor config
func (c *Config) StylistAdvisorConfig() stylist.Config {
	cfg := stylist.DefaultConfig()
	if c.Stylist.Model != "" {
		cfg.Model = c.Stylist.Model
	}
	if c.Stylist.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(c.Stylist.TimeoutSeconds) * time.Second
	}
	cfg.AttachImage = c.Stylist.AttachImage
	return cfg
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "color-analyzer", "config.json")
}

func isYAML(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}

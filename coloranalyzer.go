// Package coloranalyzer provides real-time personal color analysis.
//
// A Pipeline takes camera frames together with the face segmentation mask
// and, optionally, the 468-point face mesh produced by an external model.
// Every frame is rated by the quality gate; acceptable frames are sampled
// for skin, hair and eye colors on the GPU and folded into smoothed
// estimates, from which a seasonal palette is classified on demand.
//
// Basic usage:
//
//	package main
//
//	import (
//		"fmt"
//		"log"
//
//		coloranalyzer "github.com/menta2k/color-analyzer"
//	)
//
//	func main() {
//		p := coloranalyzer.New()
//		defer p.Close()
//
//		for _, f := range frames {
//			report := p.ProcessFrame(f)
//			fmt.Println(report.Quality.Feedback)
//		}
//
//		p.Flush()
//		result, err := p.Result()
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Printf("%s (%.0f%%)\n", result.Season, result.Confidence*100)
//	}
//
// The package composes these components:
//
// 1. Pool (pkg/pool): bounded free lists of GPU buffers, textures and pixel buffers
// 2. Quality (pkg/quality): frame quality gate and user feedback
// 3. Extractor (pkg/extractor): mask and landmark guided color sampling with smoothing
// 4. Season (pkg/season): rule-based seasonal classification and contrast analysis
//
// Sample results are applied to the smoothed state by a single goroutine in
// the order their GPU work completes, which may differ from submission order.
package coloranalyzer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/menta2k/color-analyzer/internal/logger"
	"github.com/menta2k/color-analyzer/pkg/cropper"
	"github.com/menta2k/color-analyzer/pkg/extractor"
	"github.com/menta2k/color-analyzer/pkg/gpu"
	"github.com/menta2k/color-analyzer/pkg/pool"
	"github.com/menta2k/color-analyzer/pkg/processing"
	"github.com/menta2k/color-analyzer/pkg/quality"
	"github.com/menta2k/color-analyzer/pkg/season"
	"github.com/menta2k/color-analyzer/pkg/types"
)

// Version of the color analyzer library
const Version = "1.0.0"

// ErrClosed is reported for frames submitted after Close
var ErrClosed = errors.New("coloranalyzer: pipeline closed")

// ThumbnailConfig controls the preview image attached to results
type ThumbnailConfig struct {
	// Format is "webp", "jpeg" or "" to disable thumbnails
	Format  string `json:"format" yaml:"format"`
	MaxDim  int    `json:"maxDim" yaml:"maxDim"`
	Quality int    `json:"quality" yaml:"quality"`

	// CropToFace frames the thumbnail around the labelled face
	CropToFace bool               `json:"cropToFace" yaml:"cropToFace"`
	Crop       cropper.CropConfig `json:"crop" yaml:"crop"`
}

// Config holds the configuration of every pipeline stage
type Config struct {
	Pool       pool.Config       `json:"pool" yaml:"pool"`
	Quality    quality.Config    `json:"quality" yaml:"quality"`
	Extractor  extractor.Config  `json:"extractor" yaml:"extractor"`
	Thresholds season.Thresholds `json:"thresholds" yaml:"thresholds"`
	Thumbnail  ThumbnailConfig   `json:"thumbnail" yaml:"thumbnail"`

	// ExtractEveryNth runs color extraction on one in N accepted frames
	ExtractEveryNth int `json:"extractEveryNth" yaml:"extractEveryNth"`
	// DeviceBudget is the memory budget in bytes of the default software device
	DeviceBudget int64 `json:"deviceBudget" yaml:"deviceBudget"`
	// LogSampleRate logs one in N frames; 0 logs every frame
	LogSampleRate int `json:"logSampleRate" yaml:"logSampleRate"`
	// SampleQueue is the number of completed samples buffered for the state owner
	SampleQueue int `json:"sampleQueue" yaml:"sampleQueue"`
}

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() Config {
	return Config{
		Pool:       pool.DefaultConfig(),
		Quality:    quality.DefaultConfig(),
		Extractor:  extractor.DefaultConfig(),
		Thresholds: season.DefaultThresholds(),
		Thumbnail: ThumbnailConfig{
			Format:     "webp",
			MaxDim:     256,
			Quality:    80,
			CropToFace: true,
			Crop:       cropper.DefaultConfig(),
		},
		ExtractEveryNth: 2,
		DeviceBudget:    256 << 20,
		LogSampleRate:   30,
		SampleQueue:     16,
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c Config) Validate() error {
	if c.ExtractEveryNth < 1 {
		return fmt.Errorf("extractEveryNth must be at least 1, got %d", c.ExtractEveryNth)
	}
	if c.Pool.Capacity < 0 {
		return fmt.Errorf("pool capacity must not be negative, got %d", c.Pool.Capacity)
	}
	if f := c.Extractor.SmoothingFactor; f <= 0 || f > 1 {
		return fmt.Errorf("smoothingFactor must be in (0,1], got %g", f)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}
	switch strings.ToLower(c.Thumbnail.Format) {
	case "", "webp", "jpeg", "jpg":
	default:
		return fmt.Errorf("unsupported thumbnail format %q", c.Thumbnail.Format)
	}
	return nil
}

// Pipeline is the analysis context. It owns the device resources, the
// per-stage components and the smoothed color state.
type Pipeline struct {
	config Config

	device     gpu.Device
	queue      gpu.CommandQueue
	pools      *pool.Set
	quality    *quality.Analyzer
	extractor  *extractor.Extractor
	classifier *season.Classifier
	processor  *processing.Processor
	cropper    *cropper.FaceCropper
	state      *extractor.State

	logger *log.Logger
	frames *logger.FrameLogger

	samples   chan sampleResult
	pending   sync.WaitGroup
	ownerDone chan struct{}
	onUpdate  atomic.Pointer[func(Update)]

	mu          sync.Mutex
	closed      bool
	accepted    uint64
	lastQuality types.QualityScore
	lastFrame   *Frame

	stats counters
}

// New creates a pipeline with default configuration on a software device
func New() *Pipeline {
	p, _ := NewWithConfig(DefaultConfig(), nil, nil)
	return p
}

// NewWithConfig creates a pipeline. A nil device creates a software device
// with cfg.DeviceBudget; a nil logger discards output.
func NewWithConfig(cfg Config, device gpu.Device, out *log.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if device == nil {
		device = gpu.NewSoftwareDevice(cfg.DeviceBudget)
	}
	if out == nil {
		out = log.New(io.Discard, "", 0)
	}

	pools := pool.NewSet(device, cfg.Pool)
	queue := device.NewCommandQueue()
	frames := logger.New(out, true, cfg.LogSampleRate)

	ex := extractor.NewWithConfig(cfg.Extractor, pools, queue)
	ex.SetLogger(warnLogger{frames})

	p := &Pipeline{
		config:     cfg,
		device:     device,
		queue:      queue,
		pools:      pools,
		quality:    quality.NewWithConfig(cfg.Quality),
		extractor:  ex,
		classifier: season.NewWithThresholds(cfg.Thresholds),
		processor:  processing.NewProcessor(),
		cropper:    cropper.NewWithConfig(cfg.Thumbnail.Crop),
		state:      extractor.NewState(cfg.Extractor.SmoothingFactor),
		logger:     out,
		frames:     frames,
		samples:    make(chan sampleResult, max(cfg.SampleQueue, 1)),
		ownerDone:  make(chan struct{}),
	}
	go p.own()
	return p, nil
}

// Config returns the pipeline configuration
func (p *Pipeline) Config() Config {
	return p.config
}

// Device returns the device the pipeline allocates from
func (p *Pipeline) Device() gpu.Device {
	return p.device
}

// SetUpdateHandler registers fn to be called after every applied sample.
// fn runs on the state owner goroutine and must not block. Passing nil
// removes the handler.
func (p *Pipeline) SetUpdateHandler(fn func(Update)) {
	if fn == nil {
		p.onUpdate.Store(nil)
		return
	}
	p.onUpdate.Store(&fn)
}

// Estimates returns the current smoothed colors
func (p *Pipeline) Estimates() extractor.Estimates {
	return p.state.Estimates()
}

// Reset forgets the smoothed colors and the last accepted frame
func (p *Pipeline) Reset() {
	p.Flush()
	p.state.Reset()
	p.mu.Lock()
	p.accepted = 0
	p.lastQuality = types.QualityScore{}
	p.lastFrame = nil
	p.mu.Unlock()
}

// Flush blocks until every submitted frame has been applied to the state
func (p *Pipeline) Flush() {
	p.pending.Wait()
}

// PoolStats returns a snapshot of the resource pools keyed by kind
func (p *Pipeline) PoolStats() map[string]pool.Stats {
	return p.pools.Stats()
}

// HandleMemoryWarning releases every pooled resource and the device texture
// cache. Resources in flight are unaffected and return to the emptied pools.
func (p *Pipeline) HandleMemoryWarning() {
	before := p.pools.Stats()
	p.pools.Clear()
	p.device.FlushTextureCache()

	free := 0
	for _, s := range before {
		free += s.Free
	}
	p.frames.Warnf("memory pressure: released %d pooled resources", free)
}

// Close waits for in-flight frames, stops the state owner and releases the
// pools. Frames processed after Close report ErrClosed.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.pending.Wait()
	close(p.samples)
	<-p.ownerDone

	p.pools.Clear()
	p.frames.Stop()
	return nil
}

// warnLogger routes extractor diagnostics to the frame logger's warnings
type warnLogger struct {
	fl *logger.FrameLogger
}

func (w warnLogger) Printf(format string, args ...any) {
	w.fl.Warnf(strings.TrimPrefix(format, "warning: "), args...)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

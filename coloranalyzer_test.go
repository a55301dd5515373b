package coloranalyzer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/chai2010/webp"

	"github.com/menta2k/color-analyzer/pkg/colorspace"
	"github.com/menta2k/color-analyzer/pkg/extractor"
	"github.com/menta2k/color-analyzer/pkg/gpu"
	"github.com/menta2k/color-analyzer/pkg/season"
	"github.com/menta2k/color-analyzer/pkg/segmentation"
	"github.com/menta2k/color-analyzer/pkg/types"
)

var (
	skinColor  = color.RGBA{220, 180, 150, 255}
	hairColor  = color.RGBA{40, 25, 15, 255}
	background = color.RGBA{128, 128, 128, 255}
)

const frameSize = 64

// createTestFace returns a frame with hair in the top rows, a centered
// skin square and a gray background, plus the matching mask
func createTestFace(t testing.TB, skinFrom, skinTo int) (image.Image, *segmentation.Mask) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, frameSize, frameSize))
	data := make([]uint8, frameSize*frameSize)
	for y := 0; y < frameSize; y++ {
		for x := 0; x < frameSize; x++ {
			switch {
			case y < 8:
				img.SetRGBA(x, y, hairColor)
				data[y*frameSize+x] = uint8(segmentation.Hair)
			case x >= skinFrom && x < skinTo && y >= skinFrom && y < skinTo:
				img.SetRGBA(x, y, skinColor)
				data[y*frameSize+x] = uint8(segmentation.Skin)
			default:
				img.SetRGBA(x, y, background)
			}
		}
	}
	mask, err := segmentation.NewMask(frameSize, frameSize, data)
	if err != nil {
		t.Fatalf("Failed to create mask: %v", err)
	}
	return img, mask
}

func createTestPipeline(t testing.TB, mutate func(*Config), device gpu.Device) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := NewWithConfig(cfg, device, nil)
	if err != nil {
		t.Fatalf("NewWithConfig failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestNew(t *testing.T) {
	p := New()
	defer p.Close()

	if p.Config().ExtractEveryNth != 2 {
		t.Errorf("Expected default throttle of 2, got %d", p.Config().ExtractEveryNth)
	}
	if GetVersion() != Version {
		t.Errorf("Expected version %s, got %s", Version, GetVersion())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero throttle", func(c *Config) { c.ExtractEveryNth = 0 }},
		{"negative capacity", func(c *Config) { c.Pool.Capacity = -1 }},
		{"zero smoothing", func(c *Config) { c.Extractor.SmoothingFactor = 0 }},
		{"bad thumbnail", func(c *Config) { c.Thumbnail.Format = "gif" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := NewWithConfig(cfg, nil, nil); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestProcessFrameEndToEnd(t *testing.T) {
	p := createTestPipeline(t, nil, nil)
	img, mask := createTestFace(t, 16, 48)

	report := p.ProcessFrame(Frame{Image: img, Mask: mask})
	if report.Status != FrameSubmitted {
		t.Fatalf("Expected submitted frame, got %s (%v, %+v)", report.Status, report.Err, report.Quality)
	}
	if !report.Quality.IsAcceptable {
		t.Errorf("Expected acceptable quality, got %+v", report.Quality)
	}
	p.Flush()

	est := p.Estimates()
	if !est.Skin.Valid || !est.Hair.Valid {
		t.Fatalf("Expected skin and hair estimates, got %+v", est)
	}
	if est.Skin.RGB != (types.RGB{R: 220, G: 180, B: 150}) {
		t.Errorf("Expected first sample to be taken as is, got %+v", est.Skin.RGB)
	}

	result, err := p.Result()
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if result.Season != types.Spring {
		t.Errorf("Expected spring, got %s", result.Season)
	}
	if result.SkinHex != "#dcb496" || result.HairHex != "#28190f" {
		t.Errorf("Unexpected hex colors %s / %s", result.SkinHex, result.HairHex)
	}
	if result.ContrastLevel != types.ContrastHigh {
		t.Errorf("Expected high contrast, got %s (%.1f)", result.ContrastLevel, result.ContrastValue)
	}
	if result.ThumbnailFormat != "webp" {
		t.Fatalf("Expected webp thumbnail, got %q", result.ThumbnailFormat)
	}
	thumb, err := webp.Decode(bytes.NewReader(result.Thumbnail))
	if err != nil {
		t.Fatalf("Thumbnail does not decode: %v", err)
	}
	if b := thumb.Bounds(); b.Dx() != b.Dy() {
		t.Errorf("Expected square face thumbnail, got %dx%d", b.Dx(), b.Dy())
	}

	stats := p.Stats()
	if stats.Submitted != 1 || stats.Extracted != 1 || stats.CPUFallbacks != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestFrameThrottle(t *testing.T) {
	p := createTestPipeline(t, nil, nil)
	img, mask := createTestFace(t, 16, 48)

	var statuses []FrameStatus
	for i := 0; i < 5; i++ {
		statuses = append(statuses, p.ProcessFrame(Frame{Image: img, Mask: mask}).Status)
	}
	p.Flush()

	want := []FrameStatus{FrameSubmitted, FrameSkipped, FrameSubmitted, FrameSkipped, FrameSubmitted}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("Frame %d: expected %s, got %s", i+1, want[i], statuses[i])
		}
	}
	if s := p.Stats(); s.Extracted != 3 || s.Skipped != 2 {
		t.Errorf("Unexpected stats %+v", s)
	}
}

func TestRejectedFrame(t *testing.T) {
	p := createTestPipeline(t, nil, nil)
	img, mask := createTestFace(t, 30, 34)

	report := p.ProcessFrame(Frame{Image: img, Mask: mask})
	if report.Status != FrameRejected {
		t.Fatalf("Expected rejected frame, got %s", report.Status)
	}
	if report.Quality.Feedback == "" {
		t.Error("Expected feedback for a rejected frame")
	}
	p.Flush()

	if _, err := p.Classify(); !errors.Is(err, season.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestProcessFrameFailures(t *testing.T) {
	p := createTestPipeline(t, nil, nil)
	_, mask := createTestFace(t, 16, 48)

	if r := p.ProcessFrame(Frame{}); r.Status != FrameFailed || r.Err == nil {
		t.Errorf("Expected failure without mask or landmarks, got %s", r.Status)
	}
	if r := p.ProcessFrame(Frame{Mask: mask}); r.Status != FrameFailed || r.Err == nil {
		t.Errorf("Expected failure without pixels, got %s", r.Status)
	}
	if s := p.Stats(); s.Failed != 2 || s.Submitted != 0 {
		t.Errorf("Unexpected stats %+v", s)
	}
}

func TestTextureFrame(t *testing.T) {
	device := gpu.NewSoftwareDevice(0)
	p := createTestPipeline(t, func(c *Config) { c.Thumbnail.Format = "" }, device)
	img, mask := createTestFace(t, 16, 48)

	tex, err := device.NewTexture(gpu.TextureDescriptor{Width: frameSize, Height: frameSize, Format: gpu.FormatBGRA8})
	if err != nil {
		t.Fatalf("NewTexture failed: %v", err)
	}
	if err := tex.Upload(img); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	report := p.ProcessFrame(Frame{Texture: tex, Mask: mask})
	if report.Status != FrameSubmitted {
		t.Fatalf("Expected submitted frame, got %s (%v)", report.Status, report.Err)
	}
	p.Flush()

	if est := p.Estimates(); est.Skin.RGB != (types.RGB{R: 220, G: 180, B: 150}) {
		t.Errorf("Expected BGRA texture to be read correctly, got %+v", est.Skin.RGB)
	}
	result, err := p.Result()
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if len(result.Thumbnail) != 0 {
		t.Error("Expected no thumbnail when disabled")
	}
}

func TestDeviceExhaustionFallsBack(t *testing.T) {
	p := createTestPipeline(t, nil, gpu.NewSoftwareDevice(1024))
	img, mask := createTestFace(t, 16, 48)

	report := p.ProcessFrame(Frame{Image: img, Mask: mask})
	if report.Status != FrameSubmitted {
		t.Fatalf("Expected submitted frame, got %s (%v)", report.Status, report.Err)
	}
	p.Flush()

	if s := p.Stats(); s.CPUFallbacks != 1 || s.Extracted != 1 {
		t.Errorf("Expected one CPU sample, got %+v", s)
	}
	if !p.Estimates().Skin.Valid {
		t.Error("Expected skin estimate from the host fallback")
	}
}

func TestHandleMemoryWarning(t *testing.T) {
	device := gpu.NewSoftwareDevice(0)
	p := createTestPipeline(t, nil, device)
	img, mask := createTestFace(t, 16, 48)

	p.ProcessFrame(Frame{Image: img, Mask: mask})
	p.Flush()

	stats := p.PoolStats()
	if stats["buffers"].Free != 1 || stats["textures"].Free != 1 {
		t.Fatalf("Expected recycled buffer and texture, got %+v", stats)
	}

	p.HandleMemoryWarning()

	for kind, s := range p.PoolStats() {
		if s.Free != 0 {
			t.Errorf("Expected empty %s pool, got %d free", kind, s.Free)
		}
	}
	if device.Allocated() != 0 {
		t.Errorf("Expected all device memory released, got %d bytes", device.Allocated())
	}
	if device.CacheFlushes() != 1 {
		t.Errorf("Expected texture cache flush, got %d", device.CacheFlushes())
	}
}

func TestPoolReuseAcrossFrames(t *testing.T) {
	p := createTestPipeline(t, func(c *Config) { c.ExtractEveryNth = 1 }, nil)
	img, mask := createTestFace(t, 16, 48)

	for i := 0; i < 10; i++ {
		p.ProcessFrame(Frame{Image: img, Mask: mask})
		p.Flush()
	}

	s := p.PoolStats()["buffers"]
	if s.Created != 1 || s.Reused != 9 {
		t.Errorf("Expected one buffer reused nine times, got %+v", s)
	}
}

func TestUpdatesApplyInCompletionOrder(t *testing.T) {
	p := createTestPipeline(t, nil, nil)

	var (
		mu   sync.Mutex
		seqs []uint64
	)
	p.SetUpdateHandler(func(u Update) {
		mu.Lock()
		seqs = append(seqs, u.Sequence)
		mu.Unlock()
	})

	measure := func(c types.RGB) extractor.Result {
		return extractor.Result{Sample: extractor.Sample{
			Skin: extractor.Measurement{Color: c, Count: 20, Valid: true},
		}}
	}
	first := types.RGB{R: 100, G: 100, B: 100}
	second := types.RGB{R: 200, G: 200, B: 200}

	// frame 2 completes before frame 1
	p.pending.Add(2)
	p.deliver(2, measure(first), nil)
	p.deliver(1, measure(second), nil)
	p.Flush()

	mu.Lock()
	defer mu.Unlock()
	if len(seqs) != 2 || seqs[0] != 2 || seqs[1] != 1 {
		t.Errorf("Expected updates in completion order [2 1], got %v", seqs)
	}
	want := extractor.Blend(first, second, p.Config().Extractor.SmoothingFactor)
	if got := p.Estimates().Skin.RGB; got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestClassifyUsesEstimateSnapshot(t *testing.T) {
	p := createTestPipeline(t, nil, nil)

	if _, err := p.Classify(); !errors.Is(err, season.ErrInsufficientData) {
		t.Fatalf("Expected ErrInsufficientData on empty state, got %v", err)
	}

	skin := types.RGB{R: 220, G: 180, B: 150}
	est := extractor.Estimates{Skin: types.ColorEstimate{RGB: skin, Valid: true}}
	got, err := p.classify(est)
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	lab := colorspace.Lab(skin)
	want, _ := season.NewWithThresholds(p.Config().Thresholds).Classify(&lab, nil)
	if got != want {
		t.Errorf("Expected %+v from the snapshot, got %+v", want, got)
	}
}

func TestEyeOnlySampleIsApplied(t *testing.T) {
	p := createTestPipeline(t, nil, nil)

	eye := types.RGB{R: 60, G: 110, B: 160}
	p.pending.Add(1)
	p.deliver(1, extractor.Result{Sample: extractor.Sample{
		LeftEye: extractor.Measurement{Color: eye, Count: 30, Valid: true},
	}}, nil)
	p.Flush()

	est := p.Estimates()
	if !est.LeftEye.Valid || est.LeftEye.RGB != eye {
		t.Errorf("Expected left eye %+v to be applied, got %+v", eye, est.LeftEye)
	}
	if stats := p.Stats(); stats.Extracted != 1 || stats.Failed != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestResetAndClose(t *testing.T) {
	p := createTestPipeline(t, nil, nil)
	img, mask := createTestFace(t, 16, 48)

	p.ProcessFrame(Frame{Image: img, Mask: mask})
	p.Reset()
	if _, err := p.Result(); !errors.Is(err, season.ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData after reset, got %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
	if r := p.ProcessFrame(Frame{Image: img, Mask: mask}); !errors.Is(r.Err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", r.Err)
	}
}

func BenchmarkProcessFrame(b *testing.B) {
	p := createTestPipeline(b, func(c *Config) { c.ExtractEveryNth = 1 }, nil)
	img, mask := createTestFace(b, 16, 48)
	f := Frame{Image: img, Mask: mask}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.ProcessFrame(f)
	}
	p.Flush()
}

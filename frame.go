package coloranalyzer

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"

	"github.com/menta2k/color-analyzer/pkg/extractor"
	"github.com/menta2k/color-analyzer/pkg/gpu"
	"github.com/menta2k/color-analyzer/pkg/segmentation"
	"github.com/menta2k/color-analyzer/pkg/types"
)

// Frame is one camera frame with its segmentation output. At least one of
// Image and Texture must be set for extraction; quality can be rated from
// the mask alone.
type Frame struct {
	// Image is the frame in host memory
	Image image.Image
	// Texture is the frame on the device. It must stay valid until Flush.
	Texture   *gpu.Texture
	Mask      *segmentation.Mask
	Landmarks *types.LandmarkSet
	Timestamp time.Time
}

// FrameStatus is the outcome of ProcessFrame
type FrameStatus string

const (
	// FrameRejected frames failed the quality gate
	FrameRejected FrameStatus = "rejected"
	// FrameSkipped frames passed the gate but were throttled
	FrameSkipped FrameStatus = "skipped"
	// FrameSubmitted frames were handed to the extractor
	FrameSubmitted FrameStatus = "submitted"
	// FrameFailed frames could not be evaluated or submitted; Err is set
	FrameFailed FrameStatus = "failed"
)

// FrameReport describes what happened to one frame
type FrameReport struct {
	Sequence uint64             `json:"sequence"`
	Status   FrameStatus        `json:"status"`
	Quality  types.QualityScore `json:"quality"`
	Err      error              `json:"-"`
}

// Update is delivered to the update handler after a sample is applied
type Update struct {
	Sequence  uint64              `json:"sequence"`
	Path      extractor.Path      `json:"path"`
	Estimates extractor.Estimates `json:"estimates"`
	Err       error               `json:"-"`
}

// Stats counts frames by outcome
type Stats struct {
	Frames       uint64 `json:"frames"`
	Rejected     uint64 `json:"rejected"`
	Skipped      uint64 `json:"skipped"`
	Submitted    uint64 `json:"submitted"`
	Extracted    uint64 `json:"extracted"`
	Failed       uint64 `json:"failed"`
	CPUFallbacks uint64 `json:"cpuFallbacks"`
}

type counters struct {
	frames, rejected, skipped, submitted, extracted, failed, cpu atomic.Uint64
}

type sampleResult struct {
	seq     uint64
	result  extractor.Result
	release func()
}

// Stats returns the frame counters
func (p *Pipeline) Stats() Stats {
	return Stats{
		Frames:       p.stats.frames.Load(),
		Rejected:     p.stats.rejected.Load(),
		Skipped:      p.stats.skipped.Load(),
		Submitted:    p.stats.submitted.Load(),
		Extracted:    p.stats.extracted.Load(),
		Failed:       p.stats.failed.Load(),
		CPUFallbacks: p.stats.cpu.Load(),
	}
}

// ProcessFrame rates f and, when it is acceptable and not throttled,
// submits it for color extraction. It never blocks on GPU work; per-frame
// errors are reported in the FrameReport.
func (p *Pipeline) ProcessFrame(f Frame) FrameReport {
	seq := p.stats.frames.Add(1)
	report := FrameReport{Sequence: seq}
	flog := p.frames.StartFrame()
	defer flog.Commit()

	score, err := p.quality.Evaluate(f.Image, f.Mask, f.Landmarks)
	report.Quality = score
	if err != nil {
		return p.fail(report, fmt.Errorf("quality: %w", err))
	}
	flog.Printf("quality %.2f (size %.2f position %.2f brightness %.2f sharpness %.2f) %q",
		score.Overall, score.FaceSize, score.FacePosition, score.Brightness, score.Sharpness, score.Feedback)

	if !score.IsAcceptable {
		p.stats.rejected.Add(1)
		report.Status = FrameRejected
		return report
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return p.fail(report, ErrClosed)
	}
	p.accepted++
	extract := (p.accepted-1)%uint64(p.config.ExtractEveryNth) == 0
	p.lastQuality = score
	if f.Image != nil {
		last := f
		p.lastFrame = &last
	}
	if extract {
		p.pending.Add(1)
	}
	p.mu.Unlock()

	if !extract {
		p.stats.skipped.Add(1)
		report.Status = FrameSkipped
		return report
	}

	if err := p.submit(seq, f); err != nil {
		p.pending.Done()
		return p.fail(report, err)
	}
	p.stats.submitted.Add(1)
	flog.Printf("submitted for extraction")
	report.Status = FrameSubmitted
	return report
}

func (p *Pipeline) fail(report FrameReport, err error) FrameReport {
	p.stats.failed.Add(1)
	report.Status = FrameFailed
	report.Err = err
	return report
}

// submit hands f to the extractor. A nil error means exactly one
// sampleResult will reach the owner goroutine.
func (p *Pipeline) submit(seq uint64, f Frame) error {
	in := extractor.InputFor(f.Mask, f.Landmarks)
	if f.Mask == nil {
		return extractor.ErrNoMask
	}

	tex, release := f.Texture, func() {}
	if tex == nil {
		if f.Image == nil {
			return errors.New("frame has neither image nor texture")
		}
		uploaded, err := p.upload(f.Image)
		if err != nil {
			// no device memory for the frame; sample it from host memory
			p.frames.Warnf("frame texture unavailable, sampling host image: %v", err)
			p.deliver(seq, p.sampleHost(f.Image, in), nil)
			return nil
		}
		tex = uploaded
		release = func() { p.pools.Textures.Recycle(uploaded) }
	}

	err := p.extractor.Submit(tex, in, func(r extractor.Result) {
		p.deliver(seq, r, release)
	})
	if err != nil {
		release()
		return err
	}
	return nil
}

func (p *Pipeline) upload(img image.Image) (*gpu.Texture, error) {
	b := img.Bounds()
	tex, err := p.pools.Textures.Get(gpu.TextureDescriptor{
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: gpu.FormatRGBA8,
		Usage:  gpu.UsageShaderRead,
	})
	if err != nil {
		return nil, err
	}
	if err := tex.Upload(img); err != nil {
		p.pools.Textures.Recycle(tex)
		return nil, err
	}
	return tex, nil
}

// sampleHost samples an image directly, bypassing the device
func (p *Pipeline) sampleHost(img image.Image, in extractor.SamplingInput) extractor.Result {
	src := imaging.Clone(img)
	b := src.Bounds()
	px, err := extractor.NewPixels(b.Dx(), b.Dy(), src.Stride, gpu.FormatRGBA8, src.Pix)
	if err != nil {
		return extractor.Result{Path: extractor.PathCPU, Err: err}
	}
	sample, err := p.extractor.Sample(px, in)
	return extractor.Result{Sample: sample, Path: extractor.PathCPU, Err: err}
}

func (p *Pipeline) deliver(seq uint64, r extractor.Result, release func()) {
	p.samples <- sampleResult{seq: seq, result: r, release: release}
}

// own is the only goroutine that applies samples to the state
func (p *Pipeline) own() {
	defer close(p.ownerDone)
	for msg := range p.samples {
		if msg.release != nil {
			msg.release()
		}
		p.apply(msg)
		p.pending.Done()
	}
}

func (p *Pipeline) apply(msg sampleResult) {
	r := msg.result
	if r.Path == extractor.PathCPU {
		p.stats.cpu.Add(1)
	}

	update := Update{Sequence: msg.seq, Path: r.Path, Err: r.Err}
	if r.Err != nil {
		p.stats.failed.Add(1)
		if !errors.Is(r.Err, extractor.ErrInsufficientData) {
			p.frames.Warnf("frame %d extraction failed: %v", msg.seq, r.Err)
		}
		update.Estimates = p.state.Estimates()
	} else {
		p.stats.extracted.Add(1)
		update.Estimates = p.state.Apply(r.Sample)
	}

	if fn := p.onUpdate.Load(); fn != nil {
		(*fn)(update)
	}
}

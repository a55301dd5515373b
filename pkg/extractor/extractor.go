// Package extractor turns GPU frames and segmentation output into smoothed
// skin, hair and eye colors.
//
// The GPU path copies the frame texture into a pooled shared buffer and
// samples it in the command buffer's completion handler, which also returns
// the buffer to its pool. When no buffer can be allocated the frame is read
// back at reduced resolution on the CPU instead.
package extractor

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"math"

	"github.com/menta2k/color-analyzer/pkg/gpu"
	"github.com/menta2k/color-analyzer/pkg/pool"
)

// Logger is the subset of *log.Logger the extractor writes to
type Logger interface {
	Printf(format string, args ...any)
}

// Path identifies how a frame was sampled
type Path string

const (
	PathGPU Path = "gpu"
	PathCPU Path = "cpu"
)

// Result is delivered once per submitted frame
type Result struct {
	Sample Sample
	Path   Path
	Err    error
}

// Extractor samples frames
type Extractor struct {
	config Config
	pools  *pool.Set
	queue  gpu.CommandQueue
	logger Logger
}

// New creates an Extractor with default configuration. pools and queue may
// be nil when only Sample is used.
func New(pools *pool.Set, queue gpu.CommandQueue) *Extractor {
	return NewWithConfig(DefaultConfig(), pools, queue)
}

// NewWithConfig creates an Extractor with custom configuration
func NewWithConfig(config Config, pools *pool.Set, queue gpu.CommandQueue) *Extractor {
	return &Extractor{
		config: config,
		pools:  pools,
		queue:  queue,
		logger: log.New(io.Discard, "", 0),
	}
}

// SetLogger sets the logger for per-frame diagnostics
func (e *Extractor) SetLogger(logger Logger) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	e.logger = logger
}

// Config returns the extractor configuration
func (e *Extractor) Config() Config {
	return e.config
}

// Submit samples tex against in. Validation failures are returned directly
// and done is not called. Otherwise done is called exactly once: from the
// GPU completion handler, or before Submit returns when the CPU fallback
// is used. tex must stay valid until done runs.
func (e *Extractor) Submit(tex *gpu.Texture, in SamplingInput, done func(Result)) error {
	if tex == nil {
		return errors.New("extract: nil texture")
	}
	if tex.Format() != gpu.FormatBGRA8 && tex.Format() != gpu.FormatRGBA8 {
		return fmt.Errorf("extract: unsupported texture format %s", tex.Format())
	}
	mask := Mask(in)
	if mask == nil {
		return ErrNoMask
	}
	if _, ok := mask.MapTo(tex.Width(), tex.Height()); !ok {
		return fmt.Errorf("%w: mask %dx%d, frame %dx%d",
			ErrDimensionMismatch, mask.Width(), mask.Height(), tex.Width(), tex.Height())
	}

	if e.pools == nil || e.queue == nil {
		done(e.sampleCPU(tex, in))
		return nil
	}

	bytesPerRow := tex.Width() * 4
	buf, err := e.pools.Buffers.Get(bytesPerRow*tex.Height(), gpu.StorageShared)
	if err != nil {
		e.logger.Printf("warning: frame buffer unavailable, sampling on CPU: %v", err)
		done(e.sampleCPU(tex, in))
		return nil
	}

	cb := e.queue.CommandBuffer()
	cb.CopyTextureToBuffer(tex, image.Rect(0, 0, tex.Width(), tex.Height()), buf, bytesPerRow)
	cb.AddCompletedHandler(func(cb gpu.CommandBuffer) {
		r := e.complete(cb, tex, in, buf, bytesPerRow)
		// all reads of buf are done
		e.pools.Buffers.Recycle(buf)
		done(r)
	})
	cb.Commit()
	return nil
}

func (e *Extractor) complete(cb gpu.CommandBuffer, tex *gpu.Texture, in SamplingInput, buf *gpu.Buffer, bytesPerRow int) Result {
	if err := cb.Err(); err != nil {
		return Result{Path: PathGPU, Err: fmt.Errorf("frame copy failed: %w", err)}
	}
	px, err := NewPixels(tex.Width(), tex.Height(), bytesPerRow, tex.Format(), buf.Contents())
	if err != nil {
		return Result{Path: PathGPU, Err: err}
	}
	sample, err := e.Sample(px, in)
	return Result{Sample: sample, Path: PathGPU, Err: err}
}

// sampleCPU reads tex at 1/FallbackScale resolution, one row at a time,
// into a small pixel buffer and samples that
func (e *Extractor) sampleCPU(tex *gpu.Texture, in SamplingInput) Result {
	scale := max(e.config.FallbackScale, 1)
	w := max(int(math.Round(float64(tex.Width())/float64(scale))), 1)
	h := max(int(math.Round(float64(tex.Height())/float64(scale))), 1)
	bytesPerRow := w * 4

	var (
		data    []byte
		release func()
	)
	if e.pools != nil {
		if pb, err := e.pools.PixelBuffers.Get(w, h, tex.Format()); err == nil {
			data = pb.Contents()
			release = func() { e.pools.PixelBuffers.Recycle(pb) }
		} else {
			e.logger.Printf("warning: pixel buffer unavailable, using heap: %v", err)
		}
	}
	if data == nil {
		data = make([]byte, bytesPerRow*h)
	}
	if release != nil {
		defer release()
	}

	row := make([]byte, tex.Width()*4)
	for y := 0; y < h; y++ {
		sy := (2*y + 1) * tex.Height() / (2 * h)
		if err := tex.GetBytes(row, len(row), image.Rect(0, sy, tex.Width(), sy+1)); err != nil {
			return Result{Path: PathCPU, Err: fmt.Errorf("frame readback failed: %w", err)}
		}
		dst := data[y*bytesPerRow : (y+1)*bytesPerRow]
		for x := 0; x < w; x++ {
			sx := (2*x + 1) * tex.Width() / (2 * w)
			copy(dst[x*4:x*4+4], row[sx*4:sx*4+4])
		}
	}

	px, err := NewPixels(w, h, bytesPerRow, tex.Format(), data)
	if err != nil {
		return Result{Path: PathCPU, Err: err}
	}
	sample, err := e.Sample(px, in)
	return Result{Sample: sample, Path: PathCPU, Err: err}
}

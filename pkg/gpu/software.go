package gpu

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
)

// SoftwareDevice is a Device backed by host memory. Every allocation is
// charged against a fixed budget; exceeding it fails with ErrOutOfMemory.
type SoftwareDevice struct {
	mu        sync.Mutex
	budget    int64
	allocated int64
	peak      int64

	// FlushTextureCache calls, for diagnostics
	cacheFlushes atomic.Int64
}

// NewSoftwareDevice creates a device with the given memory budget in bytes.
// A budget <= 0 means unlimited.
func NewSoftwareDevice(budget int64) *SoftwareDevice {
	return &SoftwareDevice{budget: budget}
}

// Name identifies the device
func (d *SoftwareDevice) Name() string {
	return "software"
}

// Allocated returns the number of bytes currently charged to the device
func (d *SoftwareDevice) Allocated() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocated
}

// Peak returns the highest number of bytes charged at once
func (d *SoftwareDevice) Peak() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.peak
}

// CacheFlushes returns how many times FlushTextureCache was called
func (d *SoftwareDevice) CacheFlushes() int64 {
	return d.cacheFlushes.Load()
}

func (d *SoftwareDevice) reserve(n int) (func(), error) {
	if n <= 0 {
		return nil, fmt.Errorf("gpu: invalid allocation size %d", n)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.budget > 0 && d.allocated+int64(n) > d.budget {
		return nil, fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrOutOfMemory, n, d.allocated, d.budget)
	}
	d.allocated += int64(n)
	if d.allocated > d.peak {
		d.peak = d.allocated
	}
	return func() {
		d.mu.Lock()
		d.allocated -= int64(n)
		d.mu.Unlock()
	}, nil
}

// NewBuffer allocates a buffer of length bytes
func (d *SoftwareDevice) NewBuffer(length int, options BufferOptions) (*Buffer, error) {
	release, err := d.reserve(length)
	if err != nil {
		return nil, err
	}
	b := &Buffer{length: length, options: options, data: make([]byte, length)}
	b.release = release
	return b, nil
}

// NewTexture allocates a texture
func (d *SoftwareDevice) NewTexture(desc TextureDescriptor) (*Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("gpu: invalid texture size %dx%d", desc.Width, desc.Height)
	}
	release, err := d.reserve(desc.Bytes())
	if err != nil {
		return nil, err
	}
	t := &Texture{desc: desc, data: make([]byte, desc.Bytes())}
	t.release = release
	return t, nil
}

// NewPixelBuffer allocates a CPU-visible pixel buffer
func (d *SoftwareDevice) NewPixelBuffer(width, height int, format PixelFormat) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gpu: invalid pixel buffer size %dx%d", width, height)
	}
	bytesPerRow := width * format.BytesPerPixel()
	release, err := d.reserve(bytesPerRow * height)
	if err != nil {
		return nil, err
	}
	p := &PixelBuffer{
		width:       width,
		height:      height,
		format:      format,
		bytesPerRow: bytesPerRow,
		data:        make([]byte, bytesPerRow*height),
	}
	p.release = release
	return p, nil
}

// NewCommandQueue creates a queue whose command buffers run on goroutines
func (d *SoftwareDevice) NewCommandQueue() CommandQueue {
	return &softwareQueue{}
}

// FlushTextureCache is a no-op for host memory; it is counted for diagnostics
func (d *SoftwareDevice) FlushTextureCache() {
	d.cacheFlushes.Add(1)
}

type softwareQueue struct{}

func (q *softwareQueue) CommandBuffer() CommandBuffer {
	return &softwareCommandBuffer{done: make(chan struct{})}
}

type softwareCommandBuffer struct {
	mu        sync.Mutex
	commands  []func() error
	handlers  []func(CommandBuffer)
	committed bool
	err       error
	done      chan struct{}
}

func (cb *softwareCommandBuffer) CopyTextureToBuffer(src *Texture, region image.Rectangle, dst *Buffer, bytesPerRow int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.commands = append(cb.commands, func() error {
		if src == nil || dst == nil {
			return fmt.Errorf("gpu: copy with nil resource")
		}
		if bytesPerRow*region.Dy() > dst.Length() {
			return fmt.Errorf("gpu: destination buffer of %d bytes too small for %v at %d bytes/row",
				dst.Length(), region, bytesPerRow)
		}
		return src.GetBytes(dst.Contents(), bytesPerRow, region)
	})
}

func (cb *softwareCommandBuffer) AddCompletedHandler(h func(CommandBuffer)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.handlers = append(cb.handlers, h)
}

func (cb *softwareCommandBuffer) Commit() {
	cb.mu.Lock()
	if cb.committed {
		cb.mu.Unlock()
		return
	}
	cb.committed = true
	commands := cb.commands
	handlers := cb.handlers
	cb.mu.Unlock()

	go func() {
		var err error
		for _, cmd := range commands {
			if err = cmd(); err != nil {
				break
			}
		}
		cb.mu.Lock()
		cb.err = err
		cb.mu.Unlock()

		for _, h := range handlers {
			h(cb)
		}
		close(cb.done)
	}()
}

func (cb *softwareCommandBuffer) WaitUntilCompleted() {
	<-cb.done
}

func (cb *softwareCommandBuffer) Err() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.err
}

package pool

import (
	"github.com/menta2k/color-analyzer/pkg/gpu"
)

// BufferKey identifies interchangeable buffers
type BufferKey struct {
	Length  int
	Options gpu.BufferOptions
}

// TextureKey identifies interchangeable textures
type TextureKey struct {
	Width  int
	Height int
	Format gpu.PixelFormat
	Usage  gpu.Usage
}

// PixelBufferKey identifies interchangeable pixel buffers
type PixelBufferKey struct {
	Width  int
	Height int
	Format gpu.PixelFormat
}

// BufferPool pools device buffers by length and storage options
type BufferPool struct {
	*Keyed[BufferKey, *gpu.Buffer]
}

// NewBufferPool creates a buffer pool allocating from device
func NewBufferPool(device gpu.Device, capacity int) *BufferPool {
	return &BufferPool{NewKeyed(capacity,
		func(k BufferKey) (*gpu.Buffer, error) {
			return device.NewBuffer(k.Length, k.Options)
		},
		func(b *gpu.Buffer) BufferKey {
			return BufferKey{Length: b.Length(), Options: b.Options()}
		},
		(*gpu.Buffer).Release,
	)}
}

// Get checks out a buffer of exactly length bytes with the given options.
// Free buffers of any other length or options are never handed out.
func (p *BufferPool) Get(length int, options gpu.BufferOptions) (*gpu.Buffer, error) {
	return p.Checkout(BufferKey{Length: length, Options: options})
}

// TexturePool pools device textures by size, format and usage
type TexturePool struct {
	*Keyed[TextureKey, *gpu.Texture]
}

// NewTexturePool creates a texture pool allocating from device
func NewTexturePool(device gpu.Device, capacity int) *TexturePool {
	return &TexturePool{NewKeyed(capacity,
		func(k TextureKey) (*gpu.Texture, error) {
			return device.NewTexture(gpu.TextureDescriptor{Width: k.Width, Height: k.Height, Format: k.Format, Usage: k.Usage})
		},
		func(t *gpu.Texture) TextureKey {
			d := t.Descriptor()
			return TextureKey{Width: d.Width, Height: d.Height, Format: d.Format, Usage: d.Usage}
		},
		(*gpu.Texture).Release,
	)}
}

// Get checks out a texture matching the descriptor
func (p *TexturePool) Get(desc gpu.TextureDescriptor) (*gpu.Texture, error) {
	return p.Checkout(TextureKey{Width: desc.Width, Height: desc.Height, Format: desc.Format, Usage: desc.Usage})
}

// PixelBufferPool pools CPU-visible output pixel buffers
type PixelBufferPool struct {
	*Keyed[PixelBufferKey, *gpu.PixelBuffer]
}

// NewPixelBufferPool creates a pixel buffer pool allocating from device
func NewPixelBufferPool(device gpu.Device, capacity int) *PixelBufferPool {
	return &PixelBufferPool{NewKeyed(capacity,
		func(k PixelBufferKey) (*gpu.PixelBuffer, error) {
			return device.NewPixelBuffer(k.Width, k.Height, k.Format)
		},
		func(p *gpu.PixelBuffer) PixelBufferKey {
			return PixelBufferKey{Width: p.Width(), Height: p.Height(), Format: p.Format()}
		},
		(*gpu.PixelBuffer).Release,
	)}
}

// Get checks out a pixel buffer of the given size and format
func (p *PixelBufferPool) Get(width, height int, format gpu.PixelFormat) (*gpu.PixelBuffer, error) {
	return p.Checkout(PixelBufferKey{Width: width, Height: height, Format: format})
}

// Set bundles the three resource pools owned by one pipeline
type Set struct {
	Buffers      *BufferPool
	Textures     *TexturePool
	PixelBuffers *PixelBufferPool
}

// NewSet creates buffer, texture and pixel buffer pools on device
func NewSet(device gpu.Device, cfg Config) *Set {
	return &Set{
		Buffers:      NewBufferPool(device, cfg.Capacity),
		Textures:     NewTexturePool(device, cfg.Capacity),
		PixelBuffers: NewPixelBufferPool(device, cfg.Capacity),
	}
}

// Clear drops the free lists of every pool
func (s *Set) Clear() {
	s.Buffers.Clear()
	s.Textures.Clear()
	s.PixelBuffers.Clear()
}

// Stats returns per-pool statistics keyed by pool name
func (s *Set) Stats() map[string]Stats {
	return map[string]Stats{
		"buffers":      s.Buffers.Stats(),
		"textures":     s.Textures.Stats(),
		"pixelBuffers": s.PixelBuffers.Stats(),
	}
}

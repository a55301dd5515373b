// Package gpu describes the small slice of a GPU API the color pipeline
// needs: shared-storage buffers, textures, CPU-visible pixel buffers and a
// command queue whose command buffers complete asynchronously.
//
// SoftwareDevice implements it on top of host memory with a fixed memory
// budget, so allocation failure and completion ordering behave like a real
// device.
package gpu

import (
	"errors"
	"fmt"
	"image"
)

// ErrOutOfMemory is returned when the device cannot satisfy an allocation
var ErrOutOfMemory = errors.New("gpu: out of memory")

// PixelFormat identifies the memory layout of one pixel
type PixelFormat int

const (
	FormatBGRA8 PixelFormat = iota
	FormatRGBA8
	FormatR8
)

// BytesPerPixel returns the size of one pixel in bytes
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatR8:
		return 1
	default:
		return 4
	}
}

func (f PixelFormat) String() string {
	switch f {
	case FormatBGRA8:
		return "bgra8"
	case FormatRGBA8:
		return "rgba8"
	case FormatR8:
		return "r8"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Usage is a bit set describing how a texture is accessed
type Usage uint8

const (
	UsageShaderRead Usage = 1 << iota
	UsageShaderWrite
	UsageRenderTarget
)

// BufferOptions selects buffer storage and caching behavior
type BufferOptions uint8

const (
	StorageShared BufferOptions = iota
	StoragePrivate
	StorageManaged
)

// TextureDescriptor describes a texture allocation
type TextureDescriptor struct {
	Width  int
	Height int
	Format PixelFormat
	Usage  Usage
}

// Bytes returns the allocation size for the descriptor
func (d TextureDescriptor) Bytes() int {
	return d.Width * d.Height * d.Format.BytesPerPixel()
}

// Bounds returns the texture rectangle anchored at the origin
func (d TextureDescriptor) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.Width, d.Height)
}

// Device allocates GPU resources and command queues
type Device interface {
	Name() string
	NewBuffer(length int, options BufferOptions) (*Buffer, error)
	NewTexture(desc TextureDescriptor) (*Texture, error)
	NewPixelBuffer(width, height int, format PixelFormat) (*PixelBuffer, error)
	NewCommandQueue() CommandQueue
	// FlushTextureCache drops any cached texture views the device keeps
	FlushTextureCache()
}

// CommandQueue creates command buffers. Committed buffers run concurrently;
// completion order is not guaranteed to match submission order.
type CommandQueue interface {
	CommandBuffer() CommandBuffer
}

// CommandBuffer records work and runs it after Commit. Completed handlers are
// invoked on a background goroutine once every recorded command has finished.
type CommandBuffer interface {
	CopyTextureToBuffer(src *Texture, region image.Rectangle, dst *Buffer, bytesPerRow int)
	AddCompletedHandler(func(CommandBuffer))
	Commit()
	WaitUntilCompleted()
	Err() error
}

package gpu

import (
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
)

// allocation ties a resource to the device budget it was charged against
type allocation struct {
	once    sync.Once
	release func()
}

func (a *allocation) free() {
	if a.release == nil {
		return
	}
	a.once.Do(a.release)
}

// Buffer is a linear GPU allocation. Shared-storage buffers expose their
// contents to the CPU.
type Buffer struct {
	allocation
	length  int
	options BufferOptions
	data    []byte
}

// Length returns the buffer size in bytes
func (b *Buffer) Length() int { return b.length }

// Options returns the storage options the buffer was created with
func (b *Buffer) Options() BufferOptions { return b.options }

// Contents returns the CPU-visible bytes of the buffer
func (b *Buffer) Contents() []byte { return b.data }

// Release returns the buffer memory to the device
func (b *Buffer) Release() { b.free() }

// Texture is a 2-D image in device memory with tightly packed rows
type Texture struct {
	allocation
	desc TextureDescriptor
	data []byte
}

// Descriptor returns the allocation parameters of the texture
func (t *Texture) Descriptor() TextureDescriptor { return t.desc }

// Width returns the texture width in pixels
func (t *Texture) Width() int { return t.desc.Width }

// Height returns the texture height in pixels
func (t *Texture) Height() int { return t.desc.Height }

// Format returns the texture pixel format
func (t *Texture) Format() PixelFormat { return t.desc.Format }

// Release returns the texture memory to the device
func (t *Texture) Release() { t.free() }

func (t *Texture) stride() int {
	return t.desc.Width * t.desc.Format.BytesPerPixel()
}

// ReplaceRegion uploads bytes laid out with bytesPerRow into region
func (t *Texture) ReplaceRegion(region image.Rectangle, src []byte, bytesPerRow int) error {
	if !region.In(t.desc.Bounds()) {
		return fmt.Errorf("gpu: region %v outside texture %v", region, t.desc.Bounds())
	}
	bpp := t.desc.Format.BytesPerPixel()
	rowBytes := region.Dx() * bpp
	if bytesPerRow < rowBytes || len(src) < bytesPerRow*(region.Dy()-1)+rowBytes {
		return fmt.Errorf("gpu: source too small for region %v", region)
	}
	for y := 0; y < region.Dy(); y++ {
		dst := (region.Min.Y+y)*t.stride() + region.Min.X*bpp
		copy(t.data[dst:dst+rowBytes], src[y*bytesPerRow:y*bytesPerRow+rowBytes])
	}
	return nil
}

// GetBytes reads region into dst using bytesPerRow. This is a synchronous
// CPU readback and is only used when no copy buffer is available.
func (t *Texture) GetBytes(dst []byte, bytesPerRow int, region image.Rectangle) error {
	if !region.In(t.desc.Bounds()) {
		return fmt.Errorf("gpu: region %v outside texture %v", region, t.desc.Bounds())
	}
	bpp := t.desc.Format.BytesPerPixel()
	rowBytes := region.Dx() * bpp
	if bytesPerRow < rowBytes || len(dst) < bytesPerRow*(region.Dy()-1)+rowBytes {
		return fmt.Errorf("gpu: destination too small for region %v", region)
	}
	for y := 0; y < region.Dy(); y++ {
		src := (region.Min.Y+y)*t.stride() + region.Min.X*bpp
		copy(dst[y*bytesPerRow:y*bytesPerRow+rowBytes], t.data[src:src+rowBytes])
	}
	return nil
}

// Upload converts img into the texture's pixel format. The image must have
// the same dimensions as the texture.
func (t *Texture) Upload(img image.Image) error {
	b := img.Bounds()
	if b.Dx() != t.desc.Width || b.Dy() != t.desc.Height {
		return fmt.Errorf("gpu: image %dx%d does not match texture %dx%d",
			b.Dx(), b.Dy(), t.desc.Width, t.desc.Height)
	}

	src := imaging.Clone(img)
	switch t.desc.Format {
	case FormatRGBA8:
		return t.ReplaceRegion(t.desc.Bounds(), src.Pix, src.Stride)
	case FormatBGRA8:
		for y := 0; y < t.desc.Height; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+t.desc.Width*4]
			dst := t.data[y*t.stride() : (y+1)*t.stride()]
			for x := 0; x < len(row); x += 4 {
				dst[x+0] = row[x+2]
				dst[x+1] = row[x+1]
				dst[x+2] = row[x+0]
				dst[x+3] = row[x+3]
			}
		}
		return nil
	case FormatR8:
		gray := imaging.Grayscale(src)
		for y := 0; y < t.desc.Height; y++ {
			for x := 0; x < t.desc.Width; x++ {
				t.data[y*t.stride()+x] = gray.Pix[y*gray.Stride+x*4]
			}
		}
		return nil
	default:
		return fmt.Errorf("gpu: unsupported texture format %s", t.desc.Format)
	}
}

// PixelBuffer is a CPU-visible image buffer used as an output target
type PixelBuffer struct {
	allocation
	width       int
	height      int
	format      PixelFormat
	bytesPerRow int
	data        []byte
}

// Width returns the buffer width in pixels
func (p *PixelBuffer) Width() int { return p.width }

// Height returns the buffer height in pixels
func (p *PixelBuffer) Height() int { return p.height }

// Format returns the pixel format of the buffer
func (p *PixelBuffer) Format() PixelFormat { return p.format }

// BytesPerRow returns the row stride in bytes
func (p *PixelBuffer) BytesPerRow() int { return p.bytesPerRow }

// Contents returns the pixel bytes
func (p *PixelBuffer) Contents() []byte { return p.data }

// Release returns the pixel buffer memory to the device
func (p *PixelBuffer) Release() { p.free() }

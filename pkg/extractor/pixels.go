package extractor

import (
	"fmt"

	"github.com/menta2k/color-analyzer/pkg/gpu"
)

// Pixels is a CPU-readable view of a frame with 4-byte pixels
type Pixels struct {
	Width       int
	Height      int
	BytesPerRow int
	Format      gpu.PixelFormat
	Data        []byte
}

// NewPixels validates a pixel view
func NewPixels(width, height, bytesPerRow int, format gpu.PixelFormat, data []byte) (Pixels, error) {
	if format != gpu.FormatBGRA8 && format != gpu.FormatRGBA8 {
		return Pixels{}, fmt.Errorf("unsupported pixel format %s", format)
	}
	if width <= 0 || height <= 0 || bytesPerRow < width*4 {
		return Pixels{}, fmt.Errorf("invalid pixel layout %dx%d at %d bytes/row", width, height, bytesPerRow)
	}
	if len(data) < bytesPerRow*(height-1)+width*4 {
		return Pixels{}, fmt.Errorf("pixel data has %d bytes, need %d", len(data), bytesPerRow*height)
	}
	return Pixels{Width: width, Height: height, BytesPerRow: bytesPerRow, Format: format, Data: data}, nil
}

// At returns the 8-bit RGB value at (x, y)
func (p Pixels) At(x, y int) [3]uint8 {
	i := y*p.BytesPerRow + x*4
	if p.Format == gpu.FormatBGRA8 {
		return [3]uint8{p.Data[i+2], p.Data[i+1], p.Data[i]}
	}
	return [3]uint8{p.Data[i], p.Data[i+1], p.Data[i+2]}
}

func brightness(px [3]uint8) float64 {
	return (float64(px[0]) + float64(px[1]) + float64(px[2])) / (3 * 255)
}

func saturation(px [3]uint8) float64 {
	hi := max(px[0], px[1], px[2])
	if hi == 0 {
		return 0
	}
	lo := min(px[0], px[1], px[2])
	return float64(hi-lo) / float64(hi)
}

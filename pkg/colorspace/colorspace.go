// Package colorspace converts between sRGB, linear RGB, CIE XYZ (D65) and
// CIELAB, and measures perceptual color differences.
package colorspace

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/menta2k/color-analyzer/pkg/types"
)

// D65 reference white, Y normalized to 1
const (
	whiteX = 0.95047
	whiteY = 1.00000
	whiteZ = 1.08883
)

const (
	labEpsilon = 0.008856
	labKappa   = 903.3
)

// sRGB (D65) to XYZ
var rgbToXYZ = [3][3]float64{
	{0.4124564, 0.3575761, 0.1804375},
	{0.2126729, 0.7151522, 0.0721750},
	{0.0193339, 0.1191920, 0.9503041},
}

// XYZ to sRGB (D65)
var xyzToRGB = [3][3]float64{
	{3.2404542, -1.5371385, -0.4985314},
	{-0.9692660, 1.8760108, 0.0415560},
	{0.0556434, -0.2040259, 1.0572252},
}

// SRGBToLinear removes the sRGB transfer curve from a [0,1] channel
func SRGBToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// LinearToSRGB applies the sRGB transfer curve to a linear [0,1] channel
func LinearToSRGB(c float64) float64 {
	if c <= 0.0031308 {
		return 12.92 * c
	}
	return 1.055*math.Pow(c, 1/2.4) - 0.055
}

// RGBToXYZ converts sRGB channels in [0,1] to XYZ with Y in [0,1]
func RGBToXYZ(r, g, b float64) (x, y, z float64) {
	lr, lg, lb := SRGBToLinear(r), SRGBToLinear(g), SRGBToLinear(b)
	x = rgbToXYZ[0][0]*lr + rgbToXYZ[0][1]*lg + rgbToXYZ[0][2]*lb
	y = rgbToXYZ[1][0]*lr + rgbToXYZ[1][1]*lg + rgbToXYZ[1][2]*lb
	z = rgbToXYZ[2][0]*lr + rgbToXYZ[2][1]*lg + rgbToXYZ[2][2]*lb
	return x, y, z
}

// XYZToRGB converts XYZ back to sRGB channels, clamped to [0,1]
func XYZToRGB(x, y, z float64) (r, g, b float64) {
	lr := xyzToRGB[0][0]*x + xyzToRGB[0][1]*y + xyzToRGB[0][2]*z
	lg := xyzToRGB[1][0]*x + xyzToRGB[1][1]*y + xyzToRGB[1][2]*z
	lb := xyzToRGB[2][0]*x + xyzToRGB[2][1]*y + xyzToRGB[2][2]*z
	return clamp01(LinearToSRGB(clamp01(lr))), clamp01(LinearToSRGB(clamp01(lg))), clamp01(LinearToSRGB(clamp01(lb)))
}

// XYZToLab converts XYZ (relative to the D65 white point) to CIELAB
func XYZToLab(x, y, z float64) types.LabColor {
	fx := labF(x / whiteX)
	fy := labF(y / whiteY)
	fz := labF(z / whiteZ)
	return types.LabColor{
		L: 116*fy - 16,
		A: 500 * (fx - fy),
		B: 200 * (fy - fz),
	}
}

// LabToXYZ is the inverse of XYZToLab
func LabToXYZ(lab types.LabColor) (x, y, z float64) {
	fy := (lab.L + 16) / 116
	fx := lab.A/500 + fy
	fz := fy - lab.B/200

	xr := fx * fx * fx
	if xr <= labEpsilon {
		xr = (116*fx - 16) / labKappa
	}
	var yr float64
	if lab.L > labKappa*labEpsilon {
		yr = fy * fy * fy
	} else {
		yr = lab.L / labKappa
	}
	zr := fz * fz * fz
	if zr <= labEpsilon {
		zr = (116*fz - 16) / labKappa
	}
	return xr * whiteX, yr * whiteY, zr * whiteZ
}

// RGBToLab converts sRGB channels in [0,1] to CIELAB
func RGBToLab(r, g, b float64) types.LabColor {
	return XYZToLab(RGBToXYZ(r, g, b))
}

// LabToRGB converts CIELAB to sRGB channels in [0,1]. Out-of-gamut colors are clamped.
func LabToRGB(lab types.LabColor) (r, g, b float64) {
	return XYZToRGB(LabToXYZ(lab))
}

// Lab converts a 0-255 color to CIELAB
func Lab(c types.RGB) types.LabColor {
	return RGBToLab(c.Normalized())
}

// FromLab converts CIELAB to a 0-255 color
func FromLab(lab types.LabColor) types.RGB {
	r, g, b := LabToRGB(lab)
	return types.RGB{R: r * 255, G: g * 255, B: b * 255}
}

// HSV decomposes a 0-255 color into hue, saturation and value
func HSV(c types.RGB) types.HSV {
	h, s, v := toColorful(c).Hsv()
	return types.HSV{H: h, S: s, V: v}
}

// Hex renders a 0-255 color as #rrggbb
func Hex(c types.RGB) string {
	return toColorful(c).Clamped().Hex()
}

func toColorful(c types.RGB) colorful.Color {
	r, g, b := c.Normalized()
	return colorful.Color{R: r, G: g, B: b}
}

func labF(t float64) float64 {
	if t > labEpsilon {
		return math.Cbrt(t)
	}
	return (labKappa*t + 16) / 116
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

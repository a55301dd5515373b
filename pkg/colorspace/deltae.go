package colorspace

import (
	"math"

	"github.com/menta2k/color-analyzer/pkg/types"
)

// pow7of25 is 25^7, used by the CIEDE2000 chroma compensation terms
const pow7of25 = 6103515625.0

// DeltaE76 is the Euclidean distance between two Lab colors
func DeltaE76(c1, c2 types.LabColor) float64 {
	dl := c1.L - c2.L
	da := c1.A - c2.A
	db := c1.B - c2.B
	return math.Sqrt(dl*dl + da*da + db*db)
}

// DeltaE2000 computes the CIEDE2000 color difference with unit weighting
// factors (kL = kC = kH = 1).
func DeltaE2000(c1, c2 types.LabColor) float64 {
	cab1 := math.Hypot(c1.A, c1.B)
	cab2 := math.Hypot(c2.A, c2.B)
	cabMean := (cab1 + cab2) / 2
	cabMean7 := math.Pow(cabMean, 7)
	g := 0.5 * (1 - math.Sqrt(cabMean7/(cabMean7+pow7of25)))

	a1p := (1 + g) * c1.A
	a2p := (1 + g) * c2.A
	c1p := math.Hypot(a1p, c1.B)
	c2p := math.Hypot(a2p, c2.B)
	h1p := hueAngle(c1.B, a1p)
	h2p := hueAngle(c2.B, a2p)

	dLp := c2.L - c1.L
	dCp := c2p - c1p

	// Neutral colors have no defined hue; their hue difference is zero.
	var dhp float64
	if c1p*c2p != 0 {
		dhp = h2p - h1p
		if dhp > 180 {
			dhp -= 360
		} else if dhp < -180 {
			dhp += 360
		}
	}
	dHp := 2 * math.Sqrt(c1p*c2p) * math.Sin(radians(dhp/2))

	lpMean := (c1.L + c2.L) / 2
	cpMean := (c1p + c2p) / 2

	var hpMean float64
	switch {
	case c1p*c2p == 0:
		hpMean = h1p + h2p
	case math.Abs(h1p-h2p) <= 180:
		hpMean = (h1p + h2p) / 2
	case h1p+h2p < 360:
		hpMean = (h1p + h2p + 360) / 2
	default:
		hpMean = (h1p + h2p - 360) / 2
	}

	t := 1 -
		0.17*math.Cos(radians(hpMean-30)) +
		0.24*math.Cos(radians(2*hpMean)) +
		0.32*math.Cos(radians(3*hpMean+6)) -
		0.20*math.Cos(radians(4*hpMean-63))

	dTheta := 30 * math.Exp(-math.Pow((hpMean-275)/25, 2))
	cpMean7 := math.Pow(cpMean, 7)
	rc := 2 * math.Sqrt(cpMean7/(cpMean7+pow7of25))
	lm50 := (lpMean - 50) * (lpMean - 50)
	sl := 1 + 0.015*lm50/math.Sqrt(20+lm50)
	sc := 1 + 0.045*cpMean
	sh := 1 + 0.015*cpMean*t
	rt := -math.Sin(radians(2*dTheta)) * rc

	lTerm := dLp / sl
	cTerm := dCp / sc
	hTerm := dHp / sh
	return math.Sqrt(lTerm*lTerm + cTerm*cTerm + hTerm*hTerm + rt*cTerm*hTerm)
}

// hueAngle returns atan2(b, a) in degrees within [0,360)
func hueAngle(b, a float64) float64 {
	if a == 0 && b == 0 {
		return 0
	}
	h := math.Atan2(b, a) * 180 / math.Pi
	if h < 0 {
		h += 360
	}
	return h
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

package extractor

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/menta2k/color-analyzer/pkg/types"
)

// channelScratch holds per-channel float buffers reused across frames
type channelScratch struct {
	ch [3][]float64
}

var scratchPool = sync.Pool{
	New: func() interface{} {
		return &channelScratch{}
	},
}

// RefineColor averages candidate pixels with outlier rejection. With more
// than minSamples candidates, pixels further than sigma standard deviations
// from the mean on any channel are dropped before averaging; if that drops
// everything the raw mean is used. ok is false when pixels is empty.
func RefineColor(pixels [][3]uint8, minSamples int, sigma float64) (c types.RGB, kept int, ok bool) {
	if len(pixels) == 0 {
		return types.RGB{}, 0, false
	}
	if len(pixels) <= minSamples {
		return meanOf(pixels), len(pixels), true
	}

	s := scratchPool.Get().(*channelScratch)
	defer scratchPool.Put(s)

	for k := range s.ch {
		s.ch[k] = s.ch[k][:0]
	}
	for _, px := range pixels {
		s.ch[0] = append(s.ch[0], float64(px[0]))
		s.ch[1] = append(s.ch[1], float64(px[1]))
		s.ch[2] = append(s.ch[2], float64(px[2]))
	}

	var mean, limit [3]float64
	for k := range s.ch {
		m, std := stat.MeanStdDev(s.ch[k], nil)
		mean[k] = m
		limit[k] = sigma * std
	}

	var sum [3]float64
	n := 0
	for i := range pixels {
		if math.Abs(s.ch[0][i]-mean[0]) > limit[0] ||
			math.Abs(s.ch[1][i]-mean[1]) > limit[1] ||
			math.Abs(s.ch[2][i]-mean[2]) > limit[2] {
			continue
		}
		sum[0] += s.ch[0][i]
		sum[1] += s.ch[1][i]
		sum[2] += s.ch[2][i]
		n++
	}
	if n == 0 {
		return types.RGB{R: mean[0], G: mean[1], B: mean[2]}, len(pixels), true
	}
	return types.RGB{R: sum[0] / float64(n), G: sum[1] / float64(n), B: sum[2] / float64(n)}, n, true
}

func meanOf(pixels [][3]uint8) types.RGB {
	var sum [3]float64
	for _, px := range pixels {
		sum[0] += float64(px[0])
		sum[1] += float64(px[1])
		sum[2] += float64(px[2])
	}
	n := float64(len(pixels))
	return types.RGB{R: sum[0] / n, G: sum[1] / n, B: sum[2] / n}
}

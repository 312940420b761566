package phasecorr

import (
	"math"

	"github.com/usnistgov-mist/miststitch/internal/pixelio"
)

// extractSubregion returns the flattened, float32 overlap sub-region of img
// visible when the view is translated (dx, dy) pixels relative to img's
// upper-left corner, or nil if the translation leaves no overlap at all
// (spec.md §4.1.1).
func extractSubregion(img *pixelio.Image, dx, dy int) []float32 {
	w, h := img.Width, img.Height
	if absInt(dx) >= w || absInt(dy) >= h {
		return nil
	}

	xStart := clamp(dx, 0, w-1)
	xEnd := clamp(dx+w-1, 0, w-1)
	yStart := clamp(dy, 0, h-1)
	yEnd := clamp(dy+h-1, 0, h-1)

	out := make([]float32, 0, (xEnd-xStart+1)*(yEnd-yStart+1))
	for y := yStart; y <= yEnd; y++ {
		for x := xStart; x <= xEnd; x++ {
			out = append(out, float32(img.At(x, y)))
		}
	}
	return out
}

// crossCorrelation returns the normalized cross-correlation between two
// equal-length flattened sample sets, each mean-subtracted first. A
// non-finite result (zero denominator) becomes -1.
func crossCorrelation(a, b []float32) float32 {
	meanA := meanOf(a)
	meanB := meanOf(b)

	var num, sa, sb float64
	for i := range a {
		av := float64(a[i]) - meanA
		bv := float64(b[i]) - meanB
		num += av * bv
		sa += av * av
		sb += bv * bv
	}
	denom := math.Sqrt(sa * sb)
	if denom == 0 {
		return -1
	}
	cr := num / denom
	if math.IsNaN(cr) || math.IsInf(cr, 0) {
		return -1
	}
	return float32(cr)
}

func meanOf(a []float32) float64 {
	var sum float64
	for _, v := range a {
		sum += float64(v)
	}
	if len(a) == 0 {
		return 0
	}
	return sum / float64(len(a))
}

// ComputeNCC exports computeNCC for callers outside this package (the
// refiner re-scores candidate translations with the same NCC definition
// PCE uses for disambiguation).
func ComputeNCC(a, b *pixelio.Image, dx, dy int) float32 {
	return computeNCC(a, b, dx, dy)
}

// computeNCC computes the NCC between tile images a (translation origin)
// and b given the integer translation (dx, dy) from a to b, per spec.md
// §4.1.1: the overlap sub-region of a at (dx,dy) against the mirrored
// sub-region of b at (-dx,-dy).
func computeNCC(a, b *pixelio.Image, dx, dy int) float32 {
	sa := extractSubregion(a, dx, dy)
	if sa == nil {
		return -1
	}
	sb := extractSubregion(b, -dx, -dy)
	if sb == nil {
		return -1
	}
	return crossCorrelation(sa, sb)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

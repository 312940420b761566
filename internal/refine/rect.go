package refine

import (
	"math"
	"math/rand"

	"github.com/usnistgov-mist/miststitch/internal/phasecorr"
	"github.com/usnistgov-mist/miststitch/internal/pixelio"
)

// searchRect is the bounded translation rectangle [p.x +/- R] x [p.y +/- R],
// clipped to [-(W-1), W-1] x [-(H-1), H-1] (spec.md §4.3).
type searchRect struct {
	xMin, xMax int
	yMin, yMax int
}

func newSearchRect(px, py, radius, w, h int) searchRect {
	return searchRect{
		xMin: clampInt(px-radius, -(w - 1), w-1),
		xMax: clampInt(px+radius, -(w - 1), w-1),
		yMin: clampInt(py-radius, -(h - 1), h-1),
		yMax: clampInt(py+radius, -(h - 1), h-1),
	}
}

func (r searchRect) contains(x, y int) bool {
	return x >= r.xMin && x <= r.xMax && y >= r.yMin && y <= r.yMax
}

func (r searchRect) center() (int, int) {
	return (r.xMin + r.xMax) / 2, (r.yMin + r.yMax) / 2
}

func (r searchRect) randomPoint(rnd *rand.Rand) [2]int {
	x := r.xMin + rnd.Intn(r.xMax-r.xMin+1)
	y := r.yMin + rnd.Intn(r.yMax-r.yMin+1)
	return [2]int{x, y}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// nccCache memoizes NCC(a, b, dx, dy) over a search rectangle, shared across
// every hill-climb start for one edge so repeated evaluations of the same
// cell across starts cost one computation (spec.md §4.3).
type nccCache struct {
	width  int
	values []float32 // NaN until computed
}

func newNCCCache(rect searchRect) *nccCache {
	width := rect.xMax - rect.xMin + 1
	height := rect.yMax - rect.yMin + 1
	values := make([]float32, width*height)
	for i := range values {
		values[i] = float32(math.NaN())
	}
	return &nccCache{width: width, values: values}
}

func (c *nccCache) get(a, b *pixelio.Image, rect searchRect, x, y int) float32 {
	idx := (y-rect.yMin)*c.width + (x - rect.xMin)
	if v := c.values[idx]; !math.IsNaN(float64(v)) {
		return v
	}
	v := phasecorr.ComputeNCC(a, b, x, y)
	c.values[idx] = v
	return v
}

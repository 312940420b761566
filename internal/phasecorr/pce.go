// Package phasecorr is the phase-correlation engine: it estimates the pixel
// translation between adjacent tiles via 2-D FFT cross-power-spectrum phase
// correlation, disambiguates the resulting peak index into a true signed
// translation using normalized cross-correlation, and writes the winning
// Peak onto each tile's west/north edge (spec.md §4.1).
package phasecorr

import (
	"container/heap"
	"math"
	"math/cmplx"

	"github.com/usnistgov-mist/miststitch/internal/peak"
	"github.com/usnistgov-mist/miststitch/internal/pixelio"
	"github.com/usnistgov-mist/miststitch/internal/tilegrid"
	"github.com/usnistgov-mist/miststitch/internal/workerpool"
)

// Config tunes the engine's candidate search.
type Config struct {
	// NumPeaks is how many phase-correlation-matrix peaks to disambiguate
	// and NCC-score before keeping the best, per spec.md §4.1 step 4.
	NumPeaks int

	// OnEdgeDone, if set, is called once per completed edge task (for a
	// caller-driven progress bar). Must be safe for concurrent use.
	OnEdgeDone func()
}

const defaultNumPeaks = 2

// Execute computes WestTranslation for every tile with a west neighbor and
// NorthTranslation for every tile with a north neighbor, running one task
// per edge across pool.
func Execute(grid *tilegrid.Grid, pool *workerpool.Pool, cfg Config) error {
	if cfg.NumPeaks <= 0 {
		cfg.NumPeaks = defaultNumPeaks
	}

	type edge struct {
		t        *tilegrid.Tile
		neighbor *tilegrid.Tile
		vertical bool
	}
	var edges []edge
	grid.Each(func(t *tilegrid.Tile) {
		if west := grid.Tile(t.R, t.C-1); west != nil {
			edges = append(edges, edge{t: t, neighbor: west, vertical: false})
		}
		if north := grid.Tile(t.R-1, t.C); north != nil {
			edges = append(edges, edge{t: t, neighbor: north, vertical: true})
		}
	})

	errs := make([]error, len(edges))
	tasks := make([]func(), len(edges))
	for i, e := range edges {
		i, e := i, e
		tasks[i] = func() {
			a, err := e.neighbor.Image()
			if err != nil {
				errs[i] = err
				return
			}
			b, err := e.t.Image()
			if err != nil {
				errs[i] = err
				return
			}
			p := ComputePeak(a, b, e.vertical, cfg)
			e.t.SetTranslation(e.vertical, p)
			if cfg.OnEdgeDone != nil {
				cfg.OnEdgeDone()
			}
		}
	}
	pool.Run(tasks)

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// ComputePeak estimates the translation of b relative to a (a is b's west
// neighbor when !vertical, b's north neighbor when vertical).
func ComputePeak(a, b *pixelio.Image, vertical bool, cfg Config) peak.Peak {
	w, h := a.Width, a.Height

	fa := toComplexGrid(a)
	fb := toComplexGrid(b)
	fa = fft2(fa)
	fb = fft2(fb)

	pcm := ifft2(crossPowerSpectrum(fa, fb))

	indices := topNIndices(pcm, cfg.NumPeaks)

	best := peak.Peak{NCC: float32(math.NaN())}
	for _, idx := range indices {
		yc, xc := idx/w, idx%w
		for _, cand := range disambiguate(xc, yc, w, h, vertical) {
			ncc := computeNCC(a, b, cand[0], cand[1])
			if best.Invalid() || ncc > best.NCC {
				best = peak.Peak{NCC: ncc, X: int32(cand[0]), Y: int32(cand[1])}
			}
		}
	}
	return best
}

func toComplexGrid(img *pixelio.Image) *grid2D {
	g := newGrid2D(img.Width, img.Height)
	for i, v := range img.Pix {
		g.data[i] = complex(float64(v), 0)
	}
	return g
}

// crossPowerSpectrum computes F1 * conj(F2) / |F1 * conj(F2)|, flooring the
// magnitude at 1e-16 before dividing so a dead (all-zero) frequency bin
// yields zero instead of NaN (spec.md §4.1 step 3).
func crossPowerSpectrum(f1, f2 *grid2D) *grid2D {
	out := newGrid2D(f1.width, f1.height)
	for i := range f1.data {
		c := f1.data[i] * cmplx.Conj(f2.data[i])
		mag := math.Max(cmplx.Abs(c), 1e-16)
		out.data[i] = c / complex(mag, 0)
	}
	return out
}

// topNIndices returns the indices of the n largest real parts of g's data,
// found with a bounded min-heap rather than a full sort of every pixel.
func topNIndices(g *grid2D, n int) []int {
	if n > len(g.data) {
		n = len(g.data)
	}
	h := &peakHeap{}
	heap.Init(h)
	for i, v := range g.data {
		val := real(v)
		if h.Len() < n {
			heap.Push(h, peakEntry{index: i, value: val})
			continue
		}
		if h.Len() > 0 && val > (*h)[0].value {
			heap.Pop(h)
			heap.Push(h, peakEntry{index: i, value: val})
		}
	}
	out := make([]int, h.Len())
	for i := range out {
		out[i] = (*h)[i].index
	}
	return out
}

type peakEntry struct {
	index int
	value float64
}

type peakHeap []peakEntry

func (h peakHeap) Len() int            { return len(h) }
func (h peakHeap) Less(i, j int) bool  { return h[i].value < h[j].value }
func (h peakHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *peakHeap) Push(x interface{}) { *h = append(*h, x.(peakEntry)) }
func (h *peakHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// disambiguate expands a raw phase-correlation peak index (xc, yc) into the
// set of true signed translation candidates. The index's primary axis (x
// for a west edge, y for a north edge) is circularly ambiguous between a
// forward and backward shift, so it takes all four signed values; the
// orthogonal axis is taken unsigned, matching the two-peaks-per-axis
// convention spec.md §4.1 describes for candidate generation.
func disambiguate(xc, yc, w, h int, vertical bool) [][2]int {
	fourWay := func(v, dim int) []int {
		vals := []int{v, -v, dim - v, -(dim - v)}
		seen := map[int]bool{}
		out := vals[:0:0]
		for _, x := range vals {
			if !seen[x] {
				seen[x] = true
				out = append(out, x)
			}
		}
		return out
	}
	twoWay := func(v, dim int) []int {
		if v == dim-v {
			return []int{v}
		}
		return []int{v, dim - v}
	}

	var xs, ys []int
	if vertical {
		ys = fourWay(yc, h)
		xs = twoWay(xc, w)
	} else {
		xs = fourWay(xc, w)
		ys = twoWay(yc, h)
	}

	out := make([][2]int, 0, len(xs)*len(ys))
	for _, x := range xs {
		for _, y := range ys {
			out = append(out, [2]int{x, y})
		}
	}
	return out
}

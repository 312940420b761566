// Package globalpos is the global positioner: it lays out every tile's
// absolute (x, y) coordinate by traversing a maximum spanning tree over the
// grid graph whose edges are the refined west/north Peaks, weighted by
// their (bonused) NCC (spec.md §4.4).
package globalpos

import (
	"math"

	"github.com/usnistgov-mist/miststitch/internal/tilegrid"
)

// Result reports how much of the grid the traversal reached.
type Result struct {
	VisitedCount int
	TotalCount   int
}

// Execute assigns AbsX/AbsY to every reachable tile in grid, then
// translates all coordinates so the minimum is (0, 0). Tiles unreachable
// from the seed (a disconnected correlation graph) are left at (0, 0), per
// spec.md §4.4 step 5.
func Execute(grid *tilegrid.Grid) (*Result, error) {
	h, w := grid.Height, grid.Width

	visited := make([][]bool, h)
	release := make([][]int32, h)
	for r := range visited {
		visited[r] = make([]bool, w)
		release[r] = make([]int32, w)
	}
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			if grid.Tile(r, c) == nil {
				continue
			}
			release[r][c] = int32(neighborCount(grid, r, c))
		}
	}

	seedR, seedC, found := findSeed(grid)
	if !found {
		return nil, errNoSeed{}
	}

	mstSize := 1
	visited[seedR][seedC] = true
	frontier := map[[2]int]bool{{seedR, seedC}: true}
	decrementNeighbors(grid, release, seedR, seedC)
	pruneFrontier(grid, release, frontier)

	total := 0
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			if grid.Tile(r, c) != nil {
				total++
			}
		}
	}

	for mstSize < total {
		bestF, bestN, ok := bestExpansion(grid, visited, frontier)
		if !ok {
			break
		}

		f := grid.Tile(bestF[0], bestF[1])
		n := grid.Tile(bestN[0], bestN[1])
		applyPosition(f, n)

		visited[bestN[0]][bestN[1]] = true
		frontier[bestN] = true
		mstSize++
		decrementNeighbors(grid, release, bestN[0], bestN[1])
		pruneFrontier(grid, release, frontier)
	}

	normalize(grid, visited)

	return &Result{VisitedCount: mstSize, TotalCount: total}, nil
}

type errNoSeed struct{}

func (errNoSeed) Error() string {
	return "global positioning: no tile has a finite translation NCC to seed the spanning tree"
}

// findSeed returns the tile maximizing max(west.ncc, north.ncc) over finite
// values, ties broken by row-major iteration order.
func findSeed(grid *tilegrid.Grid) (r, c int, ok bool) {
	best := math.Inf(-1)
	for rr := 0; rr < grid.Height; rr++ {
		for cc := 0; cc < grid.Width; cc++ {
			t := grid.Tile(rr, cc)
			if t == nil {
				continue
			}
			ncc := t.MaxTranslationNCC()
			if math.IsNaN(ncc) {
				continue
			}
			if ncc > best {
				best, r, c, ok = ncc, rr, cc, true
			}
		}
	}
	return r, c, ok
}

func neighborCount(grid *tilegrid.Grid, r, c int) int {
	n := 0
	for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		if grid.Tile(r+d[0], c+d[1]) != nil {
			n++
		}
	}
	return n
}

func decrementNeighbors(grid *tilegrid.Grid, release [][]int32, r, c int) {
	for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		nr, nc := r+d[0], c+d[1]
		if grid.Tile(nr, nc) != nil {
			release[nr][nc]--
		}
	}
}

func pruneFrontier(grid *tilegrid.Grid, release [][]int32, frontier map[[2]int]bool) {
	for key := range frontier {
		if release[key[0]][key[1]] <= 0 {
			delete(frontier, key)
		}
	}
}

// bestExpansion picks the highest-NCC (frontier, unvisited-neighbor) pair,
// ties broken by row-major iteration order over the frontier then the
// neighbor offsets in north/south/west/east order.
func bestExpansion(grid *tilegrid.Grid, visited [][]bool, frontier map[[2]int]bool) (f, n [2]int, ok bool) {
	best := math.Inf(-1)
	keys := sortedKeys(frontier)
	for _, fk := range keys {
		ft := grid.Tile(fk[0], fk[1])
		for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			nr, nc := fk[0]+d[0], fk[1]+d[1]
			nt := grid.Tile(nr, nc)
			if nt == nil || visited[nr][nc] {
				continue
			}
			p, err := ft.PeakWith(nt)
			if err != nil || p == nil {
				continue
			}
			if float64(p.NCC) > best {
				best = float64(p.NCC)
				f, n, ok = fk, [2]int{nr, nc}, true
			}
		}
	}
	return f, n, ok
}

// sortedKeys returns frontier's keys in row-major order, for deterministic
// tie-breaking independent of Go's randomized map iteration.
func sortedKeys(frontier map[[2]int]bool) [][2]int {
	out := make([][2]int, 0, len(frontier))
	for k := range frontier {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func less(a, b [2]int) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

// applyPosition sets n.AbsX/AbsY from f's position and their shared edge
// Peak: a north neighbor subtracts, south adds, west subtracts, east adds
// (spec.md §4.4 step 2).
func applyPosition(f, n *tilegrid.Tile) {
	p, err := f.PeakWith(n)
	if err != nil || p == nil {
		return
	}
	switch {
	case f.NorthOf(n): // n is south of f
		n.AbsX, n.AbsY = f.AbsX+p.X, f.AbsY+p.Y
	case f.SouthOf(n): // n is north of f
		n.AbsX, n.AbsY = f.AbsX-p.X, f.AbsY-p.Y
	case f.EastOf(n): // n is west of f
		n.AbsX, n.AbsY = f.AbsX-p.X, f.AbsY-p.Y
	case f.WestOf(n): // n is east of f
		n.AbsX, n.AbsY = f.AbsX+p.X, f.AbsY+p.Y
	}
}

// normalize translates every visited tile's absolute coordinate so the
// minimum x and y over the visited set are both zero. Unvisited tiles (a
// disconnected correlation graph) are left untouched at (0, 0), per
// spec.md §4.4's documented boundary behavior.
func normalize(grid *tilegrid.Grid, visited [][]bool) {
	minX, minY := int32(math.MaxInt32), int32(math.MaxInt32)
	any := false
	for r := range visited {
		for c := range visited[r] {
			if !visited[r][c] {
				continue
			}
			t := grid.Tile(r, c)
			any = true
			if t.AbsX < minX {
				minX = t.AbsX
			}
			if t.AbsY < minY {
				minY = t.AbsY
			}
		}
	}
	if !any || (minX == 0 && minY == 0) {
		return
	}
	for r := range visited {
		for c := range visited[r] {
			if !visited[r][c] {
				continue
			}
			t := grid.Tile(r, c)
			t.AbsX -= minX
			t.AbsY -= minY
		}
	}
}

// Package refine is the bounded hill-climb refiner: starting from each
// edge's stage-model-repaired Peak, it searches a rectangle of candidate
// translations for the one with highest NCC, then rewards edges that were
// already trustworthy with a fixed bonus so they dominate the global
// positioner's spanning-tree choice (spec.md §4.3).
package refine

import (
	"math"
	"math/rand"

	"github.com/usnistgov-mist/miststitch/internal/peak"
	"github.com/usnistgov-mist/miststitch/internal/pixelio"
	"github.com/usnistgov-mist/miststitch/internal/tilegrid"
	"github.com/usnistgov-mist/miststitch/internal/workerpool"
)

// Method selects the hill-climb search strategy.
type Method int

const (
	SingleHillClimb Method = iota
	MultipointHillClimb
)

// ParseMethod parses the --translation-refinement-method flag value.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "SINGLEHILLCLIMB":
		return SingleHillClimb, nil
	case "MULTIPOINTHILLCLIMB":
		return MultipointHillClimb, nil
	default:
		return 0, &methodError{s}
	}
}

type methodError struct{ got string }

func (e *methodError) Error() string {
	return "unknown translation refinement method: " + e.got
}

// ncBonus is added to a refined edge's NCC when its input Peak had already
// survived stage-model repair (a finite NCC), so RF output keeps those
// edges ahead of raw, unverified correlations during MST selection.
const ncBonus = 3.0

// Config tunes the refinement search.
type Config struct {
	Method        Method
	NumHillClimbs int // multipoint only; default 16
	SearchRadius  int // R_search from the stage model

	// RandomSeed seeds the multipoint random starting points. Zero derives
	// a seed internally.
	RandomSeed int64

	// OnEdgeDone, if set, is called once per completed edge task (for a
	// caller-driven progress bar). Must be safe for concurrent use.
	OnEdgeDone func()
}

// Execute refines every tile's west edge, then north edge, in row-major
// order, using one task per edge across pool (spec.md §4.3, §5).
func Execute(grid *tilegrid.Grid, cfg Config, pool *workerpool.Pool) error {
	if cfg.NumHillClimbs <= 0 {
		cfg.NumHillClimbs = 16
	}
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = 1
	}

	type edge struct {
		t        *tilegrid.Tile
		neighbor *tilegrid.Tile
		vertical bool
	}
	var edges []edge
	for r := 0; r < grid.Height; r++ {
		for c := 0; c < grid.Width; c++ {
			t := grid.Tile(r, c)
			if t == nil {
				continue
			}
			if west := grid.Tile(r, c-1); west != nil {
				edges = append(edges, edge{t: t, neighbor: west, vertical: false})
			}
			if north := grid.Tile(r-1, c); north != nil {
				edges = append(edges, edge{t: t, neighbor: north, vertical: true})
			}
		}
	}

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
			current := e.t.Translation(e.vertical)
			if current == nil {
				return
			}
			rnd := rand.New(rand.NewSource(seed + int64(i)))
			refined := RefineEdge(a, b, *current, cfg, rnd)
			e.t.SetTranslation(e.vertical, refined)
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

// RefineEdge searches the bounded rectangle around p for the translation of
// highest NCC between a and b, and applies the trust bonus when p's input
// NCC was already finite.
func RefineEdge(a, b *pixelio.Image, p peak.Peak, cfg Config, rnd *rand.Rand) peak.Peak {
	w, h := a.Width, a.Height
	hadFiniteInput := !p.Invalid()

	rect := newSearchRect(int(p.X), int(p.Y), cfg.SearchRadius, w, h)
	cache := newNCCCache(rect)

	starts := [][2]int{{int(p.X), int(p.Y)}}
	if cfg.Method == MultipointHillClimb {
		for i := 1; i < cfg.NumHillClimbs; i++ {
			starts = append(starts, rect.randomPoint(rnd))
		}
	}

	best := peak.Peak{NCC: float32(math.NaN())}
	for _, s := range starts {
		x, y, ncc := hillClimb(a, b, rect, cache, s[0], s[1])
		if math.IsNaN(float64(ncc)) {
			continue
		}
		if best.Invalid() || ncc > best.NCC {
			best = peak.Peak{X: int32(x), Y: int32(y), NCC: ncc}
		}
	}

	if best.Invalid() {
		cx, cy := rect.center()
		best = peak.Peak{X: int32(cx), Y: int32(cy), NCC: -1}
	}

	if hadFiniteInput {
		best.NCC += ncBonus
	}
	return best
}

// hillClimb repeatedly moves to a strictly-better cardinal neighbor of
// (x, y), evaluating and caching NCC lazily, until none improves.
func hillClimb(a, b *pixelio.Image, rect searchRect, cache *nccCache, x, y int) (bestX, bestY int, bestNCC float32) {
	cur := cache.get(a, b, rect, x, y)
	for {
		type move struct{ dx, dy int }
		moves := []move{{0, -1}, {0, 1}, {1, 0}, {-1, 0}} // north, south, east, west

		bestMoveX, bestMoveY, bestMoveNCC := x, y, cur
		improved := false
		for _, m := range moves {
			nx, ny := x+m.dx, y+m.dy
			if !rect.contains(nx, ny) {
				continue
			}
			ncc := cache.get(a, b, rect, nx, ny)
			if ncc > bestMoveNCC {
				bestMoveX, bestMoveY, bestMoveNCC = nx, ny, ncc
				improved = true
			}
		}
		if !improved {
			return x, y, cur
		}
		x, y, cur = bestMoveX, bestMoveY, bestMoveNCC
	}
}

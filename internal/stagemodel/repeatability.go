package stagemodel

import (
	"math"

	"github.com/usnistgov-mist/miststitch/internal/axis"
	"github.com/usnistgov-mist/miststitch/internal/tilegrid"
)

// computeRepeatability returns max(R1, R2) over validEdges (spec.md
// §4.2.3), or fallback if validEdges is empty.
func computeRepeatability(validEdges []edgeTile, ax axis.Axis, fallback float64) float64 {
	if len(validEdges) == 0 {
		return fallback
	}

	orthoVals := make([]float64, len(validEdges))
	for i, e := range validEdges {
		p := e.tile.Translation(ax.IsVertical())
		_, orthogonal := p.Component(ax.IsVertical())
		orthoVals[i] = float64(orthogonal)
	}
	r1 := math.Ceil((maxOf(orthoVals) - minOf(orthoVals)) / 2.0)

	groups := map[int][]float64{}
	for _, e := range validEdges {
		key := groupKey(e.tile, ax)
		p := e.tile.Translation(ax.IsVertical())
		primary, _ := p.Component(ax.IsVertical())
		groups[key] = append(groups[key], float64(primary))
	}
	var r2 float64
	for _, vals := range groups {
		span := math.Ceil((maxOf(vals) - minOf(vals)) / 2.0)
		if span > r2 {
			r2 = span
		}
	}

	r := r1
	if r2 > r {
		r = r2
	}
	return r
}

// groupKey is the row (vertical) or column (horizontal) a tile's edge is
// grouped by for the per-row/column repeatability and median-repair passes.
func groupKey(t *tilegrid.Tile, ax axis.Axis) int {
	if ax.IsVertical() {
		return t.R
	}
	return t.C
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

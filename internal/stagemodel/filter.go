package stagemodel

import (
	"sort"

	"github.com/usnistgov-mist/miststitch/internal/axis"
	"github.com/usnistgov-mist/miststitch/internal/tilegrid"
)

// edgeTile pairs a tile with the axis its relevant Peak lives on, so filter
// and repair stages don't have to keep re-deriving which field to read.
type edgeTile struct {
	tile *tilegrid.Tile
	ax   axis.Axis
}

// allEdges returns every tile in the grid that carries a Peak on ax, in
// row-major order.
func allEdges(grid *tilegrid.Grid, ax axis.Axis) []edgeTile {
	var out []edgeTile
	grid.Each(func(t *tilegrid.Tile) {
		if t.Translation(ax.IsVertical()) != nil {
			out = append(out, edgeTile{tile: t, ax: ax})
		}
	})
	return out
}

// samplesInRange returns the primary-translation-component samples strictly
// between 1 and dim-1, the input population for overlap MLE (spec.md
// §4.2.1).
func samplesInRange(edges []edgeTile, dim int) []float64 {
	var out []float64
	for _, e := range edges {
		primary, _ := e.tile.Translation(e.ax.IsVertical()).Component(e.ax.IsVertical())
		v := float64(primary)
		if v > 1 && v < float64(dim)-1 {
			out = append(out, 100.0*v/float64(dim))
		}
	}
	return out
}

// filterThresholds computes t_min, t_max, ortho_err for an axis given its
// inferred overlap, the configured uncertainty, and the image extent along
// that axis (spec.md §4.2.2).
func filterThresholds(dim int, overlap, uncertainty float64) (tMin, tMax, orthoErr float64) {
	tMin = float64(dim) * (1 - (overlap+uncertainty)/100.0)
	tMax = float64(dim) * (1 - (overlap-uncertainty)/100.0)
	orthoErr = float64(dim) * uncertainty / 100.0
	return
}

// filterValid keeps edges whose NCC clears threshold, whose primary
// component lies in [tMin, tMax], and whose orthogonal component lies in
// [-orthoErr, orthoErr], then applies the Tukey outlier filter.
func filterValid(edges []edgeTile, threshold, tMin, tMax, orthoErr float64) []edgeTile {
	var kept []edgeTile
	for _, e := range edges {
		p := e.tile.Translation(e.ax.IsVertical())
		if float64(p.NCC) < threshold {
			continue
		}
		primary, orthogonal := p.Component(e.ax.IsVertical())
		if float64(primary) < tMin || float64(primary) > tMax {
			continue
		}
		if float64(orthogonal) < -orthoErr || float64(orthogonal) > orthoErr {
			continue
		}
		kept = append(kept, e)
	}
	return tukeyFilter(tukeyFilter(kept, true), false)
}

// tukeyFilter removes edges whose displacement component (y when
// yComponent is true, x otherwise) falls outside
// [Q1-1.5*IQR, Q3+1.5*IQR], using the median-split quartile definition:
// the median of the strictly-less half is Q1, the median of the
// strictly-greater half is Q3 (spec.md §4.2.2 — deliberately not the
// linear-interpolation quartile convention).
//
// component selects which of a Peak's (x, y) fields to test: true for y,
// false for x. Both axes are filtered independently, y first then x,
// matching the order the original tool's filer_translations_remove_outliers
// uses for both directions.
func tukeyFilter(edges []edgeTile, yComponent bool) []edgeTile {
	if len(edges) < 3 {
		return edges
	}

	vals := make([]float64, len(edges))
	for i, e := range edges {
		p := e.tile.Translation(e.ax.IsVertical())
		if yComponent {
			vals[i] = float64(p.Y)
		} else {
			vals[i] = float64(p.X)
		}
	}

	median := medianOf(vals)
	var less, greater []float64
	for _, v := range vals {
		switch {
		case v < median:
			less = append(less, v)
		case v > median:
			greater = append(greater, v)
		}
	}
	if len(less) < 3 || len(greater) < 3 {
		return edges
	}

	q1 := medianOf(less)
	q3 := medianOf(greater)
	iqr := q3 - q1
	if iqr < 0 {
		iqr = -iqr
	}
	lo := q1 - 1.5*iqr
	hi := q3 + 1.5*iqr

	var kept []edgeTile
	for i, e := range edges {
		if vals[i] >= lo && vals[i] <= hi {
			kept = append(kept, e)
		}
	}
	return kept
}

// medianOf returns the median of a copy of vals (vals itself is untouched).
func medianOf(vals []float64) float64 {
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	n := len(cp)
	if n%2 == 1 {
		return cp[n/2]
	}
	return (cp[n/2-1] + cp[n/2]) / 2.0
}

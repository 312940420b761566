package stagemodel

import (
	"fmt"
	"math"

	"github.com/usnistgov-mist/miststitch/internal/axis"
	"github.com/usnistgov-mist/miststitch/internal/tilegrid"
)

// medianPair is a per-row/column (x, y) median, or NaN/NaN if the group had
// no finite contribution.
type medianPair struct{ x, y float64 }

// removeInvalid marks, per row (vertical) or column (horizontal), any edge
// whose NCC is below threshold or whose (x, y) falls outside the group
// median +/- repeatability, by setting its NCC to NaN (spec.md §4.2.4 step
// 1). medians is computed over validEdges, the output of filterValid.
func removeInvalid(grid *tilegrid.Grid, ax axis.Axis, validEdges []edgeTile, repeatability, threshold float64) {
	groups := map[int][]edgeTile{}
	for _, e := range validEdges {
		groups[groupKey(e.tile, ax)] = append(groups[groupKey(e.tile, ax)], e)
	}
	medians := map[int]medianPair{}
	for key, es := range groups {
		xs := make([]float64, len(es))
		ys := make([]float64, len(es))
		for i, e := range es {
			p := e.tile.Translation(ax.IsVertical())
			xs[i], ys[i] = float64(p.X), float64(p.Y)
		}
		medians[key] = medianPair{x: medianOf(xs), y: medianOf(ys)}
	}

	for _, e := range allEdges(grid, ax) {
		p := e.tile.Translation(ax.IsVertical())
		key := groupKey(e.tile, ax)
		m, ok := medians[key]
		if !ok {
			p.NCC = float32(math.NaN())
			continue
		}
		xMin, xMax := m.x-repeatability, m.x+repeatability
		yMin, yMax := m.y-repeatability, m.y+repeatability
		if float64(p.NCC) < threshold || float64(p.X) < xMin || float64(p.X) > xMax || float64(p.Y) < yMin || float64(p.Y) > yMax {
			p.NCC = float32(math.NaN())
		}
	}
}

// repairInvalid recomputes the per-row/column median over every edge whose
// tile is not in row 0 or column 0 (regardless of which axis is being
// repaired) and overwrites any still-NaN-NCC edge's (x, y) with it. Groups
// with no finite contribution are returned as "missing" (spec.md §4.2.4
// step 2).
func repairInvalid(grid *tilegrid.Grid, ax axis.Axis) (missing []int) {
	groups := map[int][]edgeTile{}
	for _, e := range allEdges(grid, ax) {
		if e.tile.R == 0 || e.tile.C == 0 {
			continue
		}
		groups[groupKey(e.tile, ax)] = append(groups[groupKey(e.tile, ax)], e)
	}

	medians := map[int]medianPair{}
	for key, es := range groups {
		var xs, ys []float64
		for _, e := range es {
			p := e.tile.Translation(ax.IsVertical())
			if p.Invalid() {
				continue
			}
			xs = append(xs, float64(p.X))
			ys = append(ys, float64(p.Y))
		}
		if len(xs) == 0 {
			medians[key] = medianPair{x: math.NaN(), y: math.NaN()}
			missing = append(missing, key)
			continue
		}
		medians[key] = medianPair{x: medianOf(xs), y: medianOf(ys)}
	}

	for _, e := range allEdges(grid, ax) {
		p := e.tile.Translation(ax.IsVertical())
		if !p.Invalid() {
			continue
		}
		m, ok := medians[groupKey(e.tile, ax)]
		if !ok || math.IsNaN(m.x) || math.IsNaN(m.y) {
			continue
		}
		p.X, p.Y = int32(m.x), int32(m.y)
	}
	return missing
}

// backfill fills every edge still carrying a NaN NCC with the global
// estimate: the median of the primary component over validEdges if any
// remain, otherwise dim*(1 - overlap/100) (spec.md §4.2.4 step 3).
func backfill(grid *tilegrid.Grid, ax axis.Axis, validEdges []edgeTile, dim int, overlap float64) {
	var dHat float64
	if len(validEdges) > 0 {
		vals := make([]float64, len(validEdges))
		for i, e := range validEdges {
			p := e.tile.Translation(ax.IsVertical())
			primary, _ := p.Component(ax.IsVertical())
			vals[i] = float64(primary)
		}
		dHat = medianOf(vals)
	} else {
		dHat = float64(dim) * (1 - overlap/100.0)
	}

	for _, e := range allEdges(grid, ax) {
		p := e.tile.Translation(ax.IsVertical())
		if !p.Invalid() {
			continue
		}
		if ax.IsVertical() {
			p.Y, p.X = int32(dHat), 0
		} else {
			p.X, p.Y = int32(dHat), 0
		}
		p.NCC = 0
	}
}

// applyAxis runs the full filter -> repeatability -> remove -> repair ->
// backfill pipeline for one axis and returns the axis statistics.
func applyAxis(grid *tilegrid.Grid, ax axis.Axis, cfg Config, dim int, rnd *randSource) (AxisStats, error) {
	edges := allEdges(grid, ax)
	samples := samplesInRange(edges, dim)
	if len(samples) == 0 {
		return AxisStats{}, fmt.Errorf("no translations found in direction: %s", ax)
	}

	overlap := estimateOverlap(samples, rnd)
	overrideOverlap := cfg.overlapOverride(ax)
	effectiveOverlap := overlap
	if overrideOverlap != nil {
		effectiveOverlap = *overrideOverlap
	}
	if math.IsNaN(effectiveOverlap) || math.IsInf(effectiveOverlap, 0) {
		return AxisStats{}, fmt.Errorf("inferred overlap for direction %s is not finite: %v", ax, effectiveOverlap)
	}

	tMin, tMax, orthoErr := filterThresholds(dim, effectiveOverlap, cfg.OverlapUncertainty)
	validEdges := filterValid(edges, cfg.ValidCorrelationThreshold, tMin, tMax, orthoErr)

	stats := AxisStats{
		InferredOverlap: overlap,
		Overlap:         effectiveOverlap,
		TotalEdges:      len(edges),
		ValidEdgesAfterFilter: len(validEdges),
		MinFilterThreshold:    tMin,
		MaxFilterThreshold:    tMax,
	}

	if len(validEdges) == 0 {
		r := cfg.RepeatabilityOverride
		repeatability := 0.0
		if r != nil {
			repeatability = *r
		}
		stats.Repeatability = repeatability
		est := int32(float64(dim) * (1 - effectiveOverlap/100.0))
		grid.Each(func(t *tilegrid.Tile) {
			p := t.Translation(ax.IsVertical())
			if p == nil {
				return
			}
			if ax.IsVertical() {
				p.Y, p.X = est, 0
			} else {
				p.X, p.Y = est, 0
			}
		})
		return stats, nil
	}

	repeatability := computeRepeatability(validEdges, ax, 0)
	if r := cfg.RepeatabilityOverride; r != nil {
		repeatability = *r
	}
	if repeatability > 10 {
		stats.LargeRepeatabilityWarning = true
	}
	stats.Repeatability = repeatability

	removeInvalid(grid, ax, validEdges, repeatability, cfg.ValidCorrelationThreshold)
	missing := repairInvalid(grid, ax)
	stats.MissingGroups = missing

	backfill(grid, ax, validEdges, dim, effectiveOverlap)

	return stats, nil
}

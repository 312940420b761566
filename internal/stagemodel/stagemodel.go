// Package stagemodel infers the per-axis overlap and stage repeatability
// from the phase-correlation engine's raw peaks, then filters, removes, and
// repairs outlier translations so every edge carries a finite NCC before
// refinement (spec.md §4.2).
package stagemodel

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/usnistgov-mist/miststitch/internal/axis"
	"github.com/usnistgov-mist/miststitch/internal/tilegrid"
)

// Config tunes the stage model's thresholds and overrides.
type Config struct {
	OverlapUncertainty        float64 // percent, default 3.0
	ValidCorrelationThreshold float64 // default 0.5

	HorizontalOverlapOverride *float64
	VerticalOverlapOverride   *float64
	RepeatabilityOverride     *float64

	// RandomSeed seeds the MLE random-restart search. Zero means derive a
	// seed from the current time.
	RandomSeed int64
}

func (c Config) overlapOverride(ax axis.Axis) *float64 {
	if ax.IsVertical() {
		return c.VerticalOverlapOverride
	}
	return c.HorizontalOverlapOverride
}

// AxisStats is the set of values the statistics report shows for one axis.
type AxisStats struct {
	InferredOverlap           float64
	Overlap                   float64
	Repeatability             float64
	TotalEdges                int
	ValidEdgesAfterFilter     int
	MinFilterThreshold        float64
	MaxFilterThreshold        float64
	MissingGroups             []int
	LargeRepeatabilityWarning bool
}

// Result is the stage model's output: per-axis statistics plus the derived
// global search radius RF and GP consume.
type Result struct {
	Vertical, Horizontal AxisStats
	Repeatability        float64 // max(vertical, horizontal), before doubling
	SearchRadius          int     // RSearch = 2*max(Rv, Rh) + 1
}

// Execute runs the full stage-model pipeline over grid: MLE overlap
// inference, repeatability computation, and outlier removal/repair/backfill
// for both axes, in that order (vertical is computed first here only to
// match the teacher's "build" log ordering; the two axes are otherwise
// independent).
func Execute(grid *tilegrid.Grid, cfg Config) (*Result, error) {
	if cfg.OverlapUncertainty == 0 {
		cfg.OverlapUncertainty = 3.0
	}
	if cfg.ValidCorrelationThreshold == 0 {
		cfg.ValidCorrelationThreshold = 0.5
	}
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := newRandSource(seed)

	height, width, err := grid.ImageShape()
	if err != nil {
		return nil, err
	}

	vStats, err := applyAxis(grid, axis.Vertical, cfg, height, rnd)
	if err != nil {
		return nil, err
	}
	hStats, err := applyAxis(grid, axis.Horizontal, cfg, width, rnd)
	if err != nil {
		return nil, err
	}

	repeatability := vStats.Repeatability
	if hStats.Repeatability > repeatability {
		repeatability = hStats.Repeatability
	}
	searchRadius := int(2*repeatability) + 1

	return &Result{
		Vertical:      vStats,
		Horizontal:    hStats,
		Repeatability: repeatability,
		SearchRadius:  searchRadius,
	}, nil
}

// WriteStatsFile writes the statistics report grouped vertical/horizontal/
// other, matching the original tool's save_stats grouping.
func (r *Result) WriteStatsFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	fmt.Fprintf(w, "repeatability: %v\n", r.Repeatability)
	fmt.Fprintf(w, "search_radius: %d\n\n", r.SearchRadius)

	writeAxisStats(w, "vertical", r.Vertical)
	fmt.Fprintln(w)
	writeAxisStats(w, "horizontal", r.Horizontal)

	return nil
}

func writeAxisStats(w *bufio.Writer, prefix string, s AxisStats) {
	fmt.Fprintf(w, "%s_overlap: %v\n", prefix, s.Overlap)
	fmt.Fprintf(w, "%s_inferred_overlap: %v\n", prefix, s.InferredOverlap)
	fmt.Fprintf(w, "%s_repeatability: %v\n", prefix, s.Repeatability)
	fmt.Fprintf(w, "%s_total_tiles: %d\n", prefix, s.TotalEdges)
	fmt.Fprintf(w, "%s_valid_tiles_after_filter: %d\n", prefix, s.ValidEdgesAfterFilter)
	fmt.Fprintf(w, "%s_min_filter_threshold: %v\n", prefix, s.MinFilterThreshold)
	fmt.Fprintf(w, "%s_max_filter_threshold: %v\n", prefix, s.MaxFilterThreshold)
	if len(s.MissingGroups) > 0 {
		sorted := append([]int(nil), s.MissingGroups...)
		sort.Ints(sorted)
		fmt.Fprintf(w, "%s_missing_rows_cols: %v\n", prefix, sorted)
	}
	if s.LargeRepeatabilityWarning {
		fmt.Fprintf(w, "%s_repeatability_warning: repeatability > 10, consider an explicit override\n", prefix)
	}
}

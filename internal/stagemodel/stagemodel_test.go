package stagemodel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usnistgov-mist/miststitch/internal/peak"
)

func TestExecuteEndToEndOnClusteredTranslations(t *testing.T) {
	g := newTestGrid(t, 3, 3)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if c > 0 {
				g.Tile(r, c).SetTranslation(false, peak.Peak{NCC: 0.9, X: 90, Y: int32(r % 2)})
			}
			if r > 0 {
				g.Tile(r, c).SetTranslation(true, peak.Peak{NCC: 0.9, X: int32(c % 2), Y: 90})
			}
		}
	}

	result, err := Execute(g, Config{RandomSeed: 99})
	require.NoError(t, err)
	assert.Greater(t, result.SearchRadius, 0)
	assert.False(t, result.Vertical.ValidEdgesAfterFilter == 0)
	assert.False(t, result.Horizontal.ValidEdgesAfterFilter == 0)

	path := filepath.Join(t.TempDir(), "stats.txt")
	require.NoError(t, result.WriteStatsFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "vertical_overlap")
	assert.Contains(t, string(data), "horizontal_overlap")
}

func TestExecuteAppliesOverrides(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	g.Tile(0, 1).SetTranslation(false, peak.Peak{NCC: 0.9, X: 50, Y: 0})
	g.Tile(1, 0).SetTranslation(true, peak.Peak{NCC: 0.9, X: 0, Y: 50})
	g.Tile(1, 1).SetTranslation(false, peak.Peak{NCC: 0.9, X: 50, Y: 0})
	g.Tile(1, 1).SetTranslation(true, peak.Peak{NCC: 0.9, X: 0, Y: 50})

	hOverride := 12.0
	vOverride := 12.0
	repeatOverride := 3.0
	result, err := Execute(g, Config{
		RandomSeed:                1,
		HorizontalOverlapOverride: &hOverride,
		VerticalOverlapOverride:   &vOverride,
		RepeatabilityOverride:     &repeatOverride,
	})
	require.NoError(t, err)
	assert.Equal(t, 12.0, result.Horizontal.Overlap)
	assert.Equal(t, 12.0, result.Vertical.Overlap)
	assert.Equal(t, 3.0, result.Horizontal.Repeatability)
	assert.Equal(t, 3.0, result.Vertical.Repeatability)
}

func TestExecuteErrorsWhenNoSamplesInRange(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	// Edge values at the extreme ends (0, dim-1) are never in-range samples.
	g.Tile(0, 1).SetTranslation(false, peak.Peak{NCC: 0.9, X: 0, Y: 0})
	g.Tile(1, 0).SetTranslation(true, peak.Peak{NCC: 0.9, X: 0, Y: 0})
	g.Tile(1, 1).SetTranslation(false, peak.Peak{NCC: 0.9, X: 0, Y: 0})
	g.Tile(1, 1).SetTranslation(true, peak.Peak{NCC: 0.9, X: 0, Y: 0})

	_, err := Execute(g, Config{RandomSeed: 1})
	assert.Error(t, err)
}

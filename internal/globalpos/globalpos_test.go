package globalpos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usnistgov-mist/miststitch/internal/peak"
	"github.com/usnistgov-mist/miststitch/internal/pixelio"
	"github.com/usnistgov-mist/miststitch/internal/tilegrid"
)

type fakeReader struct{}

func (fakeReader) Read(path string) (*pixelio.Image, error) {
	return &pixelio.Image{Width: 4, Height: 4, Pix: make([]uint32, 16)}, nil
}

func newTestGrid(t *testing.T, h, w int) *tilegrid.Grid {
	t.Helper()
	g, err := tilegrid.NewGrid(tilegrid.Config{
		Height:          h,
		Width:           w,
		ImageDirPath:    "/does/not/matter",
		PatternType:     tilegrid.PatternRowCol,
		FilenamePattern: "img_r{rr}_c{cc}.tif",
		Origin:          tilegrid.OriginUL,
		Numbering:       tilegrid.HorizontalContinuous,
	}, fakeReader{})
	require.NoError(t, err)
	return g
}

func TestExecuteTwoByTwoGrid(t *testing.T) {
	g := newTestGrid(t, 2, 2)

	g.Tile(0, 1).SetTranslation(false, peak.Peak{NCC: 0.9, X: 3, Y: 0}) // west edge of (0,1)
	g.Tile(1, 0).SetTranslation(true, peak.Peak{NCC: 0.9, X: 0, Y: 3})  // north edge of (1,0)
	g.Tile(1, 1).SetTranslation(false, peak.Peak{NCC: 0.9, X: 3, Y: 0})
	g.Tile(1, 1).SetTranslation(true, peak.Peak{NCC: 0.9, X: 0, Y: 3})

	result, err := Execute(g)
	require.NoError(t, err)
	assert.Equal(t, 4, result.VisitedCount)

	assert.EqualValues(t, 0, g.Tile(0, 0).AbsX)
	assert.EqualValues(t, 0, g.Tile(0, 0).AbsY)
	assert.EqualValues(t, 3, g.Tile(0, 1).AbsX)
	assert.EqualValues(t, 0, g.Tile(0, 1).AbsY)
	assert.EqualValues(t, 0, g.Tile(1, 0).AbsX)
	assert.EqualValues(t, 3, g.Tile(1, 0).AbsY)
	assert.EqualValues(t, 3, g.Tile(1, 1).AbsX)
	assert.EqualValues(t, 3, g.Tile(1, 1).AbsY)
}

func TestExecuteErrorsWhenNoTileHasFiniteNCC(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	// No translations set anywhere: every tile has MaxTranslationNCC == NaN,
	// so no seed can be found.
	_, err := Execute(g)
	assert.Error(t, err)
}

func TestExecuteToleratesTilesWithoutPeaks(t *testing.T) {
	g := newTestGrid(t, 3, 3)
	g.Tile(1, 1).SetTranslation(false, peak.Peak{NCC: -1, X: 0, Y: 0})

	// Every tile is present; most carry no peaks at all, so the traversal
	// must seed and expand without failing on the tiles that lack edge data.
	g.Tile(0, 1).SetTranslation(false, peak.Peak{NCC: 0.8, X: 3, Y: 0})

	result, err := Execute(g)
	require.NoError(t, err)
	assert.True(t, result.VisitedCount >= 1)
}

package tilegrid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usnistgov-mist/miststitch/internal/peak"
	"github.com/usnistgov-mist/miststitch/internal/pixelio"
)

type onceReader struct {
	calls int
	img   *pixelio.Image
}

func (r *onceReader) Read(path string) (*pixelio.Image, error) {
	r.calls++
	return r.img, nil
}

func TestImageCachesByDefault(t *testing.T) {
	reader := &onceReader{img: &pixelio.Image{Width: 2, Height: 2, Pix: make([]uint32, 4)}}
	tile := newTile(0, 0, "a.tif", "/a.tif", false, reader)

	_, err := tile.Image()
	require.NoError(t, err)
	_, err = tile.Image()
	require.NoError(t, err)
	assert.Equal(t, 1, reader.calls)
}

func TestImageRereadsWhenCacheDisabled(t *testing.T) {
	reader := &onceReader{img: &pixelio.Image{Width: 2, Height: 2, Pix: make([]uint32, 4)}}
	tile := newTile(0, 0, "a.tif", "/a.tif", true, reader)

	_, err := tile.Image()
	require.NoError(t, err)
	_, err = tile.Image()
	require.NoError(t, err)
	assert.Equal(t, 2, reader.calls)
}

func TestTranslationAndSetTranslation(t *testing.T) {
	tile := newTile(1, 1, "b.tif", "/b.tif", false, nil)
	assert.Nil(t, tile.Translation(true))
	assert.Nil(t, tile.Translation(false))

	tile.SetTranslation(true, peak.Peak{NCC: 0.5, X: 1, Y: 2})
	require.NotNil(t, tile.Translation(true))
	assert.EqualValues(t, 0.5, tile.Translation(true).NCC)
	assert.Nil(t, tile.Translation(false))
}

func TestMaxTranslationNCC(t *testing.T) {
	tile := newTile(1, 1, "c.tif", "/c.tif", false, nil)
	assert.True(t, math.IsNaN(tile.MaxTranslationNCC()))

	tile.SetTranslation(false, peak.Peak{NCC: 0.3})
	assert.InDelta(t, 0.3, tile.MaxTranslationNCC(), 1e-9)

	tile.SetTranslation(true, peak.Peak{NCC: 0.9})
	assert.InDelta(t, 0.9, tile.MaxTranslationNCC(), 1e-9)
}

func TestAdjacencyPredicates(t *testing.T) {
	center := newTile(1, 1, "center", "", false, nil)
	north := newTile(0, 1, "north", "", false, nil)
	south := newTile(2, 1, "south", "", false, nil)
	east := newTile(1, 2, "east", "", false, nil)
	west := newTile(1, 0, "west", "", false, nil)

	assert.True(t, center.SouthOf(north))
	assert.True(t, center.NorthOf(south))
	assert.True(t, center.EastOf(west))
	assert.True(t, center.WestOf(east))
}

func TestPeakWithResolvesOwningEdge(t *testing.T) {
	center := newTile(1, 1, "center", "", false, nil)
	north := newTile(0, 1, "north", "", false, nil)
	center.SetTranslation(true, peak.Peak{NCC: 0.4})

	p, err := center.PeakWith(north)
	require.NoError(t, err)
	assert.Same(t, center.NorthTranslation, p)

	p2, err := north.PeakWith(center)
	require.NoError(t, err)
	assert.Same(t, center.NorthTranslation, p2)
}

func TestPeakWithNonAdjacentReturnsError(t *testing.T) {
	a := newTile(0, 0, "a", "", false, nil)
	b := newTile(5, 5, "b", "", false, nil)
	_, err := a.PeakWith(b)
	assert.Error(t, err)
}

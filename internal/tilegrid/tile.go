package tilegrid

import (
	"fmt"
	"math"

	"github.com/usnistgov-mist/miststitch/internal/peak"
	"github.com/usnistgov-mist/miststitch/internal/pixelio"
)

// Tile is one acquired image at grid cell (R, C). A tile's WestTranslation
// is only meaningful when the grid has a tile at (R, C-1); analogously for
// NorthTranslation and (R-1, C).
type Tile struct {
	R, C int
	Name string
	Path string

	DisableCache bool
	pixels       *pixelio.Image // populated on first read when caching is enabled

	WestTranslation  *peak.Peak
	NorthTranslation *peak.Peak

	AbsX, AbsY int32

	reader pixelio.Reader
}

func newTile(r, c int, name, path string, disableCache bool, reader pixelio.Reader) *Tile {
	return &Tile{
		R:            r,
		C:            c,
		Name:         name,
		Path:         path,
		DisableCache: disableCache,
		reader:       reader,
	}
}

// Exists reports whether the tile's backing file is present on disk.
func (t *Tile) Exists() bool {
	_, err := t.reader.Read(t.Path)
	return err == nil
}

// Image returns the tile's pixel buffer, reading from disk on first access.
// When DisableCache is set the buffer is re-read on every call instead of
// retained.
func (t *Tile) Image() (*pixelio.Image, error) {
	if !t.DisableCache && t.pixels != nil {
		return t.pixels, nil
	}
	img, err := t.reader.Read(t.Path)
	if err != nil {
		return nil, err
	}
	if !t.DisableCache {
		t.pixels = img
	}
	return img, nil
}

// Translation returns the peak for the given axis: NorthTranslation for
// Vertical, WestTranslation for Horizontal.
func (t *Tile) Translation(vertical bool) *peak.Peak {
	if vertical {
		return t.NorthTranslation
	}
	return t.WestTranslation
}

// SetTranslation assigns the peak for the given axis.
func (t *Tile) SetTranslation(vertical bool, p peak.Peak) {
	if vertical {
		t.NorthTranslation = &p
	} else {
		t.WestTranslation = &p
	}
}

// MaxTranslationNCC returns the larger of the tile's two edge NCCs, or NaN
// if neither edge exists.
func (t *Tile) MaxTranslationNCC() float64 {
	switch {
	case t.WestTranslation != nil && t.NorthTranslation != nil:
		return math.Max(float64(t.WestTranslation.NCC), float64(t.NorthTranslation.NCC))
	case t.WestTranslation != nil:
		return float64(t.WestTranslation.NCC)
	case t.NorthTranslation != nil:
		return float64(t.NorthTranslation.NCC)
	default:
		return math.NaN()
	}
}

// NorthOf reports whether t is immediately north of other.
func (t *Tile) NorthOf(other *Tile) bool { return t.R+1 == other.R && t.C == other.C }

// SouthOf reports whether t is immediately south of other.
func (t *Tile) SouthOf(other *Tile) bool { return t.R-1 == other.R && t.C == other.C }

// EastOf reports whether t is immediately east of other.
func (t *Tile) EastOf(other *Tile) bool { return t.R == other.R && t.C-1 == other.C }

// WestOf reports whether t is immediately west of other.
func (t *Tile) WestOf(other *Tile) bool { return t.R == other.R && t.C+1 == other.C }

// PeakWith returns the peak associated with the edge to an adjacent tile,
// resolving which of the two tiles owns the shared edge.
func (t *Tile) PeakWith(other *Tile) (*peak.Peak, error) {
	switch {
	case t.NorthOf(other):
		return other.NorthTranslation, nil
	case t.SouthOf(other):
		return t.NorthTranslation, nil
	case t.EastOf(other):
		return t.WestTranslation, nil
	case t.WestOf(other):
		return other.WestTranslation, nil
	default:
		return nil, fmt.Errorf("tiles %s and %s are not adjacent", t.Name, other.Name)
	}
}

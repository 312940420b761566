package mosaic

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/usnistgov-mist/miststitch/internal/pixelio"
	"github.com/usnistgov-mist/miststitch/internal/tilegrid"
)

type constReader struct{ w, h int }

func (r constReader) Read(path string) (*pixelio.Image, error) {
	pix := make([]uint32, r.w*r.h)
	for i := range pix {
		pix[i] = 0x1234
	}
	return &pixelio.Image{Width: r.w, Height: r.h, Pix: pix}, nil
}

func TestAssembleWritesCanvasSizedToExtent(t *testing.T) {
	g, err := tilegrid.NewGrid(tilegrid.Config{
		Height:          2,
		Width:           2,
		ImageDirPath:    "/does/not/matter",
		PatternType:     tilegrid.PatternRowCol,
		FilenamePattern: "img_r{rr}_c{cc}.tif",
		Origin:          tilegrid.OriginUL,
		Numbering:       tilegrid.HorizontalContinuous,
	}, constReader{w: 4, h: 4})
	require.NoError(t, err)

	g.Tile(0, 0).AbsX, g.Tile(0, 0).AbsY = 0, 0
	g.Tile(0, 1).AbsX, g.Tile(0, 1).AbsY = 3, 0
	g.Tile(1, 0).AbsX, g.Tile(1, 0).AbsY = 0, 3
	g.Tile(1, 1).AbsX, g.Tile(1, 1).AbsY = 3, 3

	out := filepath.Join(t.TempDir(), "stitched.tif")
	require.NoError(t, Assemble(g, out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := tiff.Decode(f)
	require.NoError(t, err)

	b := img.Bounds()
	assert.Equal(t, 7, b.Dx()) // 4 (tile width) + 3 (offset)
	assert.Equal(t, 7, b.Dy())

	gray, ok := img.(*image.Gray16)
	require.True(t, ok)
	assert.Equal(t, uint16(0x1234), gray.Gray16At(0, 0).Y)
}

package pixelio

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func TestImageAtAndFloat32(t *testing.T) {
	im := &Image{Width: 2, Height: 2, Pix: []uint32{1, 2, 3, 4}}
	assert.EqualValues(t, 1, im.At(0, 0))
	assert.EqualValues(t, 4, im.At(1, 1))
	assert.Equal(t, []float32{1, 2, 3, 4}, im.Float32())
}

func TestNewReaderDecodesTIFF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.tif")

	gray := image.NewGray16(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			gray.SetGray16(x, y, color.Gray16{Y: uint16(100 * (y*3 + x))})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, tiff.Encode(f, gray, nil))
	require.NoError(t, f.Close())

	img, err := NewReader().Read(path)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Width)
	assert.Equal(t, 2, img.Height)
	assert.EqualValues(t, 0, img.At(0, 0))
	assert.EqualValues(t, 500, img.At(2, 1))
}

func TestNewReaderDecodesPNGAveragingChannels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b.png")

	rgba := image.NewRGBA(image.Rect(0, 0, 1, 1))
	rgba.Set(0, 0, color.RGBA{R: 30, G: 60, B: 90, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, rgba))
	require.NoError(t, f.Close())

	img, err := NewReader().Read(path)
	require.NoError(t, err)
	assert.Equal(t, 1, img.Width)
	assert.Equal(t, 1, img.Height)
	// RGBA() widens 8-bit channels to 16-bit before averaging.
	r, g, b, _ := rgba.At(0, 0).RGBA()
	assert.EqualValues(t, (r+g+b)/3, img.At(0, 0))
}

func TestNewReaderReturnsErrorForMissingFile(t *testing.T) {
	_, err := NewReader().Read(filepath.Join(t.TempDir(), "missing.tif"))
	assert.Error(t, err)
}

func TestToGrayImageHandlesPlainGray(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 1))
	gray.SetGray(0, 0, color.Gray{Y: 10})
	gray.SetGray(1, 0, color.Gray{Y: 20})

	out := toGrayImage(gray)
	assert.EqualValues(t, 10, out.At(0, 0))
	assert.EqualValues(t, 20, out.At(1, 0))
}

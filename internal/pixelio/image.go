// Package pixelio implements the pixel reader contract the core pipeline
// consumes (spec.md §6): given a path, return a 2-D grayscale array of known
// dtype, or fail if the tile is absent. Tiles missing from disk are
// tolerated by the caller (internal/tilegrid), not by this package.
package pixelio

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
)

// Image is a 2-D grayscale pixel buffer. Samples are widened to uint32 so
// both 8-bit and 16-bit source depths share one representation; the NCC
// stage narrows samples to float32 and the FFT stage widens them to
// complex128.
type Image struct {
	Width, Height int
	Pix           []uint32 // row-major, length Width*Height
}

// At returns the sample at (x, y). No bounds checking; callers stay inside
// [0,Width)x[0,Height) because every tile in a grid shares one shape.
func (im *Image) At(x, y int) uint32 {
	return im.Pix[y*im.Width+x]
}

// Float32 flattens the image into a row-major float32 slice, suitable for
// FFT or NCC computation.
func (im *Image) Float32() []float32 {
	out := make([]float32, len(im.Pix))
	for i, v := range im.Pix {
		out[i] = float32(v)
	}
	return out
}

// Reader reads a tile image from disk. Implementations may support a
// subset of formats; NewReader below dispatches on file extension.
type Reader interface {
	Read(path string) (*Image, error)
}

// fsReader reads grayscale TIFF or PNG tiles via the standard image
// decoders, promoting whatever channel depth is present to uint32.
type fsReader struct{}

// NewReader returns the default filesystem-backed pixel reader.
func NewReader() Reader {
	return fsReader{}
}

func (fsReader) Read(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening tile %s: %w", path, err)
	}
	defer f.Close()

	var img image.Image
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".tif", ".tiff":
		img, err = tiff.Decode(f)
	case ".png":
		img, err = png.Decode(f)
	default:
		img, _, err = image.Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding tile %s: %w", path, err)
	}

	return toGrayImage(img), nil
}

// toGrayImage converts any decoded image.Image to the grayscale Image type,
// averaging color channels when the source is not already single-channel.
func toGrayImage(src image.Image) *Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &Image{Width: w, Height: h, Pix: make([]uint32, w*h)}

	switch g := src.(type) {
	case *image.Gray16:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Pix[y*w+x] = uint32(g.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return out
	case *image.Gray:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Pix[y*w+x] = uint32(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return out
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, gch, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.Pix[y*w+x] = (r + gch + bl) / 3
		}
	}
	return out
}

// Package mosaic assembles a stitched preview image from a positioned
// grid: each tile is blitted onto a shared canvas at its absolute pixel
// position (spec.md §6 names <prefix>stitched-<t>.tif as an output,
// original_source/main.py's assemble_image collaborator does the same).
// This is a minimal last-writer-wins composite, not a blended mosaic:
// blend/feather quality is out of scope.
package mosaic

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"golang.org/x/image/tiff"

	"github.com/usnistgov-mist/miststitch/internal/tilegrid"
)

// Assemble composites every present tile in grid onto a single grayscale
// canvas sized to the grid's global extent and writes it to path as TIFF.
// Overlapping regions are resolved last-writer-wins in row-major order,
// matching the teacher's deterministic top-to-bottom, left-to-right tile
// generation order.
func Assemble(grid *tilegrid.Grid, path string) error {
	height, width, err := grid.ImageShape()
	if err != nil {
		return fmt.Errorf("assembling mosaic: %w", err)
	}

	minX, minY, maxX, maxY := 0, 0, width, height
	first := true
	grid.Each(func(t *tilegrid.Tile) {
		x0, y0 := int(t.AbsX), int(t.AbsY)
		x1, y1 := x0+width, y0+height
		if first {
			minX, minY, maxX, maxY = x0, y0, x1, y1
			first = false
			return
		}
		if x0 < minX {
			minX = x0
		}
		if y0 < minY {
			minY = y0
		}
		if x1 > maxX {
			maxX = x1
		}
		if y1 > maxY {
			maxY = y1
		}
	})
	if first {
		return fmt.Errorf("assembling mosaic: grid has no tiles")
	}

	canvas := image.NewGray16(image.Rect(0, 0, maxX-minX, maxY-minY))

	var blitErr error
	grid.Each(func(t *tilegrid.Tile) {
		if blitErr != nil {
			return
		}
		img, err := t.Image()
		if err != nil {
			blitErr = fmt.Errorf("reading tile %s: %w", t.Name, err)
			return
		}
		src := toGray16(img.Pix, img.Width, img.Height)
		dstRect := image.Rect(int(t.AbsX)-minX, int(t.AbsY)-minY, int(t.AbsX)-minX+img.Width, int(t.AbsY)-minY+img.Height)
		draw.Draw(canvas, dstRect, src, image.Point{}, draw.Src)
	})
	if blitErr != nil {
		return blitErr
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := tiff.Encode(f, canvas, nil); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}

func toGray16(pix []uint32, w, h int) *image.Gray16 {
	g := image.NewGray16(image.Rect(0, 0, w, h))
	for i, v := range pix {
		g.Pix[2*i] = byte(v >> 8)
		g.Pix[2*i+1] = byte(v)
	}
	return g
}

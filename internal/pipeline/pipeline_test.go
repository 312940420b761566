package pipeline

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/usnistgov-mist/miststitch/internal/config"
)

// writeRampTile writes a small grayscale ramp TIFF whose content differs
// enough between overlapping tiles for phase correlation to find a
// plausible (if not exactly known) peak, without needing exact values.
func writeRampTile(t *testing.T, path string, w, h, originX, originY int) {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint16((x + originX + 3*(y+originY)) % 65535)
			img.SetGray16(x, y, image.Gray16{Y: v})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tiff.Encode(f, img, nil))
}

func TestRunProducesAllOutputFiles(t *testing.T) {
	imageDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")

	const tileW, tileH = 24, 24
	const overlap = 6 // pixel overlap between adjacent tiles

	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			name := filepath.Join(imageDir, rowColName(r, c))
			writeRampTile(t, name, tileW, tileH, c*(tileW-overlap), r*(tileH-overlap))
		}
	}

	cfg := &config.Config{
		ImageDirPath:                imageDir,
		OutputDirPath:               outDir,
		GridWidth:                   2,
		GridHeight:                  2,
		FilenamePattern:             "img_r{rr}_c{cc}.tif",
		FilenamePatternType:         "ROWCOL",
		GridOrigin:                  "UL",
		NumberingPattern:            "HORIZONTALCOMBING",
		OutputPrefix:                "img-",
		OverlapUncertainty:          3.0,
		ValidCorrelationThreshold:   -1, // accept everything on this tiny synthetic grid
		TranslationRefinementMethod: "SINGLEHILLCLIMB",
		NumHillClimbs:               4,
		NumFFTPeaks:                 2,
		Concurrency:                 2,
	}

	require.NoError(t, Run(cfg))

	for _, name := range []string{
		"img-log.txt",
		"img-relative-positions-no-optimization-0.txt",
		"img-relative-positions-0.txt",
		"img-global-positions-0.txt",
		"img-statistics-0.txt",
	} {
		p := filepath.Join(outDir, name)
		info, err := os.Stat(p)
		require.NoError(t, err, "expected output file %s", name)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func rowColName(r, c int) string {
	return fmt.Sprintf("img_r%02d_c%02d.tif", r, c)
}

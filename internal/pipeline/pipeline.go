// Package pipeline orchestrates the four stitching stages in their
// required order — phase correlation, stage model, refinement, global
// positioning — and writes the output files the CLI surface promises
// (spec.md §6), mirroring original_source/main.py's mist() function.
package pipeline

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/usnistgov-mist/miststitch/internal/config"
	"github.com/usnistgov-mist/miststitch/internal/globalpos"
	"github.com/usnistgov-mist/miststitch/internal/mosaic"
	"github.com/usnistgov-mist/miststitch/internal/phasecorr"
	"github.com/usnistgov-mist/miststitch/internal/pixelio"
	"github.com/usnistgov-mist/miststitch/internal/progress"
	"github.com/usnistgov-mist/miststitch/internal/refine"
	"github.com/usnistgov-mist/miststitch/internal/stagemodel"
	"github.com/usnistgov-mist/miststitch/internal/tilegrid"
	"github.com/usnistgov-mist/miststitch/internal/workerpool"
)

// Run executes one full stitching pass: it creates cfg.OutputDirPath,
// attaches a file-backed logger inside it, builds the tile grid, then runs
// PCE, SM, RF, and GP strictly in that order before writing every output
// file. No stage begins before the previous one has returned, so SM always
// observes PCE's fully populated peaks, RF always observes SM's repaired
// peaks, and GP always observes RF's bonused peaks.
func Run(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.OutputDirPath, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	logFile, err := os.Create(filepath.Join(cfg.OutputDirPath, cfg.OutputPrefix+"log.txt"))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()
	logger := log.New(io.MultiWriter(os.Stderr, logFile), "", log.LstdFlags)

	start := time.Now()

	patternType, err := tilegrid.ParsePatternType(cfg.FilenamePatternType)
	if err != nil {
		return err
	}
	var origin tilegrid.Origin
	var numbering tilegrid.NumberingPattern
	if patternType != tilegrid.PatternCSV {
		origin, err = tilegrid.ParseOrigin(cfg.GridOrigin)
		if err != nil {
			return err
		}
		numbering, err = tilegrid.ParseNumberingPattern(cfg.NumberingPattern)
		if err != nil {
			return err
		}
	}

	grid, err := tilegrid.NewGrid(tilegrid.Config{
		Height:          cfg.GridHeight,
		Width:           cfg.GridWidth,
		ImageDirPath:    cfg.ImageDirPath,
		PatternType:     patternType,
		FilenamePattern: cfg.FilenamePattern,
		GridIndexCSV:    cfg.GridIndexCSV,
		Origin:          origin,
		Numbering:       numbering,
		StartRow:        cfg.StartRow,
		StartCol:        cfg.StartCol,
		StartTile:       cfg.StartTile,
		TimeSlice:       cfg.TimeSlice,
		DisableMemCache: cfg.DisableMemCache,
	}, pixelio.NewReader())
	if err != nil {
		return fmt.Errorf("building tile grid: %w", err)
	}
	grid.DumpNames()

	// A disabled memory cache forces single-worker sequential execution so
	// no tile is read from disk more than once concurrently, matching the
	// original tool's PciamSequential/RefineSequential fallback.
	workers := cfg.Concurrency
	if cfg.DisableMemCache {
		workers = 1
	}
	pool := workerpool.New(workers)

	logger.Print("computing all pairwise translations between images")
	var pceBar *progress.Bar
	if cfg.Verbose {
		pceBar = progress.New("phase correlation", int64(edgeCount(grid)))
	}
	if err := phasecorr.Execute(grid, pool, phasecorr.Config{
		NumPeaks:   cfg.NumFFTPeaks,
		OnEdgeDone: barTick(pceBar),
	}); err != nil {
		return fmt.Errorf("phase correlation: %w", err)
	}
	if pceBar != nil {
		pceBar.Finish()
	}
	if cfg.Verbose {
		grid.DumpPeaks("north", "ncc")
		grid.DumpPeaks("west", "ncc")
	}

	noOptPath := filepath.Join(cfg.OutputDirPath, fmt.Sprintf("%srelative-positions-no-optimization-%d.txt", cfg.OutputPrefix, timeSlice(cfg)))
	if err := grid.WriteTranslationsToFile(noOptPath); err != nil {
		return fmt.Errorf("writing pre-optimization translations: %w", err)
	}

	logger.Print("building the stage model")
	smResult, err := stagemodel.Execute(grid, stagemodel.Config{
		OverlapUncertainty:        cfg.OverlapUncertainty,
		ValidCorrelationThreshold: cfg.ValidCorrelationThreshold,
		HorizontalOverlapOverride: cfg.HorizontalOverlap,
		VerticalOverlapOverride:   cfg.VerticalOverlap,
		RepeatabilityOverride:     cfg.StageRepeatability,
	})
	if err != nil {
		return fmt.Errorf("stage model: %w", err)
	}
	statsPath := filepath.Join(cfg.OutputDirPath, fmt.Sprintf("%sstatistics-%d.txt", cfg.OutputPrefix, timeSlice(cfg)))
	if err := smResult.WriteStatsFile(statsPath); err != nil {
		return fmt.Errorf("writing statistics: %w", err)
	}

	refineMethod, err := refine.ParseMethod(cfg.TranslationRefinementMethod)
	if err != nil {
		return err
	}
	logger.Print("refining translations")
	var rfBar *progress.Bar
	if cfg.Verbose {
		rfBar = progress.New("refinement", int64(edgeCount(grid)))
	}
	if err := refine.Execute(grid, refine.Config{
		Method:        refineMethod,
		NumHillClimbs: cfg.NumHillClimbs,
		SearchRadius:  smResult.SearchRadius,
		OnEdgeDone:    barTick(rfBar),
	}, pool); err != nil {
		return fmt.Errorf("refinement: %w", err)
	}
	if rfBar != nil {
		rfBar.Finish()
	}

	logger.Print("composing pairwise translations into global positions")
	gpResult, err := globalpos.Execute(grid)
	if err != nil {
		return fmt.Errorf("global positioning: %w", err)
	}
	logger.Printf("global positioning visited %d/%d tiles", gpResult.VisitedCount, gpResult.TotalCount)

	relPath := filepath.Join(cfg.OutputDirPath, fmt.Sprintf("%srelative-positions-%d.txt", cfg.OutputPrefix, timeSlice(cfg)))
	if err := grid.WriteTranslationsToFile(relPath); err != nil {
		return fmt.Errorf("writing refined translations: %w", err)
	}

	globalPath := filepath.Join(cfg.OutputDirPath, fmt.Sprintf("%sglobal-positions-%d.txt", cfg.OutputPrefix, timeSlice(cfg)))
	if err := grid.WriteGlobalPositionsToFile(globalPath); err != nil {
		return fmt.Errorf("writing global positions: %w", err)
	}

	if cfg.SaveImage {
		imgPath := filepath.Join(cfg.OutputDirPath, fmt.Sprintf("%sstitched-%d.tif", cfg.OutputPrefix, timeSlice(cfg)))
		if err := mosaic.Assemble(grid, imgPath); err != nil {
			return fmt.Errorf("assembling mosaic: %w", err)
		}
	}

	logger.Printf("stitching took %s", time.Since(start))
	return nil
}

func timeSlice(cfg *config.Config) int {
	if cfg.TimeSlice != nil {
		return *cfg.TimeSlice
	}
	return 0
}

func edgeCount(grid *tilegrid.Grid) int {
	n := 0
	grid.Each(func(t *tilegrid.Tile) {
		if grid.Tile(t.R, t.C-1) != nil {
			n++
		}
		if grid.Tile(t.R-1, t.C) != nil {
			n++
		}
	})
	return n
}

func barTick(b *progress.Bar) func() {
	if b == nil {
		return nil
	}
	return b.Increment
}

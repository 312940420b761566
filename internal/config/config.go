// Package config defines the pipeline's configuration surface and loads it
// from CLI flags plus an optional YAML parameter file, mirroring the
// teacher's single flat flag.XxxVar block (cmd/geotiff2pmtiles/main.go)
// while adding the --config file support the original Python entry point
// left as a TODO.
package config

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/usnistgov-mist/miststitch/internal/refine"
	"github.com/usnistgov-mist/miststitch/internal/tilegrid"
)

// Config is the complete set of parameters driving one stitching run.
type Config struct {
	ImageDirPath   string `yaml:"image-dirpath"`
	OutputDirPath  string `yaml:"output-dirpath"`
	GridWidth      int    `yaml:"grid-width"`
	GridHeight     int    `yaml:"grid-height"`
	StartRow       int    `yaml:"start-row"`
	StartCol       int    `yaml:"start-col"`
	StartTile      int    `yaml:"start-tile"`
	FilenamePattern string `yaml:"filename-pattern"`
	FilenamePatternType string `yaml:"filename-pattern-type"`
	GridIndexCSV   string `yaml:"grid-index-csv"`
	GridOrigin     string `yaml:"grid-origin"`
	NumberingPattern string `yaml:"numbering-pattern"`
	OutputPrefix   string  `yaml:"output-prefix"`
	SaveImage      bool    `yaml:"save-image"`
	DisableMemCache bool   `yaml:"disable-mem-cache"`

	StageRepeatability  *float64 `yaml:"stage-repeatability"`
	HorizontalOverlap   *float64 `yaml:"horizontal-overlap"`
	VerticalOverlap     *float64 `yaml:"vertical-overlap"`
	OverlapUncertainty  float64  `yaml:"overlap-uncertainty"`
	ValidCorrelationThreshold float64 `yaml:"valid-correlation-threshold"`
	TimeSlice           *int    `yaml:"time-slice"`

	TranslationRefinementMethod string `yaml:"translation-refinement-method"`
	NumHillClimbs               int    `yaml:"num-hill-climbs"`
	NumFFTPeaks                 int    `yaml:"num-fft-peaks"`

	Concurrency int `yaml:"concurrency"`
	Verbose     bool `yaml:"verbose"`
}

// defaults mirrors the original argparse defaults.
func defaults() Config {
	return Config{
		OutputPrefix:                "img-",
		OverlapUncertainty:          3.0,
		ValidCorrelationThreshold:   0.5,
		TranslationRefinementMethod: "SINGLEHILLCLIMB",
		NumHillClimbs:               16,
		NumFFTPeaks:                 2,
		Concurrency:                 runtime.GOMAXPROCS(0),
	}
}

// Parse builds a Config from args (typically os.Args[1:]): a --config YAML
// file is loaded first if given, then CLI flags are applied on top so flags
// always override file values. fs lets callers (and tests) supply their own
// flag.FlagSet instead of flag.CommandLine.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := defaults()

	var configPath string
	fs.StringVar(&configPath, "config", "", "optional YAML file supplying any of the flags below; flags override it")

	fs.StringVar(&cfg.ImageDirPath, "image-dirpath", cfg.ImageDirPath, "directory holding tile images")
	fs.StringVar(&cfg.OutputDirPath, "output-dirpath", cfg.OutputDirPath, "fresh output directory (error if it already exists)")
	fs.IntVar(&cfg.GridWidth, "grid-width", cfg.GridWidth, "grid width in tiles")
	fs.IntVar(&cfg.GridHeight, "grid-height", cfg.GridHeight, "grid height in tiles")
	fs.IntVar(&cfg.StartRow, "start-row", cfg.StartRow, "row index offset for ROWCOL filename patterns")
	fs.IntVar(&cfg.StartCol, "start-col", cfg.StartCol, "col index offset for ROWCOL filename patterns")
	fs.IntVar(&cfg.StartTile, "start-tile", cfg.StartTile, "tile index offset for SEQUENTIAL filename patterns")
	fs.StringVar(&cfg.FilenamePattern, "filename-pattern", cfg.FilenamePattern, "filename pattern with {rrr}/{ccc}/{ppp}/{ttt} fields")
	fs.StringVar(&cfg.FilenamePatternType, "filename-pattern-type", cfg.FilenamePatternType, "SEQUENTIAL, ROWCOL, or CSV")
	fs.StringVar(&cfg.GridIndexCSV, "grid-index-csv", cfg.GridIndexCSV, "row,col,filename CSV grid index (filename-pattern-type=CSV)")
	fs.StringVar(&cfg.GridOrigin, "grid-origin", cfg.GridOrigin, "UL, UR, LL, or LR")
	fs.StringVar(&cfg.NumberingPattern, "numbering-pattern", cfg.NumberingPattern, "HORIZONTALCOMBING, VERTICALCOMBING, HORIZONTALCONTINUOUS, or VERTICALCONTINUOUS")
	fs.StringVar(&cfg.OutputPrefix, "output-prefix", cfg.OutputPrefix, "prefix prepended to every output filename")
	fs.BoolVar(&cfg.SaveImage, "save-image", cfg.SaveImage, "emit a stitched mosaic TIFF")
	fs.BoolVar(&cfg.DisableMemCache, "disable-mem-cache", cfg.DisableMemCache, "re-read each tile from disk on every access instead of caching")

	var stageRepeatability, horizontalOverlap, verticalOverlap float64
	var hasStageRepeatability, hasHorizontalOverlap, hasVerticalOverlap bool
	fs.Func("stage-repeatability", "override computed stage repeatability", func(s string) error {
		hasStageRepeatability = true
		return scanFloat(s, &stageRepeatability)
	})
	fs.Func("horizontal-overlap", "override inferred horizontal overlap (percent)", func(s string) error {
		hasHorizontalOverlap = true
		return scanFloat(s, &horizontalOverlap)
	})
	fs.Func("vertical-overlap", "override inferred vertical overlap (percent)", func(s string) error {
		hasVerticalOverlap = true
		return scanFloat(s, &verticalOverlap)
	})
	fs.Float64Var(&cfg.OverlapUncertainty, "overlap-uncertainty", cfg.OverlapUncertainty, "overlap uncertainty, percent")
	fs.Float64Var(&cfg.ValidCorrelationThreshold, "valid-correlation-threshold", cfg.ValidCorrelationThreshold, "minimum NCC to consider a translation valid")

	var timeSlice int
	var hasTimeSlice bool
	fs.Func("time-slice", "selects a slice when {t+} is present in the filename pattern", func(s string) error {
		hasTimeSlice = true
		return scanInt(s, &timeSlice)
	})

	fs.StringVar(&cfg.TranslationRefinementMethod, "translation-refinement-method", cfg.TranslationRefinementMethod, "SINGLEHILLCLIMB or MULTIPOINTHILLCLIMB")
	fs.IntVar(&cfg.NumHillClimbs, "num-hill-climbs", cfg.NumHillClimbs, "number of multipoint hill climb starts")
	fs.IntVar(&cfg.NumFFTPeaks, "num-fft-peaks", cfg.NumFFTPeaks, "number of phase-correlation peaks to disambiguate")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "worker pool size")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "verbose progress output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath != "" {
		if err := loadYAMLInto(&cfg, configPath, fs); err != nil {
			return nil, err
		}
	}

	if hasStageRepeatability {
		cfg.StageRepeatability = &stageRepeatability
	}
	if hasHorizontalOverlap {
		cfg.HorizontalOverlap = &horizontalOverlap
	}
	if hasVerticalOverlap {
		cfg.VerticalOverlap = &verticalOverlap
	}
	if hasTimeSlice {
		cfg.TimeSlice = &timeSlice
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadYAMLInto overlays a YAML config file's values onto cfg, but only for
// fields the caller did not already set via flags (fs.Visit only reports
// flags explicitly provided on the command line).
func loadYAMLInto(cfg *Config, path string, fs *flag.FlagSet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	merge(cfg, &fileCfg, explicit)
	return nil
}

func scanFloat(s string, out *float64) error {
	_, err := fmt.Sscanf(s, "%g", out)
	if err != nil {
		return fmt.Errorf("invalid float %q: %w", s, err)
	}
	return nil
}

func scanInt(s string, out *int) error {
	_, err := fmt.Sscanf(s, "%d", out)
	if err != nil {
		return fmt.Errorf("invalid int %q: %w", s, err)
	}
	return nil
}

// ParseOrigin, ParseNumberingPattern, ParsePatternType, and
// refine.ParseMethod validate the enum-valued flags; Validate calls them to
// surface configuration errors before any processing begins (spec.md §7).
func (c *Config) Validate() error {
	if c.ImageDirPath == "" {
		return fmt.Errorf("configuration: --image-dirpath is required")
	}
	if c.OutputDirPath == "" {
		return fmt.Errorf("configuration: --output-dirpath is required")
	}
	if c.GridWidth <= 0 || c.GridHeight <= 0 {
		return fmt.Errorf("configuration: --grid-width and --grid-height must be positive")
	}
	if _, err := os.Stat(c.OutputDirPath); err == nil {
		return fmt.Errorf("configuration: output directory already exists: %s", c.OutputDirPath)
	}

	if _, err := tilegrid.ParsePatternType(c.FilenamePatternType); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	if c.FilenamePatternType != "CSV" {
		if c.FilenamePattern == "" {
			return fmt.Errorf("configuration: --filename-pattern is required unless --filename-pattern-type=CSV")
		}
		if _, err := tilegrid.ParseOrigin(c.GridOrigin); err != nil {
			return fmt.Errorf("configuration: %w", err)
		}
		if _, err := tilegrid.ParseNumberingPattern(c.NumberingPattern); err != nil {
			return fmt.Errorf("configuration: %w", err)
		}
	} else if c.GridIndexCSV == "" {
		return fmt.Errorf("configuration: --grid-index-csv is required when --filename-pattern-type=CSV")
	}

	if _, err := refine.ParseMethod(c.TranslationRefinementMethod); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	return nil
}

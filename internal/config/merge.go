package config

// merge overlays non-zero fields of file onto cfg, skipping any flag name
// the caller explicitly set on the command line (explicit wins over file,
// file wins over built-in defaults).
func merge(cfg, file *Config, explicit map[string]bool) {
	setString := func(name string, dst *string, src string) {
		if !explicit[name] && src != "" {
			*dst = src
		}
	}
	setInt := func(name string, dst *int, src int) {
		if !explicit[name] && src != 0 {
			*dst = src
		}
	}
	setBool := func(name string, dst *bool, src bool) {
		if !explicit[name] && src {
			*dst = src
		}
	}
	setFloat := func(name string, dst *float64, src float64) {
		if !explicit[name] && src != 0 {
			*dst = src
		}
	}

	setString("image-dirpath", &cfg.ImageDirPath, file.ImageDirPath)
	setString("output-dirpath", &cfg.OutputDirPath, file.OutputDirPath)
	setInt("grid-width", &cfg.GridWidth, file.GridWidth)
	setInt("grid-height", &cfg.GridHeight, file.GridHeight)
	setInt("start-row", &cfg.StartRow, file.StartRow)
	setInt("start-col", &cfg.StartCol, file.StartCol)
	setInt("start-tile", &cfg.StartTile, file.StartTile)
	setString("filename-pattern", &cfg.FilenamePattern, file.FilenamePattern)
	setString("filename-pattern-type", &cfg.FilenamePatternType, file.FilenamePatternType)
	setString("grid-index-csv", &cfg.GridIndexCSV, file.GridIndexCSV)
	setString("grid-origin", &cfg.GridOrigin, file.GridOrigin)
	setString("numbering-pattern", &cfg.NumberingPattern, file.NumberingPattern)
	setString("output-prefix", &cfg.OutputPrefix, file.OutputPrefix)
	setBool("save-image", &cfg.SaveImage, file.SaveImage)
	setBool("disable-mem-cache", &cfg.DisableMemCache, file.DisableMemCache)

	if !explicit["stage-repeatability"] && file.StageRepeatability != nil {
		cfg.StageRepeatability = file.StageRepeatability
	}
	if !explicit["horizontal-overlap"] && file.HorizontalOverlap != nil {
		cfg.HorizontalOverlap = file.HorizontalOverlap
	}
	if !explicit["vertical-overlap"] && file.VerticalOverlap != nil {
		cfg.VerticalOverlap = file.VerticalOverlap
	}
	if !explicit["time-slice"] && file.TimeSlice != nil {
		cfg.TimeSlice = file.TimeSlice
	}

	setFloat("overlap-uncertainty", &cfg.OverlapUncertainty, file.OverlapUncertainty)
	setFloat("valid-correlation-threshold", &cfg.ValidCorrelationThreshold, file.ValidCorrelationThreshold)

	setString("translation-refinement-method", &cfg.TranslationRefinementMethod, file.TranslationRefinementMethod)
	setInt("num-hill-climbs", &cfg.NumHillClimbs, file.NumHillClimbs)
	setInt("num-fft-peaks", &cfg.NumFFTPeaks, file.NumFFTPeaks)
	setInt("concurrency", &cfg.Concurrency, file.Concurrency)
	setBool("verbose", &cfg.Verbose, file.Verbose)
}

package tilegrid

import (
	"fmt"
	"regexp"
)

// Origin is the physical corner of the stage where tile numbering starts.
type Origin int

const (
	OriginUL Origin = iota
	OriginUR
	OriginLL
	OriginLR
)

// ParseOrigin parses the --grid-origin flag value.
func ParseOrigin(s string) (Origin, error) {
	switch s {
	case "UL":
		return OriginUL, nil
	case "UR":
		return OriginUR, nil
	case "LL":
		return OriginLL, nil
	case "LR":
		return OriginLR, nil
	default:
		return 0, fmt.Errorf("unknown grid origin: %q (supported: UL, UR, LL, LR)", s)
	}
}

// NumberingPattern is one of the four meander/raster acquisition orders.
type NumberingPattern int

const (
	HorizontalCombing NumberingPattern = iota
	VerticalCombing
	HorizontalContinuous
	VerticalContinuous
)

// ParseNumberingPattern parses the --numbering-pattern flag value.
func ParseNumberingPattern(s string) (NumberingPattern, error) {
	switch s {
	case "HORIZONTALCOMBING":
		return HorizontalCombing, nil
	case "VERTICALCOMBING":
		return VerticalCombing, nil
	case "HORIZONTALCONTINUOUS":
		return HorizontalContinuous, nil
	case "VERTICALCONTINUOUS":
		return VerticalContinuous, nil
	default:
		return 0, fmt.Errorf("unknown numbering pattern: %q", s)
	}
}

// PatternType selects the filename-pattern dialect.
type PatternType int

const (
	PatternRowCol PatternType = iota
	PatternSequential
	PatternCSV
)

// ParsePatternType parses the --filename-pattern-type flag value.
func ParsePatternType(s string) (PatternType, error) {
	switch s {
	case "ROWCOL":
		return PatternRowCol, nil
	case "SEQUENTIAL":
		return PatternSequential, nil
	case "CSV":
		return PatternCSV, nil
	default:
		return 0, fmt.Errorf("unknown filename pattern type: %q (supported: ROWCOL, SEQUENTIAL, CSV)", s)
	}
}

var (
	rowFieldPattern  = regexp.MustCompile(`\{r+\}`)
	colFieldPattern  = regexp.MustCompile(`\{c+\}`)
	timeFieldPattern = regexp.MustCompile(`\{t+\}`)
	posFieldPattern  = regexp.MustCompile(`\{p+\}`)
)

// formatField substitutes the first {xxx} run matched by re with value,
// zero-padded to the run's width.
func formatField(pattern string, re *regexp.Regexp, value int) string {
	loc := re.FindStringIndex(pattern)
	if loc == nil {
		return pattern
	}
	width := loc[1] - loc[0] - 2 // exclude the braces
	return pattern[:loc[0]] + fmt.Sprintf("%0*d", width, value) + pattern[loc[1]:]
}

// expandRowColFilename fills the {rrr}/{ccc} fields (and, if present,
// {ttt}) of a ROWCOL filename pattern.
func expandRowColFilename(pattern string, row, col int, timeSlice *int) (string, error) {
	if timeFieldPattern.MatchString(pattern) {
		if timeSlice == nil {
			return "", fmt.Errorf("filename pattern has a time field {t+} but no --time-slice was given")
		}
		pattern = formatField(pattern, timeFieldPattern, *timeSlice)
	}
	if !rowFieldPattern.MatchString(pattern) {
		return "", fmt.Errorf("filename pattern %q has no row field {r+}", pattern)
	}
	if !colFieldPattern.MatchString(pattern) {
		return "", fmt.Errorf("filename pattern %q has no col field {c+}", pattern)
	}
	pattern = formatField(pattern, rowFieldPattern, row)
	pattern = formatField(pattern, colFieldPattern, col)
	return pattern, nil
}

// expandSequentialFilename fills the {ppp} position field (and, if
// present, {ttt}) of a SEQUENTIAL filename pattern.
func expandSequentialFilename(pattern string, position int, timeSlice *int) (string, error) {
	if timeFieldPattern.MatchString(pattern) {
		if timeSlice == nil {
			return "", fmt.Errorf("filename pattern has a time field {t+} but no --time-slice was given")
		}
		pattern = formatField(pattern, timeFieldPattern, *timeSlice)
	}
	if !posFieldPattern.MatchString(pattern) {
		return "", fmt.Errorf("filename pattern %q has no position field {p+}", pattern)
	}
	return formatField(pattern, posFieldPattern, position), nil
}

// acquisitionOrder returns the (row, col) cell visited at each sequential
// acquisition index, for the given grid shape, origin corner, and meander
// pattern. This resolves an acquisition order that the upstream tool left
// unimplemented for the SEQUENTIAL pattern type.
func acquisitionOrder(height, width int, origin Origin, numbering NumberingPattern) [][2]int {
	rowForward := origin == OriginUL || origin == OriginUR
	colForward := origin == OriginUL || origin == OriginLL

	rows := orderedIndices(height, rowForward)
	cols := orderedIndices(width, colForward)

	order := make([][2]int, 0, height*width)
	switch numbering {
	case HorizontalContinuous:
		for _, r := range rows {
			for _, c := range cols {
				order = append(order, [2]int{r, c})
			}
		}
	case HorizontalCombing:
		for i, r := range rows {
			line := cols
			if i%2 == 1 {
				line = reversed(cols)
			}
			for _, c := range line {
				order = append(order, [2]int{r, c})
			}
		}
	case VerticalContinuous:
		for _, c := range cols {
			for _, r := range rows {
				order = append(order, [2]int{r, c})
			}
		}
	case VerticalCombing:
		for i, c := range cols {
			line := rows
			if i%2 == 1 {
				line = reversed(rows)
			}
			for _, r := range line {
				order = append(order, [2]int{r, c})
			}
		}
	}
	return order
}

func orderedIndices(n int, forward bool) []int {
	idx := make([]int, n)
	for i := range idx {
		if forward {
			idx[i] = i
		} else {
			idx[i] = n - 1 - i
		}
	}
	return idx
}

func reversed(xs []int) []int {
	out := make([]int, len(xs))
	for i, x := range xs {
		out[len(xs)-1-i] = x
	}
	return out
}

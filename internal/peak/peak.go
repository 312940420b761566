// Package peak defines the translation-candidate value type shared by every
// stage of the stitching pipeline.
package peak

import "math"

// Peak is a translation candidate between two tiles: the integer pixel
// offset (X, Y) from a neighbor tile into the current tile's frame, and the
// normalized cross-correlation (NCC) observed at that offset.
//
// NCC lies in [-1, 1]; NaN marks the peak as invalid (discarded by the
// stage model, to be repaired before refinement).
type Peak struct {
	NCC float32
	X   int32
	Y   int32
}

// Invalid reports whether p has been marked invalid (NaN correlation).
func (p Peak) Invalid() bool {
	return math.IsNaN(float64(p.NCC))
}

// Component returns the primary (Vertical: Y, Horizontal: X) and orthogonal
// component of the peak for the given axis.
func (p Peak) Component(vertical bool) (primary, orthogonal int32) {
	if vertical {
		return p.Y, p.X
	}
	return p.X, p.Y
}

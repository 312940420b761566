// Package axis models the VERTICAL/HORIZONTAL (north/west) direction as a
// two-valued sum type instead of the stringly-typed "VERTICAL"/"HORIZONTAL"
// tags the original implementation passed around, so the axis/component
// choice can't typo its way into a bug.
package axis

// Axis distinguishes the two edge directions a tile can have: a Vertical
// (north) edge and a Horizontal (west) edge.
type Axis int

const (
	// Vertical is the north-edge axis; its primary component is Y.
	Vertical Axis = iota
	// Horizontal is the west-edge axis; its primary component is X.
	Horizontal
)

// String renders the axis the way the original tool names it in logs and
// statistics files.
func (a Axis) String() string {
	if a == Vertical {
		return "VERTICAL"
	}
	return "HORIZONTAL"
}

// Both lists both axes, vertical first, for "run this per axis" loops.
func Both() [2]Axis {
	return [2]Axis{Vertical, Horizontal}
}

// IsVertical reports whether a is the Vertical (north) axis, the form the
// tilegrid.Tile accessors expect.
func (a Axis) IsVertical() bool {
	return a == Vertical
}

package axis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVertical(t *testing.T) {
	assert.True(t, Vertical.IsVertical())
	assert.False(t, Horizontal.IsVertical())
}

func TestString(t *testing.T) {
	assert.Equal(t, "VERTICAL", Vertical.String())
	assert.Equal(t, "HORIZONTAL", Horizontal.String())
}

func TestBothListsVerticalFirst(t *testing.T) {
	assert.Equal(t, [2]Axis{Vertical, Horizontal}, Both())
}

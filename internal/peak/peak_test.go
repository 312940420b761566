package peak

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalid(t *testing.T) {
	assert.True(t, Peak{NCC: float32(math.NaN())}.Invalid())
	assert.False(t, Peak{NCC: -1}.Invalid())
	assert.False(t, Peak{NCC: 0.5}.Invalid())
}

func TestComponentVertical(t *testing.T) {
	p := Peak{X: 3, Y: 7}
	primary, orthogonal := p.Component(true)
	assert.EqualValues(t, 7, primary)
	assert.EqualValues(t, 3, orthogonal)
}

func TestComponentHorizontal(t *testing.T) {
	p := Peak{X: 3, Y: 7}
	primary, orthogonal := p.Component(false)
	assert.EqualValues(t, 3, primary)
	assert.EqualValues(t, 7, orthogonal)
}

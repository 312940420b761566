package workerpool

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunExecutesEveryTask(t *testing.T) {
	p := New(4)
	var count atomic.Int64
	tasks := make([]func(), 50)
	for i := range tasks {
		tasks[i] = func() { count.Add(1) }
	}
	p.Run(tasks)
	assert.EqualValues(t, 50, count.Load())
}

func TestRunSingleWorkerIsSequential(t *testing.T) {
	p := New(1)
	var order []int
	tasks := make([]func(), 5)
	for i := range tasks {
		i := i
		tasks[i] = func() { order = append(order, i) }
	}
	p.Run(tasks)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestRunEmptyTaskListIsNoop(t *testing.T) {
	p := New(4)
	assert.NotPanics(t, func() { p.Run(nil) })
}

func TestNewClampsZeroOrNegativeToGOMAXPROCS(t *testing.T) {
	p := New(0)
	assert.Greater(t, p.Workers(), 0)
	p2 := New(-3)
	assert.Greater(t, p2.Workers(), 0)
}

package navtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDepthVarianceStationary(t *testing.T) {
	t.Run("fewer than 3 samples is never stationary", func(t *testing.T) {
		assert.False(t, DepthVarianceStationary([]float64{1.0, 1.0}, 0.05))
	})

	t.Run("tight spread within variance is stationary", func(t *testing.T) {
		assert.True(t, DepthVarianceStationary([]float64{1.0, 1.02, 0.98}, 0.05))
	})

	t.Run("wide spread exceeds variance", func(t *testing.T) {
		assert.False(t, DepthVarianceStationary([]float64{1.0, 1.5, 0.9}, 0.05))
	})
}

func TestIsStationaryRecord(t *testing.T) {
	t.Run("stopped and not directional is stationary", func(t *testing.T) {
		r := &Record{Events: []string{"stop"}}
		assert.True(t, IsStationaryRecord(r, false))
	})

	t.Run("depth stationary and not directional is stationary", func(t *testing.T) {
		r := &Record{Events: []string{"obstacle_center"}}
		assert.True(t, IsStationaryRecord(r, true))
	})

	t.Run("directional movement vetoes stationary", func(t *testing.T) {
		r := &Record{Events: []string{"stop", "veer_left"}}
		assert.False(t, IsStationaryRecord(r, true))
	})

	t.Run("neither stopped nor depth stationary", func(t *testing.T) {
		r := &Record{Events: []string{"proceed"}}
		assert.False(t, IsStationaryRecord(r, false))
	})
}

func TestDepthWindow(t *testing.T) {
	t.Run("push and evict beyond capacity", func(t *testing.T) {
		w := NewDepthWindow(3)
		w.Push(1.0)
		w.Push(1.0)
		w.Push(1.0)
		w.Push(5.0)
		assert.False(t, w.Stationary(0.05))
	})

	t.Run("stable window within capacity is stationary", func(t *testing.T) {
		w := NewDepthWindow(3)
		w.Push(1.0)
		w.Push(1.01)
		w.Push(0.99)
		assert.True(t, w.Stationary(0.05))
	})

	t.Run("reset empties the window", func(t *testing.T) {
		w := NewDepthWindow(3)
		w.Push(1.0)
		w.Push(1.0)
		w.Push(1.0)
		w.Reset()
		assert.False(t, w.Stationary(0.05))
	})
}

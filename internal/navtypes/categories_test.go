package navtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDirectionalEvent(t *testing.T) {
	t.Run("exact substring matches", func(t *testing.T) {
		assert.True(t, IsDirectionalEvent("veer_left"))
		assert.True(t, IsDirectionalEvent("veer_right"))
		assert.True(t, IsDirectionalEvent("proceed"))
	})

	t.Run("suffixed tag still matches", func(t *testing.T) {
		assert.True(t, IsDirectionalEvent("veer_left_15"))
	})

	t.Run("unrelated tag does not match", func(t *testing.T) {
		assert.False(t, IsDirectionalEvent("stop"))
		assert.False(t, IsDirectionalEvent("obstacle_center"))
	})
}

func TestIsObstacleEvent(t *testing.T) {
	assert.True(t, IsObstacleEvent("obstacle_center"))
	assert.True(t, IsObstacleEvent("obstacle_close"))
	assert.True(t, IsObstacleEvent("collision_warning"))
	assert.False(t, IsObstacleEvent("stop"))
	assert.False(t, IsObstacleEvent("collision"))
}

func TestContainsVeer(t *testing.T) {
	assert.True(t, ContainsVeer("veer_left"))
	assert.True(t, ContainsVeer("veer_right_20"))
	assert.False(t, ContainsVeer("proceed"))
}

package watchdog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pathwatch/navguard/internal/navtypes"
)

func depthPtr(v float64) *float64 { return &v }

func TestStationarySince(t *testing.T) {
	th := navtypes.DefaultThresholds()

	t.Run("fewer than 2 records is never stationary", func(t *testing.T) {
		window := []*navtypes.Record{{T: 1, Events: []string{"stop"}}}
		assert.Nil(t, stationarySince(window, th))
	})

	t.Run("newest record not stationary returns nil", func(t *testing.T) {
		window := []*navtypes.Record{
			{T: 1, Events: []string{"stop"}},
			{T: 2, Events: []string{"proceed"}},
		}
		assert.Nil(t, stationarySince(window, th))
	})

	t.Run("contiguous stationary run returns its oldest t", func(t *testing.T) {
		window := []*navtypes.Record{
			{T: 1, Events: []string{"proceed"}},
			{T: 2, Events: []string{"stop"}},
			{T: 3, Events: []string{"stop"}},
		}
		since := stationarySince(window, th)
		assert.NotNil(t, since)
		assert.Equal(t, int64(2), *since)
	})
}

func TestCheckAccident(t *testing.T) {
	th := navtypes.DefaultThresholds()

	t.Run("direct accident event in the current record", func(t *testing.T) {
		window := []*navtypes.Record{
			{T: 1, Events: []string{"fall"}},
		}
		alert, ok := checkAccident(window, th)
		assert.True(t, ok)
		assert.Equal(t, navtypes.AlertKindAccident, alert.Kind)
	})

	t.Run("no pattern matches", func(t *testing.T) {
		window := []*navtypes.Record{
			{T: 1, Events: []string{"proceed"}},
		}
		_, ok := checkAccident(window, th)
		assert.False(t, ok)
	})
}

func TestCheckVeerSurge(t *testing.T) {
	th := navtypes.DefaultThresholds()

	t.Run("surge with sustained stop fires", func(t *testing.T) {
		window := []*navtypes.Record{
			{T: 0, Events: []string{"veer_left"}},
			{T: 1, Events: []string{"veer_right"}},
			{T: 2, Events: []string{"veer_left"}},
			{T: 3, Events: []string{"stop"}},
			{T: 150, Events: []string{"stop"}},
		}
		current := window[len(window)-1]
		alert, ok := checkVeerSurge(window, current, th)
		assert.True(t, ok)
		assert.Equal(t, navtypes.AlertKindAccident, alert.Kind)
	})

	t.Run("not enough veers does not fire", func(t *testing.T) {
		window := []*navtypes.Record{
			{T: 0, Events: []string{"veer_left"}},
			{T: 3, Events: []string{"stop"}},
			{T: 150, Events: []string{"stop"}},
		}
		current := window[len(window)-1]
		_, ok := checkVeerSurge(window, current, th)
		assert.False(t, ok)
	})

	t.Run("current record not stopped does not fire", func(t *testing.T) {
		window := []*navtypes.Record{
			{T: 0, Events: []string{"veer_left"}},
			{T: 1, Events: []string{"veer_right"}},
			{T: 2, Events: []string{"veer_left"}},
			{T: 3, Events: []string{"proceed"}},
		}
		current := window[len(window)-1]
		_, ok := checkVeerSurge(window, current, th)
		assert.False(t, ok)
	})
}

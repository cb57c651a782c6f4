package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pathwatch/navguard/internal/navtypes"
)

func TestPattern1(t *testing.T) {
	t.Run("direct accident event matches", func(t *testing.T) {
		r := &navtypes.Record{Events: []string{"fall"}}
		matched, ok := Pattern1(r)
		assert.True(t, ok)
		assert.Equal(t, []string{"fall"}, matched)
	})

	t.Run("no accident event", func(t *testing.T) {
		_, ok := Pattern1(&navtypes.Record{Events: []string{"stop"}})
		assert.False(t, ok)
	})
}

func TestIsAccidentAnchor(t *testing.T) {
	th := navtypes.DefaultThresholds()

	t.Run("qualifying anchor", func(t *testing.T) {
		r := &navtypes.Record{Events: []string{"obstacle_center"}, Confidence: 0.9, FreeAheadM: depthPtr(0.2)}
		assert.True(t, IsAccidentAnchor(r, th))
	})

	t.Run("confidence too low", func(t *testing.T) {
		r := &navtypes.Record{Events: []string{"obstacle_center"}, Confidence: 0.1, FreeAheadM: depthPtr(0.2)}
		assert.False(t, IsAccidentAnchor(r, th))
	})

	t.Run("clearance too large", func(t *testing.T) {
		r := &navtypes.Record{Events: []string{"obstacle_center"}, Confidence: 0.9, FreeAheadM: depthPtr(5.0)}
		assert.False(t, IsAccidentAnchor(r, th))
	})

	t.Run("missing clearance", func(t *testing.T) {
		r := &navtypes.Record{Events: []string{"obstacle_center"}, Confidence: 0.9}
		assert.False(t, IsAccidentAnchor(r, th))
	})
}

func TestPattern2(t *testing.T) {
	th := navtypes.DefaultThresholds()
	th.AccidentPatternWindowS = 5
	th.AccidentNoProceedS = 30

	t.Run("stop followed by sustained no-movement fires", func(t *testing.T) {
		records := []*navtypes.Record{
			{T: 0, Events: []string{"obstacle_center"}, Confidence: 0.9, FreeAheadM: depthPtr(0.2)},
			{T: 2, Events: []string{"stop"}},
			{T: 32, Events: []string{"stop"}},
		}
		fired, dur := Pattern2(records, 0, th)
		assert.True(t, fired)
		assert.Equal(t, int64(32), dur)
	})

	t.Run("directional resume aborts the pattern", func(t *testing.T) {
		records := []*navtypes.Record{
			{T: 0, Events: []string{"obstacle_center"}, Confidence: 0.9, FreeAheadM: depthPtr(0.2)},
			{T: 2, Events: []string{"stop"}},
			{T: 4, Events: []string{"proceed"}},
		}
		fired, _ := Pattern2(records, 0, th)
		assert.False(t, fired)
	})

	t.Run("no stop found never fires", func(t *testing.T) {
		records := []*navtypes.Record{
			{T: 0, Events: []string{"obstacle_center"}, Confidence: 0.9, FreeAheadM: depthPtr(0.2)},
			{T: 2, Events: []string{"obstacle_center"}},
		}
		fired, _ := Pattern2(records, 0, th)
		assert.False(t, fired)
	})
}

func TestDetectAccident(t *testing.T) {
	th := navtypes.DefaultThresholds()

	t.Run("pattern 1 takes priority", func(t *testing.T) {
		idx := Build("c1", "s1", []*navtypes.Record{
			{ClientID: "c1", SessionID: "s1", T: 1, Events: []string{"fall"}, Confidence: 0.9},
		}, th)

		result := DetectAccident(idx, th)
		assert.True(t, result.Detected)
		assert.Equal(t, int64(1), *result.FirstT)
	})

	t.Run("no accident detected", func(t *testing.T) {
		idx := Build("c1", "s1", []*navtypes.Record{
			{ClientID: "c1", SessionID: "s1", T: 1, Events: []string{"stop"}, Confidence: 0.9},
		}, th)

		result := DetectAccident(idx, th)
		assert.False(t, result.Detected)
		assert.Nil(t, result.FirstT)
	})
}

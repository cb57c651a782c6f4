package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pathwatch/navguard/internal/navtypes"
)

func depthPtr(v float64) *float64 { return &v }

func TestFindAlmostCrashes(t *testing.T) {
	th := navtypes.DefaultThresholds()

	t.Run("no obstacle events yields nothing", func(t *testing.T) {
		idx := Build("c1", "s1", []*navtypes.Record{
			{ClientID: "c1", SessionID: "s1", T: 1, Events: []string{"stop"}, Confidence: 0.9},
		}, th)
		assert.Empty(t, FindAlmostCrashes(idx, th))
	})

	t.Run("low confidence candidate is excluded", func(t *testing.T) {
		idx := Build("c1", "s1", []*navtypes.Record{
			{ClientID: "c1", SessionID: "s1", T: 1, Events: []string{"obstacle_center"}, Confidence: 0.1, FreeAheadM: depthPtr(0.2)},
		}, th)
		assert.Empty(t, FindAlmostCrashes(idx, th))
	})

	t.Run("clearance beyond threshold is excluded", func(t *testing.T) {
		idx := Build("c1", "s1", []*navtypes.Record{
			{ClientID: "c1", SessionID: "s1", T: 1, Events: []string{"obstacle_center"}, Confidence: 0.9, FreeAheadM: depthPtr(5.0)},
		}, th)
		assert.Empty(t, FindAlmostCrashes(idx, th))
	})

	t.Run("adjacent candidates merge to the closest clearance", func(t *testing.T) {
		idx := Build("c1", "s1", []*navtypes.Record{
			{ClientID: "c1", SessionID: "s1", T: 1, Events: []string{"obstacle_center"}, Confidence: 0.9, FreeAheadM: depthPtr(0.5)},
			{ClientID: "c1", SessionID: "s1", T: 2, Events: []string{"obstacle_close"}, Confidence: 0.9, FreeAheadM: depthPtr(0.2)},
		}, th)

		moments := FindAlmostCrashes(idx, th)
		assert.Len(t, moments, 1)
		assert.Equal(t, int64(2), moments[0].T)
		assert.Equal(t, 0.2, *moments[0].FreeAheadM)
	})

	t.Run("candidates beyond merge window stay separate", func(t *testing.T) {
		idx := Build("c1", "s1", []*navtypes.Record{
			{ClientID: "c1", SessionID: "s1", T: 1, Events: []string{"obstacle_center"}, Confidence: 0.9, FreeAheadM: depthPtr(0.2)},
			{ClientID: "c1", SessionID: "s1", T: 100, Events: []string{"obstacle_center"}, Confidence: 0.9, FreeAheadM: depthPtr(0.2)},
		}, th)

		moments := FindAlmostCrashes(idx, th)
		assert.Len(t, moments, 2)
	})

	t.Run("missing clearance compares as worse than any measured value", func(t *testing.T) {
		idx := Build("c1", "s1", []*navtypes.Record{
			{ClientID: "c1", SessionID: "s1", T: 1, Events: []string{"obstacle_center"}, Confidence: 0.9, FreeAheadM: nil},
			{ClientID: "c1", SessionID: "s1", T: 2, Events: []string{"obstacle_center"}, Confidence: 0.9, FreeAheadM: depthPtr(0.1)},
		}, th)

		moments := FindAlmostCrashes(idx, th)
		assert.Len(t, moments, 1)
		assert.Equal(t, int64(2), moments[0].T)
	})
}

func TestFindStuckIntervals(t *testing.T) {
	th := navtypes.DefaultThresholds()
	th.StuckMinS = 10
	th.StuckGapS = 5

	t.Run("a short stationary run below StuckMinS is dropped", func(t *testing.T) {
		idx := Build("c1", "s1", []*navtypes.Record{
			{ClientID: "c1", SessionID: "s1", T: 1, Events: []string{"stop"}, Confidence: 0.9},
			{ClientID: "c1", SessionID: "s1", T: 5, Events: []string{"stop"}, Confidence: 0.9},
		}, th)
		assert.Empty(t, FindStuckIntervals(idx, th))
	})

	t.Run("a long stationary run is reported", func(t *testing.T) {
		idx := Build("c1", "s1", []*navtypes.Record{
			{ClientID: "c1", SessionID: "s1", T: 1, Events: []string{"stop"}, Confidence: 0.9},
			{ClientID: "c1", SessionID: "s1", T: 20, Events: []string{"stop"}, Confidence: 0.9},
		}, th)

		intervals := FindStuckIntervals(idx, th)
		assert.Len(t, intervals, 1)
		assert.Equal(t, int64(1), intervals[0].StartT)
		assert.Equal(t, int64(20), intervals[0].EndT)
		assert.Equal(t, int64(19), intervals[0].DurationS)
	})

	t.Run("directional movement breaks the run", func(t *testing.T) {
		idx := Build("c1", "s1", []*navtypes.Record{
			{ClientID: "c1", SessionID: "s1", T: 1, Events: []string{"stop"}, Confidence: 0.9},
			{ClientID: "c1", SessionID: "s1", T: 10, Events: []string{"veer_left"}, Confidence: 0.9},
			{ClientID: "c1", SessionID: "s1", T: 20, Events: []string{"stop"}, Confidence: 0.9},
		}, th)
		assert.Empty(t, FindStuckIntervals(idx, th))
	})

	t.Run("runs within the gap threshold merge", func(t *testing.T) {
		idx := Build("c1", "s1", []*navtypes.Record{
			{ClientID: "c1", SessionID: "s1", T: 1, Events: []string{"stop"}, Confidence: 0.9},
			{ClientID: "c1", SessionID: "s1", T: 15, Events: []string{"stop"}, Confidence: 0.9},
			{ClientID: "c1", SessionID: "s1", T: 16, Events: []string{"proceed"}, Confidence: 0.9},
			{ClientID: "c1", SessionID: "s1", T: 18, Events: []string{"stop"}, Confidence: 0.9},
			{ClientID: "c1", SessionID: "s1", T: 30, Events: []string{"stop"}, Confidence: 0.9},
		}, th)

		intervals := FindStuckIntervals(idx, th)
		assert.Len(t, intervals, 1)
		assert.Equal(t, int64(1), intervals[0].StartT)
		assert.Equal(t, int64(30), intervals[0].EndT)
	})
}

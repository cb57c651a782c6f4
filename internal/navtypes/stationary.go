package navtypes

import "github.com/pathwatch/navguard/pkg/measure"

// DepthVarianceStationary reports whether a rolling window of forward
// clearance readings is stable enough to call its owner stationary: it
// requires at least 3 samples and a peak-to-peak spread under
// varianceM. The spread is compared with fixed-precision arithmetic
// since a few ULP of float drift here is the difference between a
// stuck interval firing and not.
func DepthVarianceStationary(depths []float64, varianceM float64) bool {
	if len(depths) < 3 {
		return false
	}
	max, min := measure.NewMeters(depths[0]), measure.NewMeters(depths[0])
	for _, d := range depths[1:] {
		m := measure.NewMeters(d)
		if m.GreaterThan(max) {
			max = m
		}
		if m.LessThan(min) {
			min = m
		}
	}
	return max.Sub(min).LessThan(measure.NewMeters(varianceM))
}

// IsStationaryRecord combines the stop/depth-variance predicate with the
// directional-movement veto shared by the indexer's stuck-interval scan
// and the watchdog's stuck-detection scan.
func IsStationaryRecord(r *Record, depthStationary bool) bool {
	stopped := r.HasAnyOf(StopEvents)
	return (stopped || depthStationary) && !r.HasDirectional()
}

// DepthWindow is a FIFO of the most recently observed forward-clearance
// readings, capped at a fixed size. Missing readings (nil) are not
// pushed; the window only tracks observed values, matching the
// reference's append-only-when-present behavior.
type DepthWindow struct {
	values []float64
	cap    int
}

// NewDepthWindow returns an empty window capped at capacity.
func NewDepthWindow(capacity int) *DepthWindow {
	return &DepthWindow{cap: capacity}
}

// Push appends an observed depth, dropping the oldest entry once the
// window is full.
func (w *DepthWindow) Push(depth float64) {
	w.values = append(w.values, depth)
	if len(w.values) > w.cap {
		w.values = w.values[1:]
	}
}

// Reset empties the window.
func (w *DepthWindow) Reset() {
	w.values = nil
}

// Stationary reports DepthVarianceStationary over the current contents.
func (w *DepthWindow) Stationary(varianceM float64) bool {
	return DepthVarianceStationary(w.values, varianceM)
}

package watchdog

import (
	"fmt"

	"github.com/pathwatch/navguard/internal/indexer"
	"github.com/pathwatch/navguard/internal/navtypes"
)

// stationarySince scans window from newest to oldest using the shared
// stationary predicate and returns the t of the oldest record in the
// contiguous stationary run anchored at the newest record, or nil if the
// newest record itself is not stationary.
func stationarySince(window []*navtypes.Record, th navtypes.Thresholds) *int64 {
	if len(window) < 2 {
		return nil
	}

	depths := navtypes.NewDepthWindow(10)
	var since *int64
	for i := len(window) - 1; i >= 0; i-- {
		r := window[i]
		if r.FreeAheadM != nil {
			depths.Push(*r.FreeAheadM)
		}
		if !navtypes.IsStationaryRecord(r, depths.Stationary(th.StuckVarianceM)) {
			break
		}
		t := r.T
		since = &t
	}
	return since
}

// checkAccident tries the three accident patterns in order against the
// current window (whose last element is the just-arrived record) and
// returns the first match.
func checkAccident(window []*navtypes.Record, th navtypes.Thresholds) (navtypes.Alert, bool) {
	current := window[len(window)-1]

	if matched, ok := indexer.Pattern1(current); ok {
		return navtypes.Alert{
			Kind:      navtypes.AlertKindAccident,
			T:         current.T,
			Rationale: fmt.Sprintf("direct accident event: %v", matched),
		}, true
	}

	if len(window) >= 3 {
		floor := len(window) - 10
		if floor < 0 {
			floor = 0
		}
		for i := len(window) - 1; i >= floor; i-- {
			if !indexer.IsAccidentAnchor(window[i], th) {
				continue
			}
			if fired, noProceed := indexer.Pattern2(window, i, th); fired {
				return navtypes.Alert{
					Kind: navtypes.AlertKindAccident,
					T:    window[i].T,
					Rationale: fmt.Sprintf("obstacle at %.2fm -> stop -> no movement for %ds",
						*window[i].FreeAheadM, noProceed),
				}, true
			}
		}
	}

	if alert, ok := checkVeerSurge(window, current, th); ok {
		return alert, true
	}

	return navtypes.Alert{}, false
}

func checkVeerSurge(window []*navtypes.Record, current *navtypes.Record, th navtypes.Thresholds) (navtypes.Alert, bool) {
	veerCount := 0
	for _, r := range lastN(window, 5) {
		for _, e := range r.Events {
			if navtypes.ContainsVeer(e) {
				veerCount++
			}
		}
	}
	if veerCount < 3 || !current.HasAnyOf(navtypes.StopEvents) {
		return navtypes.Alert{}, false
	}

	var timeSinceLastMove int64
	last10 := lastN(window, 10)
	for i := len(last10) - 1; i >= 0; i-- {
		r := last10[i]
		timeSinceLastMove = current.T - r.T
		if r.HasDirectional() {
			break
		}
	}

	if timeSinceLastMove < 120 {
		return navtypes.Alert{}, false
	}

	return navtypes.Alert{
		Kind: navtypes.AlertKindAccident,
		T:    current.T,
		Rationale: fmt.Sprintf("sudden veer surge (%d veers) followed by stop and %ds no movement",
			veerCount, timeSinceLastMove),
	}, true
}

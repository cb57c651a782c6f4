package indexer

import (
	"fmt"
	"strings"

	"github.com/pathwatch/navguard/internal/navtypes"
	"github.com/pathwatch/navguard/pkg/measure"
)

// Pattern1 reports whether r directly carries an accident event, and if
// so which ones matched.
func Pattern1(r *navtypes.Record) (matched []string, ok bool) {
	matched = r.MatchedEvents(navtypes.AccidentEvents)
	return matched, len(matched) > 0
}

// IsAccidentAnchor reports whether r qualifies as the obstacle anchor of
// pattern 2: a matched obstacle event, confidence at or above
// AccidentConf, and forward clearance at or below AccidentDepthM.
func IsAccidentAnchor(r *navtypes.Record, th navtypes.Thresholds) bool {
	if len(r.MatchedEvents(navtypes.ObstacleEvents)) == 0 {
		return false
	}
	if !measure.NewConfidence(r.Confidence).GreaterThanOrEqual(measure.NewConfidence(th.AccidentConf)) {
		return false
	}
	if r.FreeAheadM == nil || measure.NewMeters(*r.FreeAheadM).GreaterThan(measure.NewMeters(th.AccidentDepthM)) {
		return false
	}
	return true
}

// Pattern2 forward-scans records after anchorIdx for a subsequent stop
// followed by a no-proceed span at or beyond AccidentNoProceedS, aborting
// early if a directional event resumes or the combined window is
// exceeded.
func Pattern2(records []*navtypes.Record, anchorIdx int, th navtypes.Thresholds) (fired bool, noProceedDuration int64) {
	anchor := records[anchorIdx]
	stopFound := false

	for j := anchorIdx + 1; j < len(records); j++ {
		future := records[j]
		if future.T-anchor.T > th.AccidentPatternWindowS+th.AccidentNoProceedS {
			break
		}
		if future.HasAnyOf(navtypes.StopEvents) {
			stopFound = true
		}
		if stopFound {
			if future.HasDirectional() {
				return false, 0
			}
			noProceedDuration = future.T - anchor.T
		}
	}

	return stopFound && noProceedDuration >= th.AccidentNoProceedS, noProceedDuration
}

// AccidentResult is the outcome of a batch (patterns 1 and 2 only)
// accident scan over a record set, used by the query planner's accident
// metric.
type AccidentResult struct {
	Detected  bool
	FirstT    *int64
	Rationale string
}

// DetectAccident sorts records by ascending t and returns the earliest
// pattern-1 match if there is one; only when no record matches pattern 1
// does it return the earliest anchor for which pattern 2 fires. Pattern 3 is
// streaming-only and not evaluated here; see internal/watchdog.
func DetectAccident(idx *navtypes.UserIndex, th navtypes.Thresholds) AccidentResult {
	records := sortedRecords(idx)

	for _, r := range records {
		if matched, ok := Pattern1(r); ok {
			t := r.T
			return AccidentResult{
				Detected:  true,
				FirstT:    &t,
				Rationale: fmt.Sprintf("direct accident event: %s", strings.Join(matched, ", ")),
			}
		}
	}

	for i, r := range records {
		if !IsAccidentAnchor(r, th) {
			continue
		}
		if fired, noProceed := Pattern2(records, i, th); fired {
			t := r.T
			return AccidentResult{
				Detected: true,
				FirstT:   &t,
				Rationale: fmt.Sprintf("obstacle at %.2fm -> stop -> no movement for %ds",
					*r.FreeAheadM, noProceed),
			}
		}
	}

	return AccidentResult{}
}

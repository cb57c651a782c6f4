package indexer

import (
	"math"

	"github.com/pathwatch/navguard/internal/navtypes"
	"github.com/pathwatch/navguard/pkg/measure"
)

type crashCandidate struct {
	t          int64
	freeAheadM *float64
	events     []string
	classes    []string
	confidence float64
}

// FindAlmostCrashes implements the near-miss candidate selection and
// merge-by-time-window described in §4.1: candidates are records with a
// matched obstacle event, confidence at or above ConfMin, and absent or
// small forward clearance; adjacent candidates within MergeWindowS
// collapse to the one with the smallest clearance (missing clearance
// compares as +infinity).
func FindAlmostCrashes(idx *navtypes.UserIndex, th navtypes.Thresholds) []navtypes.AlmostCrashMoment {
	var candidates []crashCandidate
	for _, r := range sortedRecords(idx) {
		matched := r.MatchedEvents(navtypes.ObstacleEvents)
		if len(matched) == 0 {
			continue
		}
		if !measure.NewConfidence(r.Confidence).GreaterThanOrEqual(measure.NewConfidence(th.ConfMin)) {
			continue
		}
		if r.FreeAheadM != nil && measure.NewMeters(*r.FreeAheadM).GreaterThan(measure.NewMeters(th.CrashNearM)) {
			continue
		}
		candidates = append(candidates, crashCandidate{
			t:          r.T,
			freeAheadM: r.FreeAheadM,
			events:     matched,
			classes:    r.Classes,
			confidence: r.Confidence,
		})
	}
	if len(candidates) == 0 {
		return nil
	}

	var merged []navtypes.AlmostCrashMoment
	group := []crashCandidate{candidates[0]}
	flush := func() {
		best := group[0]
		for _, c := range group[1:] {
			if depthOrInf(c.freeAheadM) < depthOrInf(best.freeAheadM) {
				best = c
			}
		}
		merged = append(merged, navtypes.AlmostCrashMoment{
			T:          best.t,
			FreeAheadM: best.freeAheadM,
			Events:     best.events,
			Classes:    best.classes,
			Confidence: best.confidence,
		})
	}

	for _, c := range candidates[1:] {
		last := group[len(group)-1]
		if c.t-last.t <= th.MergeWindowS {
			group = append(group, c)
		} else {
			flush()
			group = []crashCandidate{c}
		}
	}
	flush()

	return merged
}

func depthOrInf(d *float64) float64 {
	if d == nil {
		return math.Inf(1)
	}
	return *d
}

// FindStuckIntervals implements the sequential stationary-run extraction
// and gap-merge described in §4.1.
func FindStuckIntervals(idx *navtypes.UserIndex, th navtypes.Thresholds) []navtypes.StuckInterval {
	var intervals []navtypes.StuckInterval
	var currentStart, currentEnd *int64
	depths := navtypes.NewDepthWindow(10)

	flush := func() {
		if currentStart == nil {
			return
		}
		duration := *currentEnd - *currentStart
		if duration >= th.StuckMinS {
			intervals = append(intervals, navtypes.StuckInterval{
				StartT:    *currentStart,
				EndT:      *currentEnd,
				DurationS: duration,
			})
		}
		currentStart, currentEnd = nil, nil
		depths.Reset()
	}

	for _, r := range sortedRecords(idx) {
		if r.FreeAheadM != nil {
			depths.Push(*r.FreeAheadM)
		}
		stationary := navtypes.IsStationaryRecord(r, depths.Stationary(th.StuckVarianceM))

		if stationary {
			t := r.T
			if currentStart == nil {
				currentStart = &t
			}
			currentEnd = &t
		} else {
			flush()
		}
	}
	flush()

	return mergeStuckIntervals(intervals, th.StuckGapS)
}

func mergeStuckIntervals(intervals []navtypes.StuckInterval, gapS int64) []navtypes.StuckInterval {
	if len(intervals) == 0 {
		return nil
	}
	merged := []navtypes.StuckInterval{intervals[0]}
	for _, iv := range intervals[1:] {
		last := &merged[len(merged)-1]
		if iv.StartT-last.EndT <= gapS {
			last.EndT = iv.EndT
			last.DurationS = last.EndT - last.StartT
		} else {
			merged = append(merged, iv)
		}
	}
	return merged
}

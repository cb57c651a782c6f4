// Package indexer builds a per-client UserIndex from the record store:
// validation, aggregation, and the two hazard derivations (near-miss
// merging and stuck-interval extraction).
package indexer

import (
	"sort"

	"github.com/pathwatch/navguard/internal/navtypes"
)

// Build validates and aggregates records into a UserIndex. records need
// not be pre-sorted; Build sorts internally where order matters.
// Invalid records are dropped and counted rather than rejecting the
// whole batch.
func Build(clientID, sessionID string, records []*navtypes.Record, thresholds navtypes.Thresholds) *navtypes.UserIndex {
	idx := navtypes.NewUserIndex(clientID, sessionID)

	for _, r := range records {
		if err := r.Validate(); err != nil {
			idx.DroppedRecords++
			continue
		}
		addToIndex(idx, r)
	}

	idx.Hazards.AlmostCrashMoments = FindAlmostCrashes(idx, thresholds)
	idx.Hazards.StuckIntervals = FindStuckIntervals(idx, thresholds)

	return idx
}

func addToIndex(idx *navtypes.UserIndex, r *navtypes.Record) {
	idx.ByTime[r.T] = r

	for _, e := range r.Events {
		idx.ByEvent[e] = append(idx.ByEvent[e], r.T)
		idx.Counters[e]++
	}
	for _, c := range r.Classes {
		idx.ByClass[c]++
	}
}

// sortedRecords returns the index's records ordered ascending by t.
// Ties (duplicate t for the same client) keep whichever record
// addToIndex last observed, per the by_time overwrite rule.
func sortedRecords(idx *navtypes.UserIndex) []*navtypes.Record {
	ts := make([]int64, 0, len(idx.ByTime))
	for t := range idx.ByTime {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })

	out := make([]*navtypes.Record, 0, len(ts))
	for _, t := range ts {
		out = append(out, idx.ByTime[t])
	}
	return out
}

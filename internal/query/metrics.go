package query

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pathwatch/navguard/internal/indexer"
	"github.com/pathwatch/navguard/internal/navtypes"
)

// AlmostCrashResult is the almost_crash metric's result payload.
type AlmostCrashResult struct {
	Count int `json:"count"`
}

// StuckMinutesResult is the stuck_minutes metric's result payload.
type StuckMinutesResult struct {
	Minutes float64 `json:"minutes"`
}

// StuckIntervalsResult is the stuck_intervals metric's result payload.
type StuckIntervalsResult struct {
	Intervals [][3]interface{} `json:"intervals"`
}

// AccidentQueryResult is the accident metric's result payload.
type AccidentQueryResult struct {
	Detected  bool    `json:"detected"`
	FirstT    *int64  `json:"first_t,omitempty"`
	Rationale *string `json:"rationale,omitempty"`
}

// EventCountsResult is the event_counts metric's result payload.
type EventCountsResult struct {
	ByEvent map[string]int `json:"by_event"`
	ByClass map[string]int `json:"by_class"`
}

func isoTime(t int64) string {
	return time.Unix(t, 0).UTC().Format(time.RFC3339)
}

func computeAlmostCrash(idx *navtypes.UserIndex, p Params) (AlmostCrashResult, []interface{}) {
	var filtered []navtypes.AlmostCrashMoment
	for _, m := range idx.Hazards.AlmostCrashMoments {
		if m.Confidence < p.ConfMin {
			continue
		}
		if m.FreeAheadM != nil && *m.FreeAheadM > p.CrashNearM {
			continue
		}
		filtered = append(filtered, m)
	}

	samples := make([]interface{}, 0, 3)
	for i, m := range filtered {
		if i >= 3 {
			break
		}
		samples = append(samples, map[string]interface{}{
			"t":            isoTime(m.T),
			"free_ahead_m": m.FreeAheadM,
			"confidence":   m.Confidence,
			"events":       m.Events,
			"classes":      m.Classes,
		})
	}

	return AlmostCrashResult{Count: len(filtered)}, samples
}

func computeStuckMinutes(idx *navtypes.UserIndex, p Params) (StuckMinutesResult, []interface{}) {
	var filtered []navtypes.StuckInterval
	var totalSeconds int64
	for _, iv := range idx.Hazards.StuckIntervals {
		if iv.DurationS < p.StuckMinS {
			continue
		}
		filtered = append(filtered, iv)
		totalSeconds += iv.DurationS
	}

	minutes := math.Round(float64(totalSeconds)/60*10) / 10

	samples := make([]interface{}, 0, 3)
	for i, iv := range filtered {
		if i >= 3 {
			break
		}
		samples = append(samples, map[string]interface{}{
			"start":      isoTime(iv.StartT),
			"end":        isoTime(iv.EndT),
			"duration_s": iv.DurationS,
		})
	}

	return StuckMinutesResult{Minutes: minutes}, samples
}

func computeStuckIntervals(idx *navtypes.UserIndex, p Params) (StuckIntervalsResult, []interface{}) {
	var result StuckIntervalsResult
	for _, iv := range idx.Hazards.StuckIntervals {
		if iv.DurationS < p.StuckMinS {
			continue
		}
		result.Intervals = append(result.Intervals, [3]interface{}{
			isoTime(iv.StartT), isoTime(iv.EndT), iv.DurationS,
		})
	}

	samples := make([]interface{}, 0, 3)
	for i, iv := range result.Intervals {
		if i >= 3 {
			break
		}
		samples = append(samples, map[string]interface{}{
			"start":      iv[0],
			"end":        iv[1],
			"duration_s": iv[2],
		})
	}

	return result, samples
}

func computeAccident(idx *navtypes.UserIndex, th navtypes.Thresholds) (AccidentQueryResult, []interface{}) {
	det := indexer.DetectAccident(idx, th)
	if !det.Detected {
		return AccidentQueryResult{Detected: false}, nil
	}

	rationale := det.Rationale
	result := AccidentQueryResult{Detected: true, FirstT: det.FirstT, Rationale: &rationale}

	sample := map[string]interface{}{
		"t": isoTime(*det.FirstT),
	}
	if rec, ok := idx.ByTime[*det.FirstT]; ok {
		sample["events"] = rec.Events
		sample["confidence"] = rec.Confidence
		if rec.FreeAheadM != nil {
			sample["free_ahead_m"] = *rec.FreeAheadM
		}
	}

	return result, []interface{}{sample}
}

func computeEventCounts(idx *navtypes.UserIndex) (EventCountsResult, []interface{}) {
	result := EventCountsResult{ByEvent: idx.Counters, ByClass: idx.ByClass}

	type kv struct {
		event string
		count int
	}
	top := make([]kv, 0, len(idx.Counters))
	for e, c := range idx.Counters {
		top = append(top, kv{e, c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].count != top[j].count {
			return top[i].count > top[j].count
		}
		return top[i].event < top[j].event
	})

	samples := make([]interface{}, 0, 3)
	for i, e := range top {
		if i >= 3 {
			break
		}
		samples = append(samples, map[string]interface{}{"event": e.event, "count": e.count})
	}
	return result, samples
}

// FormatAnswer renders the deterministic natural-language answer for a
// metric's computed result.
func FormatAnswer(metric Metric, result interface{}) string {
	switch r := result.(type) {
	case AlmostCrashResult:
		return fmt.Sprintf("%d near-miss %s in the specified time window.", r.Count, pluralize(r.Count, "event"))
	case StuckMinutesResult:
		return fmt.Sprintf("%.1f minutes stationary in the specified time window.", r.Minutes)
	case StuckIntervalsResult:
		n := len(r.Intervals)
		return fmt.Sprintf("%d stuck %s found.", n, pluralize(n, "interval"))
	case AccidentQueryResult:
		if r.Detected {
			return fmt.Sprintf("Accident detected at %s. %s", isoTime(*r.FirstT), *r.Rationale)
		}
		return "No accident detected in the specified time window."
	case EventCountsResult:
		total := 0
		for _, c := range r.ByEvent {
			total += c
		}
		return fmt.Sprintf("%d total events logged in the specified time window.", total)
	default:
		return ""
	}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}

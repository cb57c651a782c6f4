package query

import "strings"

var almostCrashKeywords = []string{"almost crash", "near miss", "collision warning", "close call"}
var stuckKeywords = []string{"stuck", "not moving", "stationary"}
var stuckIntervalKeywords = []string{"interval", "when", "show"}
var accidentKeywords = []string{"accident", "fell", "fall", "collision", "crashed", "impact"}

// ClassifyIntent maps a natural-language question onto one of the five
// fixed metrics, first match wins per the priority table.
func ClassifyIntent(question string) Metric {
	q := strings.ToLower(question)

	if containsAny(q, almostCrashKeywords) {
		return MetricAlmostCrash
	}

	if containsAny(q, stuckKeywords) {
		if containsAny(q, stuckIntervalKeywords) {
			return MetricStuckIntervals
		}
		return MetricStuckMinutes
	}

	if containsAny(q, accidentKeywords) {
		return MetricAccident
	}

	return MetricEventCounts
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

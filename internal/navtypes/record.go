// Package navtypes holds the canonical record schema, event-category
// predicates, and shared result types used by the indexer, watchdog, and
// query planner.
package navtypes

import (
	"math"
)

// Record is a single telemetry observation from a client's navigation
// session. Once accepted by the indexer or watchdog it is treated as
// immutable.
type Record struct {
	ClientID   string   `json:"client_id"`
	SessionID  string   `json:"session_id"`
	T          int64    `json:"t"`
	Events     []string `json:"events"`
	Classes    []string `json:"classes,omitempty"`
	FreeAheadM *float64 `json:"free_ahead_m,omitempty"`
	Confidence float64  `json:"confidence"`
	App        string   `json:"app,omitempty"`
}

// Validate checks a record against the invariants of the record model.
// It does not mutate the record.
func (r *Record) Validate() error {
	if r.ClientID == "" {
		return wrapValidation("client_id is required")
	}
	if r.SessionID == "" {
		return wrapValidation("session_id is required")
	}
	if r.Events == nil || len(r.Events) == 0 {
		return wrapValidation("events must be a non-empty sequence")
	}
	if math.IsNaN(r.Confidence) || math.IsInf(r.Confidence, 0) {
		return wrapValidation("confidence must be finite")
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return wrapValidation("confidence must be in [0,1]")
	}
	if r.FreeAheadM != nil && *r.FreeAheadM < 0 {
		return wrapValidation("free_ahead_m must be non-negative")
	}
	return nil
}

// HasEvent reports whether the record's events contain the exact tag.
func (r *Record) HasEvent(tag string) bool {
	for _, e := range r.Events {
		if e == tag {
			return true
		}
	}
	return false
}

// HasAnyOf reports whether any of the record's events is in the given set.
func (r *Record) HasAnyOf(set map[string]struct{}) bool {
	for _, e := range r.Events {
		if _, ok := set[e]; ok {
			return true
		}
	}
	return false
}

// MatchedEvents returns the record's events that are members of set, in
// the record's original order.
func (r *Record) MatchedEvents(set map[string]struct{}) []string {
	var out []string
	for _, e := range r.Events {
		if _, ok := set[e]; ok {
			out = append(out, e)
		}
	}
	return out
}

// HasDirectional reports whether any event tag contains one of the
// directional substrings. Unlike OBSTACLE/ACCIDENT/STOP this is a
// substring match, not exact-set membership.
func (r *Record) HasDirectional() bool {
	for _, e := range r.Events {
		if IsDirectionalEvent(e) {
			return true
		}
	}
	return false
}

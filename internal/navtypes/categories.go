package navtypes

import "strings"

// Fixed event-category sets. OBSTACLE, ACCIDENT, and STOP are matched by
// exact tag membership; DIRECTIONAL is matched by substring, deliberately
// asymmetric with the other three (see design notes: a tag like
// "veer_left_15" must still count as directional).
var (
	ObstacleEvents = setOf("obstacle_center", "obstacle_close", "collision_warning")
	AccidentEvents = setOf("fall", "impact", "collision", "device_drop")
	StopEvents     = setOf("stop")
)

var directionalSubstrings = []string{"veer_left", "veer_right", "proceed"}

func setOf(tags ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		m[t] = struct{}{}
	}
	return m
}

// IsDirectionalEvent reports whether tag contains any directional
// substring.
func IsDirectionalEvent(tag string) bool {
	for _, sub := range directionalSubstrings {
		if strings.Contains(tag, sub) {
			return true
		}
	}
	return false
}

// IsObstacleEvent reports exact membership in ObstacleEvents.
func IsObstacleEvent(tag string) bool {
	_, ok := ObstacleEvents[tag]
	return ok
}

// ContainsVeer reports whether tag contains the substring "veer",
// used by the watchdog's veer-surge pattern which counts per-event, not
// per-category.
func ContainsVeer(tag string) bool {
	return strings.Contains(tag, "veer")
}

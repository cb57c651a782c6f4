package query

import "time"

// ParseTimeWindow resolves start/end strings (ISO-8601, or the relative
// tokens "now"/"today"/"yesterday"/"last_7d"/"last_week") against the
// supplied reference time. now is injected so tests are deterministic;
// production callers pass time.Now().UTC().
func ParseTimeWindow(start, end, tz string, now time.Time) (TimeWindow, error) {
	now = now.UTC()

	var endDt time.Time
	switch end {
	case "", "now":
		endDt = now
	case "today":
		endDt = time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)
	default:
		t, err := parseISO(end)
		if err != nil {
			return TimeWindow{}, err
		}
		endDt = t
	}

	var startDt time.Time
	switch start {
	case "":
		startDt = now.AddDate(0, 0, -7)
	case "today":
		startDt = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if end == "" || end == "now" {
			endDt = time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 999999000, time.UTC)
		}
	case "yesterday":
		yesterday := now.AddDate(0, 0, -1)
		startDt = time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, time.UTC)
		endDt = time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 23, 59, 59, 0, time.UTC)
	case "last_7d", "last_week":
		startDt = now.AddDate(0, 0, -7)
	default:
		t, err := parseISO(start)
		if err != nil {
			return TimeWindow{}, err
		}
		startDt = t
	}

	if tz == "" {
		tz = "UTC"
	}
	return TimeWindow{Start: startDt, End: endDt, TZ: tz}, nil
}

func parseISO(s string) (time.Time, error) {
	if len(s) > 0 && s[len(s)-1] == 'Z' {
		s = s[:len(s)-1] + "+00:00"
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &timeParseError{value: s}
}

type timeParseError struct{ value string }

func (e *timeParseError) Error() string { return "invalid time value: " + e.value }

// ToJSON renders the window for the response envelope.
func (w TimeWindow) ToJSON() TimeWindowJSON {
	return TimeWindowJSON{
		Start: w.Start.Format(time.RFC3339),
		End:   w.End.Format(time.RFC3339),
		TZ:    w.TZ,
	}
}

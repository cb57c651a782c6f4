package navtypes

import (
	"os"
	"strconv"
)

// Thresholds holds the tunable detection constants. Defaults match the
// reference behavior; each is overridable at boot via environment
// variable.
type Thresholds struct {
	CrashNearM             float64
	ConfMin                float64
	MergeWindowS           int64
	StuckMinS              int64
	StuckAlertS            int64
	StuckVarianceM         float64
	StuckGapS              int64
	AccidentPatternWindowS int64
	AccidentNoProceedS     int64
	AccidentDepthM         float64
	AccidentConf           float64
	StuckDebounceS         int64
	AccidentDebounceS      int64
	WindowCapacity         int
}

// DefaultThresholds returns the reference defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CrashNearM:             0.6,
		ConfMin:                0.6,
		MergeWindowS:           3,
		StuckMinS:              120,
		StuckAlertS:            300,
		StuckVarianceM:         0.05,
		StuckGapS:              10,
		AccidentPatternWindowS: 5,
		AccidentNoProceedS:     30,
		AccidentDepthM:         0.4,
		AccidentConf:           0.7,
		StuckDebounceS:         900,
		AccidentDebounceS:      7200,
		WindowCapacity:         100,
	}
}

// ThresholdsFromEnv applies environment overrides on top of the
// defaults, following the same getEnv(key, default) idiom the services
// use for their own configuration.
func ThresholdsFromEnv() Thresholds {
	t := DefaultThresholds()
	t.CrashNearM = getEnvFloat("CRASH_NEAR_M", t.CrashNearM)
	t.ConfMin = getEnvFloat("CONF_MIN", t.ConfMin)
	t.MergeWindowS = getEnvInt("MERGE_WINDOW_S", t.MergeWindowS)
	t.StuckMinS = getEnvInt("STUCK_MIN_S", t.StuckMinS)
	t.StuckAlertS = getEnvInt("STUCK_ALERT_S", t.StuckAlertS)
	t.StuckVarianceM = getEnvFloat("STUCK_VARIANCE_M", t.StuckVarianceM)
	t.StuckGapS = getEnvInt("STUCK_GAP_S", t.StuckGapS)
	t.AccidentPatternWindowS = getEnvInt("ACCIDENT_PATTERN_WINDOW_S", t.AccidentPatternWindowS)
	t.AccidentNoProceedS = getEnvInt("ACCIDENT_NO_PROCEED_S", t.AccidentNoProceedS)
	t.AccidentDepthM = getEnvFloat("ACCIDENT_DEPTH_M", t.AccidentDepthM)
	t.AccidentConf = getEnvFloat("ACCIDENT_CONF", t.AccidentConf)
	t.StuckDebounceS = getEnvInt("STUCK_DEBOUNCE", t.StuckDebounceS)
	t.AccidentDebounceS = getEnvInt("ACCIDENT_DEBOUNCE", t.AccidentDebounceS)
	t.WindowCapacity = int(getEnvInt("WATCHDOG_WINDOW_CAPACITY", int64(t.WindowCapacity)))
	return t
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

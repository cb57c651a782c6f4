// Package measure provides fixed-precision wrappers around the hazard
// thresholds (forward clearance in meters, detection confidence) so
// comparisons against CRASH_NEAR_M / STUCK_VARIANCE_M don't fall prey to
// float round-off.
package measure

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Meters is a forward-clearance distance.
type Meters struct {
	value decimal.Decimal
}

// Confidence is a detector confidence score in [0, 1].
type Confidence struct {
	value decimal.Decimal
}

// NewMeters builds a Meters from a float64 reading.
func NewMeters(f float64) Meters {
	// 0.1 + 0.2 != 0.3 in float; a handful of ULP of drift here is the
	// difference between a near-miss firing and not.
	return Meters{value: decimal.NewFromFloat(f)}
}

// NewConfidence builds a Confidence from a float64 reading.
func NewConfidence(f float64) Confidence {
	return Confidence{value: decimal.NewFromFloat(f)}
}

// LessThanOrEqual reports whether m <= other.
func (m Meters) LessThanOrEqual(other Meters) bool {
	return m.value.Cmp(other.value) <= 0
}

// Sub subtracts two Meters.
func (m Meters) Sub(other Meters) Meters {
	return Meters{value: m.value.Sub(other.value)}
}

// Abs returns the absolute value.
func (m Meters) Abs() Meters {
	return Meters{value: m.value.Abs()}
}

// LessThan reports whether m < other.
func (m Meters) LessThan(other Meters) bool {
	return m.value.Cmp(other.value) < 0
}

// GreaterThan reports whether m > other.
func (m Meters) GreaterThan(other Meters) bool {
	return m.value.Cmp(other.value) > 0
}

// Float64 returns the float64 representation (loses precision, used
// only at the JSON response boundary).
func (m Meters) Float64() float64 {
	f, _ := m.value.Float64()
	return f
}

func (m Meters) String() string {
	return m.value.StringFixed(3)
}

// GreaterThanOrEqual reports whether c >= other.
func (c Confidence) GreaterThanOrEqual(other Confidence) bool {
	return c.value.Cmp(other.value) >= 0
}

func (c Confidence) Float64() float64 {
	f, _ := c.value.Float64()
	return f
}

// InUnitInterval reports whether c lies in [0, 1].
func (c Confidence) InUnitInterval() bool {
	return c.value.Cmp(decimal.Zero) >= 0 && c.value.Cmp(decimal.NewFromInt(1)) <= 0
}

func (c Confidence) String() string {
	return fmt.Sprintf("%.2f", c.Float64())
}

// Package duration converts configured (value, unit) pairs into
// milliseconds and renders millisecond spans as countdown text.
package duration

import (
	"math"
	"time"

	"skyevents/internal/locale"
	appLog "skyevents/internal/log"
)

// Unit names a configured duration unit.
type Unit string

const (
	Seconds Unit = "seconds"
	Minutes Unit = "minutes"
	Hours   Unit = "hours"
	Days    Unit = "days"
)

const (
	msPerSecond int64 = 1000
	msPerMinute       = 60 * msPerSecond
	msPerHour         = 60 * msPerMinute
	msPerDay          = 24 * msPerHour
)

// fallbackMultiplier applies to any unit outside multipliers. It treats the
// value as seconds, so "seconds" itself goes through this path.
const fallbackMultiplier = msPerSecond

var multipliers = map[Unit]int64{
	Minutes: msPerMinute,
	Hours:   msPerHour,
	Days:    msPerDay,
}

// IsKnownUnit reports whether unit has an explicit multiplier.
func IsKnownUnit(unit string) bool {
	_, ok := multipliers[Unit(unit)]
	return ok
}

// MaxMilliseconds is the longest span, in milliseconds, that still fits in
// a time.Duration.
const MaxMilliseconds = math.MaxInt64 / int64(time.Millisecond)

// InRange reports whether value in unit converts to at most MaxMilliseconds
// without overflowing.
func InRange(value int64, unit string) bool {
	m, ok := multipliers[Unit(unit)]
	if !ok {
		m = fallbackMultiplier
	}
	return value <= MaxMilliseconds/m
}

// ToMilliseconds converts value in unit to milliseconds. Unrecognized units
// multiply by 1000.
func ToMilliseconds(value int64, unit string) int64 {
	m, ok := multipliers[Unit(unit)]
	if !ok {
		appLog.Debug("duration: unknown unit, treating value as seconds", "unit", unit, "value", value)
		m = fallbackMultiplier
	}
	return value * m
}

// ToDuration is ToMilliseconds as a time.Duration.
func ToDuration(value int64, unit string) time.Duration {
	return time.Duration(ToMilliseconds(value, unit)) * time.Millisecond
}

// Largest returns ms expressed in the largest unit with a nonzero floor
// value, checked in the order days, hours, minutes, seconds.
func Largest(ms int64) (int64, Unit) {
	switch {
	case ms/msPerDay > 0:
		return ms / msPerDay, Days
	case ms/msPerHour > 0:
		return ms / msPerHour, Hours
	case ms/msPerMinute > 0:
		return ms / msPerMinute, Minutes
	default:
		return ms / msPerSecond, Seconds
	}
}

// Format renders ms with the default language. ms must not be negative.
func Format(ms int64) string {
	return FormatWith(locale.Default(), ms)
}

// FormatWith renders ms as "H小时M分钟", "M分钟S秒" or "S秒" (or the
// equivalent in l's language), picking the first form whose leading unit
// is at least one.
func FormatWith(l *locale.Localizer, ms int64) string {
	seconds := ms / msPerSecond
	minutes := seconds / 60
	hours := minutes / 60

	switch {
	case hours > 0:
		return l.Text(locale.MsgDurationHoursMinutes, map[string]any{"Hours": hours, "Minutes": minutes % 60})
	case minutes > 0:
		return l.Text(locale.MsgDurationMinutesSeconds, map[string]any{"Minutes": minutes, "Seconds": seconds % 60})
	default:
		return l.Text(locale.MsgDurationSeconds, map[string]any{"Seconds": seconds})
	}
}

// UnitText returns the localized label for u.
func UnitText(l *locale.Localizer, u Unit) string {
	switch u {
	case Days:
		return l.Text(locale.MsgUnitDays, nil)
	case Hours:
		return l.Text(locale.MsgUnitHours, nil)
	case Minutes:
		return l.Text(locale.MsgUnitMinutes, nil)
	default:
		return l.Text(locale.MsgUnitSeconds, nil)
	}
}

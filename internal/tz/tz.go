// Package tz converts between the authored source zone and the display zone.
package tz

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Default offsets: rule times are authored in Pacific standard time and
// shown in China standard time. Daylight saving is intentionally ignored,
// so the two zones are always 16 hours apart.
const (
	DefaultSourceOffset  = -8 * time.Hour
	DefaultDisplayOffset = 8 * time.Hour
)

// maxOffset bounds accepted UTC offsets (UTC-14:00 .. UTC+14:00).
const maxOffset = 14 * time.Hour

// Converter translates instants between the zone rule times are authored in
// (Source) and the zone results are shown in (Display). Both zones are fixed
// offsets; the conversion never consults calendar or DST rules.
type Converter struct {
	Source  *time.Location
	Display *time.Location
}

// New builds a Converter from two fixed UTC offsets.
func New(sourceOffset, displayOffset time.Duration) Converter {
	return Converter{
		Source:  fixedZone(sourceOffset),
		Display: fixedZone(displayOffset),
	}
}

// Default returns the UTC-08:00 -> UTC+08:00 converter.
func Default() Converter {
	return New(DefaultSourceOffset, DefaultDisplayOffset)
}

// ToDisplay returns the same instant expressed in the display zone.
func (c Converter) ToDisplay(t time.Time) time.Time {
	return t.In(orUTC(c.Display))
}

// ToSource returns the same instant expressed in the source zone.
func (c Converter) ToSource(t time.Time) time.Time {
	return t.In(orUTC(c.Source))
}

// Offset is the wall-clock shift applied by ToDisplay (display minus source).
func (c Converter) Offset() time.Duration {
	ref := time.Unix(0, 0)
	_, src := ref.In(orUTC(c.Source)).Zone()
	_, dst := ref.In(orUTC(c.Display)).Zone()
	return time.Duration(dst-src) * time.Second
}

// ParseOffset parses a UTC offset such as "+08:00", "-0800", "-8",
// "UTC+5:30" or "GMT-08:00". An empty string means UTC.
func ParseOffset(s string) (time.Duration, error) {
	v := strings.TrimSpace(s)
	upper := strings.ToUpper(v)
	for _, prefix := range []string{"UTC", "GMT"} {
		if strings.HasPrefix(upper, prefix) {
			v = strings.TrimSpace(v[len(prefix):])
			break
		}
	}
	if v == "" || v == "Z" {
		return 0, nil
	}

	sign := time.Duration(1)
	switch v[0] {
	case '+':
		v = v[1:]
	case '-':
		sign = -1
		v = v[1:]
	}
	if v == "" {
		return 0, fmt.Errorf("tz: invalid offset %q", s)
	}

	var hh, mm string
	switch {
	case strings.Contains(v, ":"):
		parts := strings.SplitN(v, ":", 2)
		hh, mm = parts[0], parts[1]
	case len(v) == 4:
		hh, mm = v[:2], v[2:]
	default:
		hh, mm = v, "0"
	}

	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("tz: invalid offset hours in %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("tz: invalid offset minutes in %q: %w", s, err)
	}
	if hours < 0 || minutes < 0 || minutes >= 60 {
		return 0, fmt.Errorf("tz: invalid offset %q", s)
	}

	d := sign * (time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute)
	if d > maxOffset || d < -maxOffset {
		return 0, errors.New("tz: offset out of range: " + s)
	}
	return d, nil
}

// FormatOffset renders an offset as "+08:00" / "-08:00".
func FormatOffset(d time.Duration) string {
	sign := '+'
	if d < 0 {
		sign = '-'
		d = -d
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%c%02d:%02d", sign, h, m)
}

func fixedZone(offset time.Duration) *time.Location {
	return time.FixedZone("UTC"+FormatOffset(offset), int(offset/time.Second))
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock hour and minute, interpreted in whatever zone
// it is combined with.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM". A trailing ":SS" is accepted and dropped.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("time of day %q: expected HH:MM", s)
	}
	if m, ss, hasSec := strings.Cut(mm, ":"); hasSec {
		sec, err := strconv.Atoi(ss)
		if err != nil || sec < 0 || sec > 59 {
			return TimeOfDay{}, fmt.Errorf("time of day %q: invalid seconds", s)
		}
		mm = m
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time of day %q: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time of day %q: %w", s, err)
	}
	t := TimeOfDay{Hour: h, Minute: m}
	return t, t.Validate()
}

// ParseTimeOfDayIn accepts either "HH:MM" or an RFC 3339 instant. An instant
// is first projected into loc, and its hour and minute are taken there, never
// from the zone it was written in.
func ParseTimeOfDayIn(s string, loc *time.Location) (TimeOfDay, error) {
	if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(s)); err == nil {
		return TimeOfDayOf(ts, loc), nil
	}
	return ParseTimeOfDay(s)
}

// TimeOfDayOf extracts the wall-clock time of t as seen in loc.
func TimeOfDayOf(t time.Time, loc *time.Location) TimeOfDay {
	if loc != nil {
		t = t.In(loc)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return errors.New("time of day out of range: " + t.String())
	}
	return nil
}

// On combines the calendar date of d with t, in d's location.
func (t TimeOfDay) On(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, d.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Date is a calendar date without a zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday, "周日": time.Sunday, "星期日": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "周一": time.Monday, "星期一": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "周二": time.Tuesday, "星期二": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "周三": time.Wednesday, "星期三": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "周四": time.Thursday, "星期四": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "周五": time.Friday, "星期五": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "周六": time.Saturday, "星期六": time.Saturday,
}

// ParseWeekday accepts English names or abbreviations, Chinese names, or
// the numbers 0 (Sunday) through 6.
func ParseWeekday(s string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if wd, ok := weekdayNames[v]; ok {
		return wd, nil
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// Package model defines tasks, recurrence rules and their computed status.
package model

import (
	"errors"
	"fmt"
	"time"

	"skyevents/internal/duration"
)

var (
	// ErrMalformedTask reports a task whose recurrence fields are missing or invalid.
	ErrMalformedTask = errors.New("malformed task")
	// ErrUnknownRule reports an unsupported recurrence type.
	ErrUnknownRule = errors.New("unknown recurrence type")
	// ErrNoOccurrence reports a rule that has no current or future instance.
	ErrNoOccurrence = errors.New("no occurrence")
)

// RuleKind selects how a task repeats.
type RuleKind string

const (
	RuleNone    RuleKind = "none"
	RuleDaily   RuleKind = "daily"
	RuleWeekly  RuleKind = "weekly"
	RuleMonthly RuleKind = "monthly"
	// RuleCatalog takes its instances (and locations) from a built-in
	// schedule table instead of a time-of-day list.
	RuleCatalog RuleKind = "catalog"
)

// RecurrenceRule describes when a task repeats. All times of day are in the
// source timezone.
type RecurrenceRule struct {
	Kind         RuleKind
	StartTimes   []TimeOfDay
	Duration     int64
	DurationUnit string

	// Weekdays selects days for RuleWeekly.
	Weekdays []time.Weekday
	// MonthDays selects days for RuleMonthly; negative values count from
	// the end of the month (-1 is the last day).
	MonthDays []int

	// Catalog names the schedule table used by RuleCatalog.
	Catalog string
}

// DurationMs is the length of one instance in milliseconds.
func (r RecurrenceRule) DurationMs() int64 {
	return duration.ToMilliseconds(r.Duration, r.DurationUnit)
}

// Task is one schedulable activity. It is built once from configuration and
// never mutated.
type Task struct {
	ID   string
	Name string

	Recurrence RecurrenceRule
	StartDate  Date
	StartTime  *TimeOfDay

	DisplayThreshold     int64
	DisplayThresholdUnit string
}

// ThresholdMs is the lead time before a start at which the task becomes upcoming.
func (t Task) ThresholdMs() int64 {
	return duration.ToMilliseconds(t.DisplayThreshold, t.DisplayThresholdUnit)
}

// TimePoints returns the times of day a task starts at: the rule's list, or
// the task's single start time, or midnight.
func (t Task) TimePoints() []TimeOfDay {
	if len(t.Recurrence.StartTimes) > 0 {
		return t.Recurrence.StartTimes
	}
	if t.StartTime != nil {
		return []TimeOfDay{*t.StartTime}
	}
	return []TimeOfDay{{}}
}

// Validate checks the fields each rule kind depends on.
func (t Task) Validate() error {
	r := t.Recurrence
	if r.Duration < 0 {
		return fmt.Errorf("%w: negative duration %d", ErrMalformedTask, r.Duration)
	}
	if t.DisplayThreshold < 0 {
		return fmt.Errorf("%w: negative display threshold %d", ErrMalformedTask, t.DisplayThreshold)
	}
	if !duration.InRange(r.Duration, r.DurationUnit) {
		return fmt.Errorf("%w: duration %d %s out of range", ErrMalformedTask, r.Duration, r.DurationUnit)
	}
	if !duration.InRange(t.DisplayThreshold, t.DisplayThresholdUnit) {
		return fmt.Errorf("%w: display threshold %d %s out of range", ErrMalformedTask, t.DisplayThreshold, t.DisplayThresholdUnit)
	}
	for _, p := range t.TimePoints() {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedTask, err)
		}
	}

	switch r.Kind {
	case RuleDaily:
		return nil
	case RuleNone:
		if t.StartDate.IsZero() {
			return fmt.Errorf("%w: one-off task needs a start date", ErrMalformedTask)
		}
	case RuleWeekly:
		if len(r.Weekdays) == 0 && t.StartDate.IsZero() {
			return fmt.Errorf("%w: weekly task needs weekdays or a start date", ErrMalformedTask)
		}
		for _, wd := range r.Weekdays {
			if wd < time.Sunday || wd > time.Saturday {
				return fmt.Errorf("%w: invalid weekday %d", ErrMalformedTask, wd)
			}
		}
	case RuleMonthly:
		if len(r.MonthDays) == 0 && t.StartDate.IsZero() {
			return fmt.Errorf("%w: monthly task needs month days or a start date", ErrMalformedTask)
		}
		for _, d := range r.MonthDays {
			if d == 0 || d > 31 || d < -31 {
				return fmt.Errorf("%w: invalid day of month %d", ErrMalformedTask, d)
			}
		}
	case RuleCatalog:
		if r.Catalog == "" {
			return fmt.Errorf("%w: catalog task needs a catalog name", ErrMalformedTask)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRule, r.Kind)
	}
	return nil
}

// Occurrence is one concrete instance of a task, in the display timezone.
type Occurrence struct {
	Start    time.Time
	End      time.Time
	Location string
}

// State is the lifecycle state of a task relative to "now".
type State string

const (
	StateFuture    State = "future"
	StateUpcoming  State = "upcoming"
	StateOngoing   State = "ongoing"
	StateCompleted State = "completed"
)

// Status is the display-ready classification of a task at one instant.
type Status struct {
	State         State      `json:"status"`
	TimeText      string     `json:"timeText"`
	CountdownMs   int64      `json:"countdownMs"`
	CountdownText string     `json:"countdownText"`
	StartTime     *time.Time `json:"startTime,omitempty"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	Location      string     `json:"location,omitempty"`
}

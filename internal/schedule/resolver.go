// Package schedule resolves the current or next occurrence window of a task.
package schedule

import (
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"skyevents/internal/catalog"
	"skyevents/internal/model"
	"skyevents/internal/tz"
)

// Clock abstracts time.Now() so callers can pin "now" in tests.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system time.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// Resolver finds the occurrence of a task that matters at a given instant:
// the one in progress, or else the next one to start.
type Resolver struct {
	Converter tz.Converter
}

// NewResolver returns a Resolver using conv for source/display conversion.
func NewResolver(conv tz.Converter) Resolver {
	return Resolver{Converter: conv}
}

// Resolve returns the occurrence of task that is ongoing at now, or the
// soonest one starting after now. The result is in the display timezone.
// A one-off task always resolves to its single instance, even if it is over.
func (r Resolver) Resolve(task model.Task, now time.Time) (model.Occurrence, error) {
	if err := task.Validate(); err != nil {
		return model.Occurrence{}, err
	}

	nowSource := r.Converter.ToSource(now)
	dur := time.Duration(task.Recurrence.DurationMs()) * time.Millisecond

	var (
		start time.Time
		err   error
	)
	switch task.Recurrence.Kind {
	case model.RuleNone:
		start = resolveOnce(task, r.Converter.Source)
	case model.RuleDaily:
		start = resolveDaily(task.TimePoints(), nowSource, dur)
	case model.RuleWeekly, model.RuleMonthly:
		start, err = resolveCalendar(task, nowSource, dur)
	case model.RuleCatalog:
		return r.resolveCatalog(task, nowSource)
	default:
		err = fmt.Errorf("%w: %q", model.ErrUnknownRule, task.Recurrence.Kind)
	}
	if err != nil {
		return model.Occurrence{}, err
	}

	startDisplay := r.Converter.ToDisplay(start)
	return model.Occurrence{
		Start: startDisplay,
		End:   startDisplay.Add(dur),
	}, nil
}

// resolveOnce prefers the task's own start time over the rule's list.
func resolveOnce(task model.Task, source *time.Location) time.Time {
	at := task.TimePoints()[0]
	if task.StartTime != nil {
		at = *task.StartTime
	}
	return at.On(task.StartDate.In(source))
}

// resolveDaily checks every time point of today for a window containing
// now, including points already passed, before falling back to the earliest
// point still ahead today, or the earliest point tomorrow.
func resolveDaily(points []model.TimeOfDay, nowSource time.Time, dur time.Duration) time.Time {
	today := midnight(nowSource)

	for _, p := range points {
		start := p.On(today)
		if inWindow(nowSource, start, dur) {
			return start
		}
	}

	var candidates []time.Time
	for _, p := range points {
		if c := p.On(today); c.After(nowSource) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		tomorrow := today.AddDate(0, 0, 1)
		for _, p := range points {
			candidates = append(candidates, p.On(tomorrow))
		}
	}
	return slices.MinFunc(candidates, func(a, b time.Time) int { return a.Compare(b) })
}

// resolveCalendar handles weekly and monthly rules. Each time point becomes
// its own RRULE so that the points are not cross-multiplied the way a
// single BYHOUR/BYMINUTE rule would be.
func resolveCalendar(task model.Task, nowSource time.Time, dur time.Duration) (time.Time, error) {
	windowStart := nowSource.Add(-dur)

	anchor := midnight(windowStart)
	if !task.StartDate.IsZero() {
		if first := task.StartDate.In(nowSource.Location()); first.After(anchor) {
			anchor = first
		}
	}

	rules, err := calendarRules(task, anchor)
	if err != nil {
		return time.Time{}, err
	}

	// Ongoing: the earliest start whose window still contains now.
	var ongoing time.Time
	for _, rule := range rules {
		for _, s := range rule.Between(windowStart, nowSource, true) {
			if inWindow(nowSource, s, dur) && (ongoing.IsZero() || s.Before(ongoing)) {
				ongoing = s
			}
		}
	}
	if !ongoing.IsZero() {
		return ongoing, nil
	}

	var next time.Time
	for _, rule := range rules {
		if s := rule.After(nowSource, false); !s.IsZero() && (next.IsZero() || s.Before(next)) {
			next = s
		}
	}
	if next.IsZero() {
		return time.Time{}, model.ErrNoOccurrence
	}
	return next, nil
}

var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

func calendarRules(task model.Task, anchor time.Time) ([]*rrule.RRule, error) {
	base := rrule.ROption{Dtstart: anchor, Bysecond: []int{0}}

	switch task.Recurrence.Kind {
	case model.RuleWeekly:
		base.Freq = rrule.WEEKLY
		days := task.Recurrence.Weekdays
		if len(days) == 0 {
			days = []time.Weekday{task.StartDate.In(time.UTC).Weekday()}
		}
		for _, wd := range days {
			base.Byweekday = append(base.Byweekday, rruleWeekdays[wd])
		}
	case model.RuleMonthly:
		base.Freq = rrule.MONTHLY
		base.Bymonthday = task.Recurrence.MonthDays
		if len(base.Bymonthday) == 0 {
			base.Bymonthday = []int{task.StartDate.Day}
		}
	default:
		return nil, fmt.Errorf("%w: %q is not a calendar rule", model.ErrUnknownRule, task.Recurrence.Kind)
	}

	points := task.TimePoints()
	rules := make([]*rrule.RRule, 0, len(points))
	for _, p := range points {
		opt := base
		opt.Byhour = []int{p.Hour}
		opt.Byminute = []int{p.Minute}
		rule, err := rrule.NewRRule(opt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrMalformedTask, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (r Resolver) resolveCatalog(task model.Task, nowSource time.Time) (model.Occurrence, error) {
	cat, ok := catalog.Lookup(task.Recurrence.Catalog)
	if !ok {
		return model.Occurrence{}, fmt.Errorf("%w: unknown catalog %q", model.ErrMalformedTask, task.Recurrence.Catalog)
	}
	slot, ok := cat.Find(nowSource)
	if !ok {
		return model.Occurrence{}, model.ErrNoOccurrence
	}
	return model.Occurrence{
		Start:    r.Converter.ToDisplay(slot.Start),
		End:      r.Converter.ToDisplay(slot.End),
		Location: slot.Location,
	}, nil
}

func inWindow(now, start time.Time, dur time.Duration) bool {
	return !now.Before(start) && now.Before(start.Add(dur))
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

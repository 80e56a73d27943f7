// Package ics exports catalog slots and task occurrences as iCalendar.
package ics

import (
	"errors"
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"skyevents/internal/catalog"
	appLog "skyevents/internal/log"
	"skyevents/internal/model"
)

const (
	productID = "-//skyevents//calendar export//EN"

	// defaultMaxOccurrences caps expansion of a single task.
	defaultMaxOccurrences = 2000
)

// Event is one VEVENT to export.
type Event struct {
	UID      string
	Summary  string
	Location string
	Start    time.Time
	End      time.Time
}

// UID derives a stable identifier from a key and start instant, so
// re-exporting the same range yields the same UIDs.
func UID(key string, start time.Time) string {
	name := key + "/" + start.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("skyevents:"+name)).String() + "@skyevents"
}

// CatalogEvents returns one event per slot of cat in the given month.
func CatalogEvents(cat *catalog.Catalog, summary string, year int, month time.Month, loc *time.Location) []Event {
	slots := cat.MonthSlots(year, month, loc)
	out := make([]Event, 0, len(slots))
	for _, s := range slots {
		out = append(out, Event{
			UID:      UID(cat.Name(), s.Start),
			Summary:  summary,
			Location: s.Location,
			Start:    s.Start,
			End:      s.End,
		})
	}
	return out
}

// Resolver finds the occurrence of a task relevant at now.
type Resolver interface {
	Resolve(task model.Task, now time.Time) (model.Occurrence, error)
}

// TaskEvents expands task into the occurrences overlapping [from, to), by
// resolving repeatedly from the end of each occurrence.
func TaskEvents(r Resolver, task model.Task, from, to time.Time) ([]Event, error) {
	if to.Before(from) {
		return nil, errors.New("ics: range end is before range start")
	}

	summary := task.Name
	if summary == "" {
		summary = task.ID
	}

	var out []Event
	now := from
	var last time.Time
	for range defaultMaxOccurrences {
		occ, err := r.Resolve(task, now)
		if errors.Is(err, model.ErrNoOccurrence) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ics: task %q: %w", task.ID, err)
		}
		if !occ.Start.Before(to) || (!last.IsZero() && !occ.Start.After(last)) {
			break
		}
		if occ.End.After(from) {
			out = append(out, Event{
				UID:      UID(task.ID, occ.Start),
				Summary:  summary,
				Location: occ.Location,
				Start:    occ.Start,
				End:      occ.End,
			})
		}
		if task.Recurrence.Kind == model.RuleNone {
			break
		}
		last = occ.Start
		now = occ.End
		if !now.After(occ.Start) {
			now = occ.Start.Add(time.Second)
		}
	}
	if len(out) == defaultMaxOccurrences {
		appLog.Info("ics: occurrence cap reached", "task", task.ID, "cap", defaultMaxOccurrences)
	}
	return out, nil
}

// Calendar builds a VCALENDAR named name holding events. stamp is written
// as DTSTAMP on every event.
func Calendar(name string, events []Event, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}
	for _, e := range events {
		ve := cal.AddEvent(e.UID)
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(e.Start)
		ve.SetEndAt(e.End)
		ve.SetSummary(e.Summary)
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
	}
	return cal
}

// Write serializes a calendar of events to w.
func Write(w io.Writer, name string, events []Event, stamp time.Time) error {
	_, err := io.WriteString(w, Calendar(name, events, stamp).Serialize())
	return err
}

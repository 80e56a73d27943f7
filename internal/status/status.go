// Package status classifies a task at an instant as future, upcoming,
// ongoing or completed, with countdown text for display.
package status

import (
	"errors"
	"fmt"
	"time"

	"skyevents/internal/duration"
	"skyevents/internal/locale"
	appLog "skyevents/internal/log"
	"skyevents/internal/model"
	"skyevents/internal/schedule"
	"skyevents/internal/tz"
)

// OccurrenceResolver finds the occurrence of a task relevant at now.
type OccurrenceResolver interface {
	Resolve(task model.Task, now time.Time) (model.Occurrence, error)
}

// Classifier turns (task, now) into a model.Status. It is the error boundary
// for the scheduling core: nothing it calls can make it fail or panic.
type Classifier struct {
	Resolver OccurrenceResolver
	Texts    *locale.Localizer
}

// New returns a Classifier for conv that renders text with texts. A nil
// texts uses the default language.
func New(conv tz.Converter, texts *locale.Localizer) *Classifier {
	if texts == nil {
		texts = locale.Default()
	}
	return &Classifier{
		Resolver: schedule.NewResolver(conv),
		Texts:    texts,
	}
}

// ResolveStatus classifies task at now. Failures degrade to a placeholder
// Future status.
func (c *Classifier) ResolveStatus(task model.Task, now time.Time) (st model.Status) {
	defer func() {
		if r := recover(); r != nil {
			appLog.Error("status: resolution panicked", fmt.Errorf("%v", r), "task", task.ID)
			st = c.placeholder(locale.MsgCalculating)
		}
	}()

	occ, err := c.Resolver.Resolve(task, now)
	if err != nil {
		if errors.Is(err, model.ErrNoOccurrence) {
			return c.placeholder(locale.MsgFutureEvent)
		}
		appLog.Error("status: failed to resolve occurrence", err, "task", task.ID, "kind", task.Recurrence.Kind)
		return c.placeholder(locale.MsgCalculating)
	}

	return c.Classify(task.Recurrence.Kind, occ, task.ThresholdMs(), now)
}

// ResolveAll classifies every task at the same instant, in order.
func (c *Classifier) ResolveAll(tasks []model.Task, now time.Time) []model.Status {
	out := make([]model.Status, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, c.ResolveStatus(task, now))
	}
	return out
}

// Classify applies the state rules to a resolved occurrence, in order:
// a finished one-off task is completed; now inside [start, end) is ongoing;
// now at or after start minus the threshold is upcoming; anything else is
// future.
func (c *Classifier) Classify(kind model.RuleKind, occ model.Occurrence, thresholdMs int64, now time.Time) model.Status {
	start, end := occ.Start, occ.End
	st := model.Status{
		StartTime: &start,
		EndTime:   &end,
		Location:  occ.Location,
	}

	// A one-off task whose window has closed stays completed; the window
	// is half-open, so now == end already counts. Keep this >=: a strict
	// comparison leaves now == end with a negative countdown.
	if kind == model.RuleNone && !now.Before(end) {
		st.State = model.StateCompleted
		st.TimeText = c.Texts.Text(locale.MsgCompleted, nil)
		st.CountdownText = st.TimeText
		return st
	}

	if !now.Before(start) && now.Before(end) {
		left := end.Sub(now).Milliseconds()
		st.State = model.StateOngoing
		st.TimeText = c.Texts.Text(locale.MsgOngoing, nil)
		st.CountdownMs = left
		st.CountdownText = duration.FormatWith(c.Texts, left)
		return st
	}

	until := max(start.Sub(now).Milliseconds(), 0)
	displayFrom := start.Add(-time.Duration(thresholdMs) * time.Millisecond)

	st.State = model.StateFuture
	if !now.Before(displayFrom) {
		st.State = model.StateUpcoming
	}
	value, unit := duration.Largest(until)
	st.TimeText = c.Texts.Text(locale.MsgStartsIn, map[string]any{
		"Value": value,
		"Unit":  duration.UnitText(c.Texts, unit),
	})
	st.CountdownMs = until
	st.CountdownText = duration.FormatWith(c.Texts, until)
	return st
}

// Visible reports whether a status should be shown; future tasks are hidden
// until they enter their display window.
func Visible(st model.Status) bool {
	return st.State != model.StateFuture
}

func (c *Classifier) placeholder(textID string) model.Status {
	return model.Status{
		State:         model.StateFuture,
		TimeText:      c.Texts.Text(textID, nil),
		CountdownMs:   0,
		CountdownText: c.Texts.Text(locale.MsgCountdownNone, nil),
	}
}

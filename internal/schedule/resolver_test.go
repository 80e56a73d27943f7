package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyevents/internal/model"
	"skyevents/internal/tz"
)

var conv = tz.Default()

// src builds a wall-clock time in the source zone.
func src(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, conv.Source)
}

func points(t *testing.T, values ...string) []model.TimeOfDay {
	t.Helper()
	out := make([]model.TimeOfDay, 0, len(values))
	for _, v := range values {
		p, err := model.ParseTimeOfDay(v)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func dailyTask(t *testing.T) model.Task {
	return model.Task{
		ID: "daily",
		Recurrence: model.RecurrenceRule{
			Kind:         model.RuleDaily,
			StartTimes:   points(t, "10:00", "14:00", "18:00"),
			Duration:     3,
			DurationUnit: "hours",
		},
		DisplayThreshold:     2,
		DisplayThresholdUnit: "hours",
	}
}

func assertStart(t *testing.T, want time.Time, occ model.Occurrence, dur time.Duration) {
	t.Helper()
	assert.True(t, want.Equal(occ.Start), "start: want %s, got %s", want, occ.Start)
	assert.True(t, want.Add(dur).Equal(occ.End), "end: want %s, got %s", want.Add(dur), occ.End)
	assert.Equal(t, conv.Display, occ.Start.Location(), "occurrence must be in the display zone")
}

func TestResolveDaily(t *testing.T) {
	r := NewResolver(conv)
	task := dailyTask(t)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before first point", src(2023, 12, 11, 8, 0), src(2023, 12, 11, 10, 0)},
		{"earlier window still running wins over later point", src(2023, 12, 11, 11, 0), src(2023, 12, 11, 10, 0)},
		{"window start is inclusive", src(2023, 12, 11, 14, 0), src(2023, 12, 11, 14, 0)},
		{"between windows", src(2023, 12, 11, 13, 30), src(2023, 12, 11, 14, 0)},
		{"window end is exclusive", src(2023, 12, 11, 17, 0), src(2023, 12, 11, 18, 0)},
		{"last window running", src(2023, 12, 11, 19, 30), src(2023, 12, 11, 18, 0)},
		{"rolls over to tomorrow", src(2023, 12, 11, 21, 30), src(2023, 12, 12, 10, 0)},
		{"rolls over across month end", src(2023, 12, 31, 22, 0), src(2024, 1, 1, 10, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occ, err := r.Resolve(task, conv.ToDisplay(tt.now))
			require.NoError(t, err)
			assertStart(t, tt.want, occ, 3*time.Hour)
		})
	}
}

func TestResolveDaily_DisplayOffset(t *testing.T) {
	r := NewResolver(conv)

	// 11:30 in the display zone is 19:30 the previous day in the source zone,
	// inside the 18:00 window, which shows as 10:00-13:00 in the display zone.
	now := time.Date(2023, 12, 12, 11, 30, 0, 0, conv.Display)
	occ, err := r.Resolve(dailyTask(t), now)
	require.NoError(t, err)

	assert.True(t, time.Date(2023, 12, 12, 10, 0, 0, 0, conv.Display).Equal(occ.Start))
	assert.True(t, time.Date(2023, 12, 12, 13, 0, 0, 0, conv.Display).Equal(occ.End))
}

func TestResolveDaily_UnsortedPoints(t *testing.T) {
	r := NewResolver(conv)
	task := dailyTask(t)
	task.Recurrence.StartTimes = points(t, "18:00", "10:00")

	occ, err := r.Resolve(task, src(2023, 12, 11, 12, 0))
	require.NoError(t, err)
	assertStart(t, src(2023, 12, 11, 10, 0), occ, 3*time.Hour)

	occ, err = r.Resolve(task, src(2023, 12, 11, 13, 30))
	require.NoError(t, err)
	assertStart(t, src(2023, 12, 11, 18, 0), occ, 3*time.Hour)

	occ, err = r.Resolve(task, src(2023, 12, 11, 23, 0))
	require.NoError(t, err)
	assertStart(t, src(2023, 12, 12, 10, 0), occ, 3*time.Hour)
}

func TestResolveDaily_SingleStartTime(t *testing.T) {
	r := NewResolver(conv)
	at := model.TimeOfDay{Hour: 9, Minute: 15}
	task := model.Task{
		Recurrence: model.RecurrenceRule{Kind: model.RuleDaily, Duration: 30, DurationUnit: "minutes"},
		StartTime:  &at,
	}

	occ, err := r.Resolve(task, src(2023, 12, 11, 10, 0))
	require.NoError(t, err)
	assertStart(t, src(2023, 12, 12, 9, 15), occ, 30*time.Minute)

	// With no time at all the task starts at midnight.
	task.StartTime = nil
	occ, err = r.Resolve(task, src(2023, 12, 11, 10, 0))
	require.NoError(t, err)
	assertStart(t, src(2023, 12, 12, 0, 0), occ, 30*time.Minute)
}

// Only today's points are checked for a running window, so a window that
// started yesterday and runs past midnight is not reported as ongoing.
func TestResolveDaily_PreviousDayWindowIsNotOngoing(t *testing.T) {
	r := NewResolver(conv)
	task := model.Task{
		Recurrence: model.RecurrenceRule{
			Kind:         model.RuleDaily,
			StartTimes:   points(t, "23:00"),
			Duration:     3,
			DurationUnit: "hours",
		},
	}
	occ, err := r.Resolve(task, src(2023, 12, 12, 0, 30))
	require.NoError(t, err)
	assertStart(t, src(2023, 12, 12, 23, 0), occ, 3*time.Hour)
}

func weeklyTask(t *testing.T) model.Task {
	return model.Task{
		ID: "weekly",
		Recurrence: model.RecurrenceRule{
			Kind:         model.RuleWeekly,
			StartTimes:   points(t, "11:08", "19:08"),
			Duration:     52,
			DurationUnit: "minutes",
			Weekdays:     []time.Weekday{time.Friday, time.Sunday},
		},
	}
}

func TestResolveWeekly(t *testing.T) {
	r := NewResolver(conv)
	task := weeklyTask(t)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"ongoing friday morning", src(2026, 10, 16, 11, 30), src(2026, 10, 16, 11, 8)},
		{"next point same day", src(2026, 10, 16, 12, 0), src(2026, 10, 16, 19, 8)},
		{"skips unselected weekday", src(2026, 10, 17, 12, 0), src(2026, 10, 18, 11, 8)},
		{"ongoing sunday evening", src(2026, 10, 18, 19, 30), src(2026, 10, 18, 19, 8)},
		{"rolls into next week", src(2026, 10, 18, 20, 0), src(2026, 10, 23, 11, 8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occ, err := r.Resolve(task, conv.ToDisplay(tt.now))
			require.NoError(t, err)
			assertStart(t, tt.want, occ, 52*time.Minute)
		})
	}
}

func TestResolveWeekly_WindowAcrossMidnightIsOngoing(t *testing.T) {
	r := NewResolver(conv)
	task := model.Task{
		Recurrence: model.RecurrenceRule{
			Kind:         model.RuleWeekly,
			StartTimes:   points(t, "22:00"),
			Duration:     5,
			DurationUnit: "hours",
			Weekdays:     []time.Weekday{time.Saturday},
		},
	}
	occ, err := r.Resolve(task, src(2026, 10, 18, 1, 0))
	require.NoError(t, err)
	assertStart(t, src(2026, 10, 17, 22, 0), occ, 5*time.Hour)
}

func TestResolveWeekly_FromStartDate(t *testing.T) {
	r := NewResolver(conv)
	at := model.TimeOfDay{Hour: 8}
	task := model.Task{
		Recurrence: model.RecurrenceRule{Kind: model.RuleWeekly, Duration: 1, DurationUnit: "hours"},
		StartDate:  model.Date{Year: 2026, Month: time.November, Day: 1},
		StartTime:  &at,
	}

	// Nothing before the start date, and the weekday comes from it (Sunday).
	occ, err := r.Resolve(task, src(2026, 10, 18, 12, 0))
	require.NoError(t, err)
	assertStart(t, src(2026, 11, 1, 8, 0), occ, time.Hour)

	occ, err = r.Resolve(task, src(2026, 11, 1, 9, 0))
	require.NoError(t, err)
	assertStart(t, src(2026, 11, 8, 8, 0), occ, time.Hour)
}

func TestResolveMonthly(t *testing.T) {
	r := NewResolver(conv)
	task := model.Task{
		Recurrence: model.RecurrenceRule{
			Kind:         model.RuleMonthly,
			StartTimes:   points(t, "20:00"),
			Duration:     2,
			DurationUnit: "hours",
			MonthDays:    []int{1, 15},
		},
	}

	occ, err := r.Resolve(task, src(2026, 10, 15, 21, 0))
	require.NoError(t, err)
	assertStart(t, src(2026, 10, 15, 20, 0), occ, 2*time.Hour)

	occ, err = r.Resolve(task, src(2026, 10, 15, 22, 0))
	require.NoError(t, err)
	assertStart(t, src(2026, 11, 1, 20, 0), occ, 2*time.Hour)
}

func TestResolveMonthly_DaySelection(t *testing.T) {
	r := NewResolver(conv)
	base := model.Task{
		Recurrence: model.RecurrenceRule{Kind: model.RuleMonthly, Duration: 1, DurationUnit: "hours"},
	}

	lastDay := base
	lastDay.Recurrence.MonthDays = []int{-1}
	occ, err := r.Resolve(lastDay, src(2026, 2, 10, 12, 0))
	require.NoError(t, err)
	assertStart(t, src(2026, 2, 28, 0, 0), occ, time.Hour)

	// Months without a 31st are skipped.
	thirtyFirst := base
	thirtyFirst.Recurrence.MonthDays = []int{31}
	occ, err = r.Resolve(thirtyFirst, src(2026, 11, 5, 12, 0))
	require.NoError(t, err)
	assertStart(t, src(2026, 12, 31, 0, 0), occ, time.Hour)

	fromDate := base
	fromDate.StartDate = model.Date{Year: 2026, Month: time.January, Day: 20}
	occ, err = r.Resolve(fromDate, src(2026, 10, 21, 0, 0))
	require.NoError(t, err)
	assertStart(t, src(2026, 11, 20, 0, 0), occ, time.Hour)
}

func TestResolveNone(t *testing.T) {
	r := NewResolver(conv)
	at := model.TimeOfDay{Hour: 18}
	task := model.Task{
		Recurrence: model.RecurrenceRule{
			Kind:         model.RuleNone,
			StartTimes:   points(t, "09:00"),
			Duration:     2,
			DurationUnit: "hours",
		},
		StartDate: model.Date{Year: 2026, Month: time.October, Day: 20},
		StartTime: &at,
	}

	for _, now := range []time.Time{src(2026, 10, 1, 0, 0), src(2026, 10, 25, 0, 0)} {
		occ, err := r.Resolve(task, now)
		require.NoError(t, err)
		assertStart(t, src(2026, 10, 20, 18, 0), occ, 2*time.Hour)
	}

	task.StartDate = model.Date{}
	_, err := r.Resolve(task, src(2026, 10, 1, 0, 0))
	assert.ErrorIs(t, err, model.ErrMalformedTask)
}

func TestResolveCatalog(t *testing.T) {
	r := NewResolver(conv)
	task := model.Task{
		Recurrence: model.RecurrenceRule{Kind: model.RuleCatalog, Catalog: "dawn-redstone"},
	}

	occ, err := r.Resolve(task, src(2026, 10, 3, 10, 30))
	require.NoError(t, err)
	assert.True(t, src(2026, 10, 3, 10, 8).Equal(occ.Start))
	assert.True(t, src(2026, 10, 3, 11, 0).Equal(occ.End))
	assert.Equal(t, "云野-幽光山洞", occ.Location)
	assert.Equal(t, conv.Display, occ.Start.Location())

	task.Recurrence.Catalog = "no-such-catalog"
	_, err = r.Resolve(task, src(2026, 10, 3, 10, 30))
	assert.ErrorIs(t, err, model.ErrMalformedTask)
}

func TestResolve_UnknownRule(t *testing.T) {
	_, err := NewResolver(conv).Resolve(model.Task{Recurrence: model.RecurrenceRule{Kind: "yearly"}}, time.Now())
	assert.ErrorIs(t, err, model.ErrUnknownRule)
}

func TestResolve_Idempotent(t *testing.T) {
	r := NewResolver(conv)
	now := src(2023, 12, 11, 13, 30)
	for _, task := range []model.Task{dailyTask(t), weeklyTask(t)} {
		a, errA := r.Resolve(task, now)
		b, errB := r.Resolve(task, now)
		require.NoError(t, errA)
		require.NoError(t, errB)
		assert.Equal(t, a, b)
	}
}

func TestRealClock(t *testing.T) {
	before := time.Now()
	got := RealClock{}.Now()
	assert.False(t, got.Before(before))
}

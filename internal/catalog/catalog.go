// Package catalog holds fixed schedule tables whose instances and locations
// depend on the calendar date, such as the weekend "dawn redstone" event.
package catalog

import (
	"fmt"
	"sort"
	"time"
)

// DawnRedstoneName is the catalog name referenced by task configuration.
const DawnRedstoneName = "dawn-redstone"

// UnknownLocation is reported for dates the location table does not cover.
const UnknownLocation = "未知地点"

// searchHorizonDays bounds how far Find looks ahead for the next slot.
const searchHorizonDays = 62

var weekdayLabels = [7]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

// Slot is one timed instance taken from a catalog.
type Slot struct {
	Start    time.Time
	End      time.Time
	Location string
}

// Row is the flat, table-friendly form of a Slot.
type Row struct {
	Date      string `json:"date"`
	DayOfWeek string `json:"dayOfWeek"`
	Location  string `json:"location"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type locationKey struct {
	group   int
	weekday time.Weekday
}

// window is a [start, end) span in minutes after midnight; end may be 1440.
type window struct {
	start int
	end   int
}

// slotRule yields windows on a weekday when the day of month is within
// [fromDay, toDay].
type slotRule struct {
	weekday time.Weekday
	fromDay int
	toDay   int
	windows []window
}

// Catalog is an immutable schedule table.
type Catalog struct {
	name      string
	groups    int
	locations map[locationKey]string
	rules     []slotRule
}

var registry = map[string]*Catalog{
	DawnRedstoneName: dawnRedstone,
}

// Lookup returns the built-in catalog with the given name.
func Lookup(name string) (*Catalog, bool) {
	c, ok := registry[name]
	return c, ok
}

// Names lists the built-in catalogs.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) Name() string {
	return c.name
}

// Location returns the location for a calendar date, keyed by the day of
// month group and the weekday.
func (c *Catalog) Location(date time.Time) string {
	key := locationKey{group: (date.Day() - 1) % c.groups, weekday: date.Weekday()}
	if loc, ok := c.locations[key]; ok {
		return loc
	}
	return UnknownLocation
}

// Slots returns the instances on date's calendar day, in date's location,
// ordered by start.
func (c *Catalog) Slots(date time.Time) []Slot {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	day := midnight.Day()
	wd := midnight.Weekday()

	var out []Slot
	for _, r := range c.rules {
		if r.weekday != wd || day < r.fromDay || day > r.toDay {
			continue
		}
		location := c.Location(midnight)
		for _, w := range r.windows {
			out = append(out, Slot{
				Start:    midnight.Add(time.Duration(w.start) * time.Minute),
				End:      midnight.Add(time.Duration(w.end) * time.Minute),
				Location: location,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Find returns the slot in progress at now, or else the next one to start.
// Slots are generated in now's location.
func (c *Catalog) Find(now time.Time) (Slot, bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	// Start a day back so a window spanning midnight is still seen as ongoing.
	for offset := -1; offset <= searchHorizonDays; offset++ {
		for _, s := range c.Slots(today.AddDate(0, 0, offset)) {
			if now.Before(s.End) {
				return s, true
			}
		}
	}
	return Slot{}, false
}

// MonthSlots lists every slot of a month, in loc.
func (c *Catalog) MonthSlots(year int, month time.Month, loc *time.Location) []Slot {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	var out []Slot
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		out = append(out, c.Slots(d)...)
	}
	return out
}

// Month lists every slot of a month as rows.
func (c *Catalog) Month(year int, month time.Month) []Row {
	slots := c.MonthSlots(year, month, time.UTC)
	rows := make([]Row, 0, len(slots))
	for _, s := range slots {
		rows = append(rows, RowOf(s))
	}
	return rows
}

// RowOf flattens a slot. A slot ending at the following midnight is shown
// as ending at "24:00".
func RowOf(s Slot) Row {
	startDay := time.Date(s.Start.Year(), s.Start.Month(), s.Start.Day(), 0, 0, 0, 0, s.Start.Location())
	endMinutes := int(s.End.Sub(startDay) / time.Minute)
	return Row{
		Date:      s.Start.Format(time.DateOnly),
		DayOfWeek: weekdayLabels[s.Start.Weekday()],
		Location:  s.Location,
		StartTime: s.Start.Format("15:04"),
		EndTime:   fmt.Sprintf("%02d:%02d", endMinutes/60, endMinutes%60),
	}
}

package values

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dentalcare/dentalcare/internal/platform/apperr"
)

// ClockTime is a wall-clock time of day in minutes since midnight. 24:00 is
// allowed as the end of a window.
type ClockTime int

const endOfDay ClockTime = 24 * 60

// ParseClockTime parses "HH:MM". "24:00" is the only accepted hour 24.
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	if s == "24:00" {
		return endOfDay, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, apperr.Validationf("invalid time %q, expected HH:MM", s)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

func ParseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, apperr.Validationf("invalid weekday %q", s)
	}
	return d, nil
}

// AvailabilityWindow is a recurring weekly opening, e.g. Monday 09:00-12:30.
type AvailabilityWindow struct {
	Weekday time.Weekday
	Start   ClockTime
	End     ClockTime
}

type windowJSON struct {
	Weekday string    `json:"weekday"`
	Start   ClockTime `json:"start"`
	End     ClockTime `json:"end"`
}

func (w AvailabilityWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal(windowJSON{
		Weekday: strings.ToLower(w.Weekday.String()),
		Start:   w.Start,
		End:     w.End,
	})
}

func (w *AvailabilityWindow) UnmarshalJSON(b []byte) error {
	var raw windowJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d, err := ParseWeekday(raw.Weekday)
	if err != nil {
		return err
	}
	*w = AvailabilityWindow{Weekday: d, Start: raw.Start, End: raw.End}
	return nil
}

func (w AvailabilityWindow) Validate() error {
	if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
		return apperr.Validationf("invalid weekday %d", w.Weekday)
	}
	if w.Start < 0 || w.End > endOfDay || w.Start >= w.End {
		return apperr.Validationf("window %s %s-%s: start must be before end", w.Weekday, w.Start, w.End)
	}
	return nil
}

func (w AvailabilityWindow) overlaps(o AvailabilityWindow) bool {
	return w.Weekday == o.Weekday && w.Start < o.End && o.Start < w.End
}

// WeeklyAvailability is the set of recurring windows in which a doctor
// accepts appointments.
type WeeklyAvailability struct {
	Windows []AvailabilityWindow `json:"windows"`
}

func NewWeeklyAvailability(windows ...AvailabilityWindow) (WeeklyAvailability, error) {
	a := WeeklyAvailability{Windows: append([]AvailabilityWindow(nil), windows...)}
	if err := a.Validate(); err != nil {
		return WeeklyAvailability{}, err
	}
	a.sort()
	return a, nil
}

func (a WeeklyAvailability) Validate() error {
	for i, w := range a.Windows {
		if err := w.Validate(); err != nil {
			return err
		}
		for _, o := range a.Windows[i+1:] {
			if w.overlaps(o) {
				return apperr.Validationf("windows %s-%s and %s-%s overlap on %s",
					w.Start, w.End, o.Start, o.End, w.Weekday)
			}
		}
	}
	return nil
}

func (a *WeeklyAvailability) sort() {
	sort.Slice(a.Windows, func(i, j int) bool {
		if a.Windows[i].Weekday != a.Windows[j].Weekday {
			return a.Windows[i].Weekday < a.Windows[j].Weekday
		}
		return a.Windows[i].Start < a.Windows[j].Start
	})
}

func (a WeeklyAvailability) IsEmpty() bool { return len(a.Windows) == 0 }

// WindowsFor returns the windows of the given weekday ordered by start.
func (a WeeklyAvailability) WindowsFor(d time.Weekday) []AvailabilityWindow {
	var out []AvailabilityWindow
	for _, w := range a.Windows {
		if w.Weekday == d {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Covers reports whether the slot, viewed in loc, lies entirely inside a
// single window of its weekday. A slot crossing midnight is never covered.
func (a WeeklyAvailability) Covers(slot TimeSlot, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	start, end := slot.Start.In(loc), slot.End.In(loc)
	y, m, d := start.Date()
	for _, w := range a.WindowsFor(start.Weekday()) {
		open := w.on(y, m, d, loc)
		if !start.Before(open.Start) && !end.After(open.End) {
			return true
		}
	}
	return false
}

// on returns the concrete slot of the window on the given calendar day.
// time.Date normalises 24:00 to the following midnight.
func (w AvailabilityWindow) on(y int, m time.Month, d int, loc *time.Location) TimeSlot {
	return TimeSlot{
		Start: time.Date(y, m, d, 0, int(w.Start), 0, 0, loc),
		End:   time.Date(y, m, d, 0, int(w.End), 0, 0, loc),
	}
}

// Occurrences returns the concrete slots of the windows on the calendar day
// of date, in loc.
func (a WeeklyAvailability) Occurrences(date time.Time, loc *time.Location) []TimeSlot {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.In(loc).Date()
	weekday := time.Date(y, m, d, 12, 0, 0, 0, loc).Weekday()
	var out []TimeSlot
	for _, w := range a.WindowsFor(weekday) {
		out = append(out, w.on(y, m, d, loc))
	}
	return out
}

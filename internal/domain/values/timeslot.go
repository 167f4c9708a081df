package values

import (
	"time"

	"github.com/dentalcare/dentalcare/internal/platform/apperr"
)

// TimeSlot is a half-open interval [Start, End).
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewTimeSlot(start, end time.Time) (TimeSlot, error) {
	s := TimeSlot{Start: start, End: end}
	if err := s.Validate(); err != nil {
		return TimeSlot{}, err
	}
	return s, nil
}

// SlotOf builds a slot starting at start lasting d.
func SlotOf(start time.Time, d time.Duration) (TimeSlot, error) {
	return NewTimeSlot(start, start.Add(d))
}

func (s TimeSlot) Validate() error {
	if s.Start.IsZero() {
		return apperr.Field("start", "is required")
	}
	if s.End.IsZero() {
		return apperr.Field("end", "is required")
	}
	if !s.End.After(s.Start) {
		return apperr.Field("end", "must be after start")
	}
	return nil
}

func (s TimeSlot) Duration() time.Duration { return s.End.Sub(s.Start) }

// Overlaps reports whether the two slots share any instant. Slots that only
// touch (one ends exactly when the other starts) do not overlap.
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	return s.Start.Before(o.End) && o.Start.Before(s.End)
}

// Contains reports whether t falls inside the slot.
func (s TimeSlot) Contains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

// In returns the slot expressed in loc.
func (s TimeSlot) In(loc *time.Location) TimeSlot {
	return TimeSlot{Start: s.Start.In(loc), End: s.End.In(loc)}
}

func (s TimeSlot) String() string {
	return s.Start.Format(time.RFC3339) + "/" + s.End.Format(time.RFC3339)
}

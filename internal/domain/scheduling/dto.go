package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/dentalcare/dentalcare/internal/domain/values"
	"github.com/dentalcare/dentalcare/internal/platform/apperr"
	"github.com/dentalcare/dentalcare/internal/platform/spec"
)

// DefaultDuration is used when neither an end time, a duration nor a
// treatment fixes the length of an appointment.
const DefaultDuration = 30 * time.Minute

// SlotInput describes a requested time: an explicit end, a duration in
// minutes, or neither.
type SlotInput struct {
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
}

// resolve builds the slot, falling back to fallback when the input fixes no
// length.
func (in SlotInput) resolve(fallback time.Duration) (values.TimeSlot, error) {
	if in.Start.IsZero() {
		return values.TimeSlot{}, apperr.Field("start", "is required")
	}
	switch {
	case in.End != nil:
		return values.NewTimeSlot(in.Start, *in.End)
	case in.DurationMinutes < 0:
		return values.TimeSlot{}, apperr.Field("duration_minutes", "must be positive")
	case in.DurationMinutes > 0:
		return values.SlotOf(in.Start, time.Duration(in.DurationMinutes)*time.Minute)
	default:
		return values.SlotOf(in.Start, fallback)
	}
}

type BookInput struct {
	PatientID   uuid.UUID  `json:"patient_id"`
	DoctorID    uuid.UUID  `json:"doctor_id"`
	TreatmentID *uuid.UUID `json:"treatment_id,omitempty"`
	SlotInput
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

type RescheduleInput struct {
	SlotInput
}

// UpdateInput changes the descriptive fields of an appointment. Nil fields
// are left as they are.
type UpdateInput struct {
	Reason      *string    `json:"reason"`
	Notes       *string    `json:"notes"`
	TreatmentID *uuid.UUID `json:"treatment_id"`
}

type CancelInput struct {
	Reason string `json:"reason"`
}

type OverlapInput struct {
	DoctorID  uuid.UUID  `json:"doctor_id"`
	ExcludeID *uuid.UUID `json:"exclude_id,omitempty"`
	SlotInput
}

type OverlapResult struct {
	Overlaps bool `json:"overlaps"`
}

// Filter narrows appointment listings. Zero fields are ignored.
type Filter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *Status
	From      *time.Time
	To        *time.Time
}

func (f Filter) Spec() spec.Spec[*Appointment] {
	var parts []spec.Spec[*Appointment]
	if f.PatientID != nil {
		parts = append(parts, ForPatient(*f.PatientID))
	}
	if f.DoctorID != nil {
		parts = append(parts, ForDoctor(*f.DoctorID))
	}
	if f.Status != nil {
		parts = append(parts, WithStatus(*f.Status))
	}
	if f.From != nil {
		parts = append(parts, StartsAtOrAfter(*f.From))
	}
	if f.To != nil {
		parts = append(parts, StartsBefore(*f.To))
	}
	return spec.And(parts...)
}

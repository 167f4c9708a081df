package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dentalcare/dentalcare/internal/domain/values"
	"github.com/dentalcare/dentalcare/internal/platform/spec"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Find returns matches ordered by start time. limit <= 0 returns all.
	Find(ctx context.Context, s spec.Spec[*Appointment], limit, offset int) ([]*Appointment, int, error)
	Count(ctx context.Context, s spec.Spec[*Appointment]) (int, error)
}

// -- Appointment specifications --

func ForDoctor(id uuid.UUID) spec.Spec[*Appointment] {
	return spec.Eq("doctor_id", id, func(a *Appointment) uuid.UUID { return a.DoctorID })
}

func ForPatient(id uuid.UUID) spec.Spec[*Appointment] {
	return spec.Eq("patient_id", id, func(a *Appointment) uuid.UUID { return a.PatientID })
}

func WithStatus(s Status) spec.Spec[*Appointment] {
	return spec.Eq("status", s, func(a *Appointment) Status { return a.Status })
}

func WithID(id uuid.UUID) spec.Spec[*Appointment] {
	return spec.Eq("id", id, func(a *Appointment) uuid.UUID { return a.ID })
}

// Blocking matches appointments that occupy their slot.
func Blocking() spec.Spec[*Appointment] {
	return spec.Not(spec.Or(WithStatus(StatusCancelled), WithStatus(StatusNoShow)))
}

// Overlapping matches appointments intersecting slot. Touching slots do not
// overlap.
func Overlapping(slot values.TimeSlot) spec.Spec[*Appointment] {
	return spec.New("start_time < ? AND end_time > ?", []any{slot.End, slot.Start}, func(a *Appointment) bool {
		return a.Slot.Overlaps(slot)
	})
}

func StartsAtOrAfter(t time.Time) spec.Spec[*Appointment] {
	return spec.New("start_time >= ?", []any{t}, func(a *Appointment) bool { return !a.Slot.Start.Before(t) })
}

func StartsBefore(t time.Time) spec.Spec[*Appointment] {
	return spec.New("start_time < ?", []any{t}, func(a *Appointment) bool { return a.Slot.Start.Before(t) })
}

// Upcoming matches blocking appointments that have not started at now.
func Upcoming(now time.Time) spec.Spec[*Appointment] {
	return spec.And(Blocking(), StartsAtOrAfter(now))
}

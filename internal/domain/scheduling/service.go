package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dentalcare/dentalcare/internal/domain/clinical"
	"github.com/dentalcare/dentalcare/internal/domain/identity"
	"github.com/dentalcare/dentalcare/internal/domain/values"
	"github.com/dentalcare/dentalcare/internal/platform/apperr"
	"github.com/dentalcare/dentalcare/internal/platform/db"
	"github.com/dentalcare/dentalcare/internal/platform/spec"
)

type PatientFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

type DoctorFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Doctor, error)
}

type TreatmentFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*clinical.Treatment, error)
}

const (
	minSlotLength = 5 * time.Minute
	maxSlotLength = 8 * time.Hour
)

type Service struct {
	appointments AppointmentRepository
	patients     PatientFinder
	doctors      DoctorFinder
	treatments   TreatmentFinder
	tx           db.Transactor
	lock         func(ctx context.Context, key string) error
	loc          *time.Location
	now          func() time.Time
}

// NewService wires the booking service. loc is the clinic time zone in which
// doctor availability windows are interpreted.
func NewService(appts AppointmentRepository, patients PatientFinder, doctors DoctorFinder,
	treatments TreatmentFinder, tx db.Transactor, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		appointments: appts,
		patients:     patients,
		doctors:      doctors,
		treatments:   treatments,
		tx:           tx,
		lock:         db.LockKey,
		loc:          loc,
		now:          time.Now,
	}
}

func doctorLock(id uuid.UUID) string  { return "appointment:doctor:" + id.String() }
func patientLock(id uuid.UUID) string { return "appointment:patient:" + id.String() }

// -- Booking --

// Book creates an appointment after checking that both parties are active,
// the slot lies in the future inside the doctor's weekly availability, and
// neither the doctor nor the patient is already booked at that time.
func (s *Service) Book(ctx context.Context, in BookInput) (*Appointment, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperr.Field("patient_id", "is required")
	}
	if in.DoctorID == uuid.Nil {
		return nil, apperr.Field("doctor_id", "is required")
	}

	fallback := DefaultDuration
	if in.TreatmentID != nil {
		t, err := s.activeTreatment(ctx, *in.TreatmentID)
		if err != nil {
			return nil, err
		}
		fallback = t.Duration()
	}
	slot, err := in.SlotInput.resolve(fallback)
	if err != nil {
		return nil, err
	}

	a, err := NewAppointment(in.PatientID, in.DoctorID, slot, in.Reason)
	if err != nil {
		return nil, err
	}
	a.TreatmentID = in.TreatmentID
	a.Notes = in.Notes

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.lockParties(ctx, a.DoctorID, a.PatientID); err != nil {
			return err
		}
		if err := s.checkBookable(ctx, a, slot); err != nil {
			return err
		}
		return s.appointments.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Reschedule moves an open appointment to a new slot, applying the same
// rules as Book. The appointment never conflicts with itself.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, in RescheduleInput) (*Appointment, error) {
	var result *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.lockParties(ctx, a.DoctorID, a.PatientID); err != nil {
			return err
		}
		// Re-read under the lock so a concurrent transition is not lost.
		if a, err = s.appointments.GetByID(ctx, id); err != nil {
			return err
		}
		slot, err := in.SlotInput.resolve(a.Slot.Duration())
		if err != nil {
			return err
		}
		if err := a.Reschedule(slot); err != nil {
			return err
		}
		if err := s.checkBookable(ctx, a, slot); err != nil {
			return err
		}
		if err := s.appointments.Update(ctx, a); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) lockParties(ctx context.Context, doctorID, patientID uuid.UUID) error {
	if err := s.lock(ctx, doctorLock(doctorID)); err != nil {
		return err
	}
	return s.lock(ctx, patientLock(patientID))
}

// checkBookable runs the booking rules for a at slot. a.ID is excluded from
// the overlap checks, which is a no-op for a new appointment.
func (s *Service) checkBookable(ctx context.Context, a *Appointment, slot values.TimeSlot) error {
	if d := slot.Duration(); d < minSlotLength || d > maxSlotLength {
		return apperr.Validationf("appointment length must be between %s and %s", minSlotLength, maxSlotLength)
	}
	if slot.Start.Before(s.now()) {
		return apperr.BusinessRule("cannot book an appointment in the past")
	}

	patient, err := s.patients.GetByID(ctx, a.PatientID)
	if err != nil {
		return err
	}
	if !patient.Active {
		return apperr.BusinessRule("patient is inactive")
	}
	doctor, err := s.doctors.GetByID(ctx, a.DoctorID)
	if err != nil {
		return err
	}
	if !doctor.Active {
		return apperr.BusinessRule("doctor is inactive")
	}
	if !doctor.IsAvailable(slot, s.loc) {
		return apperr.BusinessRule("outside doctor availability").
			WithDetail("doctor_id", doctor.ID.String())
	}

	n, err := s.appointments.Count(ctx, spec.And(
		ForDoctor(a.DoctorID), Blocking(), Overlapping(slot), spec.Not(WithID(a.ID)),
	))
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("doctor already has an appointment at that time").
			WithDetail("doctor_id", a.DoctorID.String())
	}

	n, err = s.appointments.Count(ctx, spec.And(
		ForPatient(a.PatientID), Blocking(), Overlapping(slot), spec.Not(WithID(a.ID)),
	))
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("patient already has an appointment at that time").
			WithDetail("patient_id", a.PatientID.String())
	}
	return nil
}

func (s *Service) activeTreatment(ctx context.Context, id uuid.UUID) (*clinical.Treatment, error) {
	t, err := s.treatments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, apperr.BusinessRule(fmt.Sprintf("treatment %s is inactive", t.Code))
	}
	return t, nil
}

// CheckOverlap reports whether the doctor has a blocking appointment that
// intersects slot. excludeID, when set, is ignored.
func (s *Service) CheckOverlap(ctx context.Context, doctorID uuid.UUID, slot values.TimeSlot, excludeID *uuid.UUID) (bool, error) {
	if err := slot.Validate(); err != nil {
		return false, err
	}
	parts := []spec.Spec[*Appointment]{ForDoctor(doctorID), Blocking(), Overlapping(slot)}
	if excludeID != nil {
		parts = append(parts, spec.Not(WithID(*excludeID)))
	}
	n, err := s.appointments.Count(ctx, spec.And(parts...))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AvailableSlots lists the free slots of length d on the calendar day of
// date, stepping through the doctor's windows for that weekday. Slots that
// start in the past or intersect a blocking appointment are skipped.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time, d time.Duration) ([]values.TimeSlot, error) {
	if d == 0 {
		d = DefaultDuration
	}
	if d < minSlotLength || d > maxSlotLength {
		return nil, apperr.Validationf("duration must be between %s and %s", minSlotLength, maxSlotLength)
	}
	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	slots := []values.TimeSlot{}
	if !doctor.Active {
		return slots, nil
	}

	windows := doctor.Availability.Occurrences(date, s.loc)
	if len(windows) == 0 {
		return slots, nil
	}
	day := values.TimeSlot{Start: windows[0].Start, End: windows[len(windows)-1].End}
	booked, _, err := s.appointments.Find(ctx, spec.And(ForDoctor(doctorID), Blocking(), Overlapping(day)), 0, 0)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, w := range windows {
		for start := w.Start; !start.Add(d).After(w.End); start = start.Add(d) {
			cand := values.TimeSlot{Start: start, End: start.Add(d)}
			if cand.Start.Before(now) || overlapsAny(cand, booked) {
				continue
			}
			slots = append(slots, cand)
		}
	}
	return slots, nil
}

func overlapsAny(slot values.TimeSlot, appts []*Appointment) bool {
	for _, a := range appts {
		if a.Slot.Overlaps(slot) {
			return true
		}
	}
	return false
}

// -- Lifecycle --

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) apply(ctx context.Context, id uuid.UUID, fn func(a *Appointment) error) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(a); err != nil {
		return nil, err
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.apply(ctx, id, (*Appointment).Confirm)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.apply(ctx, id, (*Appointment).Complete)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	return s.apply(ctx, id, func(a *Appointment) error { return a.Cancel(reason) })
}

func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.apply(ctx, id, (*Appointment).MarkNoShow)
}

// Update changes reason, notes and treatment link.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Appointment, error) {
	if in.TreatmentID != nil && *in.TreatmentID != uuid.Nil {
		if _, err := s.activeTreatment(ctx, *in.TreatmentID); err != nil {
			return nil, err
		}
	}
	return s.apply(ctx, id, func(a *Appointment) error {
		if in.Reason != nil {
			a.Reason = *in.Reason
		}
		if in.Notes != nil {
			a.Notes = *in.Notes
		}
		if in.TreatmentID != nil {
			if *in.TreatmentID == uuid.Nil {
				a.TreatmentID = nil
			} else {
				tid := *in.TreatmentID
				a.TreatmentID = &tid
			}
		}
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.appointments.Delete(ctx, id)
}

// -- Queries --

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.Find(ctx, f.Spec(), limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.List(ctx, Filter{PatientID: &patientID}, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Appointment, int, error) {
	return s.List(ctx, Filter{DoctorID: &doctorID, From: from, To: to}, limit, offset)
}

// LockPatientSchedule takes the patient's booking lock inside the caller's
// transaction. Book and Reschedule wait on it until that transaction ends.
func (s *Service) LockPatientSchedule(ctx context.Context, patientID uuid.UUID) error {
	return s.lock(ctx, patientLock(patientID))
}

func (s *Service) LockDoctorSchedule(ctx context.Context, doctorID uuid.UUID) error {
	return s.lock(ctx, doctorLock(doctorID))
}

func (s *Service) CountUpcomingForPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	return s.appointments.Count(ctx, spec.And(ForPatient(patientID), Upcoming(s.now())))
}

func (s *Service) CountUpcomingForDoctor(ctx context.Context, doctorID uuid.UUID) (int, error) {
	return s.appointments.Count(ctx, spec.And(ForDoctor(doctorID), Upcoming(s.now())))
}

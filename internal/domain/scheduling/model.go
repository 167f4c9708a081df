package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dentalcare/dentalcare/internal/domain/values"
	"github.com/dentalcare/dentalcare/internal/platform/apperr"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return st, nil
	}
	return "", apperr.Field("status", fmt.Sprintf("unknown status %q", s))
}

// Blocks reports whether an appointment in this status occupies its slot.
func (s Status) Blocks() bool {
	return s != StatusCancelled && s != StatusNoShow
}

// Open reports whether the appointment can still change.
func (s Status) Open() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

// Appointment maps to the appointment table.
type Appointment struct {
	ID                 uuid.UUID       `json:"id"`
	PatientID          uuid.UUID       `json:"patient_id"`
	DoctorID           uuid.UUID       `json:"doctor_id"`
	TreatmentID        *uuid.UUID      `json:"treatment_id,omitempty"`
	Slot               values.TimeSlot `json:"slot"`
	Status             Status          `json:"status"`
	Reason             string          `json:"reason,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func NewAppointment(patientID, doctorID uuid.UUID, slot values.TimeSlot, reason string) (*Appointment, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Field("patient_id", "is required")
	}
	if doctorID == uuid.Nil {
		return nil, apperr.Field("doctor_id", "is required")
	}
	if err := slot.Validate(); err != nil {
		return nil, err
	}
	return &Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		Slot:      slot,
		Status:    StatusScheduled,
		Reason:    strings.TrimSpace(reason),
	}, nil
}

func (a *Appointment) transition(to Status, allowed ...Status) error {
	for _, from := range allowed {
		if a.Status == from {
			a.Status = to
			return nil
		}
	}
	return apperr.BusinessRule(fmt.Sprintf("cannot move appointment from %s to %s", a.Status, to)).
		WithDetail("status", string(a.Status))
}

func (a *Appointment) Confirm() error {
	return a.transition(StatusConfirmed, StatusScheduled)
}

func (a *Appointment) Complete() error {
	return a.transition(StatusCompleted, StatusConfirmed)
}

func (a *Appointment) Cancel(reason string) error {
	if err := a.transition(StatusCancelled, StatusScheduled, StatusConfirmed); err != nil {
		return err
	}
	a.CancellationReason = strings.TrimSpace(reason)
	return nil
}

func (a *Appointment) MarkNoShow() error {
	return a.transition(StatusNoShow, StatusScheduled, StatusConfirmed)
}

// Reschedule moves an open appointment to slot and puts it back to
// scheduled, since any confirmation was for the old time.
func (a *Appointment) Reschedule(slot values.TimeSlot) error {
	if !a.Status.Open() {
		return apperr.BusinessRule(fmt.Sprintf("cannot reschedule a %s appointment", a.Status)).
			WithDetail("status", string(a.Status))
	}
	if err := slot.Validate(); err != nil {
		return err
	}
	a.Slot = slot
	a.Status = StatusScheduled
	return nil
}

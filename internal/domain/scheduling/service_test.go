package scheduling

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dentalcare/dentalcare/internal/domain/clinical"
	"github.com/dentalcare/dentalcare/internal/domain/identity"
	"github.com/dentalcare/dentalcare/internal/domain/values"
	"github.com/dentalcare/dentalcare/internal/platform/apperr"
	"github.com/dentalcare/dentalcare/internal/platform/spec"
)

// -- Mock Repositories --

type mockAppointmentRepo struct {
	store map[uuid.UUID]*Appointment
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{store: make(map[uuid.UUID]*Appointment)}
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("appointment", id)
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.store[a.ID]; !ok {
		return apperr.NotFound("appointment", a.ID)
	}
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return apperr.NotFound("appointment", id)
	}
	delete(m.store, id)
	return nil
}

func (m *mockAppointmentRepo) Find(_ context.Context, s spec.Spec[*Appointment], limit, offset int) ([]*Appointment, int, error) {
	var all []*Appointment
	for _, a := range m.store {
		all = append(all, a)
	}
	matched := spec.Filter(all, s)
	sort.Slice(matched, func(i, j int) bool { return matched[i].Slot.Start.Before(matched[j].Slot.Start) })
	total := len(matched)
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (m *mockAppointmentRepo) Count(ctx context.Context, s spec.Spec[*Appointment]) (int, error) {
	_, n, err := m.Find(ctx, s, 0, 0)
	return n, err
}

type mockPatients map[uuid.UUID]*identity.Patient

func (m mockPatients) GetByID(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	p, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("patient", id)
	}
	return p, nil
}

type mockDoctors map[uuid.UUID]*identity.Doctor

func (m mockDoctors) GetByID(_ context.Context, id uuid.UUID) (*identity.Doctor, error) {
	d, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("doctor", id)
	}
	return d, nil
}

type mockTreatments map[uuid.UUID]*clinical.Treatment

func (m mockTreatments) GetByID(_ context.Context, id uuid.UUID) (*clinical.Treatment, error) {
	t, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("treatment", id)
	}
	return t, nil
}

type inlineTx struct{}

func (inlineTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// testNow is Monday 2025-03-10 08:00 UTC.
var testNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC)
}

type fixture struct {
	svc        *Service
	repo       *mockAppointmentRepo
	patients   mockPatients
	doctors    mockDoctors
	treatments mockTreatments
	patient    *identity.Patient
	doctor     *identity.Doctor
	locks      []string
}

func clock(t *testing.T, s string) values.ClockTime {
	t.Helper()
	c, err := values.ParseClockTime(s)
	if err != nil {
		t.Fatalf("clock %q: %v", s, err)
	}
	return c
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:       newMockAppointmentRepo(),
		patients:   mockPatients{},
		doctors:    mockDoctors{},
		treatments: mockTreatments{},
	}
	f.patient = f.addPatient()
	f.doctor = f.addDoctor(t)

	f.svc = NewService(f.repo, f.patients, f.doctors, f.treatments, inlineTx{}, time.UTC)
	f.svc.now = func() time.Time { return testNow }
	f.svc.lock = func(_ context.Context, key string) error {
		f.locks = append(f.locks, key)
		return nil
	}
	return f
}

func (f *fixture) addPatient() *identity.Patient {
	p := &identity.Patient{ID: uuid.New(), Active: true}
	f.patients[p.ID] = p
	return p
}

func (f *fixture) addDoctor(t *testing.T) *identity.Doctor {
	t.Helper()
	a, err := values.NewWeeklyAvailability(
		values.AvailabilityWindow{Weekday: time.Monday, Start: clock(t, "09:00"), End: clock(t, "12:00")},
		values.AvailabilityWindow{Weekday: time.Monday, Start: clock(t, "14:00"), End: clock(t, "16:00")},
	)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	d := &identity.Doctor{ID: uuid.New(), Active: true, Availability: a}
	f.doctors[d.ID] = d
	return d
}

func (f *fixture) book(start time.Time, minutes int) (*Appointment, error) {
	return f.svc.Book(context.Background(), BookInput{
		PatientID: f.patient.ID,
		DoctorID:  f.doctor.ID,
		SlotInput: SlotInput{Start: start, DurationMinutes: minutes},
	})
}

// -- Booking Tests --

func TestService_Book(t *testing.T) {
	f := newFixture(t)
	a, err := f.book(at(9, 0), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID == uuid.Nil || a.Status != StatusScheduled {
		t.Errorf("unexpected appointment %+v", a)
	}
	if !a.Slot.End.Equal(at(9, 30)) {
		t.Errorf("expected end 09:30, got %v", a.Slot.End)
	}
	if len(f.locks) != 2 || f.locks[0] != doctorLock(f.doctor.ID) {
		t.Errorf("expected doctor then patient lock, got %v", f.locks)
	}

	got, err := f.svc.Get(context.Background(), a.ID)
	if err != nil || got.PatientID != f.patient.ID {
		t.Errorf("Get returned %+v, %v", got, err)
	}
}

func TestService_Book_DefaultAndTreatmentDuration(t *testing.T) {
	f := newFixture(t)
	a, err := f.book(at(9, 0), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Slot.Duration() != DefaultDuration {
		t.Errorf("expected default duration, got %s", a.Slot.Duration())
	}

	tr := &clinical.Treatment{ID: uuid.New(), Code: "ENDO", DurationMinutes: 90, Active: true}
	f.treatments[tr.ID] = tr
	b, err := f.svc.Book(context.Background(), BookInput{
		PatientID:   f.addPatient().ID,
		DoctorID:    f.doctor.ID,
		TreatmentID: &tr.ID,
		SlotInput:   SlotInput{Start: at(10, 0)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Slot.Duration() != 90*time.Minute || b.TreatmentID == nil {
		t.Errorf("expected treatment length and link, got %+v", b)
	}
}

func TestService_Book_Rules(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture) BookInput
		want  apperr.Code
	}{
		{"unknown patient", func(f *fixture) BookInput {
			return BookInput{PatientID: uuid.New(), DoctorID: f.doctor.ID, SlotInput: SlotInput{Start: at(9, 0)}}
		}, apperr.CodeNotFound},
		{"unknown doctor", func(f *fixture) BookInput {
			return BookInput{PatientID: f.patient.ID, DoctorID: uuid.New(), SlotInput: SlotInput{Start: at(9, 0)}}
		}, apperr.CodeNotFound},
		{"inactive patient", func(f *fixture) BookInput {
			f.patient.Active = false
			return BookInput{PatientID: f.patient.ID, DoctorID: f.doctor.ID, SlotInput: SlotInput{Start: at(9, 0)}}
		}, apperr.CodeBusinessRule},
		{"inactive doctor", func(f *fixture) BookInput {
			f.doctor.Active = false
			return BookInput{PatientID: f.patient.ID, DoctorID: f.doctor.ID, SlotInput: SlotInput{Start: at(9, 0)}}
		}, apperr.CodeBusinessRule},
		{"end before start", func(f *fixture) BookInput {
			end := at(8, 30)
			return BookInput{PatientID: f.patient.ID, DoctorID: f.doctor.ID, SlotInput: SlotInput{Start: at(9, 0), End: &end}}
		}, apperr.CodeValidation},
		{"missing start", func(f *fixture) BookInput {
			return BookInput{PatientID: f.patient.ID, DoctorID: f.doctor.ID}
		}, apperr.CodeValidation},
		{"in the past", func(f *fixture) BookInput {
			return BookInput{PatientID: f.patient.ID, DoctorID: f.doctor.ID, SlotInput: SlotInput{Start: at(7, 0)}}
		}, apperr.CodeBusinessRule},
		{"straddles window end", func(f *fixture) BookInput {
			return BookInput{PatientID: f.patient.ID, DoctorID: f.doctor.ID, SlotInput: SlotInput{Start: at(11, 45), DurationMinutes: 30}}
		}, apperr.CodeBusinessRule},
		{"wrong weekday", func(f *fixture) BookInput {
			return BookInput{PatientID: f.patient.ID, DoctorID: f.doctor.ID, SlotInput: SlotInput{Start: at(9, 0).AddDate(0, 0, 1)}}
		}, apperr.CodeBusinessRule},
		{"inactive treatment", func(f *fixture) BookInput {
			tr := &clinical.Treatment{ID: uuid.New(), DurationMinutes: 30}
			f.treatments[tr.ID] = tr
			return BookInput{PatientID: f.patient.ID, DoctorID: f.doctor.ID, TreatmentID: &tr.ID, SlotInput: SlotInput{Start: at(9, 0)}}
		}, apperr.CodeBusinessRule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Book(context.Background(), tt.setup(f))
			if got := apperr.CodeOf(err); got != tt.want {
				t.Errorf("expected %s, got %s (%v)", tt.want, got, err)
			}
			if len(f.repo.store) != 0 {
				t.Error("nothing must be stored when booking fails")
			}
		})
	}
}

func TestService_Book_DoctorOverlap(t *testing.T) {
	f := newFixture(t)
	if _, err := f.book(at(9, 0), 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other := f.addPatient()

	_, err := f.svc.Book(context.Background(), BookInput{
		PatientID: other.ID, DoctorID: f.doctor.ID, SlotInput: SlotInput{Start: at(9, 30)},
	})
	if apperr.CodeOf(err) != apperr.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	// Touching slots do not overlap.
	if _, err := f.svc.Book(context.Background(), BookInput{
		PatientID: other.ID, DoctorID: f.doctor.ID, SlotInput: SlotInput{Start: at(10, 0)},
	}); err != nil {
		t.Errorf("expected back-to-back booking to succeed, got %v", err)
	}
}

func TestService_Book_PatientOverlap(t *testing.T) {
	f := newFixture(t)
	if _, err := f.book(at(9, 0), 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := f.addDoctor(t)

	_, err := f.svc.Book(context.Background(), BookInput{
		PatientID: f.patient.ID, DoctorID: second.ID, SlotInput: SlotInput{Start: at(9, 30)},
	})
	if apperr.CodeOf(err) != apperr.CodeConflict {
		t.Errorf("expected conflict for double-booked patient, got %v", err)
	}
}

func TestService_Book_CancelledDoesNotConflict(t *testing.T) {
	f := newFixture(t)
	a, _ := f.book(at(9, 0), 60)
	if _, err := f.svc.Cancel(context.Background(), a.ID, "rescheduled by phone"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := f.book(at(9, 0), 60); err != nil {
		t.Errorf("cancelled appointments must free their slot, got %v", err)
	}
}

func TestService_Book_HonoursClinicTimezone(t *testing.T) {
	f := newFixture(t)
	f.svc.loc = time.FixedZone("UTC-3", -3*60*60)

	// 12:00 UTC is 09:00 in the clinic.
	if _, err := f.book(at(12, 0), 30); err != nil {
		t.Errorf("expected 09:00 local to be bookable, got %v", err)
	}
	if _, err := f.book(at(9, 0), 30); apperr.CodeOf(err) != apperr.CodeBusinessRule {
		t.Errorf("expected 06:00 local to be outside availability, got %v", err)
	}
}

// -- Reschedule Tests --

func TestService_Reschedule(t *testing.T) {
	f := newFixture(t)
	a, _ := f.book(at(9, 0), 30)
	f.svc.Confirm(context.Background(), a.ID)

	moved, err := f.svc.Reschedule(context.Background(), a.ID, RescheduleInput{SlotInput{Start: at(9, 15)}})
	if err != nil {
		t.Fatalf("overlapping its own old slot must be allowed, got %v", err)
	}
	if moved.Status != StatusScheduled || !moved.Slot.End.Equal(at(9, 45)) {
		t.Errorf("expected scheduled 09:15-09:45 keeping duration, got %s %v", moved.Status, moved.Slot)
	}
}

func TestService_Reschedule_Conflicts(t *testing.T) {
	f := newFixture(t)
	a, _ := f.book(at(9, 0), 30)
	other := f.addPatient()
	f.svc.Book(context.Background(), BookInput{PatientID: other.ID, DoctorID: f.doctor.ID, SlotInput: SlotInput{Start: at(10, 0)}})

	_, err := f.svc.Reschedule(context.Background(), a.ID, RescheduleInput{SlotInput{Start: at(10, 15)}})
	if apperr.CodeOf(err) != apperr.CodeConflict {
		t.Errorf("expected conflict, got %v", err)
	}

	_, err = f.svc.Reschedule(context.Background(), a.ID, RescheduleInput{SlotInput{Start: at(13, 0)}})
	if apperr.CodeOf(err) != apperr.CodeBusinessRule {
		t.Errorf("expected availability error for lunch break, got %v", err)
	}

	got, _ := f.svc.Get(context.Background(), a.ID)
	if !got.Slot.Start.Equal(at(9, 0)) {
		t.Errorf("failed reschedule must not move the appointment, got %v", got.Slot.Start)
	}
}

func TestService_Reschedule_Closed(t *testing.T) {
	f := newFixture(t)
	a, _ := f.book(at(9, 0), 30)
	f.svc.Cancel(context.Background(), a.ID, "")

	_, err := f.svc.Reschedule(context.Background(), a.ID, RescheduleInput{SlotInput{Start: at(10, 0)}})
	if apperr.CodeOf(err) != apperr.CodeBusinessRule {
		t.Errorf("expected business rule error, got %v", err)
	}
}

// -- Overlap & Slots Tests --

func TestService_CheckOverlap(t *testing.T) {
	f := newFixture(t)
	a, _ := f.book(at(9, 0), 60)

	tests := []struct {
		name    string
		slot    values.TimeSlot
		exclude *uuid.UUID
		want    bool
	}{
		{"intersecting", values.TimeSlot{Start: at(9, 30), End: at(10, 30)}, nil, true},
		{"contained", values.TimeSlot{Start: at(9, 15), End: at(9, 45)}, nil, true},
		{"touching", values.TimeSlot{Start: at(10, 0), End: at(10, 30)}, nil, false},
		{"disjoint", values.TimeSlot{Start: at(14, 0), End: at(15, 0)}, nil, false},
		{"excluded self", values.TimeSlot{Start: at(9, 30), End: at(10, 30)}, &a.ID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.CheckOverlap(context.Background(), f.doctor.ID, tt.slot, tt.exclude)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	f.svc.Cancel(context.Background(), a.ID, "")
	got, _ := f.svc.CheckOverlap(context.Background(), f.doctor.ID, values.TimeSlot{Start: at(9, 30), End: at(10, 30)}, nil)
	if got {
		t.Error("cancelled appointments never overlap")
	}
}

func TestService_AvailableSlots(t *testing.T) {
	f := newFixture(t)
	f.book(at(9, 30), 30)
	f.svc.now = func() time.Time { return at(9, 10) }

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctor.ID, at(0, 0), time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 09:00 has started and touches nothing else; 09:30-10:00 is booked.
	var starts []string
	for _, s := range slots {
		starts = append(starts, s.Start.Format("15:04"))
	}
	want := []string{"10:00", "11:00", "14:00", "15:00"}
	if len(starts) != len(want) {
		t.Fatalf("expected %v, got %v", want, starts)
	}
	for i := range want {
		if starts[i] != want[i] {
			t.Errorf("slot %d: expected %s, got %s", i, want[i], starts[i])
		}
	}
}

func TestService_AvailableSlots_NoWindows(t *testing.T) {
	f := newFixture(t)
	slots, err := f.svc.AvailableSlots(context.Background(), f.doctor.ID, at(0, 0).AddDate(0, 0, 2), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots on Wednesday, got %d", len(slots))
	}

	if _, err := f.svc.AvailableSlots(context.Background(), f.doctor.ID, at(0, 0), time.Minute); apperr.CodeOf(err) != apperr.CodeValidation {
		t.Errorf("expected validation error for 1 minute slots, got %v", err)
	}
}

// -- Lifecycle & Query Tests --

func TestService_Lifecycle(t *testing.T) {
	f := newFixture(t)
	a, _ := f.book(at(9, 0), 30)

	if _, err := f.svc.Complete(context.Background(), a.ID); apperr.CodeOf(err) != apperr.CodeBusinessRule {
		t.Errorf("expected completing an unconfirmed appointment to fail, got %v", err)
	}
	if _, err := f.svc.Confirm(context.Background(), a.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	done, err := f.svc.Complete(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", done.Status)
	}
	if _, err := f.svc.MarkNoShow(context.Background(), a.ID); apperr.CodeOf(err) != apperr.CodeBusinessRule {
		t.Errorf("expected no-show after completion to fail, got %v", err)
	}
}

func TestService_Update(t *testing.T) {
	f := newFixture(t)
	a, _ := f.book(at(9, 0), 30)
	tr := &clinical.Treatment{ID: uuid.New(), Active: true, DurationMinutes: 30}
	f.treatments[tr.ID] = tr

	notes := "bring x-rays"
	updated, err := f.svc.Update(context.Background(), a.ID, UpdateInput{Notes: &notes, TreatmentID: &tr.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Notes != notes || updated.TreatmentID == nil || *updated.TreatmentID != tr.ID {
		t.Errorf("unexpected update result %+v", updated)
	}

	missing := uuid.New()
	if _, err := f.svc.Update(context.Background(), a.ID, UpdateInput{TreatmentID: &missing}); !apperr.IsNotFound(err) {
		t.Errorf("expected not found for unknown treatment, got %v", err)
	}

	unlink := uuid.Nil
	updated, _ = f.svc.Update(context.Background(), a.ID, UpdateInput{TreatmentID: &unlink})
	if updated.TreatmentID != nil {
		t.Error("expected the nil UUID to unlink the treatment")
	}
}

func TestService_ListAndCount(t *testing.T) {
	f := newFixture(t)
	f.book(at(11, 0), 30)
	f.book(at(9, 0), 30)
	c, _ := f.book(at(14, 0), 30)
	f.svc.Cancel(context.Background(), c.ID, "")

	items, total, err := f.svc.ListByPatient(context.Background(), f.patient.ID, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || !items[0].Slot.Start.Equal(at(9, 0)) {
		t.Errorf("expected 3 appointments ordered by start, got %d", total)
	}

	cancelled := StatusCancelled
	_, total, _ = f.svc.List(context.Background(), Filter{Status: &cancelled}, 20, 0)
	if total != 1 {
		t.Errorf("expected 1 cancelled, got %d", total)
	}

	from, to := at(10, 0), at(12, 0)
	_, total, _ = f.svc.ListByDoctor(context.Background(), f.doctor.ID, &from, &to, 20, 0)
	if total != 1 {
		t.Errorf("expected 1 appointment between 10:00 and 12:00, got %d", total)
	}

	n, _ := f.svc.CountUpcomingForPatient(context.Background(), f.patient.ID)
	if n != 2 {
		t.Errorf("expected 2 upcoming (cancelled excluded), got %d", n)
	}
	f.svc.now = func() time.Time { return at(10, 0) }
	n, _ = f.svc.CountUpcomingForDoctor(context.Background(), f.doctor.ID)
	if n != 1 {
		t.Errorf("expected 1 upcoming after 10:00, got %d", n)
	}
}

func TestService_Delete(t *testing.T) {
	f := newFixture(t)
	a, _ := f.book(at(9, 0), 30)
	if err := f.svc.Delete(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), a.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_LockSchedules(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.LockPatientSchedule(context.Background(), f.patient.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.svc.LockDoctorSchedule(context.Background(), f.doctor.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{patientLock(f.patient.ID), doctorLock(f.doctor.ID)}
	if len(f.locks) != 2 || f.locks[0] != want[0] || f.locks[1] != want[1] {
		t.Errorf("expected the keys Book takes, got %v", f.locks)
	}
}

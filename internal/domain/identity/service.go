package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dentalcare/dentalcare/internal/domain/values"
	"github.com/dentalcare/dentalcare/internal/platform/apperr"
	"github.com/dentalcare/dentalcare/internal/platform/db"
)

// UpcomingAppointments counts the active appointments that have not started
// yet. A patient or doctor with any of them cannot be deleted. The Lock
// methods hold off new bookings for the rest of the transaction.
type UpcomingAppointments interface {
	LockPatientSchedule(ctx context.Context, patientID uuid.UUID) error
	LockDoctorSchedule(ctx context.Context, doctorID uuid.UUID) error
	CountUpcomingForPatient(ctx context.Context, patientID uuid.UUID) (int, error)
	CountUpcomingForDoctor(ctx context.Context, doctorID uuid.UUID) (int, error)
}

type Service struct {
	patients     PatientRepository
	doctors      DoctorRepository
	appointments UpcomingAppointments
	tx           db.Transactor
	now          func() time.Time
}

func NewService(patients PatientRepository, doctors DoctorRepository, appointments UpcomingAppointments, tx db.Transactor) *Service {
	return &Service{
		patients:     patients,
		doctors:      doctors,
		appointments: appointments,
		tx:           tx,
		now:          time.Now,
	}
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, in PatientInput) (*Patient, error) {
	name, contact, details, err := in.parts()
	if err != nil {
		return nil, err
	}
	p, err := NewPatient(name, contact, in.DocumentNumber, details, s.now())
	if err != nil {
		return nil, err
	}
	if in.Active != nil && !*in.Active {
		p.Deactivate()
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// UpdatePatient replaces the patient's attributes. Active is only changed
// when present in the input.
func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, in PatientInput) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	name, contact, details, err := in.parts()
	if err != nil {
		return nil, err
	}
	if err := p.Rename(name); err != nil {
		return nil, err
	}
	if err := p.UpdateContact(contact); err != nil {
		return nil, err
	}
	p.DocumentNumber = strings.TrimSpace(in.DocumentNumber)
	p.apply(details)
	if in.Active != nil {
		if *in.Active {
			p.Activate()
		} else {
			p.Deactivate()
		}
	}
	if err := p.Validate(s.now()); err != nil {
		return nil, err
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.patients.GetByID(ctx, id); err != nil {
			return err
		}
		if err := s.appointments.LockPatientSchedule(ctx, id); err != nil {
			return err
		}
		n, err := s.appointments.CountUpcomingForPatient(ctx, id)
		if err != nil {
			return fmt.Errorf("count upcoming appointments: %w", err)
		}
		if n > 0 {
			return apperr.BusinessRule(fmt.Sprintf("patient has %d upcoming appointment(s); cancel them first", n))
		}
		return s.patients.Delete(ctx, id)
	})
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.SearchPatients(ctx, PatientFilter{}, limit, offset)
}

func (s *Service) SearchPatients(ctx context.Context, f PatientFilter, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Find(ctx, f.Spec(), limit, offset)
}

// -- Doctor --

func (s *Service) CreateDoctor(ctx context.Context, in DoctorInput) (*Doctor, error) {
	name, contact, err := in.parts()
	if err != nil {
		return nil, err
	}
	d, err := NewDoctor(name, contact, in.LicenseNumber, in.Specialty)
	if err != nil {
		return nil, err
	}
	if in.Availability != nil {
		if err := d.SetAvailability(*in.Availability); err != nil {
			return nil, err
		}
	}
	if in.Active != nil {
		d.Active = *in.Active
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

// UpdateDoctor replaces the doctor's attributes. Availability and Active
// are kept when absent from the input.
func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, in DoctorInput) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	name, contact, err := in.parts()
	if err != nil {
		return nil, err
	}
	d.Name = name
	d.Contact = contact
	d.LicenseNumber = strings.TrimSpace(in.LicenseNumber)
	d.Specialty = strings.TrimSpace(in.Specialty)
	if in.Availability != nil {
		if err := d.SetAvailability(*in.Availability); err != nil {
			return nil, err
		}
	}
	if in.Active != nil {
		d.Active = *in.Active
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.doctors.GetByID(ctx, id); err != nil {
			return err
		}
		if err := s.appointments.LockDoctorSchedule(ctx, id); err != nil {
			return err
		}
		n, err := s.appointments.CountUpcomingForDoctor(ctx, id)
		if err != nil {
			return fmt.Errorf("count upcoming appointments: %w", err)
		}
		if n > 0 {
			return apperr.BusinessRule(fmt.Sprintf("doctor has %d upcoming appointment(s); cancel or reassign them first", n))
		}
		return s.doctors.Delete(ctx, id)
	})
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.SearchDoctors(ctx, DoctorFilter{}, limit, offset)
}

func (s *Service) SearchDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.Find(ctx, f.Spec(), limit, offset)
}

func (s *Service) GetDoctorAvailability(ctx context.Context, id uuid.UUID) (values.WeeklyAvailability, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return values.WeeklyAvailability{}, err
	}
	return d.Availability, nil
}

func (s *Service) SetDoctorAvailability(ctx context.Context, id uuid.UUID, a values.WeeklyAvailability) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.SetAvailability(a); err != nil {
		return nil, err
	}
	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

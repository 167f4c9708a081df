package odontogram

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dentalcare/dentalcare/internal/domain/clinical"
	"github.com/dentalcare/dentalcare/internal/domain/identity"
	"github.com/dentalcare/dentalcare/internal/domain/values"
	"github.com/dentalcare/dentalcare/internal/platform/apperr"
	"github.com/dentalcare/dentalcare/internal/platform/db"
)

type PatientFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

type DoctorFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Doctor, error)
}

type LesionFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*clinical.Lesion, error)
}

type TreatmentFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*clinical.Treatment, error)
}

type Service struct {
	repo       Repository
	patients   PatientFinder
	doctors    DoctorFinder
	lesions    LesionFinder
	treatments TreatmentFinder
	tx         db.Transactor
	lock       func(ctx context.Context, key string) error
	currency   string
	now        func() time.Time
}

// NewService wires the odontogram service. currency prices an empty
// treatment plan.
func NewService(repo Repository, patients PatientFinder, doctors DoctorFinder, lesions LesionFinder,
	treatments TreatmentFinder, tx db.Transactor, currency string) *Service {
	return &Service{
		repo:       repo,
		patients:   patients,
		doctors:    doctors,
		lesions:    lesions,
		treatments: treatments,
		tx:         tx,
		lock:       db.LockKey,
		currency:   currency,
		now:        time.Now,
	}
}

func patientLock(id uuid.UUID) string { return "odontogram:patient:" + id.String() }

func (s *Service) Create(ctx context.Context, in CreateInput) (*Odontogram, error) {
	o, err := New(in.PatientID)
	if err != nil {
		return nil, err
	}
	o.Notes = in.Notes
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.lock(ctx, patientLock(in.PatientID)); err != nil {
			return err
		}
		if _, err := s.patients.GetByID(ctx, in.PatientID); err != nil {
			return err
		}
		_, err := s.repo.GetByPatient(ctx, in.PatientID)
		switch {
		case err == nil:
			return apperr.Conflict("patient already has an odontogram").
				WithDetail("patient_id", in.PatientID.String())
		case !apperr.IsNotFound(err):
			return err
		}
		return s.repo.Create(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Odontogram, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByPatient(ctx context.Context, patientID uuid.UUID) (*Odontogram, error) {
	return s.repo.GetByPatient(ctx, patientID)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// modify runs fn on the patient's odontogram under a per-patient lock so
// concurrent tooth edits are not lost, then saves it.
func (s *Service) modify(ctx context.Context, patientID uuid.UUID, fn func(o *Odontogram) error) (*Odontogram, error) {
	var result *Odontogram
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.lock(ctx, patientLock(patientID)); err != nil {
			return err
		}
		o, err := s.repo.GetByPatient(ctx, patientID)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpsertTooth records the state of one tooth, replacing its previous
// record. Referenced lesion, treatment and doctor must exist.
func (s *Service) UpsertTooth(ctx context.Context, patientID uuid.UUID, tooth int, in ToothInput) (*Odontogram, error) {
	rec := ToothRecord{
		ToothNumber: tooth,
		Surfaces:    in.Surfaces,
		LesionID:    in.LesionID,
		TreatmentID: in.TreatmentID,
		Status:      in.Status,
		Notes:       in.Notes,
		RecordedBy:  in.RecordedBy,
		RecordedAt:  s.now().UTC(),
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, rec); err != nil {
		return nil, err
	}
	return s.modify(ctx, patientID, func(o *Odontogram) error {
		return o.UpsertTooth(rec)
	})
}

func (s *Service) checkReferences(ctx context.Context, rec ToothRecord) error {
	if rec.LesionID != nil {
		if _, err := s.lesions.GetByID(ctx, *rec.LesionID); err != nil {
			return err
		}
	}
	if rec.TreatmentID != nil {
		if _, err := s.treatments.GetByID(ctx, *rec.TreatmentID); err != nil {
			return err
		}
	}
	if rec.RecordedBy != nil {
		if _, err := s.doctors.GetByID(ctx, *rec.RecordedBy); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) RemoveTooth(ctx context.Context, patientID uuid.UUID, tooth int) (*Odontogram, error) {
	if !ValidToothNumber(tooth) {
		return nil, apperr.Field("tooth", "is not an FDI tooth number")
	}
	return s.modify(ctx, patientID, func(o *Odontogram) error {
		return o.RemoveTooth(tooth)
	})
}

func (s *Service) UpdateNotes(ctx context.Context, patientID uuid.UUID, notes string) (*Odontogram, error) {
	return s.modify(ctx, patientID, func(o *Odontogram) error {
		o.Notes = notes
		return nil
	})
}

// TreatmentPlan lists the planned and in-progress teeth with their
// treatments and the estimated total. All priced treatments must share a
// currency.
func (s *Service) TreatmentPlan(ctx context.Context, patientID uuid.UUID) (*TreatmentPlan, error) {
	o, err := s.repo.GetByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	plan := &TreatmentPlan{PatientID: patientID, Items: []PlanItem{}, Total: values.Zero(s.currency)}
	priced := false
	for _, rec := range o.Pending() {
		item := PlanItem{Tooth: rec}
		if rec.TreatmentID != nil {
			t, err := s.treatments.GetByID(ctx, *rec.TreatmentID)
			if apperr.IsNotFound(err) {
				// Removed from the catalog after the tooth was charted.
				plan.Items = append(plan.Items, item)
				continue
			}
			if err != nil {
				return nil, err
			}
			item.Treatment = t
			if !priced {
				plan.Total = values.Zero(t.Price.Currency)
				priced = true
			}
			if plan.Total, err = plan.Total.Add(t.Price); err != nil {
				return nil, err
			}
		}
		plan.Items = append(plan.Items, item)
	}
	return plan, nil
}

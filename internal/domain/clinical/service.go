package clinical

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dentalcare/dentalcare/internal/domain/values"
	"github.com/dentalcare/dentalcare/internal/platform/apperr"
	"github.com/dentalcare/dentalcare/internal/platform/spec"
)

// ChartReferences counts the odontograms whose tooth records point at a
// catalog entry. Those links live in JSONB and have no foreign key.
type ChartReferences interface {
	CountTreatmentReferences(ctx context.Context, treatmentID uuid.UUID) (int, error)
	CountLesionReferences(ctx context.Context, lesionID uuid.UUID) (int, error)
}

type Service struct {
	treatments TreatmentRepository
	lesions    LesionRepository
	charts     ChartReferences
	currency   string
}

// NewService returns the catalog service. currency is applied to treatments
// created without one.
func NewService(treatments TreatmentRepository, lesions LesionRepository, charts ChartReferences, currency string) *Service {
	return &Service{treatments: treatments, lesions: lesions, charts: charts, currency: strings.ToUpper(currency)}
}

func (s *Service) price(in TreatmentInput) (values.Money, error) {
	code := in.Currency
	if strings.TrimSpace(code) == "" {
		code = s.currency
	}
	return values.NewMoney(in.PriceAmount, code)
}

// -- Treatment --

func (s *Service) CreateTreatment(ctx context.Context, in TreatmentInput) (*Treatment, error) {
	price, err := s.price(in)
	if err != nil {
		return nil, err
	}
	t, err := NewTreatment(in.Code, in.Name, in.Description, price, in.DurationMinutes)
	if err != nil {
		return nil, err
	}
	if in.Active != nil {
		t.Active = *in.Active
	}
	if err := s.treatments.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) GetTreatment(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	return s.treatments.GetByID(ctx, id)
}

func (s *Service) UpdateTreatment(ctx context.Context, id uuid.UUID, in TreatmentInput) (*Treatment, error) {
	t, err := s.treatments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	price, err := s.price(in)
	if err != nil {
		return nil, err
	}
	t.Code = normalizeCode(in.Code)
	t.Name = strings.TrimSpace(in.Name)
	t.Description = strings.TrimSpace(in.Description)
	t.Price = price
	t.DurationMinutes = in.DurationMinutes
	if in.Active != nil {
		t.Active = *in.Active
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.treatments.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTreatment refuses to remove a treatment still charted on a tooth.
// Deactivate it instead.
func (s *Service) DeleteTreatment(ctx context.Context, id uuid.UUID) error {
	n, err := s.charts.CountTreatmentReferences(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.BusinessRule(fmt.Sprintf("treatment is referenced by %d odontogram(s); deactivate it instead", n))
	}
	return s.treatments.Delete(ctx, id)
}

func (s *Service) ListTreatments(ctx context.Context, limit, offset int) ([]*Treatment, int, error) {
	return s.SearchTreatments(ctx, TreatmentFilter{}, limit, offset)
}

func (s *Service) SearchTreatments(ctx context.Context, f TreatmentFilter, limit, offset int) ([]*Treatment, int, error) {
	return s.treatments.Find(ctx, f.Spec(), limit, offset)
}

// -- Lesion --

func (s *Service) CreateLesion(ctx context.Context, in LesionInput) (*Lesion, error) {
	l, err := NewLesion(in.Code, in.Name, in.Description, in.Color)
	if err != nil {
		return nil, err
	}
	if err := s.lesions.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) GetLesion(ctx context.Context, id uuid.UUID) (*Lesion, error) {
	return s.lesions.GetByID(ctx, id)
}

func (s *Service) UpdateLesion(ctx context.Context, id uuid.UUID, in LesionInput) (*Lesion, error) {
	l, err := s.lesions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Code = normalizeCode(in.Code)
	l.Name = strings.TrimSpace(in.Name)
	l.Description = strings.TrimSpace(in.Description)
	l.Color = strings.ToUpper(strings.TrimSpace(in.Color))
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if err := s.lesions.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) DeleteLesion(ctx context.Context, id uuid.UUID) error {
	n, err := s.charts.CountLesionReferences(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.BusinessRule(fmt.Sprintf("lesion is referenced by %d odontogram(s)", n))
	}
	return s.lesions.Delete(ctx, id)
}

func (s *Service) ListLesions(ctx context.Context, limit, offset int) ([]*Lesion, int, error) {
	return s.SearchLesions(ctx, "", limit, offset)
}

func (s *Service) SearchLesions(ctx context.Context, q string, limit, offset int) ([]*Lesion, int, error) {
	var filter spec.Spec[*Lesion] = spec.All[*Lesion]()
	if q = strings.TrimSpace(q); q != "" {
		filter = LesionNameContains(q)
	}
	return s.lesions.Find(ctx, filter, limit, offset)
}

// SeedResult reports how many catalog entries Seed inserted.
type SeedResult struct {
	Treatments int
	Lesions    int
}

// Seed inserts the default catalog. Entries whose code already exists are
// left untouched, so running it twice is harmless.
func (s *Service) Seed(ctx context.Context) (SeedResult, error) {
	var res SeedResult
	for _, in := range DefaultTreatments(s.currency) {
		if _, err := s.treatments.GetByCode(ctx, normalizeCode(in.Code)); err == nil {
			continue
		} else if !apperr.IsNotFound(err) {
			return res, err
		}
		if _, err := s.CreateTreatment(ctx, in); err != nil {
			return res, err
		}
		res.Treatments++
	}
	for _, in := range DefaultLesions() {
		if _, err := s.lesions.GetByCode(ctx, normalizeCode(in.Code)); err == nil {
			continue
		} else if !apperr.IsNotFound(err) {
			return res, err
		}
		if _, err := s.CreateLesion(ctx, in); err != nil {
			return res, err
		}
		res.Lesions++
	}
	return res, nil
}

package clinical

import (
	"context"

	"github.com/google/uuid"

	"github.com/dentalcare/dentalcare/internal/platform/spec"
)

type TreatmentRepository interface {
	Create(ctx context.Context, t *Treatment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Treatment, error)
	GetByCode(ctx context.Context, code string) (*Treatment, error)
	Update(ctx context.Context, t *Treatment) error
	Delete(ctx context.Context, id uuid.UUID) error
	Find(ctx context.Context, s spec.Spec[*Treatment], limit, offset int) ([]*Treatment, int, error)
}

type LesionRepository interface {
	Create(ctx context.Context, l *Lesion) error
	GetByID(ctx context.Context, id uuid.UUID) (*Lesion, error)
	GetByCode(ctx context.Context, code string) (*Lesion, error)
	Update(ctx context.Context, l *Lesion) error
	Delete(ctx context.Context, id uuid.UUID) error
	Find(ctx context.Context, s spec.Spec[*Lesion], limit, offset int) ([]*Lesion, int, error)
}

func TreatmentNameContains(q string) spec.Spec[*Treatment] {
	return spec.Contains("name", q, func(t *Treatment) string { return t.Name })
}

func TreatmentActive(active bool) spec.Spec[*Treatment] {
	return spec.Eq("active", active, func(t *Treatment) bool { return t.Active })
}

func LesionNameContains(q string) spec.Spec[*Lesion] {
	return spec.Contains("name", q, func(l *Lesion) string { return l.Name })
}

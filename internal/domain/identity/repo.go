package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/dentalcare/dentalcare/internal/platform/spec"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	Find(ctx context.Context, s spec.Spec[*Patient], limit, offset int) ([]*Patient, int, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id uuid.UUID) error
	Find(ctx context.Context, s spec.Spec[*Doctor], limit, offset int) ([]*Doctor, int, error)
}

// -- Patient specifications --

func PatientNameContains(q string) spec.Spec[*Patient] {
	return spec.Contains("(first_name || ' ' || last_name)", q, func(p *Patient) string { return p.Name.String() })
}

func PatientDocument(doc string) spec.Spec[*Patient] {
	return spec.Eq("document_number", strings.TrimSpace(doc), func(p *Patient) string { return p.DocumentNumber })
}

func PatientActive(active bool) spec.Spec[*Patient] {
	return spec.Eq("active", active, func(p *Patient) bool { return p.Active })
}

// -- Doctor specifications --

func DoctorNameContains(q string) spec.Spec[*Doctor] {
	return spec.Contains("(first_name || ' ' || last_name)", q, func(d *Doctor) string { return d.Name.String() })
}

func DoctorSpecialty(s string) spec.Spec[*Doctor] {
	want := strings.ToLower(strings.TrimSpace(s))
	return spec.New("lower(specialty) = ?", []any{want}, func(d *Doctor) bool {
		return strings.ToLower(d.Specialty) == want
	})
}

func DoctorLicense(license string) spec.Spec[*Doctor] {
	return spec.Eq("license_number", strings.TrimSpace(license), func(d *Doctor) string { return d.LicenseNumber })
}

func DoctorActive(active bool) spec.Spec[*Doctor] {
	return spec.Eq("active", active, func(d *Doctor) bool { return d.Active })
}

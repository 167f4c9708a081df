package odontogram

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists odontograms. There is at most one per patient.
type Repository interface {
	Create(ctx context.Context, o *Odontogram) error
	GetByID(ctx context.Context, id uuid.UUID) (*Odontogram, error)
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*Odontogram, error)
	Update(ctx context.Context, o *Odontogram) error
	Delete(ctx context.Context, id uuid.UUID) error
	// CountTreatmentReferences and CountLesionReferences count the
	// odontograms with a tooth record pointing at the catalog entry.
	CountTreatmentReferences(ctx context.Context, treatmentID uuid.UUID) (int, error)
	CountLesionReferences(ctx context.Context, lesionID uuid.UUID) (int, error)
}

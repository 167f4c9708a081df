package odontogram

import (
	"github.com/google/uuid"

	"github.com/dentalcare/dentalcare/internal/domain/clinical"
	"github.com/dentalcare/dentalcare/internal/domain/values"
)

type CreateInput struct {
	PatientID uuid.UUID `json:"patient_id"`
	Notes     string    `json:"notes"`
}

// ToothInput is the body of PUT .../teeth/:tooth. The tooth number comes
// from the path.
type ToothInput struct {
	Surfaces    []Surface   `json:"surfaces"`
	LesionID    *uuid.UUID  `json:"lesion_id"`
	TreatmentID *uuid.UUID  `json:"treatment_id"`
	Status      ToothStatus `json:"status"`
	Notes       string      `json:"notes"`
	RecordedBy  *uuid.UUID  `json:"recorded_by"`
}

type NotesInput struct {
	Notes string `json:"notes"`
}

// PlanItem is a tooth awaiting work. Treatment is nil when only a lesion
// has been recorded.
type PlanItem struct {
	Tooth     ToothRecord         `json:"tooth"`
	Treatment *clinical.Treatment `json:"treatment,omitempty"`
}

type TreatmentPlan struct {
	PatientID uuid.UUID    `json:"patient_id"`
	Items     []PlanItem   `json:"items"`
	Total     values.Money `json:"total"`
}

package odontogram

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dentalcare/dentalcare/internal/platform/apperr"
)

// ToothStatus is the clinical state recorded for a tooth.
type ToothStatus string

const (
	StatusHealthy    ToothStatus = "healthy"
	StatusDiagnosed  ToothStatus = "diagnosed"
	StatusPlanned    ToothStatus = "planned"
	StatusInProgress ToothStatus = "in_progress"
	StatusCompleted  ToothStatus = "completed"
	StatusMissing    ToothStatus = "missing"
)

func (s ToothStatus) Valid() bool {
	switch s {
	case StatusHealthy, StatusDiagnosed, StatusPlanned, StatusInProgress, StatusCompleted, StatusMissing:
		return true
	}
	return false
}

// Pending reports whether work on the tooth is still to be done.
func (s ToothStatus) Pending() bool {
	return s == StatusPlanned || s == StatusInProgress
}

type Surface string

const (
	SurfaceMesial     Surface = "mesial"
	SurfaceDistal     Surface = "distal"
	SurfaceOcclusal   Surface = "occlusal"
	SurfaceVestibular Surface = "vestibular"
	SurfaceLingual    Surface = "lingual"
)

var surfaceOrder = map[Surface]int{
	SurfaceMesial: 0, SurfaceDistal: 1, SurfaceOcclusal: 2, SurfaceVestibular: 3, SurfaceLingual: 4,
}

// NormalizeSurfaces lower-cases, validates and deduplicates surfaces, in
// canonical order.
func NormalizeSurfaces(in []Surface) ([]Surface, error) {
	seen := make(map[Surface]bool, len(in))
	out := make([]Surface, 0, len(in))
	for _, s := range in {
		s = Surface(strings.ToLower(strings.TrimSpace(string(s))))
		if _, ok := surfaceOrder[s]; !ok {
			return nil, apperr.Field("surfaces", fmt.Sprintf("unknown surface %q", s))
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return surfaceOrder[out[i]] < surfaceOrder[out[j]] })
	return out, nil
}

// ValidToothNumber reports whether n is an FDI two-digit tooth number.
// Quadrants 1-4 hold permanent teeth 1-8, quadrants 5-8 deciduous teeth 1-5.
func ValidToothNumber(n int) bool {
	quadrant, pos := n/10, n%10
	switch {
	case quadrant >= 1 && quadrant <= 4:
		return pos >= 1 && pos <= 8
	case quadrant >= 5 && quadrant <= 8:
		return pos >= 1 && pos <= 5
	}
	return false
}

// Deciduous reports whether n is a primary (baby) tooth.
func Deciduous(n int) bool { return n/10 >= 5 && ValidToothNumber(n) }

type ToothRecord struct {
	ToothNumber int         `json:"tooth_number"`
	Surfaces    []Surface   `json:"surfaces"`
	LesionID    *uuid.UUID  `json:"lesion_id,omitempty"`
	TreatmentID *uuid.UUID  `json:"treatment_id,omitempty"`
	Status      ToothStatus `json:"status"`
	Notes       string      `json:"notes,omitempty"`
	RecordedBy  *uuid.UUID  `json:"recorded_by,omitempty"`
	RecordedAt  time.Time   `json:"recorded_at"`
}

// Validate checks the record and normalizes its surfaces in place.
func (r *ToothRecord) Validate() error {
	if !ValidToothNumber(r.ToothNumber) {
		return apperr.Field("tooth_number", fmt.Sprintf("%d is not an FDI tooth number", r.ToothNumber))
	}
	if r.Status == "" {
		return apperr.Field("status", "is required")
	}
	if !r.Status.Valid() {
		return apperr.Field("status", fmt.Sprintf("unknown status %q", r.Status))
	}
	surfaces, err := NormalizeSurfaces(r.Surfaces)
	if err != nil {
		return err
	}
	r.Surfaces = surfaces
	if r.LesionID == nil && r.TreatmentID == nil &&
		r.Status != StatusHealthy && r.Status != StatusMissing {
		return apperr.Validation("a lesion or a treatment is required unless the tooth is healthy or missing")
	}
	return nil
}

type Odontogram struct {
	ID        uuid.UUID     `json:"id"`
	PatientID uuid.UUID     `json:"patient_id"`
	Teeth     []ToothRecord `json:"teeth"`
	Notes     string        `json:"notes"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func New(patientID uuid.UUID) (*Odontogram, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Field("patient_id", "is required")
	}
	return &Odontogram{PatientID: patientID, Teeth: []ToothRecord{}}, nil
}

// Tooth returns the record for tooth n, if any.
func (o *Odontogram) Tooth(n int) (ToothRecord, bool) {
	for _, t := range o.Teeth {
		if t.ToothNumber == n {
			return t, true
		}
	}
	return ToothRecord{}, false
}

// UpsertTooth validates r and stores it, replacing any record for the same
// tooth. Teeth stay ordered by number.
func (o *Odontogram) UpsertTooth(r ToothRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	for i := range o.Teeth {
		if o.Teeth[i].ToothNumber == r.ToothNumber {
			o.Teeth[i] = r
			return nil
		}
	}
	o.Teeth = append(o.Teeth, r)
	sort.Slice(o.Teeth, func(i, j int) bool { return o.Teeth[i].ToothNumber < o.Teeth[j].ToothNumber })
	return nil
}

func (o *Odontogram) RemoveTooth(n int) error {
	for i := range o.Teeth {
		if o.Teeth[i].ToothNumber == n {
			o.Teeth = append(o.Teeth[:i], o.Teeth[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("tooth record", n)
}

// Pending returns the records still awaiting treatment.
func (o *Odontogram) Pending() []ToothRecord {
	var out []ToothRecord
	for _, t := range o.Teeth {
		if t.Status.Pending() {
			out = append(out, t)
		}
	}
	return out
}

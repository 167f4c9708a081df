package clinical

import (
	"strings"

	"github.com/dentalcare/dentalcare/internal/platform/spec"
)

// TreatmentInput is the create/update payload for a treatment. Currency
// defaults to the clinic currency.
type TreatmentInput struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	PriceAmount     int64  `json:"price_amount"`
	Currency        string `json:"currency"`
	DurationMinutes int    `json:"duration_minutes"`
	Active          *bool  `json:"active"`
}

type LesionInput struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type TreatmentFilter struct {
	Query  string
	Active *bool
}

func (f TreatmentFilter) Spec() spec.Spec[*Treatment] {
	var parts []spec.Spec[*Treatment]
	if q := strings.TrimSpace(f.Query); q != "" {
		parts = append(parts, TreatmentNameContains(q))
	}
	if f.Active != nil {
		parts = append(parts, TreatmentActive(*f.Active))
	}
	return spec.And(parts...)
}

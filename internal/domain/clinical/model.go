package clinical

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dentalcare/dentalcare/internal/domain/values"
	"github.com/dentalcare/dentalcare/internal/platform/apperr"
)

var (
	codePattern  = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{0,31}$`)
	colorPattern = regexp.MustCompile(`^#[0-9A-F]{6}$`)
)

// Treatment is a billable procedure in the clinic catalog.
type Treatment struct {
	ID              uuid.UUID    `json:"id"`
	Code            string       `json:"code"`
	Name            string       `json:"name"`
	Description     string       `json:"description,omitempty"`
	Price           values.Money `json:"price"`
	DurationMinutes int          `json:"duration_minutes"`
	Active          bool         `json:"active"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func NewTreatment(code, name, description string, price values.Money, durationMinutes int) (*Treatment, error) {
	t := &Treatment{
		Code:            normalizeCode(code),
		Name:            strings.TrimSpace(name),
		Description:     strings.TrimSpace(description),
		Price:           price,
		DurationMinutes: durationMinutes,
		Active:          true,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Treatment) Validate() error {
	if !codePattern.MatchString(t.Code) {
		return apperr.Field("code", "must be 1-32 upper-case letters, digits, '-' or '_'")
	}
	if t.Name == "" {
		return apperr.Field("name", "is required")
	}
	if err := t.Price.Validate(); err != nil {
		return err
	}
	if t.DurationMinutes <= 0 {
		return apperr.Field("duration_minutes", "must be positive")
	}
	return nil
}

func (t *Treatment) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

// Lesion is a diagnosable finding charted on the odontogram.
type Lesion struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewLesion(code, name, description, color string) (*Lesion, error) {
	l := &Lesion{
		Code:        normalizeCode(code),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Color:       strings.ToUpper(strings.TrimSpace(color)),
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Lesion) Validate() error {
	if !codePattern.MatchString(l.Code) {
		return apperr.Field("code", "must be 1-32 upper-case letters, digits, '-' or '_'")
	}
	if l.Name == "" {
		return apperr.Field("name", "is required")
	}
	if !colorPattern.MatchString(l.Color) {
		return apperr.Field("color", "must be #RRGGBB")
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dentalcare/dentalcare/internal/domain/values"
	"github.com/dentalcare/dentalcare/internal/platform/apperr"
)

type Gender string

const (
	GenderFemale  Gender = "female"
	GenderMale    Gender = "male"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

func (g Gender) Valid() bool {
	switch g {
	case "", GenderFemale, GenderMale, GenderOther, GenderUnknown:
		return true
	}
	return false
}

// Patient maps to the patient table.
type Patient struct {
	ID             uuid.UUID          `json:"id"`
	Name           values.FullName    `json:"name"`
	Contact        values.ContactInfo `json:"contact"`
	DocumentNumber string             `json:"document_number"`
	BirthDate      *time.Time         `json:"birth_date,omitempty"`
	Gender         Gender             `json:"gender,omitempty"`
	Address        string             `json:"address,omitempty"`
	MedicalNotes   string             `json:"medical_notes,omitempty"`
	Active         bool               `json:"active"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// PatientDetails carries the optional patient attributes.
type PatientDetails struct {
	BirthDate    *time.Time
	Gender       Gender
	Address      string
	MedicalNotes string
}

func NewPatient(name values.FullName, contact values.ContactInfo, document string, d PatientDetails, now time.Time) (*Patient, error) {
	p := &Patient{
		Name:           name,
		Contact:        contact,
		DocumentNumber: strings.TrimSpace(document),
		Active:         true,
	}
	p.apply(d)
	if err := p.Validate(now); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Patient) apply(d PatientDetails) {
	p.BirthDate = normalizeDate(d.BirthDate)
	p.Gender = Gender(strings.ToLower(strings.TrimSpace(string(d.Gender))))
	p.Address = strings.TrimSpace(d.Address)
	p.MedicalNotes = strings.TrimSpace(d.MedicalNotes)
}

// Validate checks the invariants of a patient at time now.
func (p *Patient) Validate(now time.Time) error {
	if err := p.Name.Validate(); err != nil {
		return err
	}
	if err := p.Contact.Validate(); err != nil {
		return err
	}
	if p.DocumentNumber == "" {
		return apperr.Field("document_number", "is required")
	}
	if len(p.DocumentNumber) > 64 {
		return apperr.Field("document_number", "is too long")
	}
	if p.BirthDate != nil && p.BirthDate.After(now) {
		return apperr.Field("birth_date", "must not be in the future")
	}
	if !p.Gender.Valid() {
		return apperr.Field("gender", "must be one of female, male, other, unknown")
	}
	return nil
}

func (p *Patient) Rename(name values.FullName) error {
	if err := name.Validate(); err != nil {
		return err
	}
	p.Name = name
	return nil
}

func (p *Patient) UpdateContact(c values.ContactInfo) error {
	if err := c.Validate(); err != nil {
		return err
	}
	p.Contact = c
	return nil
}

func (p *Patient) Deactivate() { p.Active = false }
func (p *Patient) Activate()   { p.Active = true }

// Age returns the patient's age in whole years at now, or -1 when the birth
// date is unknown.
func (p *Patient) Age(now time.Time) int {
	if p.BirthDate == nil {
		return -1
	}
	b := p.BirthDate.UTC()
	n := now.UTC()
	age := n.Year() - b.Year()
	if n.Month() < b.Month() || (n.Month() == b.Month() && n.Day() < b.Day()) {
		age--
	}
	return age
}

func normalizeDate(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &day
}

// Doctor maps to the doctor table.
type Doctor struct {
	ID            uuid.UUID                 `json:"id"`
	Name          values.FullName           `json:"name"`
	Contact       values.ContactInfo        `json:"contact"`
	LicenseNumber string                    `json:"license_number"`
	Specialty     string                    `json:"specialty"`
	Availability  values.WeeklyAvailability `json:"availability"`
	Active        bool                      `json:"active"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

func NewDoctor(name values.FullName, contact values.ContactInfo, license, specialty string) (*Doctor, error) {
	d := &Doctor{
		Name:          name,
		Contact:       contact,
		LicenseNumber: strings.TrimSpace(license),
		Specialty:     strings.TrimSpace(specialty),
		Availability:  values.WeeklyAvailability{Windows: []values.AvailabilityWindow{}},
		Active:        true,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Doctor) Validate() error {
	if err := d.Name.Validate(); err != nil {
		return err
	}
	if err := d.Contact.Validate(); err != nil {
		return err
	}
	if d.LicenseNumber == "" {
		return apperr.Field("license_number", "is required")
	}
	if d.Specialty == "" {
		return apperr.Field("specialty", "is required")
	}
	return d.Availability.Validate()
}

// SetAvailability replaces the weekly schedule after validating it.
func (d *Doctor) SetAvailability(a values.WeeklyAvailability) error {
	v, err := values.NewWeeklyAvailability(a.Windows...)
	if err != nil {
		return err
	}
	if v.Windows == nil {
		v.Windows = []values.AvailabilityWindow{}
	}
	d.Availability = v
	return nil
}

// IsAvailable reports whether an active doctor's weekly schedule covers the
// slot in loc.
func (d *Doctor) IsAvailable(slot values.TimeSlot, loc *time.Location) bool {
	return d.Active && d.Availability.Covers(slot, loc)
}

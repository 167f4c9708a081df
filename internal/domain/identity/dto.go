package identity

import (
	"strings"
	"time"

	"github.com/dentalcare/dentalcare/internal/domain/values"
	"github.com/dentalcare/dentalcare/internal/platform/apperr"
	"github.com/dentalcare/dentalcare/internal/platform/spec"
)

const dateLayout = "2006-01-02"

// PatientInput is the create/update payload for a patient.
type PatientInput struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	DocumentNumber string `json:"document_number"`
	BirthDate      string `json:"birth_date"`
	Gender         string `json:"gender"`
	Address        string `json:"address"`
	MedicalNotes   string `json:"medical_notes"`
	Active         *bool  `json:"active"`
}

func (in PatientInput) parts() (values.FullName, values.ContactInfo, PatientDetails, error) {
	name, err := values.NewFullName(in.FirstName, in.LastName)
	if err != nil {
		return values.FullName{}, values.ContactInfo{}, PatientDetails{}, err
	}
	contact, err := values.NewContactInfo(in.Email, in.Phone)
	if err != nil {
		return values.FullName{}, values.ContactInfo{}, PatientDetails{}, err
	}
	d := PatientDetails{
		Gender:       Gender(in.Gender),
		Address:      in.Address,
		MedicalNotes: in.MedicalNotes,
	}
	if b := strings.TrimSpace(in.BirthDate); b != "" {
		t, err := time.Parse(dateLayout, b)
		if err != nil {
			return values.FullName{}, values.ContactInfo{}, PatientDetails{}, apperr.Field("birth_date", "must be YYYY-MM-DD")
		}
		d.BirthDate = &t
	}
	return name, contact, d, nil
}

// PatientFilter narrows patient listings. Zero fields are ignored.
type PatientFilter struct {
	Query    string
	Document string
	Active   *bool
}

func (f PatientFilter) Spec() spec.Spec[*Patient] {
	var parts []spec.Spec[*Patient]
	if q := strings.TrimSpace(f.Query); q != "" {
		parts = append(parts, PatientNameContains(q))
	}
	if f.Document != "" {
		parts = append(parts, PatientDocument(f.Document))
	}
	if f.Active != nil {
		parts = append(parts, PatientActive(*f.Active))
	}
	return spec.And(parts...)
}

// DoctorInput is the create/update payload for a doctor.
type DoctorInput struct {
	FirstName     string                     `json:"first_name"`
	LastName      string                     `json:"last_name"`
	Email         string                     `json:"email"`
	Phone         string                     `json:"phone"`
	LicenseNumber string                     `json:"license_number"`
	Specialty     string                     `json:"specialty"`
	Availability  *values.WeeklyAvailability `json:"availability"`
	Active        *bool                      `json:"active"`
}

func (in DoctorInput) parts() (values.FullName, values.ContactInfo, error) {
	name, err := values.NewFullName(in.FirstName, in.LastName)
	if err != nil {
		return values.FullName{}, values.ContactInfo{}, err
	}
	contact, err := values.NewContactInfo(in.Email, in.Phone)
	if err != nil {
		return values.FullName{}, values.ContactInfo{}, err
	}
	return name, contact, nil
}

type DoctorFilter struct {
	Query     string
	Specialty string
	License   string
	Active    *bool
}

func (f DoctorFilter) Spec() spec.Spec[*Doctor] {
	var parts []spec.Spec[*Doctor]
	if q := strings.TrimSpace(f.Query); q != "" {
		parts = append(parts, DoctorNameContains(q))
	}
	if f.Specialty != "" {
		parts = append(parts, DoctorSpecialty(f.Specialty))
	}
	if f.License != "" {
		parts = append(parts, DoctorLicense(f.License))
	}
	if f.Active != nil {
		parts = append(parts, DoctorActive(*f.Active))
	}
	return spec.And(parts...)
}

// Package values holds the immutable value objects shared by the clinic
// entities. Constructors validate; a zero value is never valid.
package values

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dentalcare/dentalcare/internal/platform/apperr"
)

const maxNamePartLen = 100

// FullName is a person's first and last name.
type FullName struct {
	First string `json:"first_name"`
	Last  string `json:"last_name"`
}

func NewFullName(first, last string) (FullName, error) {
	n := FullName{First: collapseSpaces(first), Last: collapseSpaces(last)}
	if err := n.Validate(); err != nil {
		return FullName{}, err
	}
	return n, nil
}

func (n FullName) Validate() error {
	if n.First == "" {
		return apperr.Field("first_name", "is required")
	}
	if n.Last == "" {
		return apperr.Field("last_name", "is required")
	}
	if utf8.RuneCountInString(n.First) > maxNamePartLen {
		return apperr.Field("first_name", "is too long")
	}
	if utf8.RuneCountInString(n.Last) > maxNamePartLen {
		return apperr.Field("last_name", "is too long")
	}
	return nil
}

func (n FullName) String() string {
	return strings.TrimSpace(n.First + " " + n.Last)
}

// Display returns the name title-cased for printing on charts and letters.
func (n FullName) Display() string {
	return cases.Title(language.Und).String(n.String())
}

func (n FullName) IsZero() bool { return n.First == "" && n.Last == "" }

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContactInfo is an email address with an optional phone number.
type ContactInfo struct {
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

func NewContactInfo(email, phone string) (ContactInfo, error) {
	c := ContactInfo{
		Email: strings.ToLower(strings.TrimSpace(email)),
		Phone: strings.TrimSpace(phone),
	}
	if err := c.Validate(); err != nil {
		return ContactInfo{}, err
	}
	return c, nil
}

func (c ContactInfo) Validate() error {
	if c.Email == "" {
		return apperr.Field("email", "is required")
	}
	addr, err := mail.ParseAddress(c.Email)
	if err != nil || addr.Address != c.Email || addr.Name != "" {
		return apperr.Field("email", "is not a valid address")
	}
	if c.Phone != "" && !validPhone(c.Phone) {
		return apperr.Field("phone", "must contain 7 to 15 digits")
	}
	return nil
}

func validPhone(p string) bool {
	digits := 0
	for i, r := range p {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

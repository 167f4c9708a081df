package values

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"

	"github.com/dentalcare/dentalcare/internal/platform/apperr"
)

// Money is an amount in the currency's minor unit (cents for USD).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func NewMoney(amount int64, code string) (Money, error) {
	m := Money{Amount: amount, Currency: strings.ToUpper(strings.TrimSpace(code))}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// Zero returns a zero amount in the given currency.
func Zero(code string) Money {
	return Money{Currency: strings.ToUpper(code)}
}

func (m Money) Validate() error {
	if m.Amount < 0 {
		return apperr.Field("amount", "must not be negative")
	}
	if _, err := ParseCurrency(m.Currency); err != nil {
		return err
	}
	return nil
}

// ParseCurrency validates an ISO 4217 code.
func ParseCurrency(code string) (currency.Unit, error) {
	u, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, apperr.Field("currency", fmt.Sprintf("%q is not an ISO 4217 code", code))
	}
	return u, nil
}

// Add sums two amounts of the same currency.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, apperr.BusinessRule(fmt.Sprintf("cannot add %s to %s", o.Currency, m.Currency))
	}
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}, nil
}

func (m Money) IsZero() bool { return m.Amount == 0 }

// String formats the amount with the currency's standard number of decimals,
// e.g. "USD 150.00" or "JPY 1200".
func (m Money) String() string {
	scale := 2
	if u, err := currency.ParseISO(m.Currency); err == nil {
		scale, _ = currency.Standard.Rounding(u)
	}
	if scale == 0 {
		return fmt.Sprintf("%s %d", m.Currency, m.Amount)
	}
	div := int64(1)
	for i := 0; i < scale; i++ {
		div *= 10
	}
	return fmt.Sprintf("%s %d.%0*d", m.Currency, m.Amount/div, scale, m.Amount%div)
}

package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
)

// DefaultCurrency is the marketplace settlement currency
const DefaultCurrency = USD

// Money is an immutable monetary amount. Amounts are kept at full precision
// and rounded to cents only through Round.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates Money in the given currency
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{amount: amount, currency: currency}
}

// NewMoneyUSD creates USD money
func NewMoneyUSD(amount decimal.Decimal) Money {
	return NewMoney(amount, USD)
}

// NewMoneyFromCents creates USD money from an integer number of cents
func NewMoneyFromCents(cents int64) Money {
	return NewMoneyUSD(decimal.New(cents, -2))
}

// Zero returns zero USD
func Zero() Money {
	return NewMoneyUSD(decimal.Zero)
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// Add returns m + other. Currencies must match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return NewMoney(m.amount.Add(other.amount), m.currency), nil
}

// Sub returns m - other. Currencies must match.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return NewMoney(m.amount.Sub(other.amount), m.currency), nil
}

// MultiplyInt multiplies by an integer quantity
func (m Money) MultiplyInt(qty int) Money {
	return NewMoney(m.amount.Mul(decimal.NewFromInt(int64(qty))), m.currency)
}

// MultiplyRate multiplies by a decimal rate (tax, commission)
func (m Money) MultiplyRate(rate decimal.Decimal) Money {
	return NewMoney(m.amount.Mul(rate), m.currency)
}

// Round rounds half away from zero to cents
func (m Money) Round() Money {
	return NewMoney(m.amount.Round(2), m.currency)
}

// Cents returns the amount in minor units, rounded to cents
func (m Money) Cents() int64 {
	return m.amount.Round(2).Shift(2).IntPart()
}

// IsNegative returns true for amounts below zero
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// IsZero returns true for a zero amount
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Equals compares amount and currency
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// WithinCents reports whether |m - other| <= tolerance cents
func (m Money) WithinCents(other Money, tolerance int64) bool {
	diff := m.amount.Sub(other.amount).Abs()
	return diff.LessThanOrEqual(decimal.New(tolerance, -2))
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("currency mismatch: %s vs %s", m.currency, other.currency)
	}
	return nil
}

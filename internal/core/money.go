package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorUnitFactor converts between major and minor units for two-decimal
// currencies (e.g. 12.34 USD <-> 1234 cents).
var minorUnitFactor = decimal.NewFromInt(100)

// Money is a fixed-point monetary amount with its ISO 4217 currency code.
// Amounts are never represented as binary floats.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney builds a Money value, rejecting negative amounts and malformed
// currency codes.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if !ValidCurrency(currency) {
		return Money{}, &ValidationError{Field: "currency", Reason: "must be a 3-letter ISO code"}
	}
	if !amount.Equal(amount.Truncate(2)) {
		return Money{}, &ValidationError{Field: "amount", Reason: "more than two decimal places"}
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// MoneyFromMinorUnits rebuilds a Money value from the gateway's minor-unit
// representation.
func MoneyFromMinorUnits(minor int64, currency string) Money {
	return Money{Amount: decimal.New(minor, -2), Currency: currency}
}

// MinorUnits converts the amount to the gateway's integer minor units.
// The conversion is exact; an amount with sub-cent precision is a bug
// upstream and is rejected.
func (m Money) MinorUnits() (int64, error) {
	minor := m.Amount.Mul(minorUnitFactor)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %s is not representable in minor units", m.Amount)
	}
	return minor.IntPart(), nil
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// Equal reports whether two Money values have the same amount and currency.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// GreaterThan reports whether m exceeds other. Comparing different
// currencies is a programming error and reports false.
func (m Money) GreaterThan(other Money) bool {
	return m.Currency == other.Currency && m.Amount.GreaterThan(other.Amount)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}

// ValidCurrency checks for a 3-letter uppercase ISO 4217 code.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

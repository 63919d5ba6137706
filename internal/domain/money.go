package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of minor-unit digits every stored amount keeps.
const MoneyPlaces = 2

// RoundMoney rounds half away from zero to two decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// IsZeroMoney reports whether an amount, once rounded, leaves nothing owed.
func IsZeroMoney(d decimal.Decimal) bool {
	return !RoundMoney(d).IsPositive()
}

// ParseMoney parses a non-negative amount and rounds it.
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, s)
	}
	return RoundMoney(d), nil
}

// MaxMoney returns the larger of a and b.
func MaxMoney(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Package core defines the account document and its value types.
//
// Amounts are fixed-precision decimals rounded to two places. They are
// encoded as plain JSON numbers so stored documents stay compatible with
// the numeric fields of the persisted schema.
package core

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places kept for every amount.
const MoneyPlaces = 2

// Money is a decimal currency amount rounded to MoneyPlaces.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// MoneyFromInt returns a whole-unit amount.
func MoneyFromInt(v int64) Money {
	return Money{d: decimal.NewFromInt(v)}
}

// MoneyFromFloat converts a float, rounding to currency precision.
func MoneyFromFloat(v float64) Money {
	return MoneyFromDecimal(decimal.NewFromFloat(v))
}

// MoneyFromDecimal rounds d half away from zero to currency precision.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d: d.Round(MoneyPlaces)}
}

// ParseMoney parses a non-negative decimal string.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// performs half-up rounding on the third decimal place.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34
//	ParseMoney("12,34")  -> 12.34
//	ParseMoney("12.345") -> 12.35
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	return MoneyFromDecimal(d), nil
}

// ParseAmount parses a strictly positive amount, as required for payments
// and expenses.
func ParseAmount(s string) (Money, error) {
	m, err := ParseMoney(s)
	if err != nil {
		return Zero, err
	}
	if !m.IsPositive() {
		return Zero, ErrInvalidAmount
	}
	return m, nil
}

// MustMoney parses s and panics on error. Intended for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("core: invalid money literal %q: %v", s, err))
	}
	return MoneyFromDecimal(d)
}

// Sum adds all amounts.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }
func (m Money) Neg() Money        { return Money{d: m.d.Neg()} }

// Mul multiplies by an arbitrary decimal factor and rounds the result.
func (m Money) Mul(f decimal.Decimal) Money {
	return MoneyFromDecimal(m.d.Mul(f))
}

func (m Money) Sign() int             { return m.d.Sign() }
func (m Money) IsZero() bool          { return m.d.IsZero() }
func (m Money) IsPositive() bool      { return m.d.IsPositive() }
func (m Money) IsNegative() bool      { return m.d.IsNegative() }
func (m Money) Cmp(o Money) int       { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool    { return m.d.Equal(o.d) }
func (m Money) LessThan(o Money) bool { return m.d.LessThan(o.d) }

// Decimal exposes the underlying value.
func (m Money) Decimal() decimal.Decimal { return m.d }

// Float64 returns the amount as a float for display purposes only.
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

// String formats the amount with exactly two decimals.
func (m Money) String() string {
	return m.d.StringFixed(MoneyPlaces)
}

// MarshalJSON encodes the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.String()), nil
}

// UnmarshalJSON accepts a JSON number, a quoted decimal string or null.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = Zero
		return nil
	}
	s := string(bytes.Trim(b, `"`))
	if s == "" {
		*m = Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("decode money %s: %w", b, err)
	}
	*m = MoneyFromDecimal(d)
	return nil
}

package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DisplayCurrency is the currency used when rendering amounts for people.
const DisplayCurrency = money.USD

// MaxAmount is the largest amount a transaction may carry, 10^13 in major
// units. It keeps every amount well inside int64 cents.
var MaxAmount = Money{value: decimal.New(1, 13)}

// Money is an exact monetary amount in major units with cent precision.
type Money struct {
	value decimal.Decimal
}

// FromCents creates Money from an integer amount of cents.
func FromCents(cents int64) Money {
	return Money{value: decimal.New(cents, -2)}
}

// NewMoney creates Money from a decimal, rounded half-up to two places.
func NewMoney(d decimal.Decimal) Money {
	return Money{value: d.Round(2)}
}

// ParseMoney parses a non-negative decimal amount. Both dot (12.34) and comma
// (12,34) separators are accepted; extra fraction digits are rounded half-up.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := NewMoney(d)
	if m.IsNegative() || m.ExceedsMax() {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

func (m Money) Cents() int64             { return m.value.Shift(2).Round(0).IntPart() }
func (m Money) Decimal() decimal.Decimal { return m.value }
func (m Money) IsZero() bool             { return m.value.IsZero() }
func (m Money) IsNegative() bool         { return m.value.IsNegative() }
func (m Money) Equal(n Money) bool       { return m.value.Equal(n.value) }
func (m Money) LessThan(n Money) bool    { return m.value.LessThan(n.value) }
func (m Money) Add(n Money) Money        { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money        { return Money{value: m.value.Sub(n.value)} }
func (m Money) Neg() Money               { return Money{value: m.value.Neg()} }
func (m Money) Abs() Money               { return Money{value: m.value.Abs()} }
func (m Money) Float64() float64         { return m.value.InexactFloat64() }
func (m Money) String() string           { return m.value.StringFixed(2) }
func (m Money) Cmp(n Money) int          { return m.value.Cmp(n.value) }

// ExceedsMax reports whether the magnitude of m is above MaxAmount.
func (m Money) ExceedsMax() bool { return m.value.Abs().GreaterThan(MaxAmount.value) }

// Display formats the amount as "$1,234.56" (negative: "-$1,234.56").
func (m Money) Display() string {
	return money.New(m.Cents(), DisplayCurrency).Display()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.value.StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ErrInvalidAmount
		}
		b = []byte(s)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(string(b)))
	if err != nil {
		return ErrInvalidAmount
	}
	*m = NewMoney(d)
	return nil
}

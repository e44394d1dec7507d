package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Transaction types as they travel on the wire and in the database.
const (
	Income     TransactionType = "Ingreso"
	Expense    TransactionType = "Gasto"
	Investment TransactionType = "Inversion"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

const maxDescriptionLen = 255

type (
	TransactionType string

	// Date is a calendar date with day granularity, always at midnight UTC.
	Date struct {
		time.Time
	}

	// TransactionFields holds everything a caller may set on a transaction.
	TransactionFields struct {
		Type        TransactionType `json:"type"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Category    string          `json:"category"`
		Account     string          `json:"account"`
	}

	// Transaction is a persisted movement owned by exactly one user.
	Transaction struct {
		ID      int64 `json:"id"`
		OwnerID int64 `json:"user_id"`
		TransactionFields
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
	}
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Investment:
		return true
	}
	return false
}

// IsIncome reports whether amounts of this type add to a balance.
func (t TransactionType) IsIncome() bool { return t == Income }

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD. A trailing time part ("2024-01-05T00:00:00.000Z")
// is tolerated and dropped, matching what browsers send back from date inputs.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i == len(DateLayout) {
		s = s[:i]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// YearMonth returns the "YYYY-MM" grouping key of the date.
func (d Date) YearMonth() string { return d.Format("2006-01") }

// Spanish returns the date as DD/MM/YYYY.
func (d Date) Spanish() string { return d.Format("02/01/2006") }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: date must be a string", ErrInvalidDate)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks the invariants every stored transaction must hold.
func (f TransactionFields) Validate() error {
	if !f.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, f.Type)
	}
	if f.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(f.Description) == "" {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(f.Description) > maxDescriptionLen {
		return ErrDescriptionLong
	}
	if f.Amount.IsNegative() || f.Amount.ExceedsMax() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(f.Account) == "" {
		return ErrEmptyAccount
	}
	return nil
}

// SignedAmount returns the amount as it affects a balance: income adds,
// every other type subtracts.
func (t Transaction) SignedAmount() Money {
	if t.Type.IsIncome() {
		return t.Amount
	}
	return t.Amount.Neg()
}

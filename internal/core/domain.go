package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"

	PersonMember    PersonType = "member"
	PersonHousehold PersonType = "household"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

type (
	TransactionType string
	PersonType      string

	Date struct {
		time.Time
	}

	Money struct {
		Won int64
	}

	Household struct {
		ID        string
		Name      string
		CreatedAt time.Time
	}

	Member struct {
		ID          string
		HouseholdID string
		Name        string
	}

	Transaction struct {
		ID            string
		HouseholdID   string
		Type          TransactionType
		Amount        Money
		Description   string
		Date          Date
		PaymentMethod string
		PersonType    PersonType
		PersonID      string // empty for household-level entries
		Category      string
		Memo          string
		CreatedAt     time.Time
	}

	Category struct {
		Name string
		Type TransactionType
	}

	Budget struct {
		HouseholdID string
		Category    string
		Year        int
		Month       int // 1-12
		Amount      Money
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidPerson      = errors.New("invalid person")
	ErrEmptyHousehold     = errors.New("empty household")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyCategory      = errors.New("empty category")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrNotFound           = errors.New("not found")
)

// MaxDescriptionLength is counted in characters, not bytes.
const MaxDescriptionLength = 200

// IsValid reports whether t is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	switch t {
	case Expense, Income:
		return true
	default:
		return false
	}
}

// IsValid reports whether p is one of the known person types.
func (p PersonType) IsValid() bool {
	switch p {
	case PersonMember, PersonHousehold:
		return true
	default:
		return false
	}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// DaysUntil returns the whole number of calendar days from d to other.
// Both dates are truncated to their UTC calendar day first.
func (d Date) DaysUntil(other Date) int {
	du, ou := d.UTC(), other.UTC()
	a := time.Date(du.Year(), du.Month(), du.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(ou.Year(), ou.Month(), ou.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func (m Money) Validate() error {
	if m.Won <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.HouseholdID) == "" {
		return ErrEmptyHousehold
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	switch t.PersonType {
	case PersonMember:
		if strings.TrimSpace(t.PersonID) == "" {
			return ErrInvalidPerson
		}
	case PersonHousehold:
		if t.PersonID != "" {
			return ErrInvalidPerson
		}
	default:
		return ErrInvalidPerson
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.HouseholdID) == "" {
		return ErrEmptyHousehold
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	if b.Amount.Won < 0 {
		return ErrInvalidAmount
	}
	return nil
}

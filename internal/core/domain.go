package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Monthly Interval = "monthly"
	Weekly  Interval = "weekly"
)

// DateLayout is the ISO 8601 calendar date format used for ledger dates.
const DateLayout = "2006-01-02"

const maxDescriptionLen = 200

type (
	Interval string

	// Amount is a decimal value as persisted in a ledger row. It is kept as
	// text so rows written by other tools are read back verbatim.
	Amount string

	LedgerEntry struct {
		ID          int64 // assigned by the store
		Date        string
		Category    string
		Amount      Amount
		Description string
		Owner       string
	}

	RecurringTemplate struct {
		ID          int64
		Category    string
		Amount      decimal.Decimal
		Description string
		Interval    Interval
		Owner       string
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidInterval    = errors.New("invalid interval")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyOwner         = errors.New("empty owner")
	ErrDescriptionTooLong = fmt.Errorf("description too long (max %d characters)", maxDescriptionLen)
)

// DefaultCategories is the category list offered to new users.
var DefaultCategories = []string{
	"Food",
	"Transportation",
	"Rent",
	"Shopping",
	"Entertainment",
	"Bills",
	"Other",
}

func (i Interval) IsValid() bool {
	switch i {
	case Monthly, Weekly:
		return true
	default:
		return false
	}
}

func (i Interval) String() string {
	return string(i)
}

// ParseDate parses an ISO 8601 calendar date (YYYY-MM-DD) in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Validate checks a manually recorded entry. Materialized entries bypass it.
func (e LedgerEntry) Validate() error {
	if strings.TrimSpace(e.Owner) == "" {
		return ErrEmptyOwner
	}
	if _, err := ParseDate(e.Date); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	d, err := e.Amount.Decimal()
	if err != nil {
		return err
	}
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	if len(e.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// Validate checks the shape of a template. Amounts are not
// range-checked: zero and negative recurring amounts are accepted.
func (t RecurringTemplate) Validate() error {
	if strings.TrimSpace(t.Owner) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !t.Interval.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidInterval, t.Interval)
	}
	if len(t.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// PlaceholderDescription is the description given to materialized entries
// whose template has none.
func PlaceholderDescription(category string) string {
	return "Recurring (" + category + ")"
}

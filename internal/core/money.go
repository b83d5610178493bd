// Package core provides money parsing and handling utilities.
//
// This file contains the conversions between persisted amount text and
// decimal values used for all arithmetic.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input to a decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to two decimal places.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil
//	ParseAmount("abc")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// NewAmount renders d in the persisted form.
func NewAmount(d decimal.Decimal) Amount {
	return Amount(d.StringFixed(2))
}

// Decimal parses the persisted text.
func (a Amount) Decimal() (decimal.Decimal, error) {
	return ParseAmount(string(a))
}

// OrZero returns the decimal value, or zero when the text is malformed.
func (a Amount) OrZero() decimal.Decimal {
	d, err := a.Decimal()
	if err != nil {
		return decimal.Zero
	}
	return d
}

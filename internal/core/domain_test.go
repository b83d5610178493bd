package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-01-01", true},
		{"2024-02-29", true},
		{" 2025-12-31 ", true},
		{"2025-02-30", false},
		{"2025-13-01", false},
		{"01/02/2025", false},
		{"", false},
	}
	for _, tc := range cases {
		_, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestLedgerEntryValidate(t *testing.T) {
	good := LedgerEntry{
		Date:     "2025-01-01",
		Category: "Food",
		Amount:   "12.50",
		Owner:    "alice",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		e    LedgerEntry
		want error
	}{
		{LedgerEntry{Date: "2025-01-01", Category: "Food", Amount: "1"}, ErrEmptyOwner},
		{LedgerEntry{Date: "nope", Category: "Food", Amount: "1", Owner: "a"}, ErrInvalidDate},
		{LedgerEntry{Date: "2025-01-01", Category: " ", Amount: "1", Owner: "a"}, ErrEmptyCategory},
		{LedgerEntry{Date: "2025-01-01", Category: "Food", Amount: "0", Owner: "a"}, ErrInvalidAmount},
		{LedgerEntry{Date: "2025-01-01", Category: "Food", Amount: "abc", Owner: "a"}, ErrInvalidAmount},
		{LedgerEntry{Date: "2025-01-01", Category: "Food", Amount: "1", Owner: "a", Description: strings.Repeat("x", 201)}, ErrDescriptionTooLong},
	}
	for i, tc := range bads {
		if err := tc.e.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestRecurringTemplateValidate(t *testing.T) {
	tmpl := RecurringTemplate{
		Category: "Rent",
		Amount:   decimal.NewFromInt(-5),
		Interval: Monthly,
		Owner:    "alice",
	}
	if err := tmpl.Validate(); err != nil {
		t.Fatalf("negative amounts must be accepted, got %v", err)
	}

	tmpl.Interval = "daily"
	if err := tmpl.Validate(); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

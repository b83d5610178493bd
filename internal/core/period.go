package core

import (
	"fmt"
	"time"
)

// PeriodKey identifies one calendar period of an interval kind.
type PeriodKey struct {
	Interval Interval
	Label    string
}

func (k PeriodKey) String() string {
	return string(k.Interval) + ":" + k.Label
}

// PeriodLabeler renders the period label a date falls into.
type PeriodLabeler interface {
	Label(t time.Time) string
}

// MonthLabeler labels dates as YYYY-MM.
type MonthLabeler struct{}

func (MonthLabeler) Label(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// ISOWeekLabeler labels dates as YYYY-Wn using the ISO 8601 week-numbering
// year, which differs from the calendar year around New Year.
type ISOWeekLabeler struct{}

func (ISOWeekLabeler) Label(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%d", year, week)
}

var periodLabelers = map[Interval]PeriodLabeler{
	Monthly: MonthLabeler{},
	Weekly:  ISOWeekLabeler{},
}

// PeriodOf returns the period of the given interval that t falls into.
func PeriodOf(t time.Time, interval Interval) (PeriodKey, error) {
	labeler, ok := periodLabelers[interval]
	if !ok {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}
	return PeriodKey{Interval: interval, Label: labeler.Label(t)}, nil
}

// PeriodKeyFor parses an ISO 8601 date and returns its period.
func PeriodKeyFor(date string, interval Interval) (PeriodKey, error) {
	t, err := ParseDate(date)
	if err != nil {
		return PeriodKey{}, err
	}
	return PeriodOf(t, interval)
}

// Intervals returns the registered interval kinds.
func Intervals() []Interval {
	return []Interval{Monthly, Weekly}
}

package utils

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ISODateLayout is the calendar-date layout used for payment and due dates.
const ISODateLayout = "2006-01-02"

// DaysPerWeek is the spacing between two consecutive installments.
const DaysPerWeek = 7

var hundred = decimal.NewFromInt(100)

// CycleTotals holds the flat-interest figures of one loan cycle
type CycleTotals struct {
	Base     decimal.Decimal `json:"base"`
	Interest decimal.Decimal `json:"interest"`
	Total    decimal.Decimal `json:"total"`
	Weekly   decimal.Decimal `json:"weekly"`
}

// ToNumber coerces a loosely typed value into a decimal.
// Strings are stripped of everything except digits, '.' and '-' so that
// currency-formatted input such as "$1,250.50" parses. Anything that cannot be
// read as a finite number yields zero.
func ToNumber(v interface{}) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return n
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero
		}
		return *n
	case int:
		return decimal.NewFromInt(int64(n))
	case int32:
		return decimal.NewFromInt32(n)
	case int64:
		return decimal.NewFromInt(n)
	case float32:
		return finiteFloat(float64(n))
	case float64:
		return finiteFloat(n)
	case string:
		return parseLoose(n)
	case []byte:
		return parseLoose(string(n))
	case fmt.Stringer:
		return parseLoose(n.String())
	default:
		return decimal.Zero
	}
}

func finiteFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func parseLoose(s string) decimal.Decimal {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NormalizeRate turns a rate into a fraction. Values above 1 are read as
// percentages (40 -> 0.40), values up to 1 are already fractions.
func NormalizeRate(rate decimal.Decimal) decimal.Decimal {
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		return rate.Div(hundred)
	}
	return rate
}

// FlatCycleTotals computes a flat-interest cycle rounded to whole currency units.
func FlatCycleTotals(amount, rate decimal.Decimal, weeks int) CycleTotals {
	return FlatCycleTotalsAt(amount, rate, weeks, 0)
}

// FlatCycleTotalsAt computes a flat-interest cycle rounded to the given number
// of decimal places. The total is rounded once, from the unrounded principal;
// interest is whatever separates it from the rounded principal. The weekly
// installment is rounded up so that weeks*weekly never falls short of the
// total.
func FlatCycleTotalsAt(amount, rate decimal.Decimal, weeks int, places int32) CycleTotals {
	base := amount.Round(places)
	total := amount.Mul(decimal.NewFromInt(1).Add(NormalizeRate(rate))).Round(places)
	interest := total.Sub(base)

	weekly := total
	if weeks > 0 {
		weekly = total.Div(decimal.NewFromInt(int64(weeks))).RoundCeil(places)
	}

	return CycleTotals{
		Base:     base,
		Interest: interest,
		Total:    total,
		Weekly:   weekly,
	}
}

// ParseISODate parses "YYYY-MM-DD" as local midnight. Parsing with time.Parse
// would yield UTC midnight, which renders as the previous day west of UTC.
func ParseISODate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(ISODateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatISODate renders the calendar day of t in t's own location.
func FormatISODate(t time.Time) string {
	return t.Format(ISODateLayout)
}

// DateOf drops the time-of-day component of t, keeping its location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Today returns local midnight of the current day.
func Today() time.Time {
	return DateOf(time.Now())
}

// AddDays moves a date by whole calendar days.
func AddDays(date time.Time, days int) time.Time {
	return date.AddDate(0, 0, days)
}

// AddDaysISO is AddDays on "YYYY-MM-DD" strings.
func AddDaysISO(date string, days int) (string, error) {
	t, err := ParseISODate(date)
	if err != nil {
		return "", err
	}
	return FormatISODate(AddDays(t, days)), nil
}

// CalculateDueDate calculates the due date for a specific week.
// Week 1 is due 7 days after the start date, week 2 after 14 days, etc.
func CalculateDueDate(loanStartDate time.Time, weekNumber int) time.Time {
	return AddDays(loanStartDate, weekNumber*DaysPerWeek)
}

// GetCurrentWeek calculates which week of the term the given date falls in
func GetCurrentWeek(loanStartDate time.Time, currentDate time.Time) int {
	days := int(math.Round(CivilDate(currentDate).Sub(CivilDate(loanStartDate)).Hours() / 24))
	week := (days / DaysPerWeek) + 1

	if week < 1 {
		return 1
	}

	return week
}

// CivilDate returns the calendar day of t, read in t's own location, as UTC
// midnight. Dates from different locations then compare by calendar day.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CompareDates compares the calendar days of a and b: -1, 0 or +1.
func CompareDates(a, b time.Time) int {
	return CivilDate(a).Compare(CivilDate(b))
}

// IsDateOverdue reports whether the calendar day of dueDate is strictly
// before the calendar day of now.
func IsDateOverdue(dueDate time.Time, now time.Time) bool {
	return CompareDates(dueDate, now) < 0
}

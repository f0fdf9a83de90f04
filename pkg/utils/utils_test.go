package utils

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected decimal.Decimal
	}{
		{name: "nil", input: nil, expected: decimal.Zero},
		{name: "int", input: 200, expected: decimal.NewFromInt(200)},
		{name: "float", input: 12.5, expected: decimal.NewFromFloat(12.5)},
		{name: "NaN", input: math.NaN(), expected: decimal.Zero},
		{name: "infinity", input: math.Inf(1), expected: decimal.Zero},
		{name: "plain string", input: "2800", expected: decimal.NewFromInt(2800)},
		{name: "currency formatted", input: "$1,250.50", expected: decimal.RequireFromString("1250.50")},
		{name: "negative with symbol", input: "-$30", expected: decimal.NewFromInt(-30)},
		{name: "garbage", input: "abc", expected: decimal.Zero},
		{name: "empty", input: "", expected: decimal.Zero},
		{name: "two dots", input: "1.2.3", expected: decimal.Zero},
		{name: "decimal passthrough", input: decimal.NewFromInt(7), expected: decimal.NewFromInt(7)},
		{name: "unsupported type", input: struct{}{}, expected: decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToNumber(tt.input)
			assert.True(t, result.Equal(tt.expected), "Expected %v, but got %v", tt.expected, result)
		})
	}
}

func TestFlatCycleTotals(t *testing.T) {
	tests := []struct {
		name     string
		amount   decimal.Decimal
		rate     decimal.Decimal
		weeks    int
		expected CycleTotals
	}{
		{
			name:   "standard 14 week cycle",
			amount: decimal.NewFromInt(2000),
			rate:   decimal.NewFromInt(40),
			weeks:  14,
			expected: CycleTotals{
				Base:     decimal.NewFromInt(2000),
				Interest: decimal.NewFromInt(800),
				Total:    decimal.NewFromInt(2800),
				Weekly:   decimal.NewFromInt(200),
			},
		},
		{
			name:   "fractional principal rounds once",
			amount: decimal.RequireFromString("1000.40"),
			rate:   decimal.NewFromInt(40),
			weeks:  14,
			expected: CycleTotals{
				Base:     decimal.NewFromInt(1000),
				Interest: decimal.NewFromInt(401),
				Total:    decimal.NewFromInt(1401), // 1400.56
				Weekly:   decimal.NewFromInt(101),
			},
		},
		{
			name:   "rate given as fraction",
			amount: decimal.NewFromInt(2000),
			rate:   decimal.NewFromFloat(0.40),
			weeks:  14,
			expected: CycleTotals{
				Base:     decimal.NewFromInt(2000),
				Interest: decimal.NewFromInt(800),
				Total:    decimal.NewFromInt(2800),
				Weekly:   decimal.NewFromInt(200),
			},
		},
		{
			name:   "weekly rounds up",
			amount: decimal.NewFromInt(1000),
			rate:   decimal.NewFromInt(30),
			weeks:  14,
			expected: CycleTotals{
				Base:     decimal.NewFromInt(1000),
				Interest: decimal.NewFromInt(300),
				Total:    decimal.NewFromInt(1300),
				Weekly:   decimal.NewFromInt(93), // 1300 / 14 = 92.86
			},
		},
		{
			name:   "renewal sized principal",
			amount: decimal.NewFromInt(1500),
			rate:   decimal.NewFromInt(40),
			weeks:  14,
			expected: CycleTotals{
				Base:     decimal.NewFromInt(1500),
				Interest: decimal.NewFromInt(600),
				Total:    decimal.NewFromInt(2100),
				Weekly:   decimal.NewFromInt(150),
			},
		},
		{
			name:   "remainder absorbed by ceiling",
			amount: decimal.NewFromInt(1000),
			rate:   decimal.Zero,
			weeks:  3,
			expected: CycleTotals{
				Base:     decimal.NewFromInt(1000),
				Interest: decimal.Zero,
				Total:    decimal.NewFromInt(1000),
				Weekly:   decimal.NewFromInt(334),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FlatCycleTotals(tt.amount, tt.rate, tt.weeks)
			assert.True(t, result.Base.Equal(tt.expected.Base), "base: expected %v, got %v", tt.expected.Base, result.Base)
			assert.True(t, result.Interest.Equal(tt.expected.Interest), "interest: expected %v, got %v", tt.expected.Interest, result.Interest)
			assert.True(t, result.Total.Equal(tt.expected.Total), "total: expected %v, got %v", tt.expected.Total, result.Total)
			assert.True(t, result.Weekly.Equal(tt.expected.Weekly), "weekly: expected %v, got %v", tt.expected.Weekly, result.Weekly)

			covered := result.Weekly.Mul(decimal.NewFromInt(int64(tt.weeks)))
			assert.True(t, covered.GreaterThanOrEqual(result.Total))
		})
	}
}

func TestFlatCycleTotalsAt_Cents(t *testing.T) {
	result := FlatCycleTotalsAt(decimal.NewFromInt(100), decimal.Zero, 3, 2)
	assert.True(t, result.Weekly.Equal(decimal.RequireFromString("33.34")), "got %v", result.Weekly)
}

func TestFlatCycleTotalsAt_FractionalPrincipalInCents(t *testing.T) {
	result := FlatCycleTotalsAt(decimal.RequireFromString("1000.40"), decimal.NewFromInt(40), 14, 2)

	assert.True(t, result.Total.Equal(decimal.RequireFromString("1400.56")), "got %v", result.Total)
	assert.True(t, result.Interest.Equal(decimal.RequireFromString("400.16")), "got %v", result.Interest)
	assert.True(t, result.Weekly.Equal(decimal.RequireFromString("100.04")), "got %v", result.Weekly)
}

func TestAddDaysISO(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		days     int
		expected string
	}{
		{name: "one week", date: "2024-01-01", days: 7, expected: "2024-01-08"},
		{name: "month boundary", date: "2024-01-29", days: 7, expected: "2024-02-05"},
		{name: "leap day", date: "2024-02-28", days: 1, expected: "2024-02-29"},
		{name: "negative", date: "2024-03-01", days: -1, expected: "2024-02-29"},
		{name: "fourteen weeks", date: "2024-01-01", days: 98, expected: "2024-04-08"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := AddDaysISO(tt.date, tt.days)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAddDaysISO_WestOfUTC(t *testing.T) {
	previous := time.Local
	t.Cleanup(func() { time.Local = previous })

	loc, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}
	time.Local = loc

	result, err := AddDaysISO("2024-01-01", 7)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-08", result)

	parsed, err := ParseISODate("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1, parsed.Day())
}

func TestAddDaysISO_InvalidDate(t *testing.T) {
	_, err := AddDaysISO("01/01/2024", 7)
	assert.Error(t, err)
}

func TestCalculateDueDate(t *testing.T) {
	baseDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		weekNumber int
		expected   time.Time
	}{
		{name: "first week", weekNumber: 1, expected: baseDate.AddDate(0, 0, 7)},
		{name: "sixth week", weekNumber: 6, expected: baseDate.AddDate(0, 0, 42)},
		{name: "week 14", weekNumber: 14, expected: baseDate.AddDate(0, 0, 98)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculateDueDate(baseDate, tt.weekNumber))
		})
	}
}

func TestGetCurrentWeek(t *testing.T) {
	loanStartDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		currentDate time.Time
		expected    int
	}{
		{name: "same day as loan start", currentDate: loanStartDate, expected: 1},
		{name: "one week later", currentDate: loanStartDate.AddDate(0, 0, 7), expected: 2},
		{name: "middle of second week", currentDate: loanStartDate.AddDate(0, 0, 10), expected: 2},
		{name: "before start", currentDate: loanStartDate.AddDate(0, 0, -3), expected: 1},
		{name: "week 14", currentDate: loanStartDate.AddDate(0, 0, 91), expected: 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetCurrentWeek(loanStartDate, tt.currentDate))
		})
	}
}

func TestIsDateOverdue(t *testing.T) {
	now := time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC)

	assert.True(t, IsDateOverdue(time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, IsDateOverdue(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, IsDateOverdue(time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC), now))
}

func TestIsDateOverdue_MixedLocations(t *testing.T) {
	// Dates read back from the database are UTC midnight; the clock is local.
	mexico := time.FixedZone("CST", -6*60*60)
	due := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		due      time.Time
		now      time.Time
		expected bool
	}{
		{name: "local midnight of the due date", due: due, now: time.Date(2024, 1, 8, 0, 0, 0, 0, mexico), expected: false},
		{name: "late evening of the due date", due: due, now: time.Date(2024, 1, 8, 23, 30, 0, 0, mexico), expected: false},
		{name: "local day after", due: due, now: time.Date(2024, 1, 9, 0, 0, 0, 0, mexico), expected: true},
		{name: "local due, utc clock same day", due: time.Date(2024, 1, 8, 0, 0, 0, 0, mexico), now: due, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsDateOverdue(tt.due, tt.now))
		})
	}
}

func TestCompareDates(t *testing.T) {
	mexico := time.FixedZone("CST", -6*60*60)
	utcDay := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, CompareDates(utcDay, time.Date(2024, 1, 8, 22, 0, 0, 0, mexico)))
	assert.Equal(t, -1, CompareDates(utcDay, time.Date(2024, 1, 9, 1, 0, 0, 0, mexico)))
	assert.Equal(t, 1, CompareDates(utcDay, time.Date(2024, 1, 7, 23, 0, 0, 0, mexico)))
}

func TestGetCurrentWeek_MixedLocations(t *testing.T) {
	mexico := time.FixedZone("CST", -6*60*60)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 2, GetCurrentWeek(start, time.Date(2024, 1, 8, 0, 0, 0, 0, mexico)))
	assert.Equal(t, 1, GetCurrentWeek(start, time.Date(2024, 1, 7, 23, 0, 0, 0, mexico)))
}

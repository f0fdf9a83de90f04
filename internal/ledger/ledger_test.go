package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var startDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// newLoan returns a 2000 @ 40% / 14 weeks loan: total 2800, weekly 200.
func newLoan() *domain.Loan {
	return &domain.Loan{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		Principal:    decimal.NewFromInt(2000),
		InterestRate: decimal.NewFromInt(40),
		TermWeeks:    14,
		StartDate:    startDate,
		Status:       domain.LoanStatusActive,
	}
}

func payments(loan *domain.Loan, status domain.PaymentStatus, amounts ...int64) []*domain.Payment {
	out := make([]*domain.Payment, 0, len(amounts))
	for i, a := range amounts {
		out = append(out, &domain.Payment{
			ID:          uuid.New(),
			LoanID:      loan.ID,
			ClientID:    loan.ClientID,
			Amount:      decimal.NewFromInt(a),
			PaymentDate: startDate.AddDate(0, 0, 7*(i+1)),
			Status:      status,
			Week:        i + 1,
		})
	}
	return out
}

func repeat(amount int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = amount
	}
	return out
}

func TestCompute_FreshLoan(t *testing.T) {
	l := New(domain.DefaultLoanPolicy())
	loan := newLoan()

	state := l.Compute(loan, nil)

	assert.True(t, state.TotalAmount.Equal(decimal.NewFromInt(2800)))
	assert.True(t, state.WeeklyPayment.Equal(decimal.NewFromInt(200)))
	assert.True(t, state.RemainingBalance.Equal(decimal.NewFromInt(2800)))
	assert.Equal(t, 0, state.WeeksPaid)
	assert.Equal(t, domain.LoanStatusActive, state.Status)
	require.NotNil(t, state.NextDueDate)
	assert.Equal(t, startDate.AddDate(0, 0, 7), *state.NextDueDate)
	assert.False(t, state.CanRenew)
}

func TestCompute_FivePayments(t *testing.T) {
	l := New(domain.DefaultLoanPolicy())
	loan := newLoan()

	state := l.Compute(loan, payments(loan, domain.PaymentStatusPaid, repeat(200, 5)...))

	assert.Equal(t, 5, state.WeeksPaid)
	require.NotNil(t, state.NextDueDate)
	assert.Equal(t, "2024-02-12", state.NextDueDate.Format("2006-01-02")) // start + 42 days
	assert.True(t, state.RemainingBalance.Equal(decimal.NewFromInt(1800)))
}

func TestCompute_CompletionIndependentOfSplit(t *testing.T) {
	l := New(domain.DefaultLoanPolicy())

	tests := []struct {
		name    string
		amounts []int64
	}{
		{name: "fourteen installments", amounts: repeat(200, 14)},
		{name: "single payment", amounts: []int64{2800}},
		{name: "uneven split", amounts: []int64{1000, 1000, 800}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := newLoan()
			ps := payments(loan, domain.PaymentStatusPaid, tt.amounts...)
			state := l.Compute(loan, ps)

			assert.True(t, l.IsComplete(loan, ps))
			assert.Equal(t, domain.LoanStatusCompleted, l.Status(loan, ps))
			assert.Equal(t, domain.LoanStatusCompleted, state.Status)
			assert.True(t, state.RemainingBalance.IsZero())
			assert.Nil(t, state.NextDueDate)
			assert.Equal(t, 14, state.WeeksPaid)
			assert.False(t, state.CanRenew)
		})
	}
}

func TestRemainingBalance_NeverNegative(t *testing.T) {
	l := New(domain.DefaultLoanPolicy())

	for _, amounts := range [][]int64{{0}, {2799}, {2800}, {2801}, {5000, 5000}} {
		loan := newLoan()
		ps := payments(loan, domain.PaymentStatusPaid, amounts...)
		balance := l.RemainingBalance(loan, ps)
		assert.False(t, balance.IsNegative(), "amounts %v gave %v", amounts, balance)
	}
}

func TestWeeksPaid_ClampedToTerm(t *testing.T) {
	l := New(domain.DefaultLoanPolicy())
	loan := newLoan()

	assert.Equal(t, 14, l.WeeksPaid(loan, payments(loan, domain.PaymentStatusPaid, 10000)))
}

func TestRolloverCredit(t *testing.T) {
	l := New(domain.DefaultLoanPolicy())
	loan := newLoan()
	ps := payments(loan, domain.PaymentStatusPaid, 250, 230)

	assert.Equal(t, 2, l.WeeksPaid(loan, ps))
	assert.True(t, l.RolloverCredit(loan, ps).Equal(decimal.NewFromInt(80)))
}

func TestTotalPaid_StatusRules(t *testing.T) {
	l := New(domain.DefaultLoanPolicy())
	loan := newLoan()

	ps := []*domain.Payment{
		{LoanID: loan.ID, Amount: decimal.NewFromInt(200), Status: domain.PaymentStatusPaid},
		{LoanID: loan.ID, Amount: decimal.NewFromInt(200), Status: "PAGADO"},
		{LoanID: loan.ID, Amount: decimal.NewFromInt(200), Status: ""},
		{LoanID: loan.ID, Amount: decimal.NewFromInt(200), Status: domain.PaymentStatusPending},
		{LoanID: loan.ID, Amount: decimal.NewFromInt(200), Status: "confirmed"},
		{LoanID: uuid.New(), Amount: decimal.NewFromInt(200), Status: domain.PaymentStatusPaid},
	}

	assert.True(t, l.TotalPaid(loan, ps).Equal(decimal.NewFromInt(600)))

	extended := New(domain.NewLoanPolicy(domain.DefaultInterestRate, 14, 10, 0, []string{"paid", "pagado", "confirmed"}))
	assert.True(t, extended.TotalPaid(loan, ps).Equal(decimal.NewFromInt(800)))
}

func TestCompute_Idempotent(t *testing.T) {
	l := New(domain.DefaultLoanPolicy())
	loan := newLoan()
	ps := payments(loan, domain.PaymentStatusPaid, 200, 350, 90, 200)

	first := l.Compute(loan, ps)
	second := l.Compute(loan, ps)

	assert.Equal(t, first.WeeksPaid, second.WeeksPaid)
	assert.True(t, first.RemainingBalance.Equal(second.RemainingBalance))
	assert.Equal(t, first.NextDueDate, second.NextDueDate)
	assert.Equal(t, first.Status, second.Status)
}

func TestCanRenew_Threshold(t *testing.T) {
	l := New(domain.DefaultLoanPolicy())

	loan := newLoan()
	assert.False(t, l.CanRenew(loan, payments(loan, domain.PaymentStatusPaid, repeat(200, 9)...)))

	loan = newLoan()
	assert.True(t, l.CanRenew(loan, payments(loan, domain.PaymentStatusPaid, repeat(200, 10)...)))
}

func TestNextDueDate_NoCatchUp(t *testing.T) {
	l := New(domain.DefaultLoanPolicy())
	loan := newLoan()

	// Two weeks paid, regardless of when: due date stays on the schedule.
	ps := payments(loan, domain.PaymentStatusPaid, 200, 200)
	ps[0].PaymentDate = startDate.AddDate(0, 0, 60)
	ps[1].PaymentDate = startDate.AddDate(0, 0, 61)

	due := l.NextDueDate(loan, ps)
	require.NotNil(t, due)
	assert.Equal(t, startDate.AddDate(0, 0, 21), *due)
}

func TestDisplayStatus(t *testing.T) {
	due := startDate.AddDate(0, 0, 7)

	tests := []struct {
		name     string
		state    domain.LedgerState
		today    time.Time
		expected domain.LoanStatus
	}{
		{name: "active before due", state: domain.LedgerState{Status: domain.LoanStatusActive, NextDueDate: &due}, today: startDate, expected: domain.LoanStatusActive},
		{name: "active on due date", state: domain.LedgerState{Status: domain.LoanStatusActive, NextDueDate: &due}, today: due, expected: domain.LoanStatusActive},
		{name: "overdue after due", state: domain.LedgerState{Status: domain.LoanStatusActive, NextDueDate: &due}, today: due.AddDate(0, 0, 1), expected: domain.LoanStatusOverdue},
		{name: "completed", state: domain.LedgerState{Status: domain.LoanStatusCompleted}, today: due.AddDate(1, 0, 0), expected: domain.LoanStatusCompleted},
		{name: "unknown", state: domain.LedgerState{Status: "weird"}, today: startDate, expected: domain.LoanStatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DisplayStatus(tt.state, tt.today))
		})
	}
}

func TestSummarize(t *testing.T) {
	l := New(domain.DefaultLoanPolicy())
	loan := newLoan()

	summary := l.Summarize(loan, payments(loan, domain.PaymentStatusPaid, 200), startDate.AddDate(0, 0, 30))

	assert.Equal(t, 1, summary.Ledger.WeeksPaid)
	assert.Equal(t, domain.LoanStatusOverdue, summary.DisplayStatus)
	assert.Equal(t, 5, summary.CurrentWeek)
}

func TestSummarize_UTCStartWithLocalClock(t *testing.T) {
	l := New(domain.DefaultLoanPolicy())
	loan := newLoan()
	mexico := time.FixedZone("CST", -6*60*60)

	onDueDate := l.Summarize(loan, nil, time.Date(2024, 1, 8, 0, 0, 0, 0, mexico))
	require.NotNil(t, onDueDate.Ledger.NextDueDate)
	assert.Equal(t, "2024-01-08", onDueDate.Ledger.NextDueDate.Format("2006-01-02"))
	assert.Equal(t, domain.LoanStatusActive, onDueDate.DisplayStatus)
	assert.Equal(t, 2, onDueDate.CurrentWeek)

	dayAfter := l.Summarize(loan, nil, time.Date(2024, 1, 9, 0, 0, 0, 0, mexico))
	assert.Equal(t, domain.LoanStatusOverdue, dayAfter.DisplayStatus)
}

func TestApply(t *testing.T) {
	l := New(domain.DefaultLoanPolicy())
	loan := newLoan()

	Apply(loan, l.Compute(loan, payments(loan, domain.PaymentStatusPaid, repeat(200, 14)...)))

	assert.Equal(t, domain.LoanStatusCompleted, loan.Status)
	assert.True(t, loan.RemainingBalance.IsZero())
	assert.True(t, loan.TotalPaid.Equal(decimal.NewFromInt(2800)))
	assert.Nil(t, loan.NextDueDate)
}

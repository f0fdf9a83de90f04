package ledger

import (
	"errors"
	"testing"

	"github.com/segyhp/microloan-engine/internal/domain"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestOccupiedAndClosedWeeks(t *testing.T) {
	loan := newLoan()
	ps := payments(loan, domain.PaymentStatusPaid, 200, 200, 200)
	ps[1].Status = domain.PaymentStatusPending
	ps = append(ps, &domain.Payment{LoanID: loan.ID, Week: 20, Status: domain.PaymentStatusPaid})

	policy := domain.DefaultLoanPolicy()

	assert.Equal(t, []int{1, 2, 3}, OccupiedWeeks(ps, loan.TermWeeks).Sorted())
	assert.Equal(t, []int{1, 3}, ClosedWeeks(ps, loan.TermWeeks, policy).Sorted())
}

func TestFirstFreeWeek(t *testing.T) {
	week, ok := FirstFreeWeek(WeekSet{1: {}, 2: {}, 4: {}}, 14)
	assert.True(t, ok)
	assert.Equal(t, 3, week)

	full := WeekSet{}
	for w := 1; w <= 14; w++ {
		full.Add(w)
	}
	_, ok = FirstFreeWeek(full, 14)
	assert.False(t, ok)
}

func TestAllocator_Assign(t *testing.T) {
	policy := domain.DefaultLoanPolicy()

	t.Run("auto assigns first free week", func(t *testing.T) {
		loan := newLoan()
		ps := payments(loan, domain.PaymentStatusPaid, 200, 200)
		week, err := NewAllocator(loan, ps, policy).Assign(nil)
		require.NoError(t, err)
		assert.Equal(t, 3, week)
	})

	t.Run("pending payments do not close a week", func(t *testing.T) {
		loan := newLoan()
		ps := payments(loan, domain.PaymentStatusPending, 200)
		week, err := NewAllocator(loan, ps, policy).Assign(nil)
		require.NoError(t, err)
		assert.Equal(t, 1, week)
	})

	t.Run("explicit week colliding with closed week", func(t *testing.T) {
		loan := newLoan()
		ps := payments(loan, domain.PaymentStatusPaid, 200, 200)
		_, err := NewAllocator(loan, ps, policy).Assign(intPtr(2))
		require.Error(t, err)
		assert.True(t, errors.Is(err, customError.ErrWeekSlotOccupied))

		var occupied *customError.WeekSlotOccupiedError
		require.True(t, errors.As(err, &occupied))
		assert.Equal(t, 2, occupied.Week)
	})

	t.Run("explicit week out of range", func(t *testing.T) {
		loan := newLoan()
		_, err := NewAllocator(loan, nil, policy).Assign(intPtr(15))
		assert.True(t, errors.Is(err, customError.ErrInvalidWeek))
	})

	t.Run("term exhausted", func(t *testing.T) {
		loan := newLoan()
		ps := payments(loan, domain.PaymentStatusPaid, repeat(10, 14)...)
		_, err := NewAllocator(loan, ps, policy).Assign(nil)
		assert.True(t, errors.Is(err, customError.ErrNoFreeWeekSlot))
	})

	t.Run("editing keeps own week once excluded", func(t *testing.T) {
		loan := newLoan()
		ps := payments(loan, domain.PaymentStatusPaid, 200, 200)
		others := ExcludePayment(ps, ps[1].ID)
		week, err := NewAllocator(loan, others, policy).Assign(intPtr(2))
		require.NoError(t, err)
		assert.Equal(t, 2, week)
	})
}

func TestAllocator_AssignBatch(t *testing.T) {
	policy := domain.DefaultLoanPolicy()

	t.Run("batch rows never collide", func(t *testing.T) {
		loan := newLoan()
		ps := payments(loan, domain.PaymentStatusPaid, 200, 200)
		weeks, err := NewAllocator(loan, ps, policy).AssignBatch([]*int{nil, intPtr(5), nil, nil})
		require.NoError(t, err)
		assert.Equal(t, []int{3, 5, 4, 6}, weeks)
	})

	t.Run("explicit week reserved earlier in batch", func(t *testing.T) {
		loan := newLoan()
		_, err := NewAllocator(loan, nil, policy).AssignBatch([]*int{nil, intPtr(1)})
		assert.True(t, errors.Is(err, customError.ErrWeekSlotOccupied))
	})

	t.Run("batch overflowing the term", func(t *testing.T) {
		loan := newLoan()
		ps := payments(loan, domain.PaymentStatusPaid, repeat(10, 13)...)
		_, err := NewAllocator(loan, ps, policy).AssignBatch([]*int{nil, nil})
		assert.True(t, errors.Is(err, customError.ErrNoFreeWeekSlot))
	})
}

package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, http.StatusOK},
		{"loan not found", WrapLoanNotFound("L1"), http.StatusNotFound},
		{"payment not found", WrapPaymentNotFound("P1"), http.StatusNotFound},
		{"invalid amount", WrapInvalidAmount("0"), http.StatusUnprocessableEntity},
		{"invalid renewal", WrapInvalidRenewalAmount("too low"), http.StatusUnprocessableEntity},
		{"liquidated", WrapLoanAlreadyLiquidated("L1"), http.StatusConflict},
		{"occupied", WrapWeekSlotOccupied("L1", 3), http.StatusConflict},
		{"active loan", WrapClientHasActiveLoan("C1"), http.StatusConflict},
		{"repository", WrapRepositoryFailure(errors.New("db down")), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestWrapWeekSlotOccupied(t *testing.T) {
	err := WrapWeekSlotOccupied("L1", 3)

	assert.True(t, errors.Is(err, ErrWeekSlotOccupied))

	var occupied *WeekSlotOccupiedError
	require.True(t, errors.As(err, &occupied))
	assert.Equal(t, 3, occupied.Week)
	assert.Equal(t, "L1", occupied.LoanID)
}

func TestWrapBulkAllocation(t *testing.T) {
	err := WrapBulkAllocation([]LoanFailure{
		{LoanID: "L1", Err: WrapNoFreeWeekSlot("L1", 14)},
		{LoanID: "L2", Err: WrapInvalidWeek(20, 14)},
	})

	assert.Equal(t, ErrCodeBulkAllocation, Code(err))
	assert.True(t, errors.Is(err, ErrNoFreeWeekSlot))
	assert.True(t, errors.Is(err, ErrInvalidWeek))
	assert.False(t, errors.Is(err, ErrLoanNotFound))

	var bulk *BulkAllocationError
	require.True(t, errors.As(err, &bulk))
	assert.Len(t, bulk.Failures, 2)
	assert.Contains(t, bulk.Error(), "loan L2")
}

func TestWrapRepositoryFailure(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapRepositoryFailure(cause)

	assert.True(t, errors.Is(err, ErrRepositoryFailure))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "database operation failed", Message(err))
}

func TestMessageAndCode_Unclassified(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, "internal error", Message(err))
	assert.Equal(t, ErrCodeRepositoryFailure, Code(err))
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Domain errors
var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidLoanTerms      = errors.New("invalid loan terms")
	ErrInvalidWeek           = errors.New("invalid week")
	ErrLoanNotFound          = errors.New("loan not found")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrClientNotFound        = errors.New("client not found")
	ErrLoanAlreadyLiquidated = errors.New("loan is already liquidated")
	ErrLoanHasPayments       = errors.New("loan has payments")
	ErrClientHasActiveLoan   = errors.New("client already has an active loan")
	ErrNoFreeWeekSlot        = errors.New("no free week slot")
	ErrWeekSlotOccupied      = errors.New("week slot occupied")
	ErrInvalidRenewalAmount  = errors.New("invalid renewal amount")
	ErrRepositoryFailure     = errors.New("repository failure")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeInvalidAmount         = "INVALID_AMOUNT"
	ErrCodeInvalidLoanTerms      = "INVALID_LOAN_TERMS"
	ErrCodeInvalidWeek           = "INVALID_WEEK"
	ErrCodeLoanNotFound          = "LOAN_NOT_FOUND"
	ErrCodePaymentNotFound       = "PAYMENT_NOT_FOUND"
	ErrCodeClientNotFound        = "CLIENT_NOT_FOUND"
	ErrCodeLoanAlreadyLiquidated = "LOAN_ALREADY_LIQUIDATED"
	ErrCodeLoanHasPayments       = "LOAN_HAS_PAYMENTS"
	ErrCodeClientHasActiveLoan   = "CLIENT_HAS_ACTIVE_LOAN"
	ErrCodeNoFreeWeekSlot        = "NO_FREE_WEEK_SLOT"
	ErrCodeWeekSlotOccupied      = "WEEK_SLOT_OCCUPIED"
	ErrCodeInvalidRenewalAmount  = "INVALID_RENEWAL_AMOUNT"
	ErrCodeBulkAllocation        = "BULK_ALLOCATION_FAILED"
	ErrCodeRepositoryFailure     = "REPOSITORY_FAILURE"
)

// WeekSlotOccupiedError names the week that collided.
type WeekSlotOccupiedError struct {
	LoanID string
	Week   int
}

func (e *WeekSlotOccupiedError) Error() string {
	return fmt.Sprintf("week %d of loan %s is already paid", e.Week, e.LoanID)
}

func (e *WeekSlotOccupiedError) Unwrap() error {
	return ErrWeekSlotOccupied
}

// LoanFailure is one loan of a batch that could not be allocated.
type LoanFailure struct {
	LoanID string
	Err    error
}

// BulkAllocationError aborts a whole batch and lists every failing loan.
type BulkAllocationError struct {
	Failures []LoanFailure
}

func (e *BulkAllocationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("loan %s: %v", f.LoanID, f.Err))
	}
	return fmt.Sprintf("batch rejected, %d loan(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes every failure to errors.Is and errors.As.
func (e *BulkAllocationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Wrap common errors with business context

func WrapInvalidAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmount,
		fmt.Sprintf("Amount %s must be greater than zero", amount),
		ErrInvalidAmount,
	)
}

func WrapInvalidLoanTerms(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanTerms,
		fmt.Sprintf("Invalid loan terms: %s", reason),
		ErrInvalidLoanTerms,
	)
}

func WrapInvalidWeek(week, termWeeks int) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidWeek,
		fmt.Sprintf("Week %d is outside the loan term of %d weeks", week, termWeeks),
		ErrInvalidWeek,
	)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapPaymentNotFound(paymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentNotFound,
		fmt.Sprintf("Payment with ID %s not found", paymentID),
		ErrPaymentNotFound,
	)
}

func WrapClientNotFound(clientID string) *BusinessError {
	return NewBusinessError(
		ErrCodeClientNotFound,
		fmt.Sprintf("Client with ID %s not found", clientID),
		ErrClientNotFound,
	)
}

func WrapLoanAlreadyLiquidated(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyLiquidated,
		fmt.Sprintf("Loan with ID %s is already liquidated", loanID),
		ErrLoanAlreadyLiquidated,
	)
}

func WrapLoanHasPayments(loanID string, count int) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanHasPayments,
		fmt.Sprintf("Loan with ID %s has %d payment(s) and cannot be deleted", loanID, count),
		ErrLoanHasPayments,
	)
}

func WrapClientHasActiveLoan(clientID string) *BusinessError {
	return NewBusinessError(
		ErrCodeClientHasActiveLoan,
		fmt.Sprintf("Client %s already has an active loan", clientID),
		ErrClientHasActiveLoan,
	)
}

func WrapNoFreeWeekSlot(loanID string, termWeeks int) *BusinessError {
	return NewBusinessError(
		ErrCodeNoFreeWeekSlot,
		fmt.Sprintf("All %d weeks of loan %s are already paid", termWeeks, loanID),
		ErrNoFreeWeekSlot,
	)
}

func WrapWeekSlotOccupied(loanID string, week int) *BusinessError {
	return NewBusinessError(
		ErrCodeWeekSlotOccupied,
		fmt.Sprintf("Week %d of loan %s already has a paid installment", week, loanID),
		&WeekSlotOccupiedError{LoanID: loanID, Week: week},
	)
}

func WrapBulkAllocation(failures []LoanFailure) *BusinessError {
	return NewBusinessError(
		ErrCodeBulkAllocation,
		fmt.Sprintf("Batch rejected: %d loan(s) could not be allocated, nothing was recorded", len(failures)),
		&BulkAllocationError{Failures: failures},
	)
}

func WrapInvalidRenewalAmount(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidRenewalAmount,
		fmt.Sprintf("Renewal rejected: %s", reason),
		ErrInvalidRenewalAmount,
	)
}

func WrapRepositoryFailure(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeRepositoryFailure,
		"database operation failed",
		fmt.Errorf("%w: %w", ErrRepositoryFailure, err),
	)
}

// HTTPStatus maps an error of this package to a response status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrLoanNotFound), errors.Is(err, ErrPaymentNotFound), errors.Is(err, ErrClientNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidLoanTerms), errors.Is(err, ErrInvalidWeek),
		errors.Is(err, ErrInvalidRenewalAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrLoanAlreadyLiquidated), errors.Is(err, ErrLoanHasPayments), errors.Is(err, ErrClientHasActiveLoan),
		errors.Is(err, ErrNoFreeWeekSlot), errors.Is(err, ErrWeekSlotOccupied):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the human-readable message of err.
func Message(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Message
	}
	return "internal error"
}

// Code returns the machine-readable code of err.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodeRepositoryFailure
}

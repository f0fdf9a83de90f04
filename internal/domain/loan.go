package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
	// LoanStatusOverdue is never stored; it is derived at read time.
	LoanStatusOverdue LoanStatus = "overdue"
	LoanStatusUnknown LoanStatus = "unknown"
)

// ParseLoanStatus maps a stored status onto the known set.
func ParseLoanStatus(raw string) LoanStatus {
	switch LoanStatus(raw) {
	case LoanStatusActive, LoanStatusCompleted, LoanStatusOverdue:
		return LoanStatus(raw)
	case "liquidado", "closed", "paid":
		return LoanStatusCompleted
	case "activo":
		return LoanStatusActive
	default:
		return LoanStatusUnknown
	}
}

// Loan represents one borrowing cycle of a client.
// Principal, InterestRate, TermWeeks and StartDate are the terms; every other
// amount is a cached projection of the ledger and is recomputed on each write.
type Loan struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	ClientID         uuid.UUID       `json:"client_id" db:"client_id"`
	Principal        decimal.Decimal `json:"principal" db:"principal"`
	InterestRate     decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	TermWeeks        int             `json:"term_weeks" db:"term_weeks"`
	StartDate        time.Time       `json:"start_date" db:"start_date"`
	TotalAmount      decimal.Decimal `json:"total_amount" db:"total_amount"`
	WeeklyPayment    decimal.Decimal `json:"weekly_payment" db:"weekly_payment"`
	TotalPaid        decimal.Decimal `json:"total_paid" db:"total_paid"`
	RemainingBalance decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	NextDueDate      *time.Time      `json:"next_due_date,omitempty" db:"next_due_date"`
	Status           LoanStatus      `json:"status" db:"status"`
	RenewedFromID    *uuid.UUID      `json:"renewed_from_id,omitempty" db:"renewed_from_id"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// LedgerState is the derived state of a loan computed from its terms and its
// payment history.
type LedgerState struct {
	TotalAmount      decimal.Decimal `json:"total_amount"`
	WeeklyPayment    decimal.Decimal `json:"weekly_payment"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	RolloverCredit   decimal.Decimal `json:"rollover_credit"`
	WeeksPaid        int             `json:"weeks_paid"`
	NextDueDate      *time.Time      `json:"next_due_date,omitempty"`
	Status           LoanStatus      `json:"status"`
	CanRenew         bool            `json:"can_renew"`
}

// LoanSummary is the read model handed to the API layer.
type LoanSummary struct {
	Loan          *Loan       `json:"loan"`
	Ledger        LedgerState `json:"ledger"`
	DisplayStatus LoanStatus  `json:"display_status"`
	CurrentWeek   int         `json:"current_week"`
}

// LoanTermsUpdate carries an administrative correction of a loan's terms.
type LoanTermsUpdate struct {
	Principal    *decimal.Decimal
	InterestRate *decimal.Decimal
	TermWeeks    *int
	StartDate    *time.Time
}

// OriginateLoanInput describes a new loan. Zero rate/term fall back to policy.
type OriginateLoanInput struct {
	ClientID     uuid.UUID
	Principal    decimal.Decimal
	InterestRate *decimal.Decimal
	TermWeeks    int
	StartDate    time.Time
}

// RenewalResult is the outcome of liquidating a loan into a new cycle.
type RenewalResult struct {
	LiquidationPayment *Payment        `json:"liquidation_payment,omitempty"`
	PreviousLoan       *Loan           `json:"previous_loan"`
	NewLoan            *Loan           `json:"new_loan"`
	NetDisbursed       decimal.Decimal `json:"net_disbursed"`
}

// PortfolioReport aggregates the active book.
type PortfolioReport struct {
	ActiveLoans      int             `json:"active_loans"`
	OverdueLoans     int             `json:"overdue_loans"`
	RenewableLoans   int             `json:"renewable_loans"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	AsOf             time.Time       `json:"as_of"`
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	ClientID     string           `json:"client_id" validate:"required,uuid"`
	Amount       decimal.Decimal  `json:"amount" validate:"decimal_gt=0"`
	InterestRate *decimal.Decimal `json:"interest_rate,omitempty" validate:"omitempty,decimal_gte=0"`
	TermWeeks    int              `json:"term_weeks" validate:"gte=0"`
	StartDate    string           `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type UpdateLoanRequest struct {
	Amount       *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,decimal_gt=0"`
	InterestRate *decimal.Decimal `json:"interest_rate,omitempty" validate:"omitempty,decimal_gte=0"`
	TermWeeks    *int             `json:"term_weeks,omitempty" validate:"omitempty,gt=0"`
	StartDate    *string          `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type RenewLoanRequest struct {
	RequestedAmount decimal.Decimal `json:"requested_amount" validate:"decimal_gt=0"`
}

type LoanResponse struct {
	Loan          *Loan       `json:"loan"`
	Ledger        LedgerState `json:"ledger"`
	DisplayStatus LoanStatus  `json:"display_status"`
	CurrentWeek   int         `json:"current_week"`
	NextDueDate   string      `json:"next_due_date,omitempty"`
}

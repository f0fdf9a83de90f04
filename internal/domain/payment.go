package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusOverdue PaymentStatus = "overdue"
)

// Payment is one installment recorded against a loan. Week is the slot
// (1..term weeks) the installment occupies.
type Payment struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	LoanID      uuid.UUID       `json:"loan_id" db:"loan_id"`
	ClientID    uuid.UUID       `json:"client_id" db:"client_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	PaymentDate time.Time       `json:"payment_date" db:"payment_date"`
	Status      PaymentStatus   `json:"status" db:"status"`
	Week        int             `json:"week" db:"week"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// PaymentInput is a single payment to record. Week is nil when the slot
// should be assigned automatically.
type PaymentInput struct {
	LoanID      uuid.UUID
	Amount      decimal.Decimal
	PaymentDate time.Time
	Status      string
	Week        *int
}

// PaymentUpdate carries the fields of a payment edit; nil leaves a field as is.
type PaymentUpdate struct {
	Amount      *decimal.Decimal
	PaymentDate *time.Time
	Status      *string
	Week        *int
}

// DTOs for requests and responses

type RecordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	PaymentDate string          `json:"payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status      string          `json:"status,omitempty" validate:"omitempty,max=32"`
	Week        *int            `json:"week,omitempty" validate:"omitempty,gt=0"`
}

type BulkPaymentRow struct {
	LoanID      string          `json:"loan_id" validate:"required,uuid"`
	Amount      decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	PaymentDate string          `json:"payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status      string          `json:"status,omitempty" validate:"omitempty,max=32"`
	Week        *int            `json:"week,omitempty" validate:"omitempty,gt=0"`
}

type BulkPaymentRequest struct {
	Rows []BulkPaymentRow `json:"rows" validate:"required,min=1,dive"`
}

type UpdatePaymentRequest struct {
	Amount      *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,decimal_gt=0"`
	PaymentDate *string          `json:"payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status      *string          `json:"status,omitempty" validate:"omitempty,max=32"`
	Week        *int             `json:"week,omitempty" validate:"omitempty,gt=0"`
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/segyhp/microloan-engine/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// InsertLoan creates a new loan
	InsertLoan(ctx context.Context, loan *domain.Loan) (*domain.Loan, error)

	// GetLoan retrieves a loan by its ID; ErrNotFound when missing
	GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetLoanForUpdate is GetLoan holding the row lock for the transaction
	GetLoanForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// UpdateLoan persists the terms and cached ledger fields of a loan
	UpdateLoan(ctx context.Context, loan *domain.Loan) (*domain.Loan, error)

	// DeleteLoan removes a loan without payments
	DeleteLoan(ctx context.Context, id uuid.UUID) error

	// GetClientActiveLoan returns the non-completed loan of a client, or nil
	GetClientActiveLoan(ctx context.Context, clientID uuid.UUID) (*domain.Loan, error)

	// ListLoansByClient returns every loan of a client, newest first
	ListLoansByClient(ctx context.Context, clientID uuid.UUID) ([]*domain.Loan, error)

	// ListActiveLoans returns every non-completed loan
	ListActiveLoans(ctx context.Context) ([]*domain.Loan, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// InsertPayment creates a new payment record
	InsertPayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)

	// GetPayment retrieves a payment by its ID; ErrNotFound when missing
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// UpdatePayment persists amount, date, status and week of a payment
	UpdatePayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)

	// DeletePayment removes a payment
	DeletePayment(ctx context.Context, id uuid.UUID) error

	// ListPaymentsForLoan retrieves all payments of a loan ordered by week
	ListPaymentsForLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)

	// ListPaymentsForLoans is the batch form of ListPaymentsForLoan
	ListPaymentsForLoans(ctx context.Context, loanIDs []uuid.UUID) ([]*domain.Payment, error)
}

// ClientRepository defines the interface for client data operations
type ClientRepository interface {
	InsertClient(ctx context.Context, client *domain.Client) (*domain.Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (*domain.Client, error)
	ListClients(ctx context.Context) ([]*domain.Client, error)
}

// Repository is the full persistence surface used by the services.
type Repository interface {
	LoanRepository
	PaymentRepository
	ClientRepository
}

// Store is a Repository able to run a unit of work atomically.
type Store interface {
	Repository

	// WithinTx runs fn against a transactional Repository. The transaction
	// commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
}

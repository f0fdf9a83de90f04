package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/microloan-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

const loanColumns = `id, client_id, principal, interest_rate, term_weeks, start_date, total_amount, weekly_payment,
		total_paid, remaining_balance, next_due_date, status, renewed_from_id, created_at, updated_at`

type loanRepository struct {
	db sqlx.ExtContext
}

func NewLoanRepository(db sqlx.ExtContext) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) InsertLoan(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES (:id, :client_id, :principal, :interest_rate, :term_weeks, :start_date, :total_amount, :weekly_payment,
			:total_paid, :remaining_balance, :next_due_date, :status, :renewed_from_id, :created_at, :updated_at)
	`

	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	now := time.Now().UTC()
	if loan.CreatedAt.IsZero() {
		loan.CreatedAt = now
	}
	loan.UpdatedAt = now

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, loan); err != nil {
		return nil, translate(err)
	}

	return loan, nil
}

// loanByIDQuery selects one loan. With lock set the row stays locked until the
// transaction ends; SQLite has no row locks, its single writer connection
// already serializes transactions.
func loanByIDQuery(driver string, lock bool) string {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = ?`
	if lock && driver != DriverSQLite {
		query += ` FOR UPDATE`
	}
	return query
}

func (r *loanRepository) GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.getLoan(ctx, loanByIDQuery(r.db.DriverName(), false), id)
}

func (r *loanRepository) GetLoanForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.getLoan(ctx, loanByIDQuery(r.db.DriverName(), true), id)
}

func (r *loanRepository) getLoan(ctx context.Context, query string, id uuid.UUID) (*domain.Loan, error) {
	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.db, &loan, r.db.Rebind(query), id); err != nil {
		return nil, translate(err)
	}
	loan.Status = domain.ParseLoanStatus(string(loan.Status))

	return &loan, nil
}

func (r *loanRepository) UpdateLoan(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	query := `
		UPDATE loans
		SET principal = :principal, interest_rate = :interest_rate, term_weeks = :term_weeks, start_date = :start_date,
			total_amount = :total_amount, weekly_payment = :weekly_payment, total_paid = :total_paid,
			remaining_balance = :remaining_balance, next_due_date = :next_due_date, status = :status,
			updated_at = :updated_at
		WHERE id = :id
	`

	loan.UpdatedAt = time.Now().UTC()

	res, err := sqlx.NamedExecContext(ctx, r.db, query, loan)
	if err != nil {
		return nil, translate(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	return loan, nil
}

func (r *loanRepository) DeleteLoan(ctx context.Context, id uuid.UUID) error {
	query := r.db.Rebind(`DELETE FROM loans WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translate(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *loanRepository) GetClientActiveLoan(ctx context.Context, clientID uuid.UUID) (*domain.Loan, error) {
	query := r.db.Rebind(`
		SELECT ` + loanColumns + `
		FROM loans
		WHERE client_id = ? AND status <> ?
		ORDER BY created_at DESC
		LIMIT 1
	`)

	var loans []*domain.Loan
	if err := sqlx.SelectContext(ctx, r.db, &loans, query, clientID, domain.LoanStatusCompleted); err != nil {
		return nil, translate(err)
	}
	if len(loans) == 0 {
		return nil, nil
	}
	normalizeStatuses(loans)

	return loans[0], nil
}

func (r *loanRepository) ListLoansByClient(ctx context.Context, clientID uuid.UUID) ([]*domain.Loan, error) {
	query := r.db.Rebind(`SELECT ` + loanColumns + ` FROM loans WHERE client_id = ? ORDER BY created_at DESC`)

	loans := []*domain.Loan{}
	if err := sqlx.SelectContext(ctx, r.db, &loans, query, clientID); err != nil {
		return nil, translate(err)
	}
	normalizeStatuses(loans)

	return loans, nil
}

func (r *loanRepository) ListActiveLoans(ctx context.Context) ([]*domain.Loan, error) {
	query := r.db.Rebind(`SELECT ` + loanColumns + ` FROM loans WHERE status <> ? ORDER BY start_date, id`)

	loans := []*domain.Loan{}
	if err := sqlx.SelectContext(ctx, r.db, &loans, query, domain.LoanStatusCompleted); err != nil {
		return nil, translate(err)
	}
	normalizeStatuses(loans)

	return loans, nil
}

func normalizeStatuses(loans []*domain.Loan) {
	for _, loan := range loans {
		loan.Status = domain.ParseLoanStatus(string(loan.Status))
	}
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/microloan-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

const paymentColumns = `id, loan_id, client_id, amount, payment_date, status, week, created_at, updated_at`

type paymentRepository struct {
	db sqlx.ExtContext
}

func NewPaymentRepository(db sqlx.ExtContext) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) InsertPayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (:id, :loan_id, :client_id, :amount, :payment_date, :status, :week, :created_at, :updated_at)
	`

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, payment); err != nil {
		return nil, translate(err)
	}

	return payment, nil
}

func (r *paymentRepository) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := r.db.Rebind(`SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`)

	var payment domain.Payment
	if err := sqlx.GetContext(ctx, r.db, &payment, query, id); err != nil {
		return nil, translate(err)
	}

	return &payment, nil
}

func (r *paymentRepository) UpdatePayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	query := `
		UPDATE payments
		SET amount = :amount, payment_date = :payment_date, status = :status, week = :week, updated_at = :updated_at
		WHERE id = :id
	`

	payment.UpdatedAt = time.Now().UTC()

	res, err := sqlx.NamedExecContext(ctx, r.db, query, payment)
	if err != nil {
		return nil, translate(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	return payment, nil
}

func (r *paymentRepository) DeletePayment(ctx context.Context, id uuid.UUID) error {
	query := r.db.Rebind(`DELETE FROM payments WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translate(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *paymentRepository) ListPaymentsForLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	query := r.db.Rebind(`
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE loan_id = ?
		ORDER BY week, payment_date, created_at
	`)

	payments := []*domain.Payment{}
	if err := sqlx.SelectContext(ctx, r.db, &payments, query, loanID); err != nil {
		return nil, translate(err)
	}

	return payments, nil
}

func (r *paymentRepository) ListPaymentsForLoans(ctx context.Context, loanIDs []uuid.UUID) ([]*domain.Payment, error) {
	payments := []*domain.Payment{}
	if len(loanIDs) == 0 {
		return payments, nil
	}

	ids := make([]string, 0, len(loanIDs))
	for _, id := range loanIDs {
		ids = append(ids, id.String())
	}

	query, args, err := sqlx.In(`
		SELECT `+paymentColumns+`
		FROM payments
		WHERE loan_id IN (?)
		ORDER BY loan_id, week, payment_date, created_at
	`, ids)
	if err != nil {
		return nil, err
	}

	if err := sqlx.SelectContext(ctx, r.db, &payments, r.db.Rebind(query), args...); err != nil {
		return nil, translate(err)
	}

	return payments, nil
}

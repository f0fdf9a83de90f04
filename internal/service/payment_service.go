package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/segyhp/microloan-engine/internal/cache"
	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/internal/ledger"
	"github.com/segyhp/microloan-engine/internal/repository"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
	"github.com/segyhp/microloan-engine/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PaymentService records installments and keeps each loan's cached ledger
// fields in step with its payment history.
type PaymentService struct {
	engine
}

func NewPaymentService(
	store repository.Store,
	policy domain.LoanPolicy,
	ledgerCache cache.LedgerCache,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{engine: newEngine(store, policy, ledgerCache, logger)}
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return customError.WrapInvalidAmount(amount.String())
	}
	return nil
}

// normalizeStatus maps the raw status onto the canonical set; empty means paid.
func (s *PaymentService) normalizeStatus(raw string) domain.PaymentStatus {
	status := s.Policy().NormalizePaymentStatus(raw)
	if status == "" {
		return domain.PaymentStatusPaid
	}
	return status
}

// RecordPayment appends one payment to a loan. Without an explicit week the
// first free slot is used; if a concurrent writer takes that slot first the
// whole operation is retried once against fresh data.
func (s *PaymentService) RecordPayment(ctx context.Context, input domain.PaymentInput) (*domain.Payment, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	status := s.normalizeStatus(input.Status)

	var payment *domain.Payment
	record := func() error {
		return s.store.WithinTx(ctx, func(repo repository.Repository) error {
			loan, err := s.lockLoan(ctx, repo, input.LoanID)
			if err != nil {
				return err
			}
			payments, err := s.loadPayments(ctx, repo, loan.ID)
			if err != nil {
				return err
			}

			payment, _, err = s.record(ctx, repo, loan, payments, input, status)
			return err
		})
	}

	err := record()
	if err != nil && input.Week == nil && errors.Is(err, customError.ErrWeekSlotOccupied) {
		s.logger.WithField("loan_id", input.LoanID).Warn("auto-assigned week was taken concurrently, retrying")
		err = record()
	}
	if err != nil {
		return nil, repoErr(err)
	}

	s.invalidate(ctx, input.LoanID)
	s.logger.WithFields(logrus.Fields{
		"loan_id":    payment.LoanID,
		"payment_id": payment.ID,
		"week":       payment.Week,
		"amount":     payment.Amount.String(),
	}).Info("payment recorded")

	return payment, nil
}

// record runs inside a transaction on a fresh snapshot of the loan.
func (s *PaymentService) record(
	ctx context.Context,
	repo repository.Repository,
	loan *domain.Loan,
	payments []*domain.Payment,
	input domain.PaymentInput,
	status domain.PaymentStatus,
) (*domain.Payment, *domain.Loan, error) {
	// 1. A liquidated loan takes no more money
	if s.ledger.IsComplete(loan, payments) {
		return nil, nil, customError.WrapLoanAlreadyLiquidated(loan.ID.String())
	}

	// 2. Pick the slot
	week, err := ledger.NewAllocator(loan, payments, s.Policy()).Assign(input.Week)
	if err != nil {
		return nil, nil, err
	}

	// 3. Persist the payment
	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = s.today()
	}
	payment, err := repo.InsertPayment(ctx, &domain.Payment{
		LoanID:      loan.ID,
		ClientID:    loan.ClientID,
		Amount:      input.Amount,
		PaymentDate: utils.DateOf(paymentDate),
		Status:      status,
		Week:        week,
	})
	if err != nil {
		return nil, nil, paymentWriteErr(err, loan.ID, week)
	}

	// 4. Re-derive the loan from the full history
	updated, _, err := s.syncLoan(ctx, repo, loan, append(payments, payment))
	if err != nil {
		return nil, nil, err
	}

	return payment, updated, nil
}

type bulkRow struct {
	input  domain.PaymentInput
	status domain.PaymentStatus
	week   int
}

// RecordBulkPayments records a batch in one transaction. Every row is
// allocated before anything is written; if any loan cannot take its rows the
// batch is rejected as a whole and the error lists every failing loan.
func (s *PaymentService) RecordBulkPayments(ctx context.Context, inputs []domain.PaymentInput) ([]*domain.Payment, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	rows := make([]*bulkRow, 0, len(inputs))
	byLoan := map[uuid.UUID][]*bulkRow{}
	var loanIDs []uuid.UUID
	for _, in := range inputs {
		if err := validateAmount(in.Amount); err != nil {
			return nil, err
		}
		row := &bulkRow{input: in, status: s.normalizeStatus(in.Status)}
		rows = append(rows, row)
		if _, seen := byLoan[in.LoanID]; !seen {
			loanIDs = append(loanIDs, in.LoanID)
		}
		byLoan[in.LoanID] = append(byLoan[in.LoanID], row)
	}

	var recorded []*domain.Payment
	err := s.store.WithinTx(ctx, func(repo repository.Repository) error {
		existing, err := repo.ListPaymentsForLoans(ctx, loanIDs)
		if err != nil {
			return repoErr(err)
		}
		history := map[uuid.UUID][]*domain.Payment{}
		for _, p := range existing {
			history[p.LoanID] = append(history[p.LoanID], p)
		}

		// 1. Allocate every row, collecting failures per loan
		loans := map[uuid.UUID]*domain.Loan{}
		var failures []customError.LoanFailure
		for _, loanID := range loanIDs {
			loan, err := s.lockLoan(ctx, repo, loanID)
			if err != nil {
				var be *customError.BusinessError
				if !errors.As(err, &be) || be.Code != customError.ErrCodeLoanNotFound {
					return err
				}
				failures = append(failures, customError.LoanFailure{LoanID: loanID.String(), Err: err})
				continue
			}
			loans[loanID] = loan

			if err := s.allocate(loan, history[loanID], byLoan[loanID]); err != nil {
				failures = append(failures, customError.LoanFailure{LoanID: loanID.String(), Err: err})
			}
		}
		if len(failures) > 0 {
			return customError.WrapBulkAllocation(failures)
		}

		// 2. Write in submission order
		for _, row := range rows {
			loan := loans[row.input.LoanID]
			paymentDate := row.input.PaymentDate
			if paymentDate.IsZero() {
				paymentDate = s.today()
			}
			payment, err := repo.InsertPayment(ctx, &domain.Payment{
				LoanID:      loan.ID,
				ClientID:    loan.ClientID,
				Amount:      row.input.Amount,
				PaymentDate: utils.DateOf(paymentDate),
				Status:      row.status,
				Week:        row.week,
			})
			if err != nil {
				return paymentWriteErr(err, loan.ID, row.week)
			}
			history[loan.ID] = append(history[loan.ID], payment)
			recorded = append(recorded, payment)
		}

		// 3. Re-derive every touched loan
		for _, loanID := range loanIDs {
			if _, _, err := s.syncLoan(ctx, repo, loans[loanID], history[loanID]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, repoErr(err)
	}

	s.invalidate(ctx, loanIDs...)
	s.logger.WithFields(logrus.Fields{
		"payments": len(recorded),
		"loans":    len(loanIDs),
	}).Info("bulk payments recorded")

	return recorded, nil
}

// allocate assigns weeks to the rows of one loan in batch order. A row that
// arrives after the batch has already covered the balance is rejected like a
// payment against a liquidated loan.
func (s *PaymentService) allocate(loan *domain.Loan, payments []*domain.Payment, rows []*bulkRow) error {
	allocator := ledger.NewAllocator(loan, payments, s.Policy())
	projected := append([]*domain.Payment(nil), payments...)

	for _, row := range rows {
		if s.ledger.IsComplete(loan, projected) {
			return customError.WrapLoanAlreadyLiquidated(loan.ID.String())
		}
		week, err := allocator.Assign(row.input.Week)
		if err != nil {
			return err
		}
		row.week = week
		projected = append(projected, &domain.Payment{
			LoanID: loan.ID,
			Amount: row.input.Amount,
			Status: row.status,
			Week:   week,
		})
	}
	return nil
}

// UpdatePayment edits a payment and re-derives its loan. A move to another
// week, or to a status that closes the week, is checked against the loan's
// other payments.
func (s *PaymentService) UpdatePayment(ctx context.Context, paymentID uuid.UUID, update domain.PaymentUpdate) (*domain.Payment, error) {
	if update.Amount != nil {
		if err := validateAmount(*update.Amount); err != nil {
			return nil, err
		}
	}

	var payment *domain.Payment
	err := s.store.WithinTx(ctx, func(repo repository.Repository) error {
		current, err := repo.GetPayment(ctx, paymentID)
		if errors.Is(err, repository.ErrNotFound) {
			return customError.WrapPaymentNotFound(paymentID.String())
		}
		if err != nil {
			return repoErr(err)
		}

		loan, err := s.lockLoan(ctx, repo, current.LoanID)
		if err != nil {
			return err
		}
		payments, err := s.loadPayments(ctx, repo, loan.ID)
		if err != nil {
			return err
		}
		// re-read under the lock
		for _, p := range payments {
			if p.ID == current.ID {
				current = p
			}
		}
		others := ledger.ExcludePayment(payments, current.ID)

		if update.Amount != nil {
			current.Amount = *update.Amount
		}
		if update.PaymentDate != nil {
			current.PaymentDate = utils.DateOf(*update.PaymentDate)
		}
		if update.Status != nil {
			current.Status = s.normalizeStatus(*update.Status)
		}
		if update.Week != nil || s.Policy().IsClosed(current.Status) {
			week := current.Week
			if update.Week != nil {
				week = *update.Week
			}
			if _, err := ledger.NewAllocator(loan, others, s.Policy()).Assign(&week); err != nil {
				return err
			}
			current.Week = week
		}

		payment, err = repo.UpdatePayment(ctx, current)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return customError.WrapPaymentNotFound(paymentID.String())
			}
			return paymentWriteErr(err, loan.ID, current.Week)
		}

		_, _, err = s.syncLoan(ctx, repo, loan, append(others, payment))
		return err
	})
	if err != nil {
		return nil, repoErr(err)
	}

	s.invalidate(ctx, payment.LoanID)
	s.logger.WithFields(logrus.Fields{
		"loan_id":    payment.LoanID,
		"payment_id": payment.ID,
		"week":       payment.Week,
	}).Info("payment updated")

	return payment, nil
}

// DeletePayment removes a payment and re-derives its loan from what is left.
func (s *PaymentService) DeletePayment(ctx context.Context, paymentID uuid.UUID) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.store.WithinTx(ctx, func(repo repository.Repository) error {
		payment, err := repo.GetPayment(ctx, paymentID)
		if errors.Is(err, repository.ErrNotFound) {
			return customError.WrapPaymentNotFound(paymentID.String())
		}
		if err != nil {
			return repoErr(err)
		}

		current, err := s.lockLoan(ctx, repo, payment.LoanID)
		if err != nil {
			return err
		}
		if err := repo.DeletePayment(ctx, paymentID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return customError.WrapPaymentNotFound(paymentID.String())
			}
			return repoErr(err)
		}

		remaining, err := s.loadPayments(ctx, repo, current.ID)
		if err != nil {
			return err
		}

		loan, _, err = s.syncLoan(ctx, repo, current, remaining)
		return err
	})
	if err != nil {
		return nil, repoErr(err)
	}

	s.invalidate(ctx, loan.ID)
	s.logger.WithFields(logrus.Fields{
		"loan_id":    loan.ID,
		"payment_id": paymentID,
	}).Info("payment deleted")

	return loan, nil
}

// ListLoanPayments returns a loan's payments ordered by week.
func (s *PaymentService) ListLoanPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := s.store.WithinTx(ctx, func(repo repository.Repository) error {
		if _, err := s.loadLoan(ctx, repo, loanID); err != nil {
			return err
		}
		var err error
		payments, err = s.loadPayments(ctx, repo, loanID)
		return err
	})
	if err != nil {
		return nil, repoErr(err)
	}
	return payments, nil
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/microloan-engine/internal/cache"
	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/internal/ledger"
	"github.com/segyhp/microloan-engine/internal/repository"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
	"github.com/segyhp/microloan-engine/pkg/utils"

	"github.com/sirupsen/logrus"
)

// engine is the state shared by the loan and payment services.
type engine struct {
	store  repository.Store
	ledger *ledger.Ledger
	cache  cache.LedgerCache
	logger *logrus.Logger
	clock  func() time.Time
}

func newEngine(store repository.Store, policy domain.LoanPolicy, ledgerCache cache.LedgerCache, logger *logrus.Logger) engine {
	if ledgerCache == nil {
		ledgerCache = cache.NewNopLedgerCache()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return engine{
		store:  store,
		ledger: ledger.New(policy),
		cache:  ledgerCache,
		logger: logger,
		clock:  time.Now,
	}
}

// SetClock overrides the source of "today".
func (e *engine) SetClock(clock func() time.Time) {
	e.clock = clock
}

// Policy returns the business policy the service was built with.
func (e *engine) Policy() domain.LoanPolicy {
	return e.ledger.Policy()
}

func (e *engine) today() time.Time {
	return utils.DateOf(e.clock())
}

func (e *engine) loadLoan(ctx context.Context, repo repository.Repository, id uuid.UUID) (*domain.Loan, error) {
	loan, err := repo.GetLoan(ctx, id)
	return loanOrNotFound(loan, err, id)
}

// lockLoan is loadLoan for write paths: concurrent writers of the same loan
// queue on its row until the transaction ends.
func (e *engine) lockLoan(ctx context.Context, repo repository.Repository, id uuid.UUID) (*domain.Loan, error) {
	loan, err := repo.GetLoanForUpdate(ctx, id)
	return loanOrNotFound(loan, err, id)
}

func loanOrNotFound(loan *domain.Loan, err error, id uuid.UUID) (*domain.Loan, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapLoanNotFound(id.String())
	}
	if err != nil {
		return nil, repoErr(err)
	}
	return loan, nil
}

func (e *engine) loadPayments(ctx context.Context, repo repository.Repository, loanID uuid.UUID) ([]*domain.Payment, error) {
	payments, err := repo.ListPaymentsForLoan(ctx, loanID)
	if err != nil {
		return nil, repoErr(err)
	}
	return payments, nil
}

// syncLoan recomputes the ledger from payments and persists the cached
// projection on the loan row.
func (e *engine) syncLoan(ctx context.Context, repo repository.Repository, loan *domain.Loan, payments []*domain.Payment) (*domain.Loan, domain.LedgerState, error) {
	state := e.ledger.Compute(loan, payments)
	ledger.Apply(loan, state)

	updated, err := repo.UpdateLoan(ctx, loan)
	if err != nil {
		if repository.IsConstraint(err, repository.ConstraintActiveLoan) {
			return nil, state, customError.WrapClientHasActiveLoan(loan.ClientID.String())
		}
		return nil, state, repoErr(err)
	}
	return updated, state, nil
}

func (e *engine) invalidate(ctx context.Context, loanIDs ...uuid.UUID) {
	if err := e.cache.Invalidate(ctx, loanIDs...); err != nil {
		e.logger.WithError(err).Warn("failed to invalidate ledger cache")
	}
}

// repoErr keeps taxonomy errors as they are and wraps everything else as a
// repository failure.
func repoErr(err error) error {
	if err == nil {
		return nil
	}
	var be *customError.BusinessError
	if errors.As(err, &be) {
		return err
	}
	return customError.WrapRepositoryFailure(err)
}

func paymentWriteErr(err error, loanID uuid.UUID, week int) error {
	if repository.IsConstraint(err, repository.ConstraintPaidWeek) {
		return customError.WrapWeekSlotOccupied(loanID.String(), week)
	}
	return repoErr(err)
}

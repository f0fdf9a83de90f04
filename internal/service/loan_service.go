package service

import (
	"context"
	"errors"
	"fmt"

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

type LoanService struct {
	engine
	payments *PaymentService
}

func NewLoanService(
	store repository.Store,
	payments *PaymentService,
	policy domain.LoanPolicy,
	ledgerCache cache.LedgerCache,
	logger *logrus.Logger,
) *LoanService {
	if payments == nil {
		payments = NewPaymentService(store, policy, ledgerCache, logger)
	}
	return &LoanService{
		engine:   newEngine(store, policy, ledgerCache, logger),
		payments: payments,
	}
}

func validateTerms(principal, rate decimal.Decimal, weeks int) error {
	if !principal.IsPositive() {
		return customError.WrapInvalidAmount(principal.String())
	}
	if rate.IsNegative() {
		return customError.WrapInvalidLoanTerms("interest rate must not be negative")
	}
	if weeks <= 0 {
		return customError.WrapInvalidLoanTerms("term must be at least one week")
	}
	return nil
}

// Originate opens a new loan for a client that has no active loan.
func (s *LoanService) Originate(ctx context.Context, input domain.OriginateLoanInput) (*domain.Loan, error) {
	policy := s.Policy()

	// 1. Resolve terms against the policy
	rate := policy.InterestRate
	if input.InterestRate != nil {
		rate = *input.InterestRate
	}
	weeks := input.TermWeeks
	if weeks == 0 {
		weeks = policy.TermWeeks
	}
	if err := validateTerms(input.Principal, rate, weeks); err != nil {
		return nil, err
	}
	start := input.StartDate
	if start.IsZero() {
		start = s.today()
	}

	// 2. Persist
	var loan *domain.Loan
	err := s.store.WithinTx(ctx, func(repo repository.Repository) error {
		if _, err := repo.GetClient(ctx, input.ClientID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return customError.WrapClientNotFound(input.ClientID.String())
			}
			return repoErr(err)
		}

		var err error
		loan, err = s.open(ctx, repo, &domain.Loan{
			ClientID:     input.ClientID,
			Principal:    input.Principal,
			InterestRate: rate,
			TermWeeks:    weeks,
			StartDate:    utils.DateOf(start),
		})
		return err
	})
	if err != nil {
		return nil, repoErr(err)
	}

	s.logger.WithFields(logrus.Fields{
		"loan_id":   loan.ID,
		"client_id": loan.ClientID,
		"principal": loan.Principal.String(),
		"total":     loan.TotalAmount.String(),
	}).Info("loan originated")

	return loan, nil
}

// open inserts a loan with its ledger fields computed from an empty history.
func (s *LoanService) open(ctx context.Context, repo repository.Repository, loan *domain.Loan) (*domain.Loan, error) {
	active, err := repo.GetClientActiveLoan(ctx, loan.ClientID)
	if err != nil {
		return nil, repoErr(err)
	}
	if active != nil {
		return nil, customError.WrapClientHasActiveLoan(loan.ClientID.String())
	}

	ledger.Apply(loan, s.ledger.Compute(loan, nil))

	created, err := repo.InsertLoan(ctx, loan)
	if err != nil {
		if repository.IsConstraint(err, repository.ConstraintActiveLoan) {
			return nil, customError.WrapClientHasActiveLoan(loan.ClientID.String())
		}
		return nil, repoErr(err)
	}
	return created, nil
}

// Renew liquidates the remaining balance of a loan out of a new, larger
// loan. The liquidation payment and the new loan are written in a single
// transaction; the new loan keeps the old loan's rate and term and starts
// today.
func (s *LoanService) Renew(ctx context.Context, loanID uuid.UUID, requested decimal.Decimal) (*domain.RenewalResult, error) {
	if !requested.IsPositive() {
		return nil, customError.WrapInvalidRenewalAmount("requested amount must be positive")
	}

	result := &domain.RenewalResult{}
	err := s.store.WithinTx(ctx, func(repo repository.Repository) error {
		loan, err := s.lockLoan(ctx, repo, loanID)
		if err != nil {
			return err
		}
		payments, err := s.loadPayments(ctx, repo, loan.ID)
		if err != nil {
			return err
		}

		// 1. Eligibility
		state := s.ledger.Compute(loan, payments)
		if state.Status == domain.LoanStatusCompleted {
			return customError.WrapLoanAlreadyLiquidated(loan.ID.String())
		}
		if !state.CanRenew {
			return customError.WrapInvalidRenewalAmount(fmt.Sprintf(
				"loan has %d of %d weeks paid, renewal opens at week %d",
				state.WeeksPaid, loan.TermWeeks, s.Policy().RenewalMinWeeks))
		}
		remaining := state.RemainingBalance
		if requested.LessThanOrEqual(remaining) {
			return customError.WrapInvalidRenewalAmount(fmt.Sprintf(
				"requested %s does not exceed the remaining balance %s", requested, remaining))
		}

		// 2. Liquidate the old loan with a payment for the exact balance
		today := s.today()
		previous := loan
		if remaining.IsPositive() {
			result.LiquidationPayment, previous, err = s.payments.record(ctx, repo, loan, payments, domain.PaymentInput{
				LoanID:      loan.ID,
				Amount:      remaining,
				PaymentDate: today,
			}, domain.PaymentStatusPaid)
			if err != nil {
				return err
			}
		}
		result.PreviousLoan = previous

		// 3. Open the new cycle for the net amount
		result.NetDisbursed = requested.Sub(remaining)
		renewedFrom := loan.ID
		result.NewLoan, err = s.open(ctx, repo, &domain.Loan{
			ClientID:      loan.ClientID,
			Principal:     result.NetDisbursed,
			InterestRate:  loan.InterestRate,
			TermWeeks:     loan.TermWeeks,
			StartDate:     today,
			RenewedFromID: &renewedFrom,
		})
		return err
	})
	if err != nil {
		return nil, repoErr(err)
	}

	s.invalidate(ctx, loanID)
	s.logger.WithFields(logrus.Fields{
		"loan_id":       loanID,
		"new_loan_id":   result.NewLoan.ID,
		"net_disbursed": result.NetDisbursed.String(),
	}).Info("loan renewed")

	return result, nil
}

// CorrectLoanTerms applies an administrative edit of the terms and
// re-derives the ledger from the existing payments.
func (s *LoanService) CorrectLoanTerms(ctx context.Context, loanID uuid.UUID, update domain.LoanTermsUpdate) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.store.WithinTx(ctx, func(repo repository.Repository) error {
		current, err := s.lockLoan(ctx, repo, loanID)
		if err != nil {
			return err
		}

		if update.Principal != nil {
			current.Principal = *update.Principal
		}
		if update.InterestRate != nil {
			current.InterestRate = *update.InterestRate
		}
		if update.TermWeeks != nil {
			current.TermWeeks = *update.TermWeeks
		}
		if update.StartDate != nil {
			current.StartDate = utils.DateOf(*update.StartDate)
		}
		if err := validateTerms(current.Principal, current.InterestRate, current.TermWeeks); err != nil {
			return err
		}

		payments, err := s.loadPayments(ctx, repo, current.ID)
		if err != nil {
			return err
		}
		loan, _, err = s.syncLoan(ctx, repo, current, payments)
		return err
	})
	if err != nil {
		return nil, repoErr(err)
	}

	s.invalidate(ctx, loanID)
	s.logger.WithFields(logrus.Fields{
		"loan_id": loan.ID,
		"status":  loan.Status,
	}).Info("loan terms corrected")

	return loan, nil
}

// DeleteLoan removes a loan that has no payments.
func (s *LoanService) DeleteLoan(ctx context.Context, loanID uuid.UUID) error {
	err := s.store.WithinTx(ctx, func(repo repository.Repository) error {
		if _, err := s.lockLoan(ctx, repo, loanID); err != nil {
			return err
		}
		payments, err := s.loadPayments(ctx, repo, loanID)
		if err != nil {
			return err
		}
		if len(payments) > 0 {
			return customError.WrapLoanHasPayments(loanID.String(), len(payments))
		}
		return repoErr(repo.DeleteLoan(ctx, loanID))
	})
	if err != nil {
		return repoErr(err)
	}

	s.invalidate(ctx, loanID)
	s.logger.WithField("loan_id", loanID).Info("loan deleted")
	return nil
}

// GetLoanSummary returns the loan with its derived ledger state as of today.
func (s *LoanService) GetLoanSummary(ctx context.Context, loanID uuid.UUID) (*domain.LoanSummary, error) {
	var summary *domain.LoanSummary
	err := s.store.WithinTx(ctx, func(repo repository.Repository) error {
		loan, err := s.loadLoan(ctx, repo, loanID)
		if err != nil {
			return err
		}

		state, hit, err := s.cache.Get(ctx, loanID, loan.UpdatedAt)
		if err != nil {
			s.logger.WithError(err).WithField("loan_id", loanID).Warn("ledger cache read failed")
		}
		if !hit || state == nil {
			payments, err := s.loadPayments(ctx, repo, loanID)
			if err != nil {
				return err
			}
			computed := s.ledger.Compute(loan, payments)
			state = &computed
			if err := s.cache.Set(ctx, loanID, loan.UpdatedAt, computed); err != nil {
				s.logger.WithError(err).WithField("loan_id", loanID).Warn("ledger cache write failed")
			}
		}

		summary = ledger.SummaryFromState(loan, *state, s.today())
		return nil
	})
	if err != nil {
		return nil, repoErr(err)
	}
	return summary, nil
}

// ListLoanPayments returns a loan's payments ordered by week.
func (s *LoanService) ListLoanPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	return s.payments.ListLoanPayments(ctx, loanID)
}

// ListClientLoans returns every loan of a client, newest first.
func (s *LoanService) ListClientLoans(ctx context.Context, clientID uuid.UUID) ([]*domain.LoanSummary, error) {
	var summaries []*domain.LoanSummary
	err := s.store.WithinTx(ctx, func(repo repository.Repository) error {
		if _, err := repo.GetClient(ctx, clientID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return customError.WrapClientNotFound(clientID.String())
			}
			return repoErr(err)
		}

		loans, err := repo.ListLoansByClient(ctx, clientID)
		if err != nil {
			return repoErr(err)
		}
		summaries, err = s.summarize(ctx, repo, loans)
		return err
	})
	if err != nil {
		return nil, repoErr(err)
	}
	return summaries, nil
}

func (s *LoanService) summarize(ctx context.Context, repo repository.Repository, loans []*domain.Loan) ([]*domain.LoanSummary, error) {
	ids := make([]uuid.UUID, 0, len(loans))
	for _, loan := range loans {
		ids = append(ids, loan.ID)
	}
	payments, err := repo.ListPaymentsForLoans(ctx, ids)
	if err != nil {
		return nil, repoErr(err)
	}
	byLoan := map[uuid.UUID][]*domain.Payment{}
	for _, p := range payments {
		byLoan[p.LoanID] = append(byLoan[p.LoanID], p)
	}

	today := s.today()
	summaries := make([]*domain.LoanSummary, 0, len(loans))
	for _, loan := range loans {
		summaries = append(summaries, s.ledger.Summarize(loan, byLoan[loan.ID], today))
	}
	return summaries, nil
}

// ActiveLoanSummaries returns every loan that is not completed.
func (s *LoanService) ActiveLoanSummaries(ctx context.Context) ([]*domain.LoanSummary, error) {
	var summaries []*domain.LoanSummary
	err := s.store.WithinTx(ctx, func(repo repository.Repository) error {
		loans, err := repo.ListActiveLoans(ctx)
		if err != nil {
			return repoErr(err)
		}
		summaries, err = s.summarize(ctx, repo, loans)
		return err
	})
	if err != nil {
		return nil, repoErr(err)
	}
	return summaries, nil
}

// PortfolioReport aggregates the active book as of today.
func (s *LoanService) PortfolioReport(ctx context.Context) (*domain.PortfolioReport, error) {
	summaries, err := s.ActiveLoanSummaries(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.PortfolioReport{
		TotalOutstanding: decimal.Zero,
		TotalCollected:   decimal.Zero,
		AsOf:             s.today(),
	}
	for _, summary := range summaries {
		if summary.Ledger.Status == domain.LoanStatusCompleted {
			continue
		}
		report.ActiveLoans++
		if summary.DisplayStatus == domain.LoanStatusOverdue {
			report.OverdueLoans++
		}
		if summary.Ledger.CanRenew {
			report.RenewableLoans++
		}
		report.TotalOutstanding = report.TotalOutstanding.Add(summary.Ledger.RemainingBalance)
		report.TotalCollected = report.TotalCollected.Add(summary.Ledger.TotalPaid)
	}
	return report, nil
}

// RefreshLedgers recomputes the cached fields of every active loan, one
// transaction per loan, and returns the loans that are overdue today.
func (s *LoanService) RefreshLedgers(ctx context.Context) ([]*domain.LoanSummary, error) {
	var active []*domain.Loan
	err := s.store.WithinTx(ctx, func(repo repository.Repository) error {
		var err error
		active, err = repo.ListActiveLoans(ctx)
		return repoErr(err)
	})
	if err != nil {
		return nil, repoErr(err)
	}

	today := s.today()
	var overdue []*domain.LoanSummary
	var errs []error
	for _, candidate := range active {
		var summary *domain.LoanSummary
		err := s.store.WithinTx(ctx, func(repo repository.Repository) error {
			loan, err := s.lockLoan(ctx, repo, candidate.ID)
			if err != nil {
				return err
			}
			payments, err := s.loadPayments(ctx, repo, loan.ID)
			if err != nil {
				return err
			}
			loan, state, err := s.syncLoan(ctx, repo, loan, payments)
			if err != nil {
				return err
			}
			summary = ledger.SummaryFromState(loan, state, today)
			return nil
		})
		if err != nil {
			s.logger.WithError(err).WithField("loan_id", candidate.ID).Error("failed to refresh ledger")
			errs = append(errs, err)
			continue
		}
		s.invalidate(ctx, candidate.ID)
		if summary.DisplayStatus == domain.LoanStatusOverdue {
			overdue = append(overdue, summary)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"loans":   len(active),
		"overdue": len(overdue),
		"failed":  len(errs),
	}).Info("ledgers refreshed")

	return overdue, errors.Join(errs...)
}

// DueReminder pairs a loan awaiting payment with its client.
type DueReminder struct {
	Client  *domain.Client
	Summary *domain.LoanSummary
	Overdue bool
}

// DueReminders lists active loans whose next due date is at most leadDays
// away, overdue ones included.
func (s *LoanService) DueReminders(ctx context.Context, leadDays int) ([]DueReminder, error) {
	summaries, err := s.ActiveLoanSummaries(ctx)
	if err != nil {
		return nil, err
	}

	horizon := utils.AddDays(s.today(), leadDays)
	var reminders []DueReminder
	err = s.store.WithinTx(ctx, func(repo repository.Repository) error {
		for _, summary := range summaries {
			due := summary.Ledger.NextDueDate
			if due == nil || utils.CompareDates(*due, horizon) > 0 {
				continue
			}
			client, err := repo.GetClient(ctx, summary.Loan.ClientID)
			if err != nil {
				return repoErr(err)
			}
			reminders = append(reminders, DueReminder{
				Client:  client,
				Summary: summary,
				Overdue: summary.DisplayStatus == domain.LoanStatusOverdue,
			})
		}
		return nil
	})
	if err != nil {
		return nil, repoErr(err)
	}
	return reminders, nil
}

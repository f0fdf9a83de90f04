// Package ledger derives the state of a loan from its terms and its payments.
// Every function is pure: the same (loan, payments) snapshot always yields the
// same result, so callers may recompute as often as they like.
package ledger

import (
	"time"

	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

type Ledger struct {
	policy domain.LoanPolicy
}

func New(policy domain.LoanPolicy) *Ledger {
	return &Ledger{policy: policy}
}

// Policy returns the policy the ledger was built with.
func (l *Ledger) Policy() domain.LoanPolicy {
	return l.policy
}

// Totals derives the cycle figures from the loan terms.
func (l *Ledger) Totals(loan *domain.Loan) utils.CycleTotals {
	return utils.FlatCycleTotalsAt(loan.Principal, loan.InterestRate, loan.TermWeeks, l.policy.MoneyPlaces)
}

// TotalPaid sums the collected payments that belong to loan.
func (l *Ledger) TotalPaid(loan *domain.Loan, payments []*domain.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.LoanID != loan.ID || !l.policy.IsCollected(p.Status) {
			continue
		}
		total = total.Add(p.Amount)
	}
	return total
}

func (l *Ledger) weeksPaid(paid, weekly decimal.Decimal, termWeeks int) int {
	if !weekly.IsPositive() || !paid.IsPositive() {
		return 0
	}
	q, _ := paid.QuoRem(weekly, 0)
	weeks := int(q.IntPart())
	if weeks > termWeeks {
		return termWeeks
	}
	return weeks
}

// WeeksPaid is floor(collected / weekly installment) clamped to the term.
func (l *Ledger) WeeksPaid(loan *domain.Loan, payments []*domain.Payment) int {
	return l.weeksPaid(l.TotalPaid(loan, payments), l.Totals(loan).Weekly, loan.TermWeeks)
}

// RolloverCredit is the collected amount beyond whole installments.
func (l *Ledger) RolloverCredit(loan *domain.Loan, payments []*domain.Payment) decimal.Decimal {
	return rollover(l.TotalPaid(loan, payments), l.Totals(loan).Weekly)
}

func rollover(paid, weekly decimal.Decimal) decimal.Decimal {
	if !weekly.IsPositive() || !paid.IsPositive() {
		return decimal.Zero
	}
	return paid.Mod(weekly)
}

// RemainingBalance never goes below zero.
func (l *Ledger) RemainingBalance(loan *domain.Loan, payments []*domain.Payment) decimal.Decimal {
	return remaining(l.Totals(loan).Total, l.TotalPaid(loan, payments))
}

func remaining(total, paid decimal.Decimal) decimal.Decimal {
	return decimal.Max(total.Sub(paid), decimal.Zero)
}

func (l *Ledger) IsComplete(loan *domain.Loan, payments []*domain.Payment) bool {
	return l.Compute(loan, payments).Status == domain.LoanStatusCompleted
}

// NextDueDate is nil for a complete loan, otherwise the start date plus
// (weeks paid + 1) whole weeks. Missed weeks are not skipped.
func (l *Ledger) NextDueDate(loan *domain.Loan, payments []*domain.Payment) *time.Time {
	return l.Compute(loan, payments).NextDueDate
}

func (l *Ledger) Status(loan *domain.Loan, payments []*domain.Payment) domain.LoanStatus {
	return l.Compute(loan, payments).Status
}

// CanRenew is true for an active loan with at least RenewalMinWeeks paid.
func (l *Ledger) CanRenew(loan *domain.Loan, payments []*domain.Payment) bool {
	return l.Compute(loan, payments).CanRenew
}

// Compute derives the full ledger state in one pass.
func (l *Ledger) Compute(loan *domain.Loan, payments []*domain.Payment) domain.LedgerState {
	totals := l.Totals(loan)
	paid := l.TotalPaid(loan, payments)
	weeks := l.weeksPaid(paid, totals.Weekly, loan.TermWeeks)
	balance := remaining(totals.Total, paid)

	state := domain.LedgerState{
		TotalAmount:      totals.Total,
		WeeklyPayment:    totals.Weekly,
		TotalPaid:        paid,
		RemainingBalance: balance,
		RolloverCredit:   rollover(paid, totals.Weekly),
		WeeksPaid:        weeks,
		Status:           domain.LoanStatusActive,
	}

	if !balance.IsPositive() || weeks >= loan.TermWeeks {
		state.Status = domain.LoanStatusCompleted
		return state
	}

	due := utils.CalculateDueDate(loan.StartDate, weeks+1)
	state.NextDueDate = &due
	state.CanRenew = weeks >= l.policy.RenewalMinWeeks
	return state
}

// Apply copies the derived fields onto the loan's cached columns.
func Apply(loan *domain.Loan, state domain.LedgerState) {
	loan.TotalAmount = state.TotalAmount
	loan.WeeklyPayment = state.WeeklyPayment
	loan.TotalPaid = state.TotalPaid
	loan.RemainingBalance = state.RemainingBalance
	loan.NextDueDate = state.NextDueDate
	loan.Status = state.Status
}

// DisplayStatus adds the read-time overdue variant: an active loan whose next
// due date lies before today.
func DisplayStatus(state domain.LedgerState, today time.Time) domain.LoanStatus {
	switch state.Status {
	case domain.LoanStatusCompleted:
		return domain.LoanStatusCompleted
	case domain.LoanStatusActive:
		if state.NextDueDate != nil && utils.IsDateOverdue(*state.NextDueDate, today) {
			return domain.LoanStatusOverdue
		}
		return domain.LoanStatusActive
	default:
		return domain.LoanStatusUnknown
	}
}

// Summarize builds the read model of a loan as of today.
func (l *Ledger) Summarize(loan *domain.Loan, payments []*domain.Payment, today time.Time) *domain.LoanSummary {
	state := l.Compute(loan, payments)
	return SummaryFromState(loan, state, today)
}

// SummaryFromState builds the read model from an already computed state.
func SummaryFromState(loan *domain.Loan, state domain.LedgerState, today time.Time) *domain.LoanSummary {
	week := utils.GetCurrentWeek(loan.StartDate, today)
	if week > loan.TermWeeks {
		week = loan.TermWeeks
	}
	return &domain.LoanSummary{
		Loan:          loan,
		Ledger:        state,
		DisplayStatus: DisplayStatus(state, today),
		CurrentWeek:   week,
	}
}

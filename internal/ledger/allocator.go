package ledger

import (
	"sort"

	"github.com/google/uuid"
	"github.com/segyhp/microloan-engine/internal/domain"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

// WeekSet is a set of week slots.
type WeekSet map[int]struct{}

func (s WeekSet) Has(week int) bool {
	_, ok := s[week]
	return ok
}

func (s WeekSet) Add(week int) {
	s[week] = struct{}{}
}

// Sorted returns the weeks in ascending order.
func (s WeekSet) Sorted() []int {
	weeks := make([]int, 0, len(s))
	for w := range s {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	return weeks
}

// OccupiedWeeks returns the weeks within 1..termWeeks claimed by any payment.
func OccupiedWeeks(payments []*domain.Payment, termWeeks int) WeekSet {
	set := WeekSet{}
	for _, p := range payments {
		if p.Week >= 1 && p.Week <= termWeeks {
			set.Add(p.Week)
		}
	}
	return set
}

// ClosedWeeks returns the weeks within 1..termWeeks held by a paid payment.
func ClosedWeeks(payments []*domain.Payment, termWeeks int, policy domain.LoanPolicy) WeekSet {
	set := WeekSet{}
	for _, p := range payments {
		if p.Week >= 1 && p.Week <= termWeeks && policy.IsClosed(p.Status) {
			set.Add(p.Week)
		}
	}
	return set
}

// FirstFreeWeek returns the smallest week in 1..termWeeks not in closed.
func FirstFreeWeek(closed WeekSet, termWeeks int) (int, bool) {
	for week := 1; week <= termWeeks; week++ {
		if !closed.Has(week) {
			return week, true
		}
	}
	return 0, false
}

// ExcludePayment drops the payment with the given id from payments.
func ExcludePayment(payments []*domain.Payment, id uuid.UUID) []*domain.Payment {
	out := make([]*domain.Payment, 0, len(payments))
	for _, p := range payments {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// Allocator hands out week slots for one loan. Weeks it assigns are reserved
// so that later calls in the same batch never collide with them.
type Allocator struct {
	loanID    string
	termWeeks int
	closed    WeekSet
	reserved  WeekSet
}

// NewAllocator snapshots the closed weeks of loan from payments.
func NewAllocator(loan *domain.Loan, payments []*domain.Payment, policy domain.LoanPolicy) *Allocator {
	return &Allocator{
		loanID:    loan.ID.String(),
		termWeeks: loan.TermWeeks,
		closed:    ClosedWeeks(payments, loan.TermWeeks, policy),
		reserved:  WeekSet{},
	}
}

func (a *Allocator) taken(week int) bool {
	return a.closed.Has(week) || a.reserved.Has(week)
}

// Assign validates an explicit week or picks the first free one.
func (a *Allocator) Assign(explicit *int) (int, error) {
	if explicit != nil {
		week := *explicit
		if week < 1 || week > a.termWeeks {
			return 0, customError.WrapInvalidWeek(week, a.termWeeks)
		}
		if a.taken(week) {
			return 0, customError.WrapWeekSlotOccupied(a.loanID, week)
		}
		a.reserved.Add(week)
		return week, nil
	}

	for week := 1; week <= a.termWeeks; week++ {
		if !a.taken(week) {
			a.reserved.Add(week)
			return week, nil
		}
	}
	return 0, customError.WrapNoFreeWeekSlot(a.loanID, a.termWeeks)
}

// AssignBatch assigns a slot to every request in order. It stops at the
// first failure.
func (a *Allocator) AssignBatch(requests []*int) ([]int, error) {
	weeks := make([]int, 0, len(requests))
	for _, r := range requests {
		week, err := a.Assign(r)
		if err != nil {
			return nil, err
		}
		weeks = append(weeks, week)
	}
	return weeks, nil
}

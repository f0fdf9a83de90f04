package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Business defaults of the weekly microloan product.
const (
	DefaultTermWeeks       = 14
	DefaultRenewalMinWeeks = 10
)

var (
	DefaultInterestRate = decimal.NewFromInt(40)

	// DefaultCollectedStatuses is the set of raw payment statuses that count
	// as money collected. Deployments that also treat "completed", "success"
	// or "confirmed" as collected extend it through configuration.
	DefaultCollectedStatuses = []string{"paid", "pagado"}
)

// LoanPolicy holds the business constants shared by origination, the ledger
// and the week allocator.
type LoanPolicy struct {
	InterestRate    decimal.Decimal
	TermWeeks       int
	RenewalMinWeeks int
	// MoneyPlaces is the rounding precision of every computed amount.
	MoneyPlaces int32

	collected map[string]struct{}
}

// NewLoanPolicy builds a policy. "paid" is always part of the collected set.
func NewLoanPolicy(rate decimal.Decimal, termWeeks, renewalMinWeeks int, places int32, collected []string) LoanPolicy {
	set := map[string]struct{}{string(PaymentStatusPaid): {}}
	for _, s := range collected {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = struct{}{}
		}
	}

	return LoanPolicy{
		InterestRate:    rate,
		TermWeeks:       termWeeks,
		RenewalMinWeeks: renewalMinWeeks,
		MoneyPlaces:     places,
		collected:       set,
	}
}

// DefaultLoanPolicy is 40% flat over 14 weeks, renewable from week 10.
func DefaultLoanPolicy() LoanPolicy {
	return NewLoanPolicy(DefaultInterestRate, DefaultTermWeeks, DefaultRenewalMinWeeks, 0, DefaultCollectedStatuses)
}

func (p LoanPolicy) collects(s string) bool {
	if p.collected == nil {
		for _, d := range DefaultCollectedStatuses {
			if s == d {
				return true
			}
		}
		return false
	}
	_, ok := p.collected[s]
	return ok
}

// CollectedStatuses lists the configured collected set.
func (p LoanPolicy) CollectedStatuses() []string {
	if p.collected == nil {
		return append([]string(nil), DefaultCollectedStatuses...)
	}
	out := make([]string, 0, len(p.collected))
	for s := range p.collected {
		out = append(out, s)
	}
	return out
}

// NormalizePaymentStatus maps a raw status onto the canonical set.
// Unrecognised values are kept lower-cased and never count as collected.
func (p LoanPolicy) NormalizePaymentStatus(raw string) PaymentStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if p.collects(s) {
		return PaymentStatusPaid
	}

	switch s {
	case "pending", "pendiente":
		return PaymentStatusPending
	case "overdue", "vencido", "atrasado":
		return PaymentStatusOverdue
	}
	return PaymentStatus(s)
}

// IsCollected reports whether a payment's amount counts toward the loan.
// A payment without status counts.
func (p LoanPolicy) IsCollected(status PaymentStatus) bool {
	s := strings.ToLower(strings.TrimSpace(string(status)))
	return s == "" || p.collects(s)
}

// IsClosed reports whether a payment closes its week slot.
func (p LoanPolicy) IsClosed(status PaymentStatus) bool {
	s := strings.ToLower(strings.TrimSpace(string(status)))
	return s != "" && p.collects(s)
}

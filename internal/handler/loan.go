package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/internal/notify"
	"github.com/segyhp/microloan-engine/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// LoanHandler serves loans, their payments and the portfolio report.
type LoanHandler struct {
	loans     LoanService
	payments  PaymentService
	notifier  notify.Notifier
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewLoanHandler(loans LoanService, payments PaymentService, notifier notify.Notifier, logger *logrus.Logger) *LoanHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LoanHandler{
		loans:     loans,
		payments:  payments,
		notifier:  notifier,
		validator: newValidator(),
		logger:    logger,
	}
}

// notify runs after the mutation has committed; failures are only logged.
func (h *LoanHandler) notify(ctx context.Context, event notify.Event) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Notify(ctx, event); err != nil {
		h.logger.WithError(err).WithField("event", event.Kind).Warn("notification failed")
	}
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	start, err := optionalDate(req.StartDate)
	if err != nil {
		response.BadRequest(w, "Invalid start_date", err)
		return
	}

	loan, err := h.loans.Originate(r.Context(), domain.OriginateLoanInput{
		ClientID:     uuid.MustParse(req.ClientID),
		Principal:    req.Amount,
		InterestRate: req.InterestRate,
		TermWeeks:    req.TermWeeks,
		StartDate:    start,
	})
	if err != nil {
		response.FromError(w, err)
		return
	}

	h.notify(r.Context(), notify.Event{
		Kind:     notify.EventLoanOriginated,
		LoanID:   loan.ID,
		ClientID: loan.ClientID,
		Amount:   loan.Principal,
		DueDate:  loan.NextDueDate,
		Message:  "loan originated",
	})
	response.Created(w, loan)
}

// GetLoan handles GET /api/v1/loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	summary, err := h.loans.GetLoanSummary(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, toLoanResponse(summary))
}

// UpdateLoan handles PATCH /api/v1/loans/{loanId}
func (h *LoanHandler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	var req domain.UpdateLoanRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	update := domain.LoanTermsUpdate{
		Principal:    req.Amount,
		InterestRate: req.InterestRate,
		TermWeeks:    req.TermWeeks,
	}
	if req.StartDate != nil {
		start, err := optionalDate(*req.StartDate)
		if err != nil {
			response.BadRequest(w, "Invalid start_date", err)
			return
		}
		update.StartDate = &start
	}

	loan, err := h.loans.CorrectLoanTerms(r.Context(), loanID, update)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loan)
}

// DeleteLoan handles DELETE /api/v1/loans/{loanId}
func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	if err := h.loans.DeleteLoan(r.Context(), loanID); err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, map[string]string{"id": loanID.String(), "status": "deleted"})
}

// RenewLoan handles POST /api/v1/loans/{loanId}/renew
func (h *LoanHandler) RenewLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	var req domain.RenewLoanRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	result, err := h.loans.Renew(r.Context(), loanID, req.RequestedAmount)
	if err != nil {
		response.FromError(w, err)
		return
	}

	h.notify(r.Context(), notify.Event{
		Kind:     notify.EventLoanRenewed,
		LoanID:   result.NewLoan.ID,
		ClientID: result.NewLoan.ClientID,
		Amount:   result.NetDisbursed,
		DueDate:  result.NewLoan.NextDueDate,
		Message:  fmt.Sprintf("loan %s renewed", loanID),
	})
	response.Created(w, result)
}

// ListPayments handles GET /api/v1/loans/{loanId}/payments
func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	payments, err := h.loans.ListLoanPayments(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, payments)
}

// RecordPayment handles POST /api/v1/loans/{loanId}/payments
func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	var req domain.RecordPaymentRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	paymentDate, err := optionalDate(req.PaymentDate)
	if err != nil {
		response.BadRequest(w, "Invalid payment_date", err)
		return
	}

	payment, err := h.payments.RecordPayment(r.Context(), domain.PaymentInput{
		LoanID:      loanID,
		Amount:      req.Amount,
		PaymentDate: paymentDate,
		Status:      req.Status,
		Week:        req.Week,
	})
	if err != nil {
		response.FromError(w, err)
		return
	}

	h.notify(r.Context(), notify.Event{
		Kind:     notify.EventPaymentRecorded,
		LoanID:   payment.LoanID,
		ClientID: payment.ClientID,
		Amount:   payment.Amount,
		Message:  fmt.Sprintf("payment recorded for week %d", payment.Week),
	})
	response.Created(w, payment)
}

// RecordBulkPayments handles POST /api/v1/payments/bulk
func (h *LoanHandler) RecordBulkPayments(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkPaymentRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	inputs := make([]domain.PaymentInput, 0, len(req.Rows))
	for i, row := range req.Rows {
		paymentDate, err := optionalDate(row.PaymentDate)
		if err != nil {
			response.BadRequest(w, fmt.Sprintf("Invalid payment_date in row %d", i+1), err)
			return
		}
		inputs = append(inputs, domain.PaymentInput{
			LoanID:      uuid.MustParse(row.LoanID),
			Amount:      row.Amount,
			PaymentDate: paymentDate,
			Status:      row.Status,
			Week:        row.Week,
		})
	}

	payments, err := h.payments.RecordBulkPayments(r.Context(), inputs)
	if err != nil {
		response.FromError(w, err)
		return
	}

	for _, payment := range payments {
		h.notify(r.Context(), notify.Event{
			Kind:     notify.EventPaymentsRecorded,
			LoanID:   payment.LoanID,
			ClientID: payment.ClientID,
			Amount:   payment.Amount,
			Message:  fmt.Sprintf("bulk payment recorded for week %d", payment.Week),
		})
	}
	response.Created(w, payments)
}

// UpdatePayment handles PATCH /api/v1/payments/{paymentId}
func (h *LoanHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathUUID(w, r, "paymentId")
	if !ok {
		return
	}

	var req domain.UpdatePaymentRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	update := domain.PaymentUpdate{
		Amount: req.Amount,
		Status: req.Status,
		Week:   req.Week,
	}
	if req.PaymentDate != nil {
		paymentDate, err := optionalDate(*req.PaymentDate)
		if err != nil {
			response.BadRequest(w, "Invalid payment_date", err)
			return
		}
		update.PaymentDate = &paymentDate
	}

	payment, err := h.payments.UpdatePayment(r.Context(), paymentID, update)
	if err != nil {
		response.FromError(w, err)
		return
	}

	h.notify(r.Context(), notify.Event{
		Kind:     notify.EventPaymentUpdated,
		LoanID:   payment.LoanID,
		ClientID: payment.ClientID,
		Amount:   payment.Amount,
		Message:  "payment updated",
	})
	response.Success(w, payment)
}

// DeletePayment handles DELETE /api/v1/payments/{paymentId}
func (h *LoanHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathUUID(w, r, "paymentId")
	if !ok {
		return
	}

	loan, err := h.payments.DeletePayment(r.Context(), paymentID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	h.notify(r.Context(), notify.Event{
		Kind:     notify.EventPaymentDeleted,
		LoanID:   loan.ID,
		ClientID: loan.ClientID,
		Message:  fmt.Sprintf("payment %s deleted", paymentID),
	})
	response.Success(w, loan)
}

// PortfolioReport handles GET /api/v1/reports/portfolio
func (h *LoanHandler) PortfolioReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.loans.PortfolioReport(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, report)
}

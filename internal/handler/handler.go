package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/pkg/response"
	"github.com/segyhp/microloan-engine/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type LoanService interface {
	Originate(ctx context.Context, input domain.OriginateLoanInput) (*domain.Loan, error)
	Renew(ctx context.Context, loanID uuid.UUID, requested decimal.Decimal) (*domain.RenewalResult, error)
	CorrectLoanTerms(ctx context.Context, loanID uuid.UUID, update domain.LoanTermsUpdate) (*domain.Loan, error)
	DeleteLoan(ctx context.Context, loanID uuid.UUID) error
	GetLoanSummary(ctx context.Context, loanID uuid.UUID) (*domain.LoanSummary, error)
	ListLoanPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)
	ListClientLoans(ctx context.Context, clientID uuid.UUID) ([]*domain.LoanSummary, error)
	PortfolioReport(ctx context.Context) (*domain.PortfolioReport, error)
}

type PaymentService interface {
	RecordPayment(ctx context.Context, input domain.PaymentInput) (*domain.Payment, error)
	RecordBulkPayments(ctx context.Context, inputs []domain.PaymentInput) ([]*domain.Payment, error)
	UpdatePayment(ctx context.Context, paymentID uuid.UUID, update domain.PaymentUpdate) (*domain.Payment, error)
	DeletePayment(ctx context.Context, paymentID uuid.UUID) (*domain.Loan, error)
}

type ClientService interface {
	CreateClient(ctx context.Context, request *domain.CreateClientRequest) (*domain.Client, error)
	GetClient(ctx context.Context, clientID uuid.UUID) (*domain.Client, error)
	ListClients(ctx context.Context) ([]*domain.Client, error)
}

// newValidator registers decimal_gt and decimal_gte for decimal.Decimal
// fields, e.g. `validate:"decimal_gt=0"`.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("decimal_gt", decimalRule(func(d, p decimal.Decimal) bool { return d.GreaterThan(p) }))
	_ = v.RegisterValidation("decimal_gte", decimalRule(func(d, p decimal.Decimal) bool { return d.GreaterThanOrEqual(p) }))
	return v
}

func decimalRule(cmp func(d, p decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		p, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return cmp(d, p)
	}
}

// decodeAndValidate reads a JSON body into dst and runs the struct tags.
// It writes the 400 response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return false
	}
	if err := v.Struct(dst); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(w, fmt.Sprintf("Invalid %s", name), err)
		return uuid.Nil, false
	}
	return id, true
}

// optionalDate parses "YYYY-MM-DD"; empty yields the zero time.
func optionalDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return utils.ParseISODate(raw)
}

func toLoanResponse(summary *domain.LoanSummary) domain.LoanResponse {
	resp := domain.LoanResponse{
		Loan:          summary.Loan,
		Ledger:        summary.Ledger,
		DisplayStatus: summary.DisplayStatus,
		CurrentWeek:   summary.CurrentWeek,
	}
	if summary.Ledger.NextDueDate != nil {
		resp.NextDueDate = utils.FormatISODate(*summary.Ledger.NextDueDate)
	}
	return resp
}

package service

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// 2024-03-20 is in week 12 of a loan started on 2024-01-01.
var fixedNow = time.Date(2024, 3, 20, 10, 30, 0, 0, time.UTC)

var loanStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	store    *repository.SQLStore
	loans    *LoanService
	payments *PaymentService
	clients  *ClientService
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	db, err := repository.Open(ctx, repository.DriverSQLite, filepath.Join(t.TempDir(), "service_test.db"), repository.PoolConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.Migrate(ctx, db))

	store := repository.NewStore(db)
	return newFixture(store, store)
}

// newFixture wires the services on top of store; sqlStore is kept for
// direct assertions.
func newFixture(store repository.Store, sqlStore *repository.SQLStore) *fixture {
	logger := quietLogger()
	policy := domain.DefaultLoanPolicy()
	clock := func() time.Time { return fixedNow }

	payments := NewPaymentService(store, policy, nil, logger)
	payments.SetClock(clock)
	loans := NewLoanService(store, payments, policy, nil, logger)
	loans.SetClock(clock)

	return &fixture{
		store:    sqlStore,
		loans:    loans,
		payments: payments,
		clients:  NewClientService(store, logger),
	}
}

func (f *fixture) newClient(t *testing.T, name string) *domain.Client {
	t.Helper()
	client, err := f.clients.CreateClient(context.Background(), &domain.CreateClientRequest{
		Name:  name,
		Email: "client@example.com",
		Route: "R1",
	})
	require.NoError(t, err)
	return client
}

// originate opens a 40% / 14 week loan started on loanStart.
func (f *fixture) originate(t *testing.T, principal int64) *domain.Loan {
	t.Helper()
	client := f.newClient(t, "Client "+uuid.NewString()[:8])
	loan, err := f.loans.Originate(context.Background(), domain.OriginateLoanInput{
		ClientID:  client.ID,
		Principal: decimal.NewFromInt(principal),
		StartDate: loanStart,
	})
	require.NoError(t, err)
	return loan
}

func (f *fixture) pay(t *testing.T, loanID uuid.UUID, amount int64) *domain.Payment {
	t.Helper()
	payment, err := f.payments.RecordPayment(context.Background(), domain.PaymentInput{
		LoanID: loanID,
		Amount: decimal.NewFromInt(amount),
	})
	require.NoError(t, err)
	return payment
}

func (f *fixture) payWeek(t *testing.T, loanID uuid.UUID, amount int64, week int) *domain.Payment {
	t.Helper()
	payment, err := f.payments.RecordPayment(context.Background(), domain.PaymentInput{
		LoanID: loanID,
		Amount: decimal.NewFromInt(amount),
		Week:   &week,
	})
	require.NoError(t, err)
	return payment
}

func (f *fixture) reload(t *testing.T, loanID uuid.UUID) *domain.Loan {
	t.Helper()
	loan, err := f.store.GetLoan(context.Background(), loanID)
	require.NoError(t, err)
	return loan
}

func (f *fixture) paymentsOf(t *testing.T, loanID uuid.UUID) []*domain.Payment {
	t.Helper()
	payments, err := f.store.ListPaymentsForLoan(context.Background(), loanID)
	require.NoError(t, err)
	return payments
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func intPtr(v int) *int {
	return &v
}

// wrappedStore lets a test intercept the repository handed to transactions.
type wrappedStore struct {
	*repository.SQLStore
	wrap func(repo repository.Repository) repository.Repository
}

func (s wrappedStore) WithinTx(ctx context.Context, fn func(repo repository.Repository) error) error {
	return s.SQLStore.WithinTx(ctx, func(repo repository.Repository) error {
		return fn(s.wrap(repo))
	})
}

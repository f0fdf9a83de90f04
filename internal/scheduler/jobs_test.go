package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/internal/mocks"
	"github.com/segyhp/microloan-engine/internal/notify"
	"github.com/segyhp/microloan-engine/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubLedgerService struct {
	overdue    []*domain.LoanSummary
	refreshErr error
	reminders  []service.DueReminder
	leadDays   int
}

func (s *stubLedgerService) RefreshLedgers(context.Context) ([]*domain.LoanSummary, error) {
	return s.overdue, s.refreshErr
}

func (s *stubLedgerService) DueReminders(_ context.Context, leadDays int) ([]service.DueReminder, error) {
	s.leadDays = leadDays
	return s.reminders, nil
}

func summary(due time.Time, display domain.LoanStatus) *domain.LoanSummary {
	return &domain.LoanSummary{
		Loan: &domain.Loan{ID: uuid.New(), ClientID: uuid.New()},
		Ledger: domain.LedgerState{
			WeeklyPayment:    decimal.NewFromInt(200),
			RemainingBalance: decimal.NewFromInt(1400),
			NextDueDate:      &due,
			Status:           domain.LoanStatusActive,
		},
		DisplayStatus: display,
	}
}

func testConfig() Config {
	return Config{
		RefreshSpec:      "0 0 0 * * *",
		ReminderSpec:     "0 0 9 * * *",
		ReminderLeadDays: 2,
	}
}

func TestJobs_Register(t *testing.T) {
	c := cron.New(cron.WithSeconds())
	jobs := NewJobs(&stubLedgerService{}, &mocks.MockNotifier{}, testConfig(), nil)

	require.NoError(t, jobs.Register(c))
	assert.Len(t, c.Entries(), 2)

	bad := testConfig()
	bad.ReminderSpec = "every day"
	assert.Error(t, NewJobs(&stubLedgerService{}, &mocks.MockNotifier{}, bad, nil).Register(cron.New(cron.WithSeconds())))
}

func TestJobs_RefreshLedgers(t *testing.T) {
	logger, hook := test.NewNullLogger()
	late := summary(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), domain.LoanStatusOverdue)
	stub := &stubLedgerService{overdue: []*domain.LoanSummary{late}, refreshErr: errors.New("one loan failed")}

	err := NewJobs(stub, &mocks.MockNotifier{}, testConfig(), logger).RefreshLedgers(context.Background())

	assert.EqualError(t, err, "one loan failed")
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, late.Loan.ID, hook.LastEntry().Data["loan_id"])
}

func TestJobs_SendDueReminders(t *testing.T) {
	due := time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)
	upcoming := summary(due, domain.LoanStatusActive)
	late := summary(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), domain.LoanStatusOverdue)

	stub := &stubLedgerService{reminders: []service.DueReminder{
		{Client: &domain.Client{Name: "Maria Lopez", Email: "maria@example.com"}, Summary: upcoming},
		{Client: &domain.Client{Name: "Ana Ruiz"}, Summary: late, Overdue: true},
	}}

	notifier := &mocks.MockNotifier{}
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e notify.Event) bool {
		return e.Kind == notify.EventDueReminder && e.LoanID == upcoming.Loan.ID &&
			e.Recipient == "maria@example.com" && e.Name == "Maria Lopez" &&
			e.Amount.Equal(decimal.NewFromInt(200)) && e.DueDate.Equal(due) && !e.Overdue
	})).Return(nil).Once()
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e notify.Event) bool {
		return e.LoanID == late.Loan.ID && e.Overdue && e.Recipient == ""
	})).Return(errors.New("smtp unavailable")).Once()

	logger, _ := test.NewNullLogger()
	err := NewJobs(stub, notifier, testConfig(), logger).SendDueReminders(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), late.Loan.ID.String())
	assert.Equal(t, 2, stub.leadDays)
	notifier.AssertExpectations(t)
}

func TestJobs_RunLogsFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	jobs := NewJobs(&stubLedgerService{}, &mocks.MockNotifier{}, Config{JobTimeout: time.Second}, logger)

	jobs.run("ledger-check", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return errors.New("boom")
	})

	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "ledger-check", hook.LastEntry().Data["job"])
}

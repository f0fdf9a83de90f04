package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/internal/notify"
	"github.com/segyhp/microloan-engine/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// LedgerService is the part of the loan service the jobs drive.
type LedgerService interface {
	RefreshLedgers(ctx context.Context) ([]*domain.LoanSummary, error)
	DueReminders(ctx context.Context, leadDays int) ([]service.DueReminder, error)
}

type Config struct {
	RefreshSpec      string
	ReminderSpec     string
	ReminderLeadDays int
	// JobTimeout bounds a single run; zero means no bound.
	JobTimeout time.Duration
}

type Jobs struct {
	loans    LedgerService
	notifier notify.Notifier
	cfg      Config
	logger   *logrus.Logger
}

func NewJobs(loans LedgerService, notifier notify.Notifier, cfg Config, logger *logrus.Logger) *Jobs {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Jobs{
		loans:    loans,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// Register schedules both jobs on c.
func (j *Jobs) Register(c *cron.Cron) error {
	if _, err := c.AddFunc(j.cfg.RefreshSpec, func() { j.run("refresh_ledgers", j.RefreshLedgers) }); err != nil {
		return fmt.Errorf("scheduling ledger refresh: %w", err)
	}
	if _, err := c.AddFunc(j.cfg.ReminderSpec, func() { j.run("due_reminders", j.SendDueReminders) }); err != nil {
		return fmt.Errorf("scheduling due reminders: %w", err)
	}
	return nil
}

func (j *Jobs) run(name string, job func(ctx context.Context) error) {
	ctx := context.Background()
	if j.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.cfg.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	log := j.logger.WithField("job", name)
	log.Info("job started")

	if err := job(ctx); err != nil {
		log.WithError(err).WithField("duration", time.Since(start).String()).Error("job failed")
		return
	}
	log.WithField("duration", time.Since(start).String()).Info("job finished")
}

// RefreshLedgers recomputes every active loan and logs the overdue ones.
func (j *Jobs) RefreshLedgers(ctx context.Context) error {
	overdue, err := j.loans.RefreshLedgers(ctx)
	for _, summary := range overdue {
		j.logger.WithFields(logrus.Fields{
			"loan_id":      summary.Loan.ID,
			"client_id":    summary.Loan.ClientID,
			"remaining":    summary.Ledger.RemainingBalance.String(),
			"current_week": summary.CurrentWeek,
		}).Warn("loan overdue")
	}
	return err
}

// SendDueReminders notifies every client whose next installment falls
// within the lead window. A failed notification does not stop the run.
func (j *Jobs) SendDueReminders(ctx context.Context) error {
	reminders, err := j.loans.DueReminders(ctx, j.cfg.ReminderLeadDays)
	if err != nil {
		return err
	}

	var errs []error
	for _, reminder := range reminders {
		event := notify.Event{
			Kind:     notify.EventDueReminder,
			LoanID:   reminder.Summary.Loan.ID,
			ClientID: reminder.Summary.Loan.ClientID,
			Amount:   reminder.Summary.Ledger.WeeklyPayment,
			DueDate:  reminder.Summary.Ledger.NextDueDate,
			Overdue:  reminder.Overdue,
			Message:  "installment due",
		}
		if reminder.Client != nil {
			event.Recipient = reminder.Client.Email
			event.Name = reminder.Client.Name
		}
		if err := j.notifier.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("loan %s: %w", event.LoanID, err))
		}
	}

	j.logger.WithFields(logrus.Fields{
		"reminders": len(reminders),
		"failed":    len(errs),
	}).Info("due reminders sent")
	return errors.Join(errs...)
}

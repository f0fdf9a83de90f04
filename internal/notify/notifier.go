package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type EventKind string

const (
	EventLoanOriginated   EventKind = "loan_originated"
	EventLoanRenewed      EventKind = "loan_renewed"
	EventPaymentRecorded  EventKind = "payment_recorded"
	EventPaymentsRecorded EventKind = "payments_recorded"
	EventPaymentUpdated   EventKind = "payment_updated"
	EventPaymentDeleted   EventKind = "payment_deleted"
	EventDueReminder      EventKind = "due_reminder"
)

// Event describes something a client or an operator may want to hear about.
// Recipient and Name are only set when the client can be reached by e-mail.
type Event struct {
	Kind      EventKind
	LoanID    uuid.UUID
	ClientID  uuid.UUID
	Recipient string
	Name      string
	Amount    decimal.Decimal
	DueDate   *time.Time
	Overdue   bool
	Message   string
}

// Notifier is a side channel; its failures never roll back a mutation.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type logNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier writes every event to the log.
func NewLogNotifier(logger *logrus.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(_ context.Context, event Event) error {
	fields := logrus.Fields{
		"event":     event.Kind,
		"loan_id":   event.LoanID,
		"client_id": event.ClientID,
	}
	if !event.Amount.IsZero() {
		fields["amount"] = event.Amount.String()
	}
	if event.DueDate != nil {
		fields["due_date"] = event.DueDate.Format("2006-01-02")
	}
	n.logger.WithFields(fields).Info(event.Message)
	return nil
}

type multiNotifier []Notifier

// Multi fans an event out to every notifier and joins their errors.
func Multi(notifiers ...Notifier) Notifier {
	return multiNotifier(notifiers)
}

func (m multiNotifier) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

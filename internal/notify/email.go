package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/segyhp/microloan-engine/internal/config"
	"github.com/sirupsen/logrus"
)

// sendFunc matches (*email.Email).Send.
type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// EmailNotifier sends due-date reminders to clients over SMTP. Events other
// than reminders, or without a recipient, are ignored.
type EmailNotifier struct {
	cfg    config.SMTPConfig
	logger *logrus.Logger
	send   sendFunc
}

func NewEmailNotifier(cfg config.SMTPConfig, logger *logrus.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

func (n *EmailNotifier) Notify(_ context.Context, event Event) error {
	if event.Kind != EventDueReminder || event.Recipient == "" || event.DueDate == nil {
		return nil
	}

	e := n.reminder(event)
	addr := fmt.Sprintf("%s:%s", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	if err := n.send(e, addr, auth); err != nil {
		n.logger.Errorf("Failed to send email to %s: %v", event.Recipient, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Infof("Email sent to %s: %s", event.Recipient, e.Subject)
	return nil
}

func (n *EmailNotifier) reminder(event Event) *email.Email {
	e := email.NewEmail()
	e.From = n.cfg.SenderEmail
	e.To = []string{event.Recipient}
	if event.Overdue {
		e.Subject = "Overdue Loan Payment Notification"
	} else {
		e.Subject = "Upcoming Loan Payment Reminder"
	}

	due := event.DueDate.Format("2006-01-02")
	body := fmt.Sprintf("Dear %s,\n\n", event.Name)
	if event.Overdue {
		body += fmt.Sprintf(
			"Your weekly payment of %s was due on %s and is now overdue.\n"+
				"Please make the payment as soon as possible.\n",
			event.Amount.StringFixed(2), due,
		)
	} else {
		body += fmt.Sprintf(
			"This is a reminder that your weekly payment of %s is due on %s.\n",
			event.Amount.StringFixed(2), due,
		)
	}
	body += "\nBest regards,\nCollections"
	e.Text = []byte(body)

	return e
}

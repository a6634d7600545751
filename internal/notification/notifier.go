package notification

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/wirebird/crm/internal"
	"github.com/wirebird/crm/internal/core/events"
	"github.com/wirebird/crm/internal/stage"
)

// UserLookup resolves the email address of an operator.
type UserLookup interface {
	GetEmailByID(ctx context.Context, id int64) (string, error)
}

// MailSender is the transport used to deliver notifications.
type MailSender interface {
	Send(to, subject, body string) error
}

// SMTPSender delivers mail via a plain SMTP dialer.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg internal.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// Notifier listens for lead events and mails the affected operators.
type Notifier struct {
	sender MailSender
	users  UserLookup
	logger *slog.Logger
}

func NewNotifier(sender MailSender, users UserLookup, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		users:  users,
		logger: logger,
	}
}

// Register subscribes the notifier to the lead events it cares about.
func (n *Notifier) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeLeadAssigned, n.handleLeadAssigned)
	bus.Subscribe(events.EventTypeLeadStageChanged, n.handleLeadStageChanged)
}

func (n *Notifier) handleLeadAssigned(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.LeadAssignedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	email, err := n.users.GetEmailByID(ctx, e.AssignedUserID)
	if err != nil {
		n.logger.Warn("cannot resolve assignee email", "user_id", e.AssignedUserID, "error", err)
		return nil
	}

	subject := fmt.Sprintf("Lead #%d assigned to you", e.LeadID)
	body := fmt.Sprintf("Lead #%d is now assigned to you. Open the CRM to pick it up.", e.LeadID)

	if err := n.sender.Send(email, subject, body); err != nil {
		n.logger.Error("failed to send assignment mail", "lead_id", e.LeadID, "error", err)
		return err
	}

	n.logger.Info("assignment mail sent", "lead_id", e.LeadID, "to", email)
	return nil
}

func (n *Notifier) handleLeadStageChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.LeadStageChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	// Only closing moves are worth a mail.
	if e.ToStageID != stage.ClosedWon && e.ToStageID != stage.ClosedLost {
		return nil
	}

	email, err := n.users.GetEmailByID(ctx, e.ChangedByID)
	if err != nil {
		n.logger.Warn("cannot resolve operator email", "user_id", e.ChangedByID, "error", err)
		return nil
	}

	toStage, _ := stage.ByID(e.ToStageID)
	subject := fmt.Sprintf("Lead #%d closed: %s", e.LeadID, toStage.Name)
	body := fmt.Sprintf("Lead #%d was moved to %s.", e.LeadID, toStage.Name)

	if err := n.sender.Send(email, subject, body); err != nil {
		n.logger.Error("failed to send close mail", "lead_id", e.LeadID, "error", err)
		return err
	}

	return nil
}

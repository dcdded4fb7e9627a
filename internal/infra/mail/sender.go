package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
	"github.com/oktavaklaster/radario-amocrm/internal/usecase"
)

//go:embed templates/*.html
var templates embed.FS

var failureTemplate = template.Must(template.ParseFS(templates, "templates/sync_failure.html"))

var moscow = time.FixedZone("MSK", 3*60*60)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

func NewEmailSender(host string, port int, user, password, from, alertTo, service string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		AlertTo:  alertTo,
		Service:  service,
		dialer:   gomail.NewDialer(host, port, user, password),
	}
}

// NotifySyncFailure mails the operator about a notification that ended in error.
func (s *EmailSender) NotifySyncFailure(ctx context.Context, event usecase.OrderSyncedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := SyncFailureData{
		Service:      s.Service,
		LogID:        event.LogID,
		OrderID:      event.OrderID,
		Email:        event.Email,
		PaymentState: paymentLabel(event.PaymentState),
		Action:       string(event.Action),
		Attempt:      event.Attempt,
		Error:        event.Error,
		OccurredAt:   event.OccurredAt.In(moscow).Format("02.01.2006 15:04:05"),
	}

	var body bytes.Buffer
	if err := failureTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render alert template: %w", err)
	}

	subject := fmt.Sprintf("[%s] Ошибка синхронизации заказа %s", s.Service, event.OrderID)
	if event.OrderID == "" {
		subject = fmt.Sprintf("[%s] Ошибка обработки вебхука Radario", s.Service)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.AlertTo)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send alert over SMTP: %w", err)
	}

	return nil
}

func paymentLabel(state string) string {
	if state == "" {
		return ""
	}
	return entity.PaymentState(state).Label()
}

// Package mailer sends order notification emails over SMTP.
package mailer

import (
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/events"
)

// Config contains the SMTP settings.
type Config struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SendFunc delivers a raw message. It matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer renders and sends order emails.
type Mailer struct {
	cfg    Config
	send   SendFunc
	logger *zap.Logger
}

// New returns a Mailer that delivers through smtp.SendMail.
func New(cfg Config, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail, logger: logger}
}

// WithSendFunc replaces the delivery function.
func (m *Mailer) WithSendFunc(send SendFunc) *Mailer {
	m.send = send
	return m
}

var bodies = template.Must(template.New("order").Parse(`<html>
  <body>
    <p>Hello {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
    {{if eq .Type "order.placed"}}<p>We received your order <b>{{.OrderID}}</b> of {{.Items}} item(s), {{printf "%.2f" .Total}} in total.</p>
    {{else}}<p>Your order <b>{{.OrderID}}</b> is now <b>{{.Status}}</b>.</p>
    {{end}}<p>Thank you for shopping with us.</p>
  </body>
</html>`))

// Subject returns the subject line for e.
func Subject(e events.Event) string {
	if e.Type == events.OrderPlaced {
		return "Order " + e.OrderID + " received"
	}
	return "Order " + e.OrderID + " is " + string(e.Status)
}

// Render builds the complete message for e.
func (m *Mailer) Render(e events.Event) ([]byte, error) {
	var body strings.Builder
	if err := bodies.Execute(&body, e); err != nil {
		return nil, fmt.Errorf("failed to render mail for order %s: %w", e.OrderID, err)
	}
	return []byte(fmt.Sprintf("To: %s\r\n"+
		"From: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"\r\n"+
		"%s\r\n", e.Email, m.cfg.From, Subject(e), body.String())), nil
}

// Notify sends the notification for e. Events without a recipient address
// are skipped.
func (m *Mailer) Notify(_ context.Context, e events.Event) error {
	if e.Email == "" {
		m.logger.Debug("Event has no recipient, not mailing", zap.String("orderId", e.OrderID))
		return nil
	}
	if m.cfg.From == "" {
		return fmt.Errorf("sender email address cannot be empty")
	}

	msg, err := m.Render(e)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.From, []string{e.Email}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	m.logger.Info("Sent order email", zap.String("orderId", e.OrderID), zap.String("type", e.Type))
	return nil
}

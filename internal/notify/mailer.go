package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"text/template"

	"github.com/imrishuroy/watch-storefront/internal/config"
	"github.com/imrishuroy/watch-storefront/internal/orders"
)

// Email is a rendered plain-text message.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers an Email.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// ErrNoSMTP is returned when no SMTP host is configured.
var ErrNoSMTP = errors.New("smtp host not configured")

// SMTPMailer sends email through an SMTP relay.
type SMTPMailer struct {
	addr     string
	from     string
	auth     smtp.Auth
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer builds a mailer from cfg. Credentials are optional.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	m := &SMTPMailer{
		addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		from:     cfg.From,
		sendMail: smtp.SendMail,
	}
	if cfg.Host == "" {
		m.addr = ""
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, e Email) error {
	if m.addr == "" {
		return ErrNoSMTP
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", e.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", e.Subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(strings.ReplaceAll(e.Body, "\n", "\r\n"))

	if err := m.sendMail(m.addr, m.auth, m.from, []string{e.To}, msg.Bytes()); err != nil {
		return fmt.Errorf("send mail to %s: %w", e.To, err)
	}
	return nil
}

var (
	purchaseTmpl = template.Must(template.New("purchase").Parse(`Hi {{.ToName}},

Thank you for shopping with us. Your order {{.PublicID}} is confirmed.

Items: {{.Fields.Items}}
Total: {{.Fields.TotalPrice}}
Payment method: {{.Fields.PaymentMethod}}
Shipping to: {{.Fields.ShippingAddress}}

You can track your order any time with the order ID above.
`))

	serviceTmpl = template.Must(template.New("service").Parse(`Hi {{.ToName}},

Your service booking {{.PublicID}} is confirmed.

Service: {{.Fields.ServiceType}}
Date: {{.Fields.PickupDate}}
Time: {{.Fields.PickupTime}}
{{if eq .Kind "store"}}Store{{else}}Pickup address{{end}}: {{.Fields.Address}}
Express service: {{.Fields.ExpressService}}
Price: {{.Fields.TotalPrice}}

You can track your booking any time with the booking ID above.
`))
)

// Render turns a queued message into the email sent to the customer.
func Render(m Message) (Email, error) {
	if err := m.Validate(); err != nil {
		return Email{}, err
	}
	tmpl, subject := purchaseTmpl, "Order confirmed: "+m.PublicID
	if m.Kind != orders.KindPurchase {
		tmpl, subject = serviceTmpl, "Service booking confirmed: "+m.PublicID
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, m); err != nil {
		return Email{}, fmt.Errorf("render %s email: %w", m.Kind, err)
	}
	return Email{To: m.ToEmail, Subject: subject, Body: body.String()}, nil
}

package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/visitrack/visitrack/internal/config"
)

// HeaderNotificationID carries the notification id on every outbound mail.
const HeaderNotificationID = "X-Notification-ID"

// Envelope is a fully addressed message handed to a Sender.
type Envelope struct {
	ID      string
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers one envelope over some transport.
type Sender interface {
	Send(ctx context.Context, env Envelope) error
}

// SMTPSender delivers mail over SMTP.
// A fresh client is dialed per message; volume is low and clients are not safe to share.
type SMTPSender struct {
	host string
	opts []mail.Option
}

// NewSMTPSender validates the transport settings and returns a Sender.
func NewSMTPSender(cfg config.Mail) (*SMTPSender, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}

	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}

	switch {
	case cfg.UseSSL:
		opts = append(opts, mail.WithSSL())
	case cfg.UseTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	if _, err := mail.NewClient(cfg.Server, opts...); err != nil {
		return nil, fmt.Errorf("invalid mail transport settings: %w", err)
	}

	return &SMTPSender{host: cfg.Server, opts: opts}, nil
}

// Send composes env as a plain-text mail and delivers it.
func (s *SMTPSender) Send(ctx context.Context, env Envelope) error {
	msg := mail.NewMsg()
	if err := msg.From(env.From); err != nil {
		return &DeliveryError{Op: "compose", Err: fmt.Errorf("sender %q: %w", env.From, err)}
	}
	if err := msg.To(env.To); err != nil {
		return &DeliveryError{Op: "compose", Err: fmt.Errorf("recipient %q: %w", env.To, err)}
	}
	msg.Subject(env.Subject)
	msg.SetBodyString(mail.TypeTextPlain, env.Body)
	msg.SetGenHeader(mail.Header(HeaderNotificationID), env.ID)

	client, err := mail.NewClient(s.host, s.opts...)
	if err != nil {
		return &DeliveryError{Op: "send", Err: err}
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return &DeliveryError{Op: "send", Err: err}
	}
	return nil
}

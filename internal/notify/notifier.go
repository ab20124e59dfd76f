// Package notify sends administrator notifications by email.
//
// Delivery is best-effort: callers log a returned *DeliveryError and carry on.
// A notifier without a recipient or sender is a logged no-op, never an error.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/visitrack/visitrack/internal/config"
	"github.com/visitrack/visitrack/internal/metrics"
)

// TransportInfo describes the mail transport for logs. It never holds credentials.
type TransportInfo struct {
	Server      string
	Port        int
	TLSMode     string
	UsernameSet bool
}

// LogValue implements slog.LogValuer.
func (t TransportInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("server", t.Server),
		slog.Int("port", t.Port),
		slog.String("tls_mode", t.TLSMode),
		slog.Bool("username_set", t.UsernameSet),
	)
}

// Notifier sends notifications to the fixed administrator address.
type Notifier struct {
	sender    Sender
	from      string
	to        string
	suppress  bool
	transport TransportInfo
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// New creates a Notifier. sender may be nil only when mail is unconfigured or suppressed.
func New(sender Sender, mailCfg config.Mail, adminEmail string, logger *slog.Logger, recorder metrics.Recorder) *Notifier {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Notifier{
		sender:   sender,
		from:     mailCfg.Sender(),
		to:       adminEmail,
		suppress: mailCfg.SuppressSend,
		transport: TransportInfo{
			Server:      mailCfg.Server,
			Port:        mailCfg.Port,
			TLSMode:     mailCfg.TLSMode(),
			UsernameSet: mailCfg.Username != "",
		},
		logger:  logger.With("component", "notify"),
		metrics: recorder,
	}
}

// Configured reports whether both a recipient and a sender are set.
// A suppressed notifier needs no transport.
func (n *Notifier) Configured() bool {
	return n.to != "" && n.from != "" && (n.sender != nil || n.suppress)
}

// Transport returns the secret-free transport description.
func (n *Notifier) Transport() TransportInfo {
	return n.transport
}

// Send delivers msg to the administrator.
// It returns nil without sending when mail is unconfigured or suppressed,
// and a *DeliveryError when the transport fails.
func (n *Notifier) Send(ctx context.Context, msg Notification) error {
	if !n.Configured() {
		n.logger.Warn("admin email or mail sender not configured, skipping notification",
			"kind", msg.Kind,
		)
		n.metrics.IncNotification(msg.Kind, metrics.StatusSkipped)
		return nil
	}

	id := ulid.Make().String()

	if n.suppress {
		n.logger.Info("mail sending suppressed", "kind", msg.Kind, "notification_id", id)
		n.metrics.IncNotification(msg.Kind, metrics.StatusSkipped)
		return nil
	}

	start := time.Now()
	err := n.sender.Send(ctx, Envelope{
		ID:      id,
		From:    n.from,
		To:      n.to,
		Subject: msg.Subject,
		Body:    msg.Body,
	})
	n.metrics.ObserveNotificationDuration(time.Since(start))

	if err != nil {
		n.metrics.IncNotification(msg.Kind, metrics.StatusFailed)
		var deliveryErr *DeliveryError
		if !errors.As(err, &deliveryErr) {
			err = &DeliveryError{Op: "send", Err: err}
		}
		return err
	}

	n.metrics.IncNotification(msg.Kind, metrics.StatusSuccess)
	n.logger.Info("notification sent", "kind", msg.Kind, "notification_id", id)
	return nil
}

package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/visitrack/visitrack/internal/cache"
	"github.com/visitrack/visitrack/internal/metrics"
	"github.com/visitrack/visitrack/internal/middleware"
	"github.com/visitrack/visitrack/internal/notify"
)

// ClickNotifier delivers click notifications synchronously.
type ClickNotifier interface {
	Send(ctx context.Context, msg notify.Notification) error
	Transport() notify.TransportInfo
}

// Throttler limits notifications per client address.
type Throttler interface {
	CheckNotifyThrottle(ctx context.Context, clientAddr string, ratePerMinute, burst int) (*cache.ThrottleResult, error)
}

// NotifyHandler forwards frontend click events to the administrator.
type NotifyHandler struct {
	notifier      ClickNotifier
	throttler     Throttler
	ratePerMinute int
	burst         int
	sendTimeout   time.Duration
	metrics       metrics.Recorder
	logger        *slog.Logger
}

// NewNotifyHandler creates a NotifyHandler. A positive sendTimeout bounds each send.
func NewNotifyHandler(notifier ClickNotifier, sendTimeout time.Duration, recorder metrics.Recorder, logger *slog.Logger) *NotifyHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &NotifyHandler{
		notifier:    notifier,
		sendTimeout: sendTimeout,
		metrics:     recorder,
		logger:      logger.With("component", "handler.notify"),
	}
}

// WithThrottle enables per-client throttling of click notifications.
func (h *NotifyHandler) WithThrottle(t Throttler, ratePerMinute, burst int) *NotifyHandler {
	h.throttler = t
	h.ratePerMinute = ratePerMinute
	h.burst = burst
	return h
}

// NotifyClick handles POST /api/notify-click.
// The response is always 200; delivery failures are only logged.
func (h *NotifyHandler) NotifyClick(w http.ResponseWriter, r *http.Request) {
	fields := decodeObject(r)
	linkKind := stringField(fields, "link_kind", notify.UnknownLink)
	page := stringField(fields, "page", notify.UnknownPage)

	userAgent := r.UserAgent()
	if userAgent == "" {
		userAgent = notify.UnknownUserAgent
	}

	// The browser usually navigates away right after a click.
	ctx := context.WithoutCancel(r.Context())
	if h.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.sendTimeout)
		defer cancel()
	}

	if h.throttled(ctx, middleware.ClientAddr(r), linkKind) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if err := h.notifier.Send(ctx, notify.ClickMessage(linkKind, page, userAgent)); err != nil {
		h.logger.Error("failed to send click notification",
			"link_kind", linkKind,
			"error", err,
			"transport", h.notifier.Transport(),
		)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *NotifyHandler) throttled(ctx context.Context, clientAddr, linkKind string) bool {
	if h.throttler == nil {
		return false
	}

	result, err := h.throttler.CheckNotifyThrottle(ctx, clientAddr, h.ratePerMinute, h.burst)
	if err != nil {
		h.logger.Warn("notification throttle unavailable, allowing", "error", err)
	}
	if result == nil || result.Allowed {
		return false
	}

	h.metrics.IncNotification(notify.KindClick, metrics.StatusThrottled)
	h.logger.Warn("click notification throttled",
		"link_kind", linkKind,
		"retry_after", result.RetryAfter,
	)
	return true
}

// decodeObject reads a JSON object body. Missing or malformed bodies yield nil.
func decodeObject(r *http.Request) map[string]any {
	if r.Body == nil {
		return nil
	}
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		return nil
	}
	return fields
}

func stringField(fields map[string]any, key, fallback string) string {
	if s, ok := fields[key].(string); ok {
		return s
	}
	return fallback
}

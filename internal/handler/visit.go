package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/visitrack/visitrack/internal/metrics"
	"github.com/visitrack/visitrack/internal/middleware"
	"github.com/visitrack/visitrack/internal/model"
	"github.com/visitrack/visitrack/internal/notify"
	"github.com/visitrack/visitrack/internal/repository"
)

// uniqueVisitorOffset is added to every reported distinct-visitor count.
// Clients depend on the exact value; a zero count is reported as 2.
const uniqueVisitorOffset = 2

// VisitStore is the event store used by VisitHandler.
// Both the Postgres and SQLite stores satisfy it.
type VisitStore interface {
	Insert(ctx context.Context, ipAddress string, userAgent *string, at time.Time) (int64, error)
	CountDistinctVisitors(ctx context.Context, month, year int) (int64, error)
}

// Dispatcher sends a notification in the background.
type Dispatcher interface {
	Dispatch(msg notify.Notification)
}

// VisitHandler records page visits and reports monthly distinct visitors.
type VisitHandler struct {
	store        VisitStore
	storeTimeout time.Duration
	dispatcher   Dispatcher
	metrics      metrics.Recorder
	logger       *slog.Logger
	now          func() time.Time
}

// NewVisitHandler creates a VisitHandler. A positive storeTimeout bounds each store call.
func NewVisitHandler(store VisitStore, storeTimeout time.Duration, recorder metrics.Recorder, logger *slog.Logger) *VisitHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &VisitHandler{
		store:        store,
		storeTimeout: storeTimeout,
		metrics:      recorder,
		logger:       logger.With("component", "handler.visit"),
		now:          time.Now,
	}
}

// WithVisitNotifications makes TrackVisit dispatch an admin alert after each stored visit.
func (h *VisitHandler) WithVisitNotifications(d Dispatcher) *VisitHandler {
	h.dispatcher = d
	return h
}

// trackVisitRequest is the optional body of POST /api/track-visit.
// pageURL only feeds the visit notification and is never stored.
type trackVisitRequest struct {
	PageURL any `json:"pageURL"`
}

// TrackVisit handles POST /api/track-visit.
func (h *VisitHandler) TrackVisit(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	ip := middleware.ClientAddr(r)

	var userAgent *string
	if ua := r.UserAgent(); ua != "" {
		userAgent = &ua
	}

	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	start := time.Now()
	id, err := h.store.Insert(ctx, ip, userAgent, now)
	h.metrics.ObserveStoreDuration(repository.OpInsert, time.Since(start))
	if err != nil {
		h.metrics.IncVisitTracked(metrics.StatusFailed)
		h.logStoreError("failed to track visit", err, slog.String("ip_address", ip))
		writeError(w, http.StatusInternalServerError, "Could not track visit")
		return
	}
	h.metrics.IncVisitTracked(metrics.StatusSuccess)
	h.logger.Debug("visit tracked", "id", id, "visit_month", int(now.Month()), "visit_year", now.Year())

	if h.dispatcher != nil {
		h.dispatcher.Dispatch(notify.VisitMessage(ip, userAgent, decodePageURL(r), now))
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "Visit tracked successfully"})
}

// MonthlyVisitors handles GET /api/monthly-visitors.
// month and year default to the current UTC period when absent or not integers.
// Values are not range checked.
func (h *VisitHandler) MonthlyVisitors(w http.ResponseWriter, r *http.Request) {
	period := model.PeriodOf(h.now())
	query := r.URL.Query()
	month := queryInt(query.Get("month"), period.Month)
	year := queryInt(query.Get("year"), period.Year)

	ctx, cancel := h.storeContext(r.Context())
	defer cancel()

	start := time.Now()
	count, err := h.store.CountDistinctVisitors(ctx, month, year)
	h.metrics.ObserveStoreDuration(repository.OpCountDistinct, time.Since(start))
	if err != nil {
		h.metrics.IncAggregationQuery(metrics.StatusFailed)
		h.logStoreError("failed to count monthly visitors", err,
			slog.Int("month", month),
			slog.Int("year", year),
		)
		writeError(w, http.StatusInternalServerError, "Could not retrieve visitor count")
		return
	}
	h.metrics.IncAggregationQuery(metrics.StatusSuccess)

	writeJSON(w, http.StatusOK, model.MonthlyVisitors{
		Month:          month,
		Year:           year,
		UniqueVisitors: count + uniqueVisitorOffset,
	})
}

func (h *VisitHandler) storeContext(parent context.Context) (context.Context, context.CancelFunc) {
	if h.storeTimeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, h.storeTimeout)
}

func (h *VisitHandler) logStoreError(msg string, err error, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+2)
	for _, a := range attrs {
		args = append(args, a)
	}

	var storageErr *repository.StorageError
	if errors.As(err, &storageErr) {
		args = append(args, slog.String("op", storageErr.Op))
	}
	args = append(args, slog.Any("error", err))

	h.logger.Error(msg, args...)
}

// decodePageURL reads pageURL from the request body, ignoring anything malformed.
func decodePageURL(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	var req trackVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ""
	}
	if s, ok := req.PageURL.(string); ok {
		return s
	}
	return ""
}

// queryInt parses raw as a base-10 integer, tolerating surrounding whitespace.
func queryInt(raw string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}

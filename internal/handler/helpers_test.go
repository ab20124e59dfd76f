package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/visitrack/visitrack/internal/model"
	"github.com/visitrack/visitrack/internal/notify"
	"github.com/visitrack/visitrack/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory VisitStore with injectable failures.
type fakeStore struct {
	mu          sync.Mutex
	records     []model.VisitRecord
	insertErr   error
	countErr    error
	sawDeadline bool
}

func (s *fakeStore) Insert(ctx context.Context, ipAddress string, userAgent *string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, s.sawDeadline = ctx.Deadline()
	if s.insertErr != nil {
		return 0, repository.NewStorageError(repository.OpInsert, s.insertErr)
	}
	rec := model.NewVisitRecord(ipAddress, userAgent, at)
	rec.ID = int64(len(s.records) + 1)
	s.records = append(s.records, *rec)
	return rec.ID, nil
}

func (s *fakeStore) CountDistinctVisitors(ctx context.Context, month, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, s.sawDeadline = ctx.Deadline()
	if s.countErr != nil {
		return 0, repository.NewStorageError(repository.OpCountDistinct, s.countErr)
	}
	seen := make(map[string]struct{})
	for _, rec := range s.records {
		if rec.VisitMonth == month && rec.VisitYear == year {
			seen[rec.IPAddress] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

func (s *fakeStore) all() []model.VisitRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.VisitRecord(nil), s.records...)
}

type fakeDispatcher struct {
	mu   sync.Mutex
	msgs []notify.Notification
}

func (d *fakeDispatcher) Dispatch(msg notify.Notification) {
	d.mu.Lock()
	d.msgs = append(d.msgs, msg)
	d.mu.Unlock()
}

func (d *fakeDispatcher) sent() []notify.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Notification(nil), d.msgs...)
}

// failingSender is a notify.Sender whose transport always fails.
type failingSender struct {
	mu    sync.Mutex
	calls int
}

func (s *failingSender) Send(ctx context.Context, env notify.Envelope) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return &notify.DeliveryError{Op: "send", Err: io.ErrUnexpectedEOF}
}

func (s *failingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

//go:build integration

package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/visitrack/visitrack/internal/testutil"
)

func newVisitTestEnv(t *testing.T) (context.Context, *VisitRepository) {
	t.Helper()

	dbURL := testutil.RequireEnv(t, "TEST_DATABASE_URL")
	ctx := context.Background()

	if err := Migrate(ctx, dbURL); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("AcquireDBLock failed: %v", err)
	}
	t.Cleanup(func() { _ = unlock() })

	if _, err := repo.Pool().Exec(ctx, "TRUNCATE visitor RESTART IDENTITY"); err != nil {
		t.Fatalf("truncate visitor: %v", err)
	}

	return ctx, NewVisitRepository(repo)
}

func TestIntegrationVisit_InsertDerivesPeriod(t *testing.T) {
	ctx, visits := newVisitTestEnv(t)

	ua := "TestAgent/1.0"
	at := time.Date(2025, time.February, 28, 23, 30, 0, 0, time.UTC)

	id, err := visits.Insert(ctx, "198.51.100.1", &ua, at)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	var month, year int
	var storedUA *string
	err = visits.repo.Pool().QueryRow(ctx,
		`SELECT visit_month, visit_year, user_agent FROM visitor WHERE id = $1`, id,
	).Scan(&month, &year, &storedUA)
	if err != nil {
		t.Fatalf("select visit: %v", err)
	}
	if month != 2 || year != 2025 {
		t.Errorf("period = %d/%d, want 2/2025", month, year)
	}
	if storedUA == nil || *storedUA != ua {
		t.Errorf("user_agent = %v, want %q", storedUA, ua)
	}
}

func TestIntegrationVisit_NullUserAgent(t *testing.T) {
	ctx, visits := newVisitTestEnv(t)

	id, err := visits.Insert(ctx, "198.51.100.2", nil, time.Now())
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	var storedUA *string
	if err := visits.repo.Pool().QueryRow(ctx, `SELECT user_agent FROM visitor WHERE id = $1`, id).Scan(&storedUA); err != nil {
		t.Fatalf("select visit: %v", err)
	}
	if storedUA != nil {
		t.Errorf("expected NULL user_agent, got %q", *storedUA)
	}
}

func TestIntegrationVisit_CountDistinctVisitors(t *testing.T) {
	ctx, visits := newVisitTestEnv(t)

	march := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	april := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	// 5 rows, 3 distinct addresses in March; one more address in April.
	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.1", "10.0.0.3", "10.0.0.2"} {
		if _, err := visits.Insert(ctx, ip, nil, march); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if _, err := visits.Insert(ctx, "10.0.0.9", nil, april); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	count, err := visits.CountDistinctVisitors(ctx, 3, 2025)
	if err != nil {
		t.Fatalf("CountDistinctVisitors failed: %v", err)
	}
	if count != 3 {
		t.Errorf("March count = %d, want 3", count)
	}

	count, err = visits.CountDistinctVisitors(ctx, 13, 2025)
	if err != nil {
		t.Fatalf("CountDistinctVisitors failed: %v", err)
	}
	if count != 0 {
		t.Errorf("month 13 count = %d, want 0", count)
	}

	// Beyond the int4 range of the period columns.
	for _, period := range []struct{ month, year int }{
		{3, 99999999999},
		{-99999999999, 2025},
	} {
		count, err = visits.CountDistinctVisitors(ctx, period.month, period.year)
		if err != nil {
			t.Fatalf("CountDistinctVisitors(%d, %d) failed: %v", period.month, period.year, err)
		}
		if count != 0 {
			t.Errorf("count for %d/%d = %d, want 0", period.month, period.year, count)
		}
	}
}

func TestIntegrationVisit_StorageErrorOnClosedPool(t *testing.T) {
	dbURL := testutil.RequireEnv(t, "TEST_DATABASE_URL")
	ctx := context.Background()

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	repo.Close()

	_, err = NewVisitRepository(repo).Insert(ctx, "10.0.0.1", nil, time.Now())

	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected *StorageError, got %v", err)
	}
	if storageErr.Op != OpInsert {
		t.Errorf("Op = %q, want %q", storageErr.Op, OpInsert)
	}
}

func TestIntegrationMigrate_Idempotent(t *testing.T) {
	dbURL := testutil.RequireEnv(t, "TEST_DATABASE_URL")
	ctx := context.Background()

	if err := Migrate(ctx, dbURL); err != nil {
		t.Fatalf("first Migrate failed: %v", err)
	}
	if err := Migrate(ctx, dbURL); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestIntegrationRepository_ApplicationName(t *testing.T) {
	dbURL := testutil.RequireEnv(t, "TEST_DATABASE_URL")
	ctx := context.Background()

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer repo.Close()

	var name string
	if err := repo.Pool().QueryRow(ctx, "SHOW application_name").Scan(&name); err != nil {
		t.Fatalf("SHOW application_name failed: %v", err)
	}
	if strings.Contains(dbURL, "application_name=") {
		return
	}
	if name != applicationName {
		t.Errorf("application_name = %q, want %q", name, applicationName)
	}
}

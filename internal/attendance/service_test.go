package attendance

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"classtrack/internal/apperr"
	"classtrack/internal/bus"
	"classtrack/internal/store"
	"classtrack/internal/students"
)

type captureBus struct {
	mu     sync.Mutex
	events []bus.Event
}

func (c *captureBus) Publish(_ context.Context, evt bus.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *captureBus) Subscribe() *bus.Subscription { return &bus.Subscription{} }

func (c *captureBus) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, evt := range c.events {
		if evt.Name == name {
			n++
		}
	}
	return n
}

func setup(t *testing.T) (*Service, *captureBus, *store.DB, int64) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "attendance.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	studentRepo := students.NewRepository(db)
	st, err := studentRepo.Insert(context.Background(), "Dana", "8-C", 1)
	if err != nil {
		t.Fatalf("seed student: %v", err)
	}

	cb := &captureBus{}
	svc := NewService(NewRepository(db), studentRepo, cb)
	return svc, cb, db, st.ID
}

func intPtr(v int) *int { return &v }

func markCount(t *testing.T, db *store.DB, studentID int64, date string, hour int) int {
	t.Helper()
	var n int
	if err := db.Client.QueryRow(
		`SELECT COUNT(*) FROM attendance WHERE student_id = ? AND date = ? AND hour = ?`,
		studentID, date, hour).Scan(&n); err != nil {
		t.Fatalf("count marks: %v", err)
	}
	return n
}

func TestRecordUpsertIsIdempotent(t *testing.T) {
	svc, cb, db, sid := setup(t)
	ctx := context.Background()

	if _, err := svc.Record(ctx, sid, "2024-01-01", "present", nil); err != nil {
		t.Fatalf("first record: %v", err)
	}
	rec, err := svc.Record(ctx, sid, "2024-01-01", "absent", nil)
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if !rec.Success || rec.Status != "absent" {
		t.Fatalf("expected normalized absent result, got %+v", rec)
	}

	if n := markCount(t, db, sid, "2024-01-01", -1); n != 1 {
		t.Fatalf("expected exactly one whole-day row, got %d", n)
	}
	snap, err := svc.GetAll(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Daily["2024-01-01"][sid] != "absent" {
		t.Fatalf("second call should update in place, got %q", snap.Daily["2024-01-01"][sid])
	}
	if got := cb.count(bus.EventAttendanceUpdated); got != 2 {
		t.Fatalf("each successful upsert broadcasts once, got %d", got)
	}
}

func TestWholeDayAndHourlyMarksCoexist(t *testing.T) {
	svc, _, _, sid := setup(t)
	ctx := context.Background()

	if _, err := svc.Record(ctx, sid, "2024-01-01", "present", nil); err != nil {
		t.Fatalf("whole-day record: %v", err)
	}
	if _, err := svc.Record(ctx, sid, "2024-01-01", "absent", intPtr(2)); err != nil {
		t.Fatalf("hourly record: %v", err)
	}

	snap, err := svc.GetAll(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Daily["2024-01-01"][sid] != "present" {
		t.Fatalf("daily mapping wrong: %+v", snap.Daily)
	}
	if snap.Hourly["2024-01-01"][sid][2] != "absent" {
		t.Fatalf("hourly mapping wrong: %+v", snap.Hourly)
	}
	// The same row never lands in both mappings.
	if _, ok := snap.Hourly["2024-01-01"][sid][-1]; ok {
		t.Fatalf("whole-day mark leaked into hourly mapping")
	}
}

func TestRecordValidation(t *testing.T) {
	svc, cb, _, sid := setup(t)
	ctx := context.Background()

	cases := []struct {
		sid    int64
		date   string
		status string
	}{
		{0, "2024-01-01", "present"},
		{sid, "", "present"},
		{sid, "2024-01-01", ""},
	}
	for _, tc := range cases {
		_, err := svc.Record(ctx, tc.sid, tc.date, tc.status, nil)
		var verr *apperr.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError for %+v, got %v", tc, err)
		}
	}
	if got := cb.count(bus.EventAttendanceUpdated); got != 0 {
		t.Fatalf("failed records must not broadcast, got %d", got)
	}
}

func TestRecordUnknownStudentWritesNothing(t *testing.T) {
	svc, _, db, _ := setup(t)

	_, err := svc.Record(context.Background(), 999, "2024-01-01", "present", nil)
	var nferr *apperr.NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if n := markCount(t, db, 999, "2024-01-01", -1); n != 0 {
		t.Fatalf("no row may be written for unknown student, got %d", n)
	}
}

func TestEmptySnapshot(t *testing.T) {
	svc, _, _, _ := setup(t)
	snap, err := svc.GetAll(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Daily == nil || snap.Hourly == nil {
		t.Fatalf("both mappings must be present even when empty")
	}
	if len(snap.Daily) != 0 || len(snap.Hourly) != 0 {
		t.Fatalf("expected empty mappings, got %+v", snap)
	}
}

func TestConcurrentUpsertsLeaveOneRow(t *testing.T) {
	svc, _, db, sid := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Record(ctx, sid, "2024-02-02", "present", nil)
		}(i)
	}
	wg.Wait()

	// The composite unique index decides the race: one row, and the
	// loser may have seen a store error instead of silently duplicating.
	if n := markCount(t, db, sid, "2024-02-02", -1); n != 1 {
		t.Fatalf("expected one surviving row, got %d", n)
	}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var serr *apperr.StoreError
		if !errors.As(err, &serr) {
			t.Fatalf("a losing writer must see a StoreError, got %v", err)
		}
	}
}

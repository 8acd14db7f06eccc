package entries

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"classtrack/internal/apperr"
	"classtrack/internal/bus"
	"classtrack/internal/store"
)

type captureBus struct {
	mu       sync.Mutex
	refreshs int
}

func (c *captureBus) Publish(_ context.Context, evt bus.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if evt.Name == bus.EventRefresh {
		c.refreshs++
	}
	return nil
}

func (c *captureBus) Subscribe() *bus.Subscription { return &bus.Subscription{} }

func (c *captureBus) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshs
}

func setup(t *testing.T) (*Service, *captureBus) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "entries.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	cb := &captureBus{}
	return NewService(NewRepository(db), cb), cb
}

func TestEntryLifecycle(t *testing.T) {
	svc, cb := setup(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "note one", "2024-03-01", "homework")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.Create(ctx, "note two", "2024-03-02", "field trip")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected newest-first ordering, got %+v", list)
	}

	updated, err := svc.Update(ctx, first.ID, "note one", "2024-03-01", "homework due friday")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Note != "homework due friday" {
		t.Fatalf("update not applied: %+v", updated)
	}

	if err := svc.Delete(ctx, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, err = svc.List(ctx)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(list) != 1 || list[0].ID != first.ID {
		t.Fatalf("expected only first entry to remain, got %+v", list)
	}

	// create x2, update, delete — one refresh each.
	if got := cb.count(); got != 4 {
		t.Fatalf("expected 4 refresh signals, got %d", got)
	}
}

func TestUpdateUnknownEntry(t *testing.T) {
	svc, cb := setup(t)
	_, err := svc.Update(context.Background(), 77, "x", "y", "z")
	var nferr *apperr.NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if cb.count() != 0 {
		t.Fatalf("failed update must not broadcast")
	}
}

func TestDeleteUnknownEntry(t *testing.T) {
	svc, cb := setup(t)
	err := svc.Delete(context.Background(), 78)
	var nferr *apperr.NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if cb.count() != 0 {
		t.Fatalf("failed delete must not broadcast")
	}
}

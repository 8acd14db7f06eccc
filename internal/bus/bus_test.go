package bus

import (
	"context"
	"testing"
	"time"
)

func recv(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case evt := <-sub.C:
		return evt
	case <-time.After(time.Second):
		t.Fatalf("no event within deadline")
		return Event{}
	}
}

func TestMemoryFanOut(t *testing.T) {
	m := NewMemory(4)
	a := m.Subscribe()
	b := m.Subscribe()
	defer a.Close()
	defer b.Close()

	if err := m.Publish(context.Background(), Event{Name: EventRefresh}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if evt := recv(t, a); evt.Name != EventRefresh {
		t.Fatalf("subscriber a got %q", evt.Name)
	}
	if evt := recv(t, b); evt.Name != EventRefresh {
		t.Fatalf("subscriber b got %q", evt.Name)
	}
}

func TestMemorySkipsOrigin(t *testing.T) {
	m := NewMemory(4)
	origin := m.Subscribe()
	other := m.Subscribe()
	defer origin.Close()
	defer other.Close()

	evt := Event{Name: "client:ping", Origin: origin.ID}
	if err := m.Publish(context.Background(), evt); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if got := recv(t, other); got.Name != "client:ping" {
		t.Fatalf("other subscriber got %q", got.Name)
	}
	select {
	case got := <-origin.C:
		t.Fatalf("origin should not receive its own event, got %q", got.Name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryCloseStopsDelivery(t *testing.T) {
	m := NewMemory(4)
	sub := m.Subscribe()
	sub.Close()
	sub.Close() // safe to repeat

	if err := m.Publish(context.Background(), Event{Name: EventRefresh}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	select {
	case evt := <-sub.C:
		t.Fatalf("closed subscription received %q", evt.Name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryDropsWhenSubscriberLags(t *testing.T) {
	m := NewMemory(1)
	sub := m.Subscribe()
	defer sub.Close()

	ctx := context.Background()
	if err := m.Publish(ctx, Event{Name: "client:a"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	// Buffer is full; this one is dropped instead of blocking.
	if err := m.Publish(ctx, Event{Name: "client:b"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if evt := recv(t, sub); evt.Name != "client:a" {
		t.Fatalf("expected first event, got %q", evt.Name)
	}
	select {
	case evt := <-sub.C:
		t.Fatalf("lagging subscriber should have missed %q", evt.Name)
	case <-time.After(50 * time.Millisecond):
	}
}

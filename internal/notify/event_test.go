package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEventCollapsesRepeatedSets(t *testing.T) {
	e := NewEvent()
	if !e.Set() {
		t.Fatalf("first Set should not collapse")
	}
	if e.Set() || e.Set() {
		t.Fatalf("Set on pending event should collapse")
	}
	if e.Collapsed() != 2 || e.Sets() != 3 {
		t.Fatalf("collapsed=%d sets=%d", e.Collapsed(), e.Sets())
	}

	if err := e.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if e.Pending() {
		t.Fatalf("signal still pending after Wait")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Wait = %v, want deadline exceeded", err)
	}
}

func TestEventWaitInterruptedByCancel(t *testing.T) {
	e := NewEvent()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Wait(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Wait = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after cancel")
	}
}

func TestEventClear(t *testing.T) {
	e := NewEvent()
	e.Set()
	e.Clear()
	if e.Pending() {
		t.Fatalf("Clear left signal pending")
	}
}

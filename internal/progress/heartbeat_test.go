package progress

import (
	"context"
	"testing"
	"time"
)

func TestHeartbeatRunsToCompletion(t *testing.T) {
	tr := newTracker(t, newMemStore(), WithStep(25))
	tr.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s := Heartbeat(ctx, tr, time.Millisecond)
	if !s.Completed() || s.Percent != 100 {
		t.Errorf("expected completion, got %+v", s)
	}
}

func TestHeartbeatReturnsWhenNotRunning(t *testing.T) {
	tr := newTracker(t, newMemStore())

	done := make(chan State, 1)
	go func() { done <- Heartbeat(context.Background(), tr, time.Hour) }()

	select {
	case s := <-done:
		if s.Phase != Idle {
			t.Errorf("expected idle, got %s", s.Phase)
		}
	case <-time.After(time.Second):
		t.Fatal("heartbeat did not return for an idle tracker")
	}
}

func TestHeartbeatStopsOnReset(t *testing.T) {
	tr := newTracker(t, newMemStore(), WithStep(1))
	tr.Start()

	done := make(chan State, 1)
	go func() { done <- Heartbeat(context.Background(), tr, 5*time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	tr.Reset()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("heartbeat kept running after reset")
	}

	time.Sleep(20 * time.Millisecond)
	if p := tr.State().Percent; p != 0 {
		t.Errorf("percent grew after reset: %d", p)
	}
}

func TestHeartbeatStopsOnCancel(t *testing.T) {
	tr := newTracker(t, newMemStore())
	tr.Start()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan State, 1)
	go func() { done <- Heartbeat(ctx, tr, time.Hour) }()
	cancel()

	select {
	case s := <-done:
		if s.Phase != Running {
			t.Errorf("expected still running, got %s", s.Phase)
		}
	case <-time.After(time.Second):
		t.Fatal("heartbeat ignored cancellation")
	}
}

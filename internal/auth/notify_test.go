package auth

import (
	"sync"
	"testing"
	"time"
)

func TestNotifier_DeliversToAllSubscribers(t *testing.T) {
	n := NewNotifier()

	ch1, cancel1 := n.Subscribe()
	defer cancel1()
	ch2, cancel2 := n.Subscribe()
	defer cancel2()

	n.Publish(EventSignedIn)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e != EventSignedIn {
				t.Errorf("subscriber %d: expected EventSignedIn, got %v", i, e)
			}
		default:
			t.Errorf("subscriber %d: no event delivered", i)
		}
	}
}

func TestNotifier_CancelledSubscriberReceivesNothing(t *testing.T) {
	n := NewNotifier()

	ch, cancel := n.Subscribe()
	cancel()

	// Publishing after cancel must not panic, and the channel is closed.
	n.Publish(EventSignedOut)

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after cancel")
	}
}

func TestNotifier_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	n := NewNotifier()

	_, cancel := n.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Far more events than the subscriber buffer holds.
		for i := 0; i < 100; i++ {
			n.Publish(EventSignedIn)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a subscriber that never drains")
	}
}

func TestNotifier_DoubleCancelIsSafe(t *testing.T) {
	n := NewNotifier()
	_, cancel := n.Subscribe()
	cancel()
	cancel()
}

// toggleChecker flips its answer under test control.
type toggleChecker struct {
	mu       sync.Mutex
	signedIn bool
}

func (c *toggleChecker) IsSignedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signedIn
}

func (c *toggleChecker) set(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signedIn = v
}

func TestPoller_PublishesTransitions(t *testing.T) {
	checker := &toggleChecker{}
	n := NewNotifier()
	events, cancel := n.Subscribe()
	defer cancel()

	p := NewPoller(checker, n, 5*time.Millisecond)
	p.Start()
	defer p.Stop()

	checker.set(true)
	select {
	case e := <-events:
		if e != EventSignedIn {
			t.Fatalf("expected EventSignedIn, got %v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("poller never published the sign-in transition")
	}

	checker.set(false)
	select {
	case e := <-events:
		if e != EventSignedOut {
			t.Fatalf("expected EventSignedOut, got %v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("poller never published the sign-out transition")
	}
}

func TestPoller_StableStatePublishesNothing(t *testing.T) {
	checker := &toggleChecker{}
	n := NewNotifier()
	events, cancel := n.Subscribe()
	defer cancel()

	p := NewPoller(checker, n, 5*time.Millisecond)
	p.Start()
	defer p.Stop()

	time.Sleep(50 * time.Millisecond)
	select {
	case e := <-events:
		t.Fatalf("unexpected event %v for stable state", e)
	default:
	}
}

func TestPoller_StopIsIdempotent(t *testing.T) {
	p := NewPoller(&toggleChecker{}, NewNotifier(), time.Millisecond)
	p.Start()
	p.Stop()
	p.Stop()
}

package auth

import (
	"sync"
	"time"
)

// Event is a session-state transition.
type Event int

const (
	EventSignedIn Event = iota
	EventSignedOut
)

// Notifier broadcasts session-state changes to subscribers. The callback
// handler publishes a sign-in the moment the redirect completes, so the UI
// learns about it promptly instead of discovering it on the next poll.
type Notifier struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber. The returned cancel func must be called
// to release it.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	ch := make(chan Event, 4)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber. Sends never block: a
// subscriber whose buffer is full misses the event rather than wedging the
// publisher.
func (n *Notifier) Publish(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// StatusChecker reports whether a session is held; the auth service
// implements it.
type StatusChecker interface {
	IsSignedIn() bool
}

// Poller is the fallback safety net behind the notifier: it re-checks the
// session state on a fixed interval and publishes transitions it observes.
type Poller struct {
	checker  StatusChecker
	notifier *Notifier
	interval time.Duration

	stopOnce sync.Once
	done     chan struct{}
}

// NewPoller creates a poller; it does not start ticking until Start.
func NewPoller(checker StatusChecker, notifier *Notifier, interval time.Duration) *Poller {
	return &Poller{
		checker:  checker,
		notifier: notifier,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start runs the polling loop in a goroutine until Stop is called.
func (p *Poller) Start() {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		last := p.checker.IsSignedIn()
		for {
			select {
			case <-p.done:
				return
			case <-ticker.C:
				now := p.checker.IsSignedIn()
				if now == last {
					continue
				}
				last = now
				if now {
					p.notifier.Publish(EventSignedIn)
				} else {
					p.notifier.Publish(EventSignedOut)
				}
			}
		}
	}()
}

// Stop ends the polling loop and releases the ticker. Safe to call more
// than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

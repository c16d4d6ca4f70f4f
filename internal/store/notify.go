package store

import "sync"

// Notifier is the in-process change feed for the use table. Subscribers get
// a coalescing signal channel: notifications carry no payload because they
// may be stale by the time they are observed, and consumers must re-read.
type Notifier struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[chan struct{}]struct{})}
}

// Subscribe registers a new subscriber and returns its signal channel. The
// channel has a buffer of one so publishes coalesce instead of blocking.
func (n *Notifier) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber. Unsubscribing a channel that was never
// registered (or already removed) is a no-op.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	delete(n.subs, ch)
	n.mu.Unlock()
}

// Publish signals every subscriber without blocking. A subscriber that has
// not drained its previous signal simply keeps the one pending signal.
func (n *Notifier) Publish() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

package events

import (
	"sync"

	infinity "github.com/Code-Hex/go-infinity-channel"
)

// Broker fans events out to subscribers. Each subscription is backed by an
// unbounded queue so a slow UI never stalls a process reader.
type Broker struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[*Subscription]struct{})}
}

// Subscription receives events published after it was created.
type Subscription struct {
	ch     *infinity.Channel[Event]
	broker *Broker
	once   sync.Once
}

// C returns the receive side. It is closed by Close or Broker.Close.
func (s *Subscription) C() <-chan Event {
	return s.ch.Out()
}

// Close detaches the subscription from its broker.
func (s *Subscription) Close() {
	s.broker.remove(s)
}

// Subscribe registers a new subscriber.
func (b *Broker) Subscribe() *Subscription {
	sub := &Subscription{ch: infinity.NewChannel[Event](), broker: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.ch.Close()
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish delivers ev to every current subscriber.
func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for sub := range b.subs {
		sub.ch.In() <- ev
	}
}

// Close closes every subscription. Later publishes are dropped.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.once.Do(sub.ch.Close)
		delete(b.subs, sub)
	}
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	sub.once.Do(sub.ch.Close)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package events

import "sync"

// Broker fans events out to in-process subscribers. A subscriber whose
// buffer is full misses the event.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// function unsubscribes and closes the channel.
func (b *Broker) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Emit implements Emitter.
func (b *Broker) Emit(name string, payload map[string]any, sessionID string) {
	ev := newEvent(name, payload, sessionID)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Forward re-emits every event from ch on to until ch is closed.
func Forward(ch <-chan Event, to Emitter) {
	for ev := range ch {
		to.Emit(ev.Name, ev.Payload, ev.SessionID)
	}
}

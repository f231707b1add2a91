package session

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventChange   EventKind = "change"
	EventProgress EventKind = "progress"
	EventEnd      EventKind = "end"
)

// Event is what observers receive on every broadcast.
type Event struct {
	Kind        EventKind `json:"kind"`
	SessionID   string    `json:"session_id"`
	Round       int       `json:"round"`
	Participant string    `json:"participant,omitempty"`
	At          time.Time `json:"at"`
}

const subscriberBuffer = 64

// Broadcaster fans every published value out to all current subscribers.
// Publish never blocks: a subscriber whose buffer is full misses the value.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	next   int
	closed bool

	onDrop func()
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[int]chan T)}
}

// Subscribe returns a channel receiving every value published from now on,
// and a cancel func that unsubscribes and closes it.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- v:
		default:
			if b.onDrop != nil {
				b.onDrop()
			}
		}
	}
}

// Len reports the number of current subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel; later subscribers get a closed channel.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

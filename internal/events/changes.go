package events

import (
	"sync"
	"time"
)

// ChangeKind names the slice of session state that changed.
type ChangeKind string

const (
	ChangePortfolio   ChangeKind = "portfolio"
	ChangeSelector    ChangeKind = "selector"
	ChangeMessage     ChangeKind = "message"
	ChangeTransaction ChangeKind = "transaction"
)

// Change is a state-change notification emitted after a session state slice
// was replaced. It carries no payload: consumers read the current state from
// the owning store, so a dropped notification never loses data.
type Change struct {
	Kind ChangeKind `json:"kind"`
	At   time.Time  `json:"at"`
}

// Broadcaster fans out changes to all subscribers via buffered channels.
// It keeps the API intentionally small so call sites can stay straightforward.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[chan Change]struct{}
	buffer int
}

// NewBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 64
	}
	return &Broadcaster{
		subs:   make(map[chan Change]struct{}),
		buffer: buffer,
	}
}

// Publish sends the change to all subscribers, dropping if a reader is slow.
func (b *Broadcaster) Publish(kind ChangeKind) {
	c := Change{Kind: kind, At: time.Now()}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- c:
		default:
			// drop slow consumer
		}
	}
}

// Subscribe returns a channel that receives changes until Unsubscribe is called.
func (b *Broadcaster) Subscribe() chan Change {
	ch := make(chan Change, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *Broadcaster) Unsubscribe(ch chan Change) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

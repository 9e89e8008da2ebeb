package engine

import (
	"sync"

	"github.com/seantiz/evalengine/internal/model"
)

// subscriberBufferSize is the channel buffer for each record subscriber.
// Records are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 16

// RecordBroker fans published records out to subscribers. It is safe for
// concurrent use. After Close, Subscribe returns a closed channel.
type RecordBroker struct {
	mu     sync.Mutex
	subs   map[int]chan model.Record
	nextID int
	closed bool
}

// NewRecordBroker creates a new record broker.
func NewRecordBroker() *RecordBroker {
	return &RecordBroker{
		subs: make(map[int]chan model.Record),
	}
}

// Subscribe returns a channel that receives every record published after the
// call, and an unsubscribe function.
func (b *RecordBroker) Subscribe() (<-chan model.Record, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan model.Record, subscriberBufferSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish sends rec to all subscribers, dropping it for those whose buffers
// are full.
func (b *RecordBroker) Publish(rec model.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- rec:
		default:
		}
	}
}

// Close closes all subscriber channels.
func (b *RecordBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}

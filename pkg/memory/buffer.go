package memory

import (
	"sync"

	"github.com/Protocol-Lattice/docent/pkg/models"
	"github.com/emirpasic/gods/queues/circularbuffer"
)

// Buffer is the rolling conversation window sent with every request. Once it
// holds Cap messages, each Add evicts the oldest one.
type Buffer struct {
	mu    sync.Mutex
	ring  *circularbuffer.Queue
	limit int
}

// NewBuffer creates a buffer holding at most capacity messages. Capacities
// below one are raised to one.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{ring: circularbuffer.New(capacity), limit: capacity}
}

// Add appends msg at the tail.
func (b *Buffer) Add(msg models.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ring.Full() {
		b.ring.Dequeue()
	}
	b.ring.Enqueue(msg)
}

// Messages returns the buffered messages, oldest first.
func (b *Buffer) Messages() []models.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	values := b.ring.Values()
	out := make([]models.Message, 0, len(values))
	for _, v := range values {
		out = append(out, v.(models.Message))
	}
	return out
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ring.Clear()
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ring.Size()
}

func (b *Buffer) Cap() int { return b.limit }

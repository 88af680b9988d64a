package transport

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by a closed Memory transport.
var ErrClosed = errors.New("transport closed")

// Message is a message addressed to a queue.
type Message struct {
	Queue string
	Body  []byte
}

// HandlerFunc consumes a message put onto a handled queue and returns the
// messages it produces.
type HandlerFunc func(msg []byte) []Message

// Memory is an in-process transport. Queues are created on first use.
//
// A handler registered for a queue stands in for the component under test:
// messages put onto that queue are passed to the handler instead of being
// stored, and its output is enqueued.
type Memory struct {
	mu       sync.Mutex
	queues   map[string]*fifo
	handlers map[string]HandlerFunc
	closed   bool
}

// NewMemory creates an empty in-memory transport.
func NewMemory() *Memory {
	return &Memory{
		queues:   make(map[string]*fifo),
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers fn for messages put onto queue.
func (m *Memory) Handle(queue string, fn HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[queue] = fn
}

// Put implements Transport.
func (m *Memory) Put(ctx context.Context, queue string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	fn := m.handlers[queue]
	if fn == nil {
		m.queue(queue).push(clone(msg))
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	// Handlers run unlocked so they may inspect the transport.
	out := fn(clone(msg))

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range out {
		m.queue(o.Queue).push(clone(o.Body))
	}
	return nil
}

// Fetch implements Transport.
func (m *Memory) Fetch(ctx context.Context, queue string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	msg, ok := m.queue(queue).pop()
	return msg, ok, nil
}

// Depth returns the number of messages waiting on queue.
func (m *Memory) Depth(queue string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue(queue).items)
}

// Close implements Transport.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// queue returns the named queue, creating it. Callers hold m.mu.
func (m *Memory) queue(name string) *fifo {
	q, ok := m.queues[name]
	if !ok {
		q = &fifo{items: make([][]byte, 0, 8)}
		m.queues[name] = q
	}
	return q
}

// fifo is an unbounded first-in first-out message list.
type fifo struct {
	items [][]byte
}

func (q *fifo) push(msg []byte) {
	q.items = append(q.items, msg)
}

func (q *fifo) pop() ([]byte, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	msg := q.items[0]
	// Release the slot so the backing array does not pin the payload.
	q.items[0] = nil
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return msg, true
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return append([]byte(nil), b...)
}

package engine

import (
	"sync"
)

// mailbox is an unbounded multi-producer single-consumer FIFO. The consumer
// waits on the signal channel and then drains with pop until empty.
type mailbox struct {
	mu     sync.Mutex
	items  []interface{}
	closed bool

	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{
		signal: make(chan struct{}, 1),
	}
}

func (m *mailbox) push(item interface{}) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrEngineStopped
	}
	m.items = append(m.items, item)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
	return nil
}

func (m *mailbox) pop() (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		return nil, false
	}

	item := m.items[0]
	m.items = m.items[1:]
	return item, true
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.items)
}

// close rejects further pushes and hands back whatever is still queued so the
// caller can fail those completion handles.
func (m *mailbox) close() []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	remaining := m.items
	m.items = nil
	return remaining
}

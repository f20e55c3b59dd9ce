// internal/queue/memory.go
package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryMessage is one row of a MemoryQueue's backing store.
type memoryMessage struct {
	id         string
	payload    []byte
	enqueuedAt time.Time
	visibleAt  time.Time
	readCount  int
	archived   bool
}

// MemoryQueue is the in-memory duck-typed substitute for Queue, used
// by the scheduler and worker test suites. It reproduces lease
// semantics (invisible-until-vt, idempotent archive) without a broker,
// adapted from the teacher's InMemoryQueue — which was a pub/sub
// fan-out with retry — into the lease/archive shape this spec needs.
type MemoryQueue struct {
	mu     sync.Mutex
	queues map[string]map[string]*memoryMessage // queue name -> msg id -> message
	order  map[string][]string                  // queue name -> insertion order of msg ids
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		queues: make(map[string]map[string]*memoryMessage),
		order:  make(map[string][]string),
	}
}

// Create is idempotent: creating an existing queue is a no-op.
func (q *MemoryQueue) Create(name string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.queues[name]; !ok {
		q.queues[name] = make(map[string]*memoryMessage)
		q.order[name] = nil
	}
	return nil
}

// Drop is idempotent: dropping a non-existent queue is a no-op.
func (q *MemoryQueue) Drop(name string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.queues, name)
	delete(q.order, name)
	return nil
}

// Send appends one entry and returns a stable id. The queue is
// created implicitly if it doesn't already exist, matching a broker
// where publishing to a declared queue never fails on name alone.
func (q *MemoryQueue) Send(name string, payload []byte) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.queues[name]; !ok {
		q.queues[name] = make(map[string]*memoryMessage)
	}

	id := uuid.NewString()
	q.queues[name][id] = &memoryMessage{
		id:         id,
		payload:    payload,
		enqueuedAt: time.Now().UTC(),
	}
	q.order[name] = append(q.order[name], id)
	return id, nil
}

// Read leases up to qty visible entries for vt. An entry is visible
// if it has never been read, or its previous lease has expired.
func (q *MemoryQueue) Read(name string, vt time.Duration, qty int) ([]Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	msgs, ok := q.queues[name]
	if !ok {
		return nil, nil
	}

	now := time.Now().UTC()
	var leased []Entry
	for _, id := range q.order[name] {
		if len(leased) >= qty {
			break
		}
		m, ok := msgs[id]
		if !ok || m.archived {
			continue
		}
		if !m.visibleAt.IsZero() && m.visibleAt.After(now) {
			continue // still leased by another reader
		}
		m.readCount++
		m.visibleAt = now.Add(vt)
		leased = append(leased, Entry{
			MsgID:      m.id,
			ReadCount:  m.readCount,
			EnqueuedAt: m.enqueuedAt,
			VisibleAt:  m.visibleAt,
			Payload:    append([]byte(nil), m.payload...),
		})
	}
	return leased, nil
}

// Archive permanently removes an entry. Archiving an already-archived
// or unknown id is a no-op success.
func (q *MemoryQueue) Archive(name string, msgID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	msgs, ok := q.queues[name]
	if !ok {
		return nil
	}
	delete(msgs, msgID)
	return nil
}

var _ Queue = (*MemoryQueue)(nil)

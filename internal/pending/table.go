// Package pending tracks optimistic mutations awaiting server confirmation.
// Every optimistic call site (message send, mark read, mark all read) opens
// an operation keyed by a client-generated correlation id and completes it
// exactly once, so rollback logic lives in one place.
package pending

import (
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Op is one in-flight optimistic mutation.
type Op struct {
	ID        uuid.UUID
	Kind      string // "send", "mark-read", "mark-all-read"
	Payload   any    // rollback material, e.g. the draft text or prior flags
	StartedAt time.Time
}

// Table holds open operations. Resolve and Reject complete an operation at
// most once; completing an unknown or already-completed id reports ok=false
// and is otherwise harmless, which keeps duplicate confirmations idempotent.
type Table struct {
	mu  sync.Mutex
	ops map[uuid.UUID]Op
}

// NewTable constructs an empty Table.
func NewTable() *Table {
	return &Table{ops: map[uuid.UUID]Op{}}
}

// Begin opens an operation and issues its correlation id.
func (t *Table) Begin(kind string, payload any) Op {
	id, _ := uuid.NewV4()
	op := Op{ID: id, Kind: kind, Payload: payload, StartedAt: time.Now()}
	t.mu.Lock()
	t.ops[id] = op
	t.mu.Unlock()
	return op
}

// Resolve completes an operation successfully.
func (t *Table) Resolve(id uuid.UUID) (Op, bool) {
	return t.take(id)
}

// Reject completes an operation as failed; the caller rolls back using the
// returned payload.
func (t *Table) Reject(id uuid.UUID) (Op, bool) {
	return t.take(id)
}

func (t *Table) take(id uuid.UUID) (Op, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	op, ok := t.ops[id]
	if ok {
		delete(t.ops, id)
	}
	return op, ok
}

// Len reports the number of open operations.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ops)
}

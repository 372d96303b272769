package testutil

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SequenceTraceIDs generates deterministic trace IDs for tests.
//
// The nth call returns a name-based UUID derived from n, so two generators
// produce the same sequence. The first call to Generate derives from 1.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceTraceIDs struct {
	mu  sync.Mutex
	seq int64
}

// NewSequenceTraceIDs creates a generator starting at 0.
func NewSequenceTraceIDs() *SequenceTraceIDs {
	return &SequenceTraceIDs{}
}

// Generate returns the next trace ID.
func (g *SequenceTraceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("sqlbc-test-%d", g.seq))).String()
}

// Reset restarts the sequence. After Reset, Generate repeats its first ID.
func (g *SequenceTraceIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// FixedTraceID returns the same trace ID every time.
//
// Thread-safety: FixedTraceID is stateless and safe for concurrent use.
type FixedTraceID struct {
	id string
}

// NewFixedTraceID creates a fixed generator. An empty id becomes
// "test-trace-default".
func NewFixedTraceID(id string) *FixedTraceID {
	if id == "" {
		id = "test-trace-default"
	}
	return &FixedTraceID{id: id}
}

// Generate returns the fixed trace ID.
func (g *FixedTraceID) Generate() string {
	return g.id
}

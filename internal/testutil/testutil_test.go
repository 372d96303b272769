package testutil

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceTraceIDs_Deterministic(t *testing.T) {
	a := NewSequenceTraceIDs()
	b := NewSequenceTraceIDs()

	first := a.Generate()
	assert.Equal(t, first, b.Generate())
	assert.NotEqual(t, first, a.Generate())

	_, err := uuid.Parse(first)
	require.NoError(t, err)

	a.Reset()
	assert.Equal(t, first, a.Generate())
}

func TestSequenceTraceIDs_ThreadSafe(t *testing.T) {
	g := NewSequenceTraceIDs()
	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := g.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 500)
}

func TestFixedTraceID(t *testing.T) {
	assert.Equal(t, "abc", NewFixedTraceID("abc").Generate())
	assert.Equal(t, "test-trace-default", NewFixedTraceID("").Generate())
}

func TestCatalogFixture(t *testing.T) {
	m := Catalog(t)
	assert.Equal(t, int64(FixtureCookie), m.SchemaCookie())
	assert.Len(t, m.Tables(), 5)

	log, ok := m.LookupTable("aux", "log")
	require.True(t, ok)
	assert.Equal(t, 2, m.Database(log.Schema))

	// Each call is independent.
	extra := m.Tables()[0]
	extra.Name = "t9"
	require.NoError(t, m.AddTable(extra))
	assert.Len(t, Catalog(t).Tables(), 5)
}

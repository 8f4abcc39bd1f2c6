package snowflake

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextMonotonic(t *testing.T) {
	g, err := NewGenerator(1, 1)
	require.NoError(t, err)

	id1 := g.Next()
	id2 := g.Next()
	require.Greater(t, id2, id1)
}

func TestNextUniqueConcurrent(t *testing.T) {
	g, err := NewGenerator(2, 3)
	require.NoError(t, err)

	const goroutines = 10
	const perGoroutine = 200

	var mu sync.Mutex
	seen := make(map[uint64]struct{}, goroutines*perGoroutine)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id := g.Next()
				mu.Lock()
				_, dup := seen[id]
				seen[id] = struct{}{}
				mu.Unlock()
				require.False(t, dup, "id %d generated twice", id)
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, goroutines*perGoroutine)
}

func TestNewGeneratorValidatesRange(t *testing.T) {
	_, err := NewGenerator(-1, 0)
	require.Error(t, err)

	_, err = NewGenerator(0, 999)
	require.Error(t, err)
}

package snowflake

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratorOrdered(t *testing.T) {
	t.Parallel()

	gen := New(7)
	require.Equal(t, 7, gen.MachineID())

	last := gen.Next()
	for i := 0; i < 10000; i++ {
		id := gen.Next()
		require.Greater(t, id, last)
		last = id
	}
}

func TestGeneratorUnique(t *testing.T) {
	t.Parallel()

	gen := New(1)

	var (
		mu   sync.Mutex
		seen = map[int64]struct{}{}
		wg   sync.WaitGroup
	)

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				id := gen.Next()
				mu.Lock()
				_, dup := seen[id]
				seen[id] = struct{}{}
				mu.Unlock()
				require.False(t, dup)
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, 8*1000)
}

func TestGeneratorMachineIDMasked(t *testing.T) {
	t.Parallel()

	gen := New(machineMax + 3)
	require.Equal(t, 3, gen.MachineID())
}

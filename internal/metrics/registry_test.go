package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounterAddAndCollectResets(t *testing.T) {
	c := NewCounter(4)
	c.Add(3)
	c.Add(4)
	c.Inc()
	require.Equal(t, int64(8), c.Value())

	collected := c.Collect()
	require.Equal(t, int64(8), collected)
	require.Equal(t, int64(0), c.Value())
}

func TestCounterConcurrentAdd(t *testing.T) {
	c := NewCounter(8)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(5000), c.Value())
}

func TestRegistrySnapshotResetsAllCounters(t *testing.T) {
	r := NewRegistry()
	r.Counter("read").Add(10)
	r.Counter("parsed").Add(7)

	snap := r.Snapshot()
	require.Equal(t, int64(10), snap["read"])
	require.Equal(t, int64(7), snap["parsed"])

	snap2 := r.Snapshot()
	require.Equal(t, int64(0), snap2["read"])
	require.Equal(t, int64(0), snap2["parsed"])
}

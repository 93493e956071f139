package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestOrderingWithinQueueKey is property 3 ("Ordering").
func TestOrderingWithinQueueKey(t *testing.T) {
	q := New(10)
	require.True(t, q.TryPush(&Item{QueueKey: "k1", Payload: []byte("a")}))
	require.True(t, q.TryPush(&Item{QueueKey: "k2", Payload: []byte("b")}))
	require.True(t, q.TryPush(&Item{QueueKey: "k1", Payload: []byte("c")}))

	first, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, "a", string(first.Payload))

	second, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, "b", string(second.Payload))

	third, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, "c", string(third.Payload))
}

// TestBackpressureBound is property 5 ("Back-pressure bound").
func TestBackpressureBound(t *testing.T) {
	q := New(2)
	require.True(t, q.TryPush(&Item{QueueKey: "k1"}))
	require.True(t, q.TryPush(&Item{QueueKey: "k1"}))
	require.False(t, q.TryPush(&Item{QueueKey: "k1"}))
	require.Equal(t, 2, q.Len())

	_, _ = q.Pop()
	require.True(t, q.TryPush(&Item{QueueKey: "k1"}))
}

func TestPushFrontReinsertsAtHead(t *testing.T) {
	q := New(10)
	require.True(t, q.TryPush(&Item{QueueKey: "k1", Payload: []byte("a")}))
	q.PushFront(&Item{QueueKey: "k1", Payload: []byte("retry")})

	first, _ := q.Pop()
	require.Equal(t, "retry", string(first.Payload))
}

func TestDrainKeyRemovesOnlyMatchingItems(t *testing.T) {
	q := New(10)
	require.True(t, q.TryPush(&Item{QueueKey: "pipelineA", Payload: []byte("1")}))
	require.True(t, q.TryPush(&Item{QueueKey: "pipelineB", Payload: []byte("2")}))
	require.True(t, q.TryPush(&Item{QueueKey: "pipelineA", Payload: []byte("3")}))

	drained := q.DrainKey("pipelineA")
	require.Len(t, drained, 2)
	require.Equal(t, 1, q.Len())

	remaining, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, "2", string(remaining.Payload))
}

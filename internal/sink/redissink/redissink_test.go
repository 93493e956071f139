package redissink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/esteban-alvarez/logtrail-agent/internal/sink"
)

type fakeEvaler struct {
	calls   int
	applied map[string]bool
	failNext bool
}

func (f *fakeEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	f.calls++
	if f.failNext {
		return nil, errors.New("boom")
	}
	marker := keys[1]
	if f.applied == nil {
		f.applied = map[string]bool{}
	}
	if f.applied[marker] {
		return int64(0), nil
	}
	f.applied[marker] = true
	return int64(1), nil
}

func TestSendAppendsAndClassifiesSuccess(t *testing.T) {
	ev := &fakeEvaler{}
	s := New("r1", ev, time.Hour)
	err := s.Send(context.Background(), sink.Batch{Payload: []byte("x"), Job: "job1", QueueKey: "k1", SourceOffset: 10})
	require.NoError(t, err)
	require.Equal(t, sink.DispositionSuccess, s.Classify(err))
	require.Equal(t, 1, ev.calls)
}

func TestSendClassifiesFailureAsRetryable(t *testing.T) {
	ev := &fakeEvaler{failNext: true}
	s := New("r1", ev, time.Hour)
	err := s.Send(context.Background(), sink.Batch{Payload: []byte("x"), Job: "job1", QueueKey: "k1"})
	require.Error(t, err)
	require.Equal(t, sink.DispositionRetryable, s.Classify(err))
}

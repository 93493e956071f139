package httpsink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esteban-alvarez/logtrail-agent/internal/sink"
)

func TestSendSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(Config{Name: "s1", Endpoint: srv.URL})
	err := s.Send(context.Background(), sink.Batch{Payload: []byte("hello")})
	require.NoError(t, err)
	require.Equal(t, sink.DispositionSuccess, s.Classify(err))
}

func TestSendRetryableOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := New(Config{Name: "s1", Endpoint: srv.URL})
	err := s.Send(context.Background(), sink.Batch{Payload: []byte("hello")})
	require.Error(t, err)
	require.Equal(t, sink.DispositionRetryable, s.Classify(err))
}

func TestSendPermanentOn4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := New(Config{Name: "s1", Endpoint: srv.URL})
	err := s.Send(context.Background(), sink.Batch{Payload: []byte("hello")})
	require.Error(t, err)
	require.Equal(t, sink.DispositionPermanent, s.Classify(err))
}

package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestHealthzReportsUnhealthy(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(":0", reg, func() error { return errors.New("no checkpoint loaded yet") })

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.http.Handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealthzReportsHealthy(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(":0", reg, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.http.Handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	_ = s.Shutdown(context.Background())
}

func TestPipelineExporterFlushesIntoVec(t *testing.T) {
	reg := prometheus.NewRegistry()
	vec := NewCounterVec()
	reg.MustRegister(vec)

	r := NewRegistry()
	r.Counter("sent").Add(3)

	exp := NewPipelineExporter(r, vec, "access-logs", 0)
	exp.flush()

	got, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, got)
}

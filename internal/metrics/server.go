// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineExporter periodically drains a Registry into a Prometheus
// CounterVec labeled by pipeline and counter name, since Registry's own
// reset-on-snapshot protocol isn't directly expressible as a Prometheus
// collector (Prometheus counters must never decrease).
type PipelineExporter struct {
	registry *Registry
	vec      *prometheus.CounterVec
	interval time.Duration
	pipeline string

	stop chan struct{}
	done chan struct{}
}

// NewPipelineExporter returns an exporter that adds each Collect()'d delta
// to vec under label pipeline. vec is created and registered once per
// process by the caller and shared across pipelines by the "pipeline"
// label; this constructor does not register it.
func NewPipelineExporter(registry *Registry, vec *prometheus.CounterVec, pipeline string, interval time.Duration) *PipelineExporter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &PipelineExporter{
		registry: registry,
		vec:      vec,
		interval: interval,
		pipeline: pipeline,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// NewCounterVec builds the shared CounterVec for pipeline counters,
// labeled by pipeline and counter name.
func NewCounterVec() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logtrail_agent_pipeline_events_total",
		Help: "Events processed per pipeline, by counter name (read, parsed, dropped, sent, ...)",
	}, []string{"pipeline", "counter"})
}

// Start launches the periodic drain loop.
func (e *PipelineExporter) Start() {
	go e.run()
}

// Stop halts the drain loop after one final flush.
func (e *PipelineExporter) Stop() {
	close(e.stop)
	<-e.done
}

func (e *PipelineExporter) run() {
	defer close(e.done)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.flush()
		case <-e.stop:
			e.flush()
			return
		}
	}
}

func (e *PipelineExporter) flush() {
	for name, value := range e.registry.Snapshot() {
		if value == 0 {
			continue
		}
		e.vec.WithLabelValues(e.pipeline, name).Add(float64(value))
	}
}

// HealthChecker reports whether the agent is currently healthy, for the
// /healthz endpoint.
type HealthChecker func() error

// Server exposes /metrics (Prometheus text format) and /healthz.
type Server struct {
	http   *http.Server
	health HealthChecker
}

// NewServer builds a Server bound to addr. A nil health always reports
// healthy.
func NewServer(addr string, registerer prometheus.Gatherer, health HealthChecker) *Server {
	if health == nil {
		health = func() error { return nil }
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))
	s := &Server{health: health}
	mux.HandleFunc("/healthz", s.handleHealthz)
	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.health(); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ListenAndServe starts serving; it blocks until Shutdown is called or an
// error other than http.ErrServerClosed occurs.
func (s *Server) ListenAndServe() error {
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

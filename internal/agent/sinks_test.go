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

package agent

import (
	"testing"

	"github.com/esteban-alvarez/logtrail-agent/internal/config"
)

func TestBuildSinkHTTP(t *testing.T) {
	s, err := buildSink(config.Flusher{Name: "http-out", Kind: "http", Endpoint: "http://example.com/ingest"})
	if err != nil {
		t.Fatalf("buildSink: %v", err)
	}
	if s.Name() != "http-out" {
		t.Fatalf("unexpected sink name: %q", s.Name())
	}
}

func TestBuildSinkHTTPRequiresEndpoint(t *testing.T) {
	if _, err := buildSink(config.Flusher{Name: "http-out", Kind: "http"}); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}

func TestBuildSinkRedis(t *testing.T) {
	s, err := buildSink(config.Flusher{Name: "redis-out", Kind: "redis", Endpoint: "localhost:6379"})
	if err != nil {
		t.Fatalf("buildSink: %v", err)
	}
	if s.Name() != "redis-out" {
		t.Fatalf("unexpected sink name: %q", s.Name())
	}
}

func TestBuildSinkKafkaRejected(t *testing.T) {
	if _, err := buildSink(config.Flusher{Name: "kafka-out", Kind: "kafka"}); err == nil {
		t.Fatal("expected kafka sinks to be rejected from config-driven construction")
	}
}

func TestBuildSinkUnknownKind(t *testing.T) {
	if _, err := buildSink(config.Flusher{Name: "x", Kind: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown flusher kind")
	}
}

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
	"fmt"
	"time"

	"github.com/esteban-alvarez/logtrail-agent/internal/config"
	"github.com/esteban-alvarez/logtrail-agent/internal/sink"
	"github.com/esteban-alvarez/logtrail-agent/internal/sink/httpsink"
	"github.com/esteban-alvarez/logtrail-agent/internal/sink/redissink"
)

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return fallback
}

// buildSink constructs the concrete sink.Sink for one flusher config.
// Kafka flushers are rejected here because wiring a concrete broker
// client is a deployment-time decision (see internal/sink/kafkasink's
// doc comment): callers needing Kafka construct a kafkasink.Sink
// themselves with their chosen Producer and register it directly instead
// of going through this factory.
func buildSink(f config.Flusher) (sink.Sink, error) {
	switch f.Kind {
	case "http":
		if f.Endpoint == "" {
			return nil, fmt.Errorf("agent: flusher %q: http requires endpoint", f.Name)
		}
		return httpsink.New(httpsink.Config{Name: f.Name, Endpoint: f.Endpoint}), nil
	case "redis":
		if f.Endpoint == "" {
			return nil, fmt.Errorf("agent: flusher %q: redis requires endpoint (address)", f.Name)
		}
		return redissink.NewWithAddr(f.Name, f.Endpoint, 24*time.Hour), nil
	case "kafka":
		return nil, fmt.Errorf("agent: flusher %q: kafka sinks must be registered directly with a Producer, not via config", f.Name)
	default:
		return nil, fmt.Errorf("agent: flusher %q: unknown kind %q", f.Name, f.Kind)
	}
}

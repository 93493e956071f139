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

package kafkasink

import (
	"context"
	"time"

	"github.com/esteban-alvarez/logtrail-agent/internal/sink"
)

// Producer is a minimal abstraction over a Kafka client.
//
// Requirements:
//   - Idempotent producer ON (enable.idempotence=true)
//   - Use the batch's queue key as the message key so broker dedup and
//     per-key ordering are preserved
//   - Acks=all is recommended
//
// Note: we intentionally avoid importing a specific Kafka library here,
// for the same reason the rate limiter's persistence layer does: every
// concrete Go Kafka client pulls in a large C or pure-Go dependency tree
// that a generic sink shouldn't force on callers who don't use Kafka.
type Producer interface {
	Produce(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error
}

// Sink publishes batches as Kafka messages through Producer.
type Sink struct {
	name           string
	producer       Producer
	topic          string
	defaultTimeout time.Duration
}

func New(name string, producer Producer, topic string) *Sink {
	return &Sink{name: name, producer: producer, topic: topic, defaultTimeout: 10 * time.Second}
}

func (s *Sink) Name() string { return s.name }

func (s *Sink) Send(ctx context.Context, b sink.Batch) error {
	if _, ok := ctx.Deadline(); !ok && s.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.defaultTimeout)
		defer cancel()
	}
	headers := map[string]string{"job": b.Job, "source_path": b.SourcePath}
	if err := s.producer.Produce(ctx, s.topic, []byte(b.QueueKey), b.Payload, headers); err != nil {
		return &sendError{retryable: true, err: err}
	}
	return nil
}

func (s *Sink) Classify(err error) sink.Disposition {
	if err == nil {
		return sink.DispositionSuccess
	}
	if se, ok := err.(*sendError); ok && se.retryable {
		return sink.DispositionRetryable
	}
	return sink.DispositionRetryable
}

type sendError struct {
	retryable bool
	err       error
}

func (e *sendError) Error() string { return e.err.Error() }
func (e *sendError) Unwrap() error { return e.err }

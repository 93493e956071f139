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

// Package redissink appends serialized batches to a Redis stream,
// idempotently: a SETNX-guarded marker keyed by the batch's queue key and
// source offset ensures a retried send after a dropped acknowledgement
// does not duplicate the append.
package redissink

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/esteban-alvarez/logtrail-agent/internal/sink"
)

// appendScript mirrors the teacher's idempotent-commit Lua shape (SETNX
// marker, then apply, then EXPIRE the marker) but appends to a stream
// instead of decrementing a scalar counter.
const appendScript = `
local streamKey = KEYS[1]
local markerKey = KEYS[2]
local payload = ARGV[1]
local ttlSeconds = tonumber(ARGV[2])
local set = redis.call('SETNX', markerKey, 1)
if set == 1 then
  redis.call('XADD', streamKey, '*', 'payload', payload)
  if ttlSeconds and ttlSeconds > 0 then
    redis.call('EXPIRE', markerKey, ttlSeconds)
  end
  return 1
else
  return 0
end
`

// Evaler abstracts the minimal surface needed from a Redis client,
// matching the teacher's RedisEvaler seam so a test double can stand in
// for a real connection.
type Evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// Sink appends batches to a Redis stream.
type Sink struct {
	name      string
	client    Evaler
	markerTTL time.Duration
}

func New(name string, client Evaler, markerTTL time.Duration) *Sink {
	if markerTTL <= 0 {
		markerTTL = 24 * time.Hour
	}
	return &Sink{name: name, client: client, markerTTL: markerTTL}
}

// NewWithAddr constructs a Sink backed by a real github.com/redis/go-redis/v9
// client at addr.
func NewWithAddr(name, addr string, markerTTL time.Duration) *Sink {
	return New(name, redis.NewClient(&redis.Options{Addr: addr}), markerTTL)
}

func (s *Sink) Name() string { return s.name }

func streamKey(job string) string  { return fmt.Sprintf("logtrail:stream:%s", job) }
func markerKey(b sink.Batch) string {
	return fmt.Sprintf("logtrail:marker:%s:%s", b.QueueKey, strconv.FormatInt(b.SourceOffset, 10))
}

func (s *Sink) Send(ctx context.Context, b sink.Batch) error {
	keys := []string{streamKey(b.Job), markerKey(b)}
	args := []interface{}{string(b.Payload), int(s.markerTTL.Seconds())}
	_, err := s.client.Eval(ctx, appendScript, keys, args...)
	if err != nil {
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

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

// Package httpsink is a generic HTTP line-protocol sink: one POST per
// batch, with the §6 default 15s deadline and retryable-5xx
// classification.
package httpsink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/esteban-alvarez/logtrail-agent/internal/sink"
)

const defaultDeadline = 15 * time.Second

// Sink POSTs each batch's payload to a fixed endpoint.
type Sink struct {
	name     string
	endpoint string
	client   *http.Client
	deadline time.Duration
	headers  map[string]string
}

// Config configures a Sink.
type Config struct {
	Name     string
	Endpoint string
	Client   *http.Client
	Deadline time.Duration
	Headers  map[string]string
}

func New(cfg Config) *Sink {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	deadline := cfg.Deadline
	if deadline <= 0 {
		deadline = defaultDeadline
	}
	return &Sink{name: cfg.Name, endpoint: cfg.Endpoint, client: client, deadline: deadline, headers: cfg.Headers}
}

func (s *Sink) Name() string { return s.name }

func (s *Sink) Send(ctx context.Context, b sink.Batch) error {
	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(b.Payload))
	if err != nil {
		return err
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &sendError{retryable: true, err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return &sendError{retryable: true, err: fmt.Errorf("httpsink: retryable status %d", resp.StatusCode)}
	default:
		return &sendError{retryable: false, err: fmt.Errorf("httpsink: permanent status %d", resp.StatusCode)}
	}
}

func (s *Sink) Classify(err error) sink.Disposition {
	if err == nil {
		return sink.DispositionSuccess
	}
	if se, ok := err.(*sendError); ok {
		if se.retryable {
			return sink.DispositionRetryable
		}
		return sink.DispositionPermanent
	}
	// Unrecognized errors (context deadline, connection refused, DNS) are
	// treated as retryable per spec.md §4.11's "timeout, 5xx, connection
	// refused" list.
	return sink.DispositionRetryable
}

type sendError struct {
	retryable bool
	err       error
}

func (e *sendError) Error() string { return e.err.Error() }
func (e *sendError) Unwrap() error { return e.err }

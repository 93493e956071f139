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

// Package limiter caps per-sink in-flight sends and adapts to observed
// failure rates via additive-increase/multiplicative-decrease (spec.md
// §4.10).
package limiter

import (
	"sync"
	"time"
)

const (
	defaultMinRetryInterval        = 30 * time.Second
	defaultMaxRetryInterval        = 3600 * time.Second
	defaultConcurrencyDownRatio    = 0.5
	defaultRetryIntervalUpRatio    = 1.5
)

// Config configures a Limiter.
type Config struct {
	MaxAllowed           int
	MinRetryInterval     time.Duration
	MaxRetryInterval     time.Duration
	ConcurrencyDownRatio float64
	RetryIntervalUpRatio float64
}

// Limiter is the per-sink concurrency-limit state of spec.md §3.
type Limiter struct {
	mu sync.Mutex

	maxAllowed     int
	currentAllowed int
	inFlight       int
	retryInterval  time.Duration
	lastAdjustment time.Time

	minRetryInterval     time.Duration
	maxRetryInterval     time.Duration
	concurrencyDownRatio float64
	retryIntervalUpRatio float64

	now func() time.Time
}

// New constructs a Limiter starting at full permitted concurrency.
func New(cfg Config) *Limiter {
	min := cfg.MinRetryInterval
	if min <= 0 {
		min = defaultMinRetryInterval
	}
	maxI := cfg.MaxRetryInterval
	if maxI <= 0 {
		maxI = defaultMaxRetryInterval
	}
	down := cfg.ConcurrencyDownRatio
	if down <= 0 {
		down = defaultConcurrencyDownRatio
	}
	up := cfg.RetryIntervalUpRatio
	if up <= 0 {
		up = defaultRetryIntervalUpRatio
	}
	max := cfg.MaxAllowed
	if max <= 0 {
		max = 1
	}
	return &Limiter{
		maxAllowed:           max,
		currentAllowed:       max,
		retryInterval:        min,
		minRetryInterval:     min,
		maxRetryInterval:     maxI,
		concurrencyDownRatio: down,
		retryIntervalUpRatio: up,
		now:                  time.Now,
	}
}

// IsValidToPop reports whether a new send may start right now: there is
// spare concurrency headroom and, if a failure backed the limiter off,
// the resulting retry interval has elapsed.
func (l *Limiter) IsValidToPop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight < l.currentAllowed && l.gateOpenLocked()
}

func (l *Limiter) gateOpenLocked() bool {
	if l.lastAdjustment.IsZero() {
		return true
	}
	return !l.now().Before(l.lastAdjustment.Add(l.retryInterval))
}

// Acquire attempts to reserve one in-flight slot, returning false if the
// limiter currently denies new sends.
func (l *Limiter) Acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight >= l.currentAllowed || !l.gateOpenLocked() {
		return false
	}
	l.inFlight++
	return true
}

// Release frees one in-flight slot without adjusting the AIMD state
// (used when a permit was acquired but the send was abandoned, e.g. on
// shutdown).
func (l *Limiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight > 0 {
		l.inFlight--
	}
}

// OnSuccess releases the in-flight slot and applies the additive-increase
// half of AIMD.
func (l *Limiter) OnSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight > 0 {
		l.inFlight--
	}
	l.retryInterval = l.minRetryInterval
	if l.currentAllowed < l.maxAllowed {
		l.currentAllowed++
	}
}

// OnFail releases the in-flight slot and applies the multiplicative-
// decrease half of AIMD.
func (l *Limiter) OnFail() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight > 0 {
		l.inFlight--
	}
	l.currentAllowed = int(float64(l.currentAllowed) * l.concurrencyDownRatio)
	if l.currentAllowed < 1 {
		l.currentAllowed = 1
	}
	next := time.Duration(float64(l.retryInterval) * l.retryIntervalUpRatio)
	if next > l.maxRetryInterval {
		next = l.maxRetryInterval
	}
	l.retryInterval = next
	l.lastAdjustment = l.now()
}

// CurrentAllowed returns the current permitted concurrency, for tests and
// metrics export.
func (l *Limiter) CurrentAllowed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentAllowed
}

// RetryInterval returns the current retry interval, for tests and
// metrics export.
func (l *Limiter) RetryInterval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.retryInterval
}

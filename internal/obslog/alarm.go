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

package obslog

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Category classifies an operational alarm, matching the error kinds
// enumerated in the error-handling design: transient I/O, parse miss,
// configuration, resource exhaustion, checkpoint corruption, sink
// permanent failure.
type Category string

const (
	CategoryIO         Category = "io"
	CategoryParse      Category = "parse"
	CategoryConfig     Category = "config"
	CategoryResource   Category = "resource"
	CategoryCheckpoint Category = "checkpoint"
	CategorySink       Category = "sink"
)

// Alarm is the concrete payload behind "raise an operational alarm",
// referenced throughout the component design without a payload shape.
type Alarm struct {
	Category   Category
	Pipeline   string
	Key        string
	Message    string
	FirstBytes []byte
	Timestamp  time.Time
}

// Observer receives every alarm, fired or suppressed, so that counters
// (internal/metrics) stay accurate even when the log line itself is
// rate-limited.
type Observer interface {
	OnAlarm(a Alarm, suppressed bool)
}

// AlarmChannel rate-limits alarms per (category, pipeline, key) tuple,
// emitting at most one log line per Window for a given tuple, per the
// error-handling design's default of one alarm per 30s per key.
type AlarmChannel struct {
	logger   *zap.Logger
	window   time.Duration
	mu       sync.Mutex
	lastFire map[string]time.Time
	observer Observer
}

// NewAlarmChannel constructs a channel logging through logger, suppressing
// repeats of the same (category, pipeline, key) within window. A zero
// window disables suppression. observer may be nil.
func NewAlarmChannel(logger *zap.Logger, window time.Duration, observer Observer) *AlarmChannel {
	return &AlarmChannel{
		logger:   logger,
		window:   window,
		lastFire: make(map[string]time.Time),
		observer: observer,
	}
}

// Raise emits (or suppresses, per rate limit) an alarm.
func (c *AlarmChannel) Raise(a Alarm) {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	suppressed := c.shouldSuppress(a)
	if c.observer != nil {
		c.observer.OnAlarm(a, suppressed)
	}
	if suppressed {
		return
	}
	fields := []zap.Field{
		zap.String("category", string(a.Category)),
		zap.String("pipeline", a.Pipeline),
		zap.String("key", a.Key),
	}
	if len(a.FirstBytes) > 0 {
		n := len(a.FirstBytes)
		if n > 1024 {
			n = 1024
		}
		fields = append(fields, zap.ByteString("sample", a.FirstBytes[:n]))
	}
	c.logger.Warn(a.Message, fields...)
}

func (c *AlarmChannel) shouldSuppress(a Alarm) bool {
	if c.window <= 0 {
		return false
	}
	key := string(a.Category) + "|" + a.Pipeline + "|" + a.Key
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.lastFire[key]
	if ok && a.Timestamp.Sub(last) < c.window {
		return true
	}
	c.lastFire[key] = a.Timestamp
	return false
}

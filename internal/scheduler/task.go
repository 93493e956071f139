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

// Package scheduler drives periodic tasks (readers ticking a file,
// pull-based collectors, metric exporters) without runaway concurrency,
// with graceful degradation under load (spec.md §4.8).
package scheduler

import (
	"context"
	"time"
)

// TimeWindow gates a task to run only inside a declared wall-clock
// window.
type TimeWindow struct {
	StartHour, StartMinute int
	EndHour, EndMinute     int
}

// In reports whether now falls inside the window. A window that wraps
// past midnight (End before Start) is treated as spanning the day
// boundary.
func (w TimeWindow) In(now time.Time) bool {
	start := w.StartHour*60 + w.StartMinute
	end := w.EndHour*60 + w.EndMinute
	cur := now.Hour()*60 + now.Minute()
	if start <= end {
		return cur >= start && cur < end
	}
	return cur >= start || cur < end
}

// RunFunc is the closure a task executes on each tick. It must observe
// ctx at safe points (between records, after each sink acknowledgement)
// per spec.md §4.8 "Cancellation".
type RunFunc func(ctx context.Context) error

// Task is one schedulable unit.
type Task struct {
	Name     string
	Interval time.Duration
	Window   *TimeWindow
	Run      RunFunc

	lastBegin        time.Time
	skipCount        int
	lastExecuteTime  time.Duration
	slowStreak       int
	forceSkipRemain  int
}

// Status summarises a task's outcome counters since the last export
// (spec.md §4.8 "Status export").
type Status struct {
	Name        string
	SuccessN    int
	ErrorN      int
	SkipN       int
	LastExecute time.Duration
}

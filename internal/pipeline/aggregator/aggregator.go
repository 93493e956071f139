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

// Package aggregator implements the pipeline's aggregation stage
// (spec.md §3's "aggregator (default identity)"): the last step before
// routing, batching event groups so a flusher sees fewer, larger
// payloads instead of one send per tailed tick.
package aggregator

import (
	"time"

	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/event"
)

// Aggregator accumulates groups and decides when to release them
// downstream. Add may return zero groups (still accumulating) or more
// than one (a scheduled flush plus the group that triggered it).
type Aggregator interface {
	// Add ingests g and returns any groups now ready to route. g is not
	// retained past the call unless returned.
	Add(g *event.Group) []*event.Group
	// Flush forces release of whatever is currently held.
	Flush() []*event.Group
}

// Identity is the default aggregator: every group passes straight
// through unchanged, matching the original "aggregator_default" stage
// that does no batching of its own.
type Identity struct{}

func NewIdentity() Identity { return Identity{} }

func (Identity) Add(g *event.Group) []*event.Group { return []*event.Group{g} }
func (Identity) Flush() []*event.Group              { return nil }

// bucket holds the groups accumulated for one key since the last flush.
type bucket struct {
	groups    []*event.Group
	count     int
	firstSeen time.Time
}

// CountBased merges groups sharing the same key (by default, the
// "__path__" tag set by the splitter bridge) until either
// CountThreshold events have accumulated or TimeCap has elapsed
// since the first one in the batch, then emits a single merged group.
// This is the log-domain analogue of the count/time flush thresholds
// plugin/tfd's accumulator (package tfd, saccumulator.go) uses to decide
// when a numeric shard is due for a flush, adapted here to merge Event
// slices instead of summing deltas.
type CountBased struct {
	keyFn          func(g *event.Group) string
	countThreshold int
	timeCap        time.Duration
	now            func() time.Time

	buckets map[string]*bucket
}

// Config configures a CountBased aggregator.
type Config struct {
	// KeyFn groups events sharing the same key into one batch. Defaults
	// to grouping by the "__path__" tag (SchemeLegacy) when nil.
	KeyFn          func(g *event.Group) string
	CountThreshold int
	TimeCap        time.Duration
	Now            func() time.Time
}

const (
	defaultCountThreshold = 64
	defaultTimeCap        = 3 * time.Second
)

func NewCountBased(cfg Config) *CountBased {
	keyFn := cfg.KeyFn
	if keyFn == nil {
		keyFn = func(g *event.Group) string { return g.Tags["__path__"] }
	}
	threshold := cfg.CountThreshold
	if threshold <= 0 {
		threshold = defaultCountThreshold
	}
	timeCap := cfg.TimeCap
	if timeCap <= 0 {
		timeCap = defaultTimeCap
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &CountBased{
		keyFn:          keyFn,
		countThreshold: threshold,
		timeCap:        timeCap,
		now:            now,
		buckets:        make(map[string]*bucket),
	}
}

// Add ingests g under its key's bucket, flushing that bucket (and any
// other bucket whose TimeCap has elapsed) if thresholds are crossed.
func (a *CountBased) Add(g *event.Group) []*event.Group {
	key := a.keyFn(g)
	b, ok := a.buckets[key]
	if !ok {
		b = &bucket{firstSeen: a.now()}
		a.buckets[key] = b
	}
	b.groups = append(b.groups, g)
	b.count += len(g.Events)

	var out []*event.Group
	now := a.now()
	for k, bk := range a.buckets {
		if bk.count >= a.countThreshold || (bk.timeExceeded(now, a.timeCap) && len(bk.groups) > 0) {
			if merged := mergeBucket(bk); merged != nil {
				out = append(out, merged)
			}
			delete(a.buckets, k)
		}
	}
	return out
}

func (b *bucket) timeExceeded(now time.Time, timeCap time.Duration) bool {
	return !b.firstSeen.IsZero() && now.Sub(b.firstSeen) >= timeCap
}

// Flush releases every currently held bucket regardless of thresholds,
// for use at shutdown so no buffered events are lost.
func (a *CountBased) Flush() []*event.Group {
	out := make([]*event.Group, 0, len(a.buckets))
	for k, bk := range a.buckets {
		if merged := mergeBucket(bk); merged != nil {
			out = append(out, merged)
		}
		delete(a.buckets, k)
	}
	return out
}

func mergeBucket(b *bucket) *event.Group {
	if len(b.groups) == 0 {
		return nil
	}
	merged := b.groups[0].Clone()
	merged.Events = merged.Events[:0]
	for _, g := range b.groups {
		merged.Events = append(merged.Events, g.Events...)
	}
	return merged
}

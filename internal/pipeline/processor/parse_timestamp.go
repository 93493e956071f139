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

package processor

import (
	"time"

	"github.com/esteban-alvarez/logtrail-agent/internal/obslog"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/event"
)

// ParseTimestamp parses one event field's value per Layout (a Go
// reference-time layout) and stores the result on the event, applying a
// fixed zone offset. Composition rule (spec.md §4.6): must follow the
// value parser in pipeline order, since it typically reads a field the
// value parser produced. Failure policy: on a miss the event keeps the
// system time it was read at (already the zero-value default of
// event.Event.Time set by the splitter/reader) and an alarm is raised.
type ParseTimestamp struct {
	SourceKey string
	Layout    string
	Zone      *time.Location

	// ApsaraMicrosecondAdjust compensates for a known format pitfall: the
	// apsara log format encodes microseconds in a field that, taken
	// literally, is off by a fixed zone offset from the sender's actual
	// wall clock (original_source/core/reader's apsara reader applies the
	// same correction before storage).
	ApsaraMicrosecondAdjust time.Duration

	Pipeline string
	Alarms   *obslog.AlarmChannel
}

func NewParseTimestamp(sourceKey, layout string, zone *time.Location, apsaraAdjust time.Duration, pipeline string, alarms *obslog.AlarmChannel) *ParseTimestamp {
	if zone == nil {
		zone = time.UTC
	}
	return &ParseTimestamp{
		SourceKey:               sourceKey,
		Layout:                  layout,
		Zone:                    zone,
		ApsaraMicrosecondAdjust: apsaraAdjust,
		Pipeline:                pipeline,
		Alarms:                  alarms,
	}
}

func (p *ParseTimestamp) Name() string { return string(KindParseTimestamp) }

func (p *ParseTimestamp) Process(g *event.Group) {
	for i := range g.Events {
		ev := &g.Events[i]
		raw, ok := ev.Get(p.SourceKey)
		if !ok {
			continue
		}
		t, err := time.ParseInLocation(p.Layout, raw, p.Zone)
		if err != nil {
			p.raiseMiss(raw)
			continue
		}
		if p.ApsaraMicrosecondAdjust != 0 {
			t = t.Add(p.ApsaraMicrosecondAdjust)
		}
		ev.Time = t
		ev.NanosSet = t.Nanosecond() != 0
	}
}

func (p *ParseTimestamp) raiseMiss(sample string) {
	if p.Alarms == nil {
		return
	}
	b := []byte(sample)
	if len(b) > 1024 {
		b = b[:1024]
	}
	p.Alarms.Raise(obslog.Alarm{
		Category:   obslog.CategoryParse,
		Pipeline:   p.Pipeline,
		Key:        "timestamp-miss",
		Message:    "parse-timestamp failed; event retains read-time timestamp",
		FirstBytes: b,
	})
}

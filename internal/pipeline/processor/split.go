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
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/event"
)

// SplitByTerminator expands one event's content field into several events,
// one per terminator-delimited chunk, dropping empty chunks.
type SplitByTerminator struct {
	SourceKey  string
	Terminator string
}

func NewSplitByTerminator(sourceKey, terminator string) *SplitByTerminator {
	return &SplitByTerminator{SourceKey: sourceKey, Terminator: terminator}
}

func (p *SplitByTerminator) Name() string { return string(KindSplitByTerminator) }

func (p *SplitByTerminator) Process(g *event.Group) {
	out := make([]event.Event, 0, len(g.Events))
	for _, ev := range g.Events {
		content, ok := ev.Get(p.SourceKey)
		if !ok {
			out = append(out, ev)
			continue
		}
		for _, chunk := range strings.Split(content, p.Terminator) {
			if chunk == "" {
				continue
			}
			child := cloneEventWithout(ev, p.SourceKey)
			child.Set(p.SourceKey, chunk)
			out = append(out, child)
		}
	}
	g.Events = out
}

// SplitByRegex expands one event's content field into several events, one
// per regexp2 match of Pattern (the matched substring becomes the child's
// SourceKey value).
type SplitByRegex struct {
	SourceKey string
	re        *regexp2.Regexp
}

func NewSplitByRegex(sourceKey, pattern string) (*SplitByRegex, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, err
	}
	return &SplitByRegex{SourceKey: sourceKey, re: re}, nil
}

func (p *SplitByRegex) Name() string { return string(KindSplitByRegex) }

func (p *SplitByRegex) Process(g *event.Group) {
	out := make([]event.Event, 0, len(g.Events))
	for _, ev := range g.Events {
		content, ok := ev.Get(p.SourceKey)
		if !ok {
			out = append(out, ev)
			continue
		}
		m, _ := p.re.FindStringMatch(content)
		for m != nil {
			child := cloneEventWithout(ev, p.SourceKey)
			child.Set(p.SourceKey, m.String())
			out = append(out, child)
			m, _ = p.re.FindNextMatch(m)
		}
	}
	g.Events = out
}

func cloneEventWithout(ev event.Event, drop string) event.Event {
	child := event.Event{Time: ev.Time, NanosSet: ev.NanosSet, RawOffset: ev.RawOffset}
	for _, f := range ev.Fields {
		if f.Key == drop {
			continue
		}
		child.Fields = append(child.Fields, f)
	}
	return child
}

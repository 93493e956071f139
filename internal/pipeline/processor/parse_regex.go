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
	"fmt"

	"github.com/dlclark/regexp2"

	"github.com/esteban-alvarez/logtrail-agent/internal/obslog"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/event"
)

// ParseRegex parses one event field's value using a named-group regexp2
// pattern, writing each named group into the event's field map. Failure
// policy per spec.md §4.6: on a miss, drop the event if DiscardUnmatch,
// else keep it unchanged and raise a rate-limited alarm.
type ParseRegex struct {
	SourceKey      string
	DiscardUnmatch bool
	Pipeline       string
	Alarms         *obslog.AlarmChannel
	re             *regexp2.Regexp
	groupNames     []string
}

func NewParseRegex(sourceKey, pattern string, discardUnmatch bool, pipeline string, alarms *obslog.AlarmChannel) (*ParseRegex, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("processor: invalid parse-regex pattern: %w", err)
	}
	return &ParseRegex{
		SourceKey:      sourceKey,
		DiscardUnmatch: discardUnmatch,
		Pipeline:       pipeline,
		Alarms:         alarms,
		re:             re,
		groupNames:     re.GetGroupNames(),
	}, nil
}

func (p *ParseRegex) Name() string { return string(KindParseRegex) }

func (p *ParseRegex) Process(g *event.Group) {
	out := make([]event.Event, 0, len(g.Events))
	for i := range g.Events {
		ev := g.Events[i]
		content, ok := ev.Get(p.SourceKey)
		if !ok {
			out = append(out, ev)
			continue
		}
		m, err := p.re.FindStringMatch(content)
		if err != nil || m == nil {
			if p.DiscardUnmatch {
				continue
			}
			p.raiseMiss(content)
			out = append(out, ev)
			continue
		}
		for _, name := range p.groupNames {
			if name == "0" {
				continue // group 0 is the whole match, not a named capture
			}
			grp := m.GroupByName(name)
			if grp != nil && len(grp.Captures) > 0 {
				ev.Set(name, grp.String())
			}
		}
		out = append(out, ev)
	}
	g.Events = out
}

func (p *ParseRegex) raiseMiss(sample string) {
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
		Key:        "regex-miss",
		Message:    "parse-regex did not match event content",
		FirstBytes: b,
	})
}

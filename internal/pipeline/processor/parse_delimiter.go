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

	"github.com/esteban-alvarez/logtrail-agent/internal/obslog"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/event"
)

// ParseDelimiter splits one event field's value on Delimiter and assigns
// the resulting positional parts to Keys, in order. The value is split
// into at most len(Keys) parts, so any text past the last expected
// delimiter stays, delimiters included, in the last key's value; fewer
// parts than len(Keys) is a miss.
type ParseDelimiter struct {
	SourceKey      string
	Delimiter      string
	Keys           []string
	DiscardUnmatch bool
	Pipeline       string
	Alarms         *obslog.AlarmChannel
}

func NewParseDelimiter(sourceKey, delimiter string, keys []string, discardUnmatch bool, pipeline string, alarms *obslog.AlarmChannel) *ParseDelimiter {
	return &ParseDelimiter{
		SourceKey:      sourceKey,
		Delimiter:      delimiter,
		Keys:           keys,
		DiscardUnmatch: discardUnmatch,
		Pipeline:       pipeline,
		Alarms:         alarms,
	}
}

func (p *ParseDelimiter) Name() string { return string(KindParseDelimiter) }

func (p *ParseDelimiter) Process(g *event.Group) {
	out := make([]event.Event, 0, len(g.Events))
	for i := range g.Events {
		ev := g.Events[i]
		content, ok := ev.Get(p.SourceKey)
		if !ok {
			out = append(out, ev)
			continue
		}
		parts := strings.SplitN(content, p.Delimiter, len(p.Keys))
		if len(parts) < len(p.Keys) {
			if p.DiscardUnmatch {
				continue
			}
			p.raiseMiss(content)
			out = append(out, ev)
			continue
		}
		for i, key := range p.Keys {
			ev.Set(key, parts[i])
		}
		out = append(out, ev)
	}
	g.Events = out
}

func (p *ParseDelimiter) raiseMiss(sample string) {
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
		Key:        "delimiter-miss",
		Message:    "parse-delimiter found fewer fields than configured keys",
		FirstBytes: b,
	})
}

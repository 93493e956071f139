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

	json "github.com/goccy/go-json"

	"github.com/esteban-alvarez/logtrail-agent/internal/obslog"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/event"
)

// ParseJSON decodes one event field's value as a flat JSON object, using
// goccy/go-json for allocation-light decoding on the hot path (matching
// the pack's substitution of goccy/go-json for encoding/json in
// performance-sensitive code). Nested objects/arrays are flattened to
// their JSON text representation rather than recursively expanded, since
// spec.md's field model is a flat key→string map.
type ParseJSON struct {
	SourceKey      string
	DiscardUnmatch bool
	Pipeline       string
	Alarms         *obslog.AlarmChannel
}

func NewParseJSON(sourceKey string, discardUnmatch bool, pipeline string, alarms *obslog.AlarmChannel) *ParseJSON {
	return &ParseJSON{SourceKey: sourceKey, DiscardUnmatch: discardUnmatch, Pipeline: pipeline, Alarms: alarms}
}

func (p *ParseJSON) Name() string { return string(KindParseJSON) }

func (p *ParseJSON) Process(g *event.Group) {
	out := make([]event.Event, 0, len(g.Events))
	for i := range g.Events {
		ev := g.Events[i]
		content, ok := ev.Get(p.SourceKey)
		if !ok {
			out = append(out, ev)
			continue
		}
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(content), &obj); err != nil {
			if p.DiscardUnmatch {
				continue
			}
			p.raiseMiss(content)
			out = append(out, ev)
			continue
		}
		for k, v := range obj {
			ev.Set(k, stringifyJSONValue(v))
		}
		out = append(out, ev)
	}
	g.Events = out
}

func stringifyJSONValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func (p *ParseJSON) raiseMiss(sample string) {
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
		Key:        "json-miss",
		Message:    "parse-json failed to decode event content",
		FirstBytes: b,
	})
}

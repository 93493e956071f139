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

// ApsaraFormat parses the internal apsara log line shape:
// "[field1]\t[field2]\tk1:v1\tk2:v2..." -- a bracketed positional header
// followed by tab-separated key:value pairs. Grounded on
// original_source/core/reader/ApsaraLogFileReader.cpp, which this repo's
// SPEC_FULL.md supplements in as a named processor kind.
type ApsaraFormat struct {
	SourceKey      string
	HeaderKeys     []string // names assigned, in order, to the leading [bracketed] fields
	DiscardUnmatch bool
	Pipeline       string
	Alarms         *obslog.AlarmChannel
}

func NewApsaraFormat(sourceKey string, headerKeys []string, discardUnmatch bool, pipeline string, alarms *obslog.AlarmChannel) *ApsaraFormat {
	return &ApsaraFormat{SourceKey: sourceKey, HeaderKeys: headerKeys, DiscardUnmatch: discardUnmatch, Pipeline: pipeline, Alarms: alarms}
}

func (p *ApsaraFormat) Name() string { return string(KindParseApsaraFormat) }

func (p *ApsaraFormat) Process(g *event.Group) {
	out := make([]event.Event, 0, len(g.Events))
	for i := range g.Events {
		ev := g.Events[i]
		content, ok := ev.Get(p.SourceKey)
		if !ok {
			out = append(out, ev)
			continue
		}
		if !p.apply(&ev, content) {
			if p.DiscardUnmatch {
				continue
			}
			p.raiseMiss(content)
		}
		out = append(out, ev)
	}
	g.Events = out
}

// apply parses content in place and reports whether every configured
// header field was found.
func (p *ApsaraFormat) apply(ev *event.Event, content string) bool {
	parts := strings.Split(content, "\t")
	headerIdx := 0
	matched := 0
	for _, part := range parts {
		if strings.HasPrefix(part, "[") && strings.HasSuffix(part, "]") && len(part) >= 2 {
			if headerIdx < len(p.HeaderKeys) {
				ev.Set(p.HeaderKeys[headerIdx], part[1:len(part)-1])
				headerIdx++
				matched++
			}
			continue
		}
		if k, v, found := strings.Cut(part, ":"); found {
			ev.Set(k, v)
		}
	}
	return matched == len(p.HeaderKeys)
}

func (p *ApsaraFormat) raiseMiss(sample string) {
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
		Key:        "apsara-miss",
		Message:    "parse-apsara-format did not find all configured header fields",
		FirstBytes: b,
	})
}

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

	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/event"
)

// FilterByRegex keeps (or, if Exclude, drops) events whose SourceKey field
// matches Pattern. Composition rule (spec.md §4.6): may appear anywhere
// after the value parser.
type FilterByRegex struct {
	SourceKey string
	Exclude   bool
	re        *regexp2.Regexp
}

func NewFilterByRegex(sourceKey, pattern string, exclude bool) (*FilterByRegex, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("processor: invalid filter-by-regex pattern: %w", err)
	}
	return &FilterByRegex{SourceKey: sourceKey, Exclude: exclude, re: re}, nil
}

func (p *FilterByRegex) Name() string { return string(KindFilterByRegex) }

func (p *FilterByRegex) Process(g *event.Group) {
	out := make([]event.Event, 0, len(g.Events))
	for _, ev := range g.Events {
		value, ok := ev.Get(p.SourceKey)
		matched := false
		if ok {
			m, err := p.re.FindStringMatch(value)
			matched = err == nil && m != nil
		}
		if matched != p.Exclude {
			out = append(out, ev)
		}
	}
	g.Events = out
}

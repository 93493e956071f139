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

// DesensitizeSubstring replaces every regexp2 match of Pattern within
// SourceKey's value with Replacement (e.g. masking a credential or PII
// substring before the record leaves the host). Composition rule
// (spec.md §4.6): may appear anywhere after the value parser.
type DesensitizeSubstring struct {
	SourceKey   string
	Replacement string
	re          *regexp2.Regexp
}

func NewDesensitizeSubstring(sourceKey, pattern, replacement string) (*DesensitizeSubstring, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("processor: invalid desensitize-substring pattern: %w", err)
	}
	return &DesensitizeSubstring{SourceKey: sourceKey, Replacement: replacement, re: re}, nil
}

func (p *DesensitizeSubstring) Name() string { return string(KindDesensitizeSubstr) }

func (p *DesensitizeSubstring) Process(g *event.Group) {
	for i := range g.Events {
		value, ok := g.Events[i].Get(p.SourceKey)
		if !ok {
			continue
		}
		replaced, err := p.re.Replace(value, p.Replacement, -1, -1)
		if err != nil {
			continue
		}
		g.Events[i].Set(p.SourceKey, replaced)
	}
}

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

// Package pipeline applies an ordered sequence of processors to every
// event group produced by the splitter, enforcing the composition rules
// of spec.md §4.6.
package pipeline

import (
	"fmt"

	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/event"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/processor"
)

// Pipeline is an ordered, validated list of processors for one config.
type Pipeline struct {
	Name       string
	processors []processor.Processor
}

// New validates procs against spec.md §4.6's composition rules and
// returns a Pipeline ready to process groups.
//
//   - tag-apply, if present, must be first.
//   - At most one value parser (parse-regex, parse-json, parse-delimiter,
//     parse-apsara-format) is allowed.
//   - parse-timestamp, if present, must come after the value parser; with
//     no value parser, any position is accepted.
func New(name string, procs []processor.Processor) (*Pipeline, error) {
	if err := validateComposition(procs); err != nil {
		return nil, err
	}
	return &Pipeline{Name: name, processors: procs}, nil
}

func validateComposition(procs []processor.Processor) error {
	valueParserIdx := -1
	timestampIdx := -1
	for i, p := range procs {
		k := processor.Kind(p.Name())
		if k == processor.KindTagApply && i != 0 {
			return fmt.Errorf("pipeline: tag-apply must be the first processor, found at index %d", i)
		}
		if k.IsValueParser() {
			if valueParserIdx != -1 {
				return fmt.Errorf("pipeline: at most one value parser is allowed, found a second at index %d", i)
			}
			valueParserIdx = i
		}
		if k == processor.KindParseTimestamp {
			timestampIdx = i
		}
	}
	if timestampIdx != -1 && valueParserIdx != -1 && timestampIdx < valueParserIdx {
		return fmt.Errorf("pipeline: parse-timestamp must follow the value parser")
	}
	return nil
}

// Process runs every processor over g in order, short-circuiting once the
// group's events are fully drained (no processor can resurrect a dropped
// event, so there is nothing left for later stages to do).
func (p *Pipeline) Process(g *event.Group) {
	for _, proc := range p.processors {
		if len(g.Events) == 0 {
			return
		}
		proc.Process(g)
	}
}

// Processors returns the ordered processor list (read-only use; callers
// must not mutate the slice).
func (p *Pipeline) Processors() []processor.Processor { return p.processors }

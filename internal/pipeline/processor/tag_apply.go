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

import "github.com/esteban-alvarez/logtrail-agent/internal/pipeline/event"

// TagApply writes a fixed set of semantic tags into the group's tag map
// under the configured naming scheme. Composition rule (spec.md §4.6):
// must be the first processor in any pipeline that uses it.
type TagApply struct {
	Scheme TagScheme
	Static map[SemanticTag]string
}

func NewTagApply(scheme TagScheme, static map[SemanticTag]string) *TagApply {
	return &TagApply{Scheme: scheme, Static: static}
}

func (p *TagApply) Name() string { return string(KindTagApply) }

func (p *TagApply) Process(g *event.Group) {
	for tag, value := range p.Static {
		SetSemanticTag(g.Tags, p.Scheme, tag, value)
	}
}

// AddFields appends static key/value fields to every event in the group,
// without touching the group-level tag map (the distinction spec.md draws
// between tag-apply and add-fields).
type AddFields struct {
	Fields map[string]string
}

func NewAddFields(fields map[string]string) *AddFields {
	return &AddFields{Fields: fields}
}

func (p *AddFields) Name() string { return string(KindAddFields) }

func (p *AddFields) Process(g *event.Group) {
	for i := range g.Events {
		for k, v := range p.Fields {
			g.Events[i].Set(k, v)
		}
	}
}

// Drop unconditionally empties the group's event list. Grounded on
// spec.md's processor universe as the explicit no-op sink for pipelines
// under test or intentionally disabled.
type Drop struct{}

func NewDrop() *Drop { return &Drop{} }

func (p *Drop) Name() string { return string(KindDrop) }

func (p *Drop) Process(g *event.Group) { g.Events = g.Events[:0] }

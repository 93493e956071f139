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

// Package config loads and structurally validates the agent's pipeline
// configuration: the five top-level sections (global, inputs, processors,
// aggregators, flushers) plus an optional route table, per spec.md §6.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Global holds agent-wide settings shared across pipelines.
type Global struct {
	CheckpointDir    string `yaml:"checkpoint_dir"`
	DumpInterval     string `yaml:"dump_interval"`
	MetricsAddr      string `yaml:"metrics_addr"`
	TagScheme        string `yaml:"tag_scheme"`
	AllowRootDir     bool   `yaml:"allow_root_dir,omitempty"`
	AllowMultiConfig bool   `yaml:"allow_multi_config,omitempty"`
}

// Input describes one tailing source: a glob of files or a discovery rule.
type Input struct {
	Name           string            `yaml:"name"`
	Type           string            `yaml:"type"` // "file" or "http_sd"
	Paths          []string          `yaml:"paths,omitempty"`
	MaxDepth       int               `yaml:"max_depth,omitempty"`
	SplitMode      string            `yaml:"split_mode"` // whole_line, begin_pattern, json
	BeginPattern   string            `yaml:"begin_pattern,omitempty"`
	DiscardUnmatch bool              `yaml:"discard_unmatch,omitempty"`
	Tags           map[string]string `yaml:"tags,omitempty"`
}

// Processor is one stage of a pipeline's processing chain. Kind must
// match one of processor.Kind's constants; Config carries kind-specific
// fields as a raw map, decoded by the wiring layer that constructs
// concrete processor.Processor values.
type Processor struct {
	Kind   string         `yaml:"kind"`
	Config map[string]any `yaml:"config,omitempty"`
}

// Aggregator configures a post-processing aggregation stage (identity, or
// the count_based batcher) applied to a group before routing.
type Aggregator struct {
	Kind   string         `yaml:"kind"`
	Config map[string]any `yaml:"config,omitempty"`
}

// Flusher configures one sink destination and its queue/limiter knobs.
type Flusher struct {
	Name                 string `yaml:"name"`
	Kind                 string `yaml:"kind"` // http, redis, kafka
	Endpoint             string `yaml:"endpoint,omitempty"`
	Topic                string `yaml:"topic,omitempty"`
	QueueCapacity        int    `yaml:"queue_capacity,omitempty"`
	MaxAllowed           int    `yaml:"max_allowed,omitempty"`
	MinRetryInterval     string `yaml:"min_retry_interval,omitempty"`
	MaxRetryInterval     string `yaml:"max_retry_interval,omitempty"`
	ConcurrencyDownRatio float64 `yaml:"concurrency_down_ratio,omitempty"`
	RetryIntervalUpRatio float64 `yaml:"retry_interval_up_ratio,omitempty"`
}

// RouteRow is one (sink, predicate) entry in the optional route table; an
// absent Route defaults to "every group goes to every flusher".
type RouteRow struct {
	Flusher   string `yaml:"flusher"`
	Predicate string `yaml:"predicate"` // always, event_type, tag
	EventType string `yaml:"event_type,omitempty"`
	TagKey    string `yaml:"tag_key,omitempty"`
	TagValue  string `yaml:"tag_value,omitempty"`
}

// Pipeline is the fully parsed, structurally validated configuration for
// one agent instance.
type Pipeline struct {
	Global      Global       `yaml:"global"`
	Inputs      []Input      `yaml:"inputs"`
	Processors  []Processor  `yaml:"processors"`
	Aggregators []Aggregator `yaml:"aggregators,omitempty"`
	Flushers    []Flusher    `yaml:"flushers"`
	Route       []RouteRow   `yaml:"route,omitempty"`
}

// Parse decodes YAML (or JSON, which is a YAML subset) bytes into a
// Pipeline and structurally validates it.
func Parse(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate enforces the structural rules spec.md §6 requires of a
// pipeline configuration before it is wired into running components:
// at least one input and one flusher, every input naming a known split
// mode, every route row naming a flusher that exists, and the processor
// composition rules of §4.6 (delegated to validateProcessorKinds, which
// checks only kind-level shape — full composition validation happens
// once concrete processor.Processor values exist, in internal/pipeline).
func (p *Pipeline) Validate() error {
	if len(p.Inputs) == 0 {
		return fmt.Errorf("config: at least one input is required")
	}
	if len(p.Flushers) == 0 {
		return fmt.Errorf("config: at least one flusher is required")
	}
	flusherNames := make(map[string]bool, len(p.Flushers))
	for i, f := range p.Flushers {
		if f.Name == "" {
			return fmt.Errorf("config: flushers[%d]: name is required", i)
		}
		switch f.Kind {
		case "http", "redis", "kafka":
		default:
			return fmt.Errorf("config: flushers[%d] %q: unknown kind %q", i, f.Name, f.Kind)
		}
		flusherNames[f.Name] = true
	}
	for i, in := range p.Inputs {
		if in.Name == "" {
			return fmt.Errorf("config: inputs[%d]: name is required", i)
		}
		switch in.SplitMode {
		case "whole_line", "begin_pattern", "json":
		default:
			return fmt.Errorf("config: inputs[%d] %q: unknown split_mode %q", i, in.Name, in.SplitMode)
		}
		if in.SplitMode == "begin_pattern" && in.BeginPattern == "" {
			return fmt.Errorf("config: inputs[%d] %q: begin_pattern split_mode requires begin_pattern", i, in.Name)
		}
	}
	if err := validateProcessorKinds(p.Processors); err != nil {
		return err
	}
	if err := validateAggregatorKinds(p.Aggregators); err != nil {
		return err
	}
	for i, r := range p.Route {
		if !flusherNames[r.Flusher] {
			return fmt.Errorf("config: route[%d]: unknown flusher %q", i, r.Flusher)
		}
		switch r.Predicate {
		case "always", "event_type", "tag":
		default:
			return fmt.Errorf("config: route[%d]: unknown predicate %q", i, r.Predicate)
		}
	}
	return nil
}

var validProcessorKinds = map[string]bool{
	"tag_apply": true, "add_fields": true, "drop": true,
	"split_by_terminator": true, "split_by_regex": true,
	"parse_regex": true, "parse_json": true, "parse_delimiter": true,
	"parse_apsara_format": true, "parse_timestamp": true,
	"filter_by_regex": true, "desensitize_substring": true,
}

func validateProcessorKinds(procs []Processor) error {
	for i, p := range procs {
		if !validProcessorKinds[p.Kind] {
			return fmt.Errorf("config: processors[%d]: unknown kind %q", i, p.Kind)
		}
		if p.Kind == "tag_apply" && i != 0 {
			return fmt.Errorf("config: processors[%d]: tag_apply must be the first processor", i)
		}
	}
	return nil
}

var validAggregatorKinds = map[string]bool{
	"": true, "identity": true, "count_based": true,
}

// validateAggregatorKinds enforces that at most one aggregator is
// configured (a pipeline has one aggregation stage, per spec.md §3) and
// that its kind is one agent/aggregators.go actually knows how to build.
func validateAggregatorKinds(aggs []Aggregator) error {
	if len(aggs) > 1 {
		return fmt.Errorf("config: at most one aggregator may be configured, got %d", len(aggs))
	}
	for i, a := range aggs {
		if !validAggregatorKinds[a.Kind] {
			return fmt.Errorf("config: aggregators[%d]: unknown kind %q", i, a.Kind)
		}
	}
	return nil
}

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

// Package processor implements the fixed universe of record transforms
// spec.md §4.6 names: tag-apply, split-by-terminator, split-by-regex,
// parse-regex, parse-json, parse-delimiter, parse-timestamp,
// parse-apsara-format, filter-by-regex, desensitize-substring, drop, and
// add-fields.
package processor

import "github.com/esteban-alvarez/logtrail-agent/internal/pipeline/event"

// Processor transforms a Group in place. It is named per spec.md's
// "{name(), init(config, ctx), process(group)}" capability set (§9); init
// is folded into each concrete constructor instead of a separate method,
// since Go constructors already serve that role idiomatically.
type Processor interface {
	Name() string
	Process(g *event.Group)
}

// Kind enumerates the processor universe for config-driven construction.
type Kind string

const (
	KindTagApply           Kind = "tag-apply"
	KindSplitByTerminator  Kind = "split-by-terminator"
	KindSplitByRegex       Kind = "split-by-regex"
	KindParseRegex         Kind = "parse-regex"
	KindParseJSON          Kind = "parse-json"
	KindParseDelimiter     Kind = "parse-delimiter"
	KindParseTimestamp     Kind = "parse-timestamp"
	KindParseApsaraFormat  Kind = "parse-apsara-format"
	KindFilterByRegex      Kind = "filter-by-regex"
	KindDesensitizeSubstr  Kind = "desensitize-substring"
	KindDrop               Kind = "drop"
	KindAddFields          Kind = "add-fields"
)

// IsValueParser reports whether k belongs to the "parse a record's value
// into fields" family spec.md §4.6 limits to at most one per pipeline.
func (k Kind) IsValueParser() bool {
	switch k {
	case KindParseRegex, KindParseJSON, KindParseDelimiter, KindParseApsaraFormat:
		return true
	default:
		return false
	}
}

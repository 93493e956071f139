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

package agent

import (
	"testing"

	"go.uber.org/zap"

	"github.com/esteban-alvarez/logtrail-agent/internal/config"
	"github.com/esteban-alvarez/logtrail-agent/internal/obslog"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/processor"
)

func TestBuildProcessorKnownKinds(t *testing.T) {
	alarms := obslog.NewAlarmChannel(zap.NewNop(), 0, nil)
	cases := []config.Processor{
		{Kind: "tag_apply"},
		{Kind: "add_fields", Config: map[string]any{"fields": map[string]any{"a": "b"}}},
		{Kind: "drop"},
		{Kind: "split_by_terminator", Config: map[string]any{"source_key": "content", "terminator": "\n"}},
		{Kind: "split_by_regex", Config: map[string]any{"source_key": "content", "pattern": "^\\d+"}},
		{Kind: "parse_regex", Config: map[string]any{"source_key": "content", "pattern": "(?P<a>.*)"}},
		{Kind: "parse_json", Config: map[string]any{"source_key": "content"}},
		{Kind: "parse_delimiter", Config: map[string]any{"source_key": "content", "delimiter": ","}},
		{Kind: "parse_apsara_format", Config: map[string]any{"source_key": "content"}},
		{Kind: "parse_timestamp", Config: map[string]any{"source_key": "content", "layout": "2006-01-02"}},
		{Kind: "filter_by_regex", Config: map[string]any{"source_key": "content", "pattern": "."}},
		{Kind: "desensitize_substring", Config: map[string]any{"source_key": "content", "pattern": "x", "replacement": "*"}},
	}
	for _, c := range cases {
		p, err := buildProcessor(c, processor.SchemeLegacy, "pipeline", alarms)
		if err != nil {
			t.Errorf("kind %q: unexpected error: %v", c.Kind, err)
			continue
		}
		if p == nil {
			t.Errorf("kind %q: expected a non-nil processor", c.Kind)
		}
	}
}

func TestBuildProcessorUnknownKind(t *testing.T) {
	alarms := obslog.NewAlarmChannel(zap.NewNop(), 0, nil)
	if _, err := buildProcessor(config.Processor{Kind: "nope"}, processor.SchemeLegacy, "pipeline", alarms); err == nil {
		t.Fatal("expected an error for an unknown processor kind")
	}
}

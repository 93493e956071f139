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
	"fmt"
	"time"

	"github.com/esteban-alvarez/logtrail-agent/internal/config"
	"github.com/esteban-alvarez/logtrail-agent/internal/obslog"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/processor"
)

func stringField(cfg map[string]any, key string) string {
	if v, ok := cfg[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func boolField(cfg map[string]any, key string) bool {
	if v, ok := cfg[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func stringSliceField(cfg map[string]any, key string) []string {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringMapField(cfg map[string]any, key string) map[string]string {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, e := range raw {
		if s, ok := e.(string); ok {
			out[k] = s
		}
	}
	return out
}

// buildProcessor constructs a concrete processor.Processor from one
// config.Processor entry. pipelineName and alarms are threaded through to
// processors that raise operational alarms on parse misses.
func buildProcessor(cfg config.Processor, scheme processor.TagScheme, pipelineName string, alarms *obslog.AlarmChannel) (processor.Processor, error) {
	c := cfg.Config
	switch cfg.Kind {
	case "tag_apply":
		return processor.NewTagApply(scheme, nil), nil
	case "add_fields":
		return processor.NewAddFields(stringMapField(c, "fields")), nil
	case "drop":
		return processor.NewDrop(), nil
	case "split_by_terminator":
		return processor.NewSplitByTerminator(stringField(c, "source_key"), stringField(c, "terminator")), nil
	case "split_by_regex":
		return processor.NewSplitByRegex(stringField(c, "source_key"), stringField(c, "pattern"))
	case "parse_regex":
		return processor.NewParseRegex(stringField(c, "source_key"), stringField(c, "pattern"), boolField(c, "discard_unmatch"), pipelineName, alarms)
	case "parse_json":
		return processor.NewParseJSON(stringField(c, "source_key"), boolField(c, "discard_unmatch"), pipelineName, alarms), nil
	case "parse_delimiter":
		return processor.NewParseDelimiter(stringField(c, "source_key"), stringField(c, "delimiter"), stringSliceField(c, "keys"), boolField(c, "discard_unmatch"), pipelineName, alarms), nil
	case "parse_apsara_format":
		return processor.NewApsaraFormat(stringField(c, "source_key"), stringSliceField(c, "header_keys"), boolField(c, "discard_unmatch"), pipelineName, alarms), nil
	case "parse_timestamp":
		zone := time.UTC
		adjust := time.Duration(0)
		return processor.NewParseTimestamp(stringField(c, "source_key"), stringField(c, "layout"), zone, adjust, pipelineName, alarms), nil
	case "filter_by_regex":
		return processor.NewFilterByRegex(stringField(c, "source_key"), stringField(c, "pattern"), boolField(c, "exclude"))
	case "desensitize_substring":
		return processor.NewDesensitizeSubstring(stringField(c, "source_key"), stringField(c, "pattern"), stringField(c, "replacement"))
	default:
		return nil, fmt.Errorf("agent: unknown processor kind %q", cfg.Kind)
	}
}

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
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/aggregator"
)

// buildAggregator constructs the pipeline's aggregation stage from the
// first configured entry (a pipeline has at most one aggregator, per
// spec.md §3); an empty list yields the default identity stage.
func buildAggregator(cfgs []config.Aggregator) (aggregator.Aggregator, error) {
	if len(cfgs) == 0 {
		return aggregator.NewIdentity(), nil
	}
	cfg := cfgs[0]
	c := cfg.Config
	switch cfg.Kind {
	case "", "identity":
		return aggregator.NewIdentity(), nil
	case "count_based":
		threshold := 0
		if v, ok := c["count_threshold"].(int); ok {
			threshold = v
		}
		var timeCap time.Duration
		if s, ok := c["time_cap"].(string); ok {
			if d, err := time.ParseDuration(s); err == nil {
				timeCap = d
			}
		}
		return aggregator.NewCountBased(aggregator.Config{CountThreshold: threshold, TimeCap: timeCap}), nil
	default:
		return nil, fmt.Errorf("agent: unknown aggregator kind %q", cfg.Kind)
	}
}

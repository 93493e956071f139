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

// Package obslog provides the agent's structured logger and its rate-limited
// operational alarm channel. Every component that needs to "raise an
// operational alarm" per the component design does so through an
// AlarmChannel rather than logging ad hoc, so alarms are uniformly
// rate-limited and reported to the channel's optional Observer. No
// Observer feeds internal/metrics, so alarm counts are not exported.
package obslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process-wide zap logger. debug toggles development-mode
// encoding (human-readable, with stack traces on warn+); production mode is
// JSON to stderr, matching how long-running daemons in this corpus log.
func New(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	logger, err := cfg.Build()
	if err != nil {
		// zap's own production config never fails to build; fall back to a
		// no-op logger rather than panic the agent over logging setup.
		return zap.NewNop()
	}
	return logger
}

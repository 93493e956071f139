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

// Package checkpoint maintains durable per-file position information and
// per-job run state, so that a restart resumes exactly where the agent
// stopped. It is grounded on gurre-ddb-pitr's checkpoint package (the
// Store interface, file-backed and in-memory implementations) generalized
// from a single restore cursor to many per-file records grouped by job,
// and on original_source/core/checkpoint's waiting/loading/finished/lost
// status lifecycle.
package checkpoint

import (
	"time"

	"github.com/esteban-alvarez/logtrail-agent/pkg/fingerprint"
)

// Status is the lifecycle state of a FileCheckpoint.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusLoading  Status = "loading"
	StatusFinished Status = "finished"
	StatusLost     Status = "lost"
)

// FileCheckpoint is the durable record for one tailed file.
//
// Invariant: AckedOffset <= SubmittedOffset <= file size at last read.
// Invariant: once Status becomes StatusFinished or StatusLost, the record
// is not modified except by deletion (DeleteJob).
type FileCheckpoint struct {
	Job         string               `json:"job"`
	Path        string               `json:"path"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	Status      Status               `json:"status"`
	AckedOffset int64                `json:"ackedOffset"`
	Submitted   int64                `json:"submittedOffset"`
	StartTime   time.Time            `json:"startTime"`
	UpdateTime  time.Time            `json:"updateTime"`
}

// Validate enforces the offset-ordering invariant.
func (fc FileCheckpoint) Validate() error {
	if fc.AckedOffset > fc.Submitted {
		return errInvariant("acked offset exceeds submitted offset")
	}
	return nil
}

type invariantError string

func (e invariantError) Error() string { return string(e) }

func errInvariant(msg string) error { return invariantError(msg) }

// JobCheckpoint tracks an ad-hoc, bounded job: a finite, ordered list of
// files consumed in order. Invariant: 0 <= Cursor <= len(Files); Cursor ==
// len(Files) means the job is terminal.
type JobCheckpoint struct {
	Name   string            `json:"name"`
	Files  []FileCheckpoint  `json:"files"`
	Cursor int               `json:"cursor"`
}

// Terminal reports whether every file of the job has been consumed.
func (j JobCheckpoint) Terminal() bool {
	return j.Cursor >= len(j.Files)
}

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

package checkpoint

import (
	"context"
	"errors"

	"github.com/esteban-alvarez/logtrail-agent/pkg/fingerprint"
)

// ErrNotFound is returned by GetFileCheckpoint when no record matches.
var ErrNotFound = errors.New("checkpoint: not found")

// Store is the durable mapping from file identity to last-acknowledged
// offset, plus small per-job run state.
type Store interface {
	// CreateFileCheckpoint allocates a new record in StatusWaiting.
	CreateFileCheckpoint(job, path string) (FileCheckpoint, error)
	// GetFileCheckpoint looks up a record by job and fingerprint.
	GetFileCheckpoint(job string, fp fingerprint.Fingerprint) (FileCheckpoint, error)
	// UpdateFileCheckpoint installs a new state for the given fingerprint,
	// atomically with respect to reads of the same job.
	UpdateFileCheckpoint(job string, fp fingerprint.Fingerprint, record FileCheckpoint) error
	// DeleteJob removes all file records owned by job.
	DeleteJob(job string) error
	// Dump snapshots all state to stable storage.
	Dump(ctx context.Context) error
	// Load restores state from stable storage at startup.
	Load(ctx context.Context) error
	// ListJob returns every file checkpoint currently recorded for job, for
	// diagnostics and tests. Order is unspecified.
	ListJob(job string) ([]FileCheckpoint, error)
}

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
	"sync"
	"time"

	"github.com/esteban-alvarez/logtrail-agent/pkg/fingerprint"
)

// MemStore is an in-memory-only Store, used in tests and as the
// continuation of service when the durable store's writer fails (spec.md
// §4.1: "the store continues serving in-memory"). Grounded on
// gurre-ddb-pitr/checkpoint.MemoryStore, generalized from a single cursor
// to per-job file maps.
type MemStore struct {
	mu   sync.RWMutex
	jobs map[string]map[string]*FileCheckpoint
}

// NewMemStore constructs an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{jobs: make(map[string]map[string]*FileCheckpoint)}
}

func (m *MemStore) CreateFileCheckpoint(job, path string) (FileCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	files, ok := m.jobs[job]
	if !ok {
		files = make(map[string]*FileCheckpoint)
		m.jobs[job] = files
	}
	now := time.Now()
	rec := FileCheckpoint{Job: job, Path: path, Status: StatusWaiting, StartTime: now, UpdateTime: now}
	files[path] = &rec
	return rec, nil
}

func (m *MemStore) GetFileCheckpoint(job string, fp fingerprint.Fingerprint) (FileCheckpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.jobs[job] {
		if rec.Fingerprint.Identity == fp.Identity && !fp.Identity.IsZero() {
			return *rec, nil
		}
	}
	return FileCheckpoint{}, ErrNotFound
}

func (m *MemStore) UpdateFileCheckpoint(job string, fp fingerprint.Fingerprint, record FileCheckpoint) error {
	if err := record.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	files, ok := m.jobs[job]
	if !ok {
		files = make(map[string]*FileCheckpoint)
		m.jobs[job] = files
	}
	record.UpdateTime = time.Now()
	files[record.Path] = &record
	return nil
}

func (m *MemStore) DeleteJob(job string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, job)
	return nil
}

// Dump and Load are no-ops: MemStore has no stable storage backing it.
func (m *MemStore) Dump(ctx context.Context) error { return nil }
func (m *MemStore) Load(ctx context.Context) error { return nil }

func (m *MemStore) ListJob(job string) ([]FileCheckpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	files := m.jobs[job]
	out := make([]FileCheckpoint, 0, len(files))
	for _, rec := range files {
		out = append(out, *rec)
	}
	return out, nil
}

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
	"fmt"
	"sync"
	"time"
)

// AdhocJobManager owns the cursor for a bounded, finite-file collection
// job: files are consumed in order, and jumping forward marks the skipped
// file as lost.
//
// Open question (a) from spec.md §9 is resolved here: an out-of-order
// rediscovery of a file earlier than the current cursor does not reopen
// the job. original_source's AdhocJobCheckpoint::CheckFileConsistence
// only ever compares the current-index file, so the original never
// reopens either; this type makes that behavior an explicit, named
// decision instead of silently falling out of an index comparison.
type AdhocJobManager struct {
	mu   sync.Mutex
	jobs map[string]*JobCheckpoint
}

// NewAdhocJobManager constructs an empty manager.
func NewAdhocJobManager() *AdhocJobManager {
	return &AdhocJobManager{jobs: make(map[string]*JobCheckpoint)}
}

// StartJob registers a new bounded job with its ordered file list.
func (m *AdhocJobManager) StartJob(name string, paths []string) *JobCheckpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	files := make([]FileCheckpoint, len(paths))
	now := time.Now()
	for i, p := range paths {
		files[i] = FileCheckpoint{Job: name, Path: p, Status: StatusWaiting, StartTime: now, UpdateTime: now}
	}
	job := &JobCheckpoint{Name: name, Files: files}
	m.jobs[name] = job
	return job
}

// Advance moves the job's cursor to index, marking every file from the
// previous cursor up to, but not including, index as lost (a forward jump
// skips those files). index must be within [cursor, len(Files)].
func (m *AdhocJobManager) Advance(name string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("checkpoint: unknown ad-hoc job %q", name)
	}
	if index < job.Cursor || index > len(job.Files) {
		return fmt.Errorf("checkpoint: invalid cursor advance for job %q: %d -> %d (len=%d)", name, job.Cursor, index, len(job.Files))
	}
	now := time.Now()
	for i := job.Cursor; i < index; i++ {
		job.Files[i].Status = StatusLost
		job.Files[i].UpdateTime = now
	}
	job.Cursor = index
	return nil
}

// CheckFileConsistence reports whether path is the file currently at the
// job's cursor. Per the resolved Open Question (a), only the current-index
// file is ever compared; a path matching an earlier, already-consumed file
// is reported inconsistent rather than reopening the job.
func (m *AdhocJobManager) CheckFileConsistence(name, path string) (consistent bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[name]
	if !ok {
		return false, fmt.Errorf("checkpoint: unknown ad-hoc job %q", name)
	}
	if job.Terminal() {
		return false, nil
	}
	return job.Files[job.Cursor].Path == path, nil
}

// Job returns a copy of the job's current state.
func (m *AdhocJobManager) Job(name string) (JobCheckpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[name]
	if !ok {
		return JobCheckpoint{}, false
	}
	return *job, true
}

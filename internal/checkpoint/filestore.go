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
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/esteban-alvarez/logtrail-agent/pkg/fingerprint"
	"go.uber.org/zap"
)

// jobState is the in-memory, single-writer/many-reader table for one job.
// The dumper takes a read lock across one job at a time, so writers are
// blocked for at most one job-serialisation duration.
type jobState struct {
	mu     sync.RWMutex
	byPath map[string]*FileCheckpoint
}

// FileStore is a Store backed by one JSON file per job under Dir, using the
// write-new-then-rename durability protocol: write to "<path>.new", fsync,
// rename over "<path>". Reads prefer the live path and fall back to
// "<path>.new" only if the live path is missing.
type FileStore struct {
	dir    string
	logger *zap.Logger

	mu   sync.Mutex // guards jobs map membership only
	jobs map[string]*jobState
}

// NewFileStore constructs a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, logger: logger, jobs: make(map[string]*jobState)}, nil
}

func (s *FileStore) jobPath(job string) string {
	return filepath.Join(s.dir, job+".json")
}

func (s *FileStore) job(job string) *jobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	js, ok := s.jobs[job]
	if !ok {
		js = &jobState{byPath: make(map[string]*FileCheckpoint)}
		s.jobs[job] = js
	}
	return js
}

// CreateFileCheckpoint allocates a new record in StatusWaiting.
func (s *FileStore) CreateFileCheckpoint(job, path string) (FileCheckpoint, error) {
	js := s.job(job)
	js.mu.Lock()
	defer js.mu.Unlock()
	now := time.Now()
	rec := FileCheckpoint{
		Job:        job,
		Path:       path,
		Status:     StatusWaiting,
		StartTime:  now,
		UpdateTime: now,
	}
	js.byPath[path] = &rec
	return rec, nil
}

// GetFileCheckpoint looks up a record by job and fingerprint identity.
func (s *FileStore) GetFileCheckpoint(job string, fp fingerprint.Fingerprint) (FileCheckpoint, error) {
	js := s.job(job)
	js.mu.RLock()
	defer js.mu.RUnlock()
	for _, rec := range js.byPath {
		if rec.Fingerprint.Identity == fp.Identity && !fp.Identity.IsZero() {
			return *rec, nil
		}
	}
	return FileCheckpoint{}, ErrNotFound
}

// FindClosedPeerBySignature searches every record in job, whatever its
// status, for one whose signature matches sig. This is the plumbing the tailing reader needs to
// recognise "a just-closed peer" during rotation detection (spec.md
// §4.4); it is not itself a Store operation named by the spec.
func (s *FileStore) FindClosedPeerBySignature(job string, sig fingerprint.Signature) (FileCheckpoint, bool) {
	js := s.job(job)
	js.mu.RLock()
	defer js.mu.RUnlock()
	for _, rec := range js.byPath {
		if rec.Fingerprint.Signature.Matches(sig) && !sig.IsZero() {
			return *rec, true
		}
	}
	return FileCheckpoint{}, false
}

// UpdateFileCheckpoint installs record as the new state for record.Path,
// replacing whatever was stored for that path; fp is not consulted.
func (s *FileStore) UpdateFileCheckpoint(job string, fp fingerprint.Fingerprint, record FileCheckpoint) error {
	if err := record.Validate(); err != nil {
		return err
	}
	js := s.job(job)
	js.mu.Lock()
	defer js.mu.Unlock()
	record.UpdateTime = time.Now()
	js.byPath[record.Path] = &record
	return nil
}

// DeleteJob removes all file records owned by job.
func (s *FileStore) DeleteJob(job string) error {
	s.mu.Lock()
	delete(s.jobs, job)
	s.mu.Unlock()
	return os.Remove(s.jobPath(job))
}

// ListJob returns every file checkpoint currently recorded for job.
func (s *FileStore) ListJob(job string) ([]FileCheckpoint, error) {
	js := s.job(job)
	js.mu.RLock()
	defer js.mu.RUnlock()
	out := make([]FileCheckpoint, 0, len(js.byPath))
	for _, rec := range js.byPath {
		out = append(out, *rec)
	}
	return out, nil
}

// serializedEntry mirrors the status-dependent field subset described in
// spec.md §4.1: waiting entries carry identity and size (approximated here
// by the fingerprint, since size is tracked by the tailer, not the
// checkpoint record itself); loading entries add offset and timestamps;
// finished entries drop identity/signature but keep the real path and
// timestamps; lost entries keep only the last-update timestamp.
type serializedEntry struct {
	Path        string                  `json:"path,omitempty"`
	Status      Status                  `json:"status"`
	Fingerprint *fingerprint.Fingerprint `json:"fingerprint,omitempty"`
	AckedOffset int64                   `json:"ackedOffset,omitempty"`
	Submitted   int64                   `json:"submittedOffset,omitempty"`
	StartTime   *time.Time              `json:"startTime,omitempty"`
	UpdateTime  time.Time               `json:"updateTime"`
}

func toSerialized(fc FileCheckpoint) serializedEntry {
	e := serializedEntry{Status: fc.Status, UpdateTime: fc.UpdateTime}
	switch fc.Status {
	case StatusWaiting:
		e.Path = fc.Path
		e.Fingerprint = &fc.Fingerprint
	case StatusLoading:
		e.Path = fc.Path
		e.Fingerprint = &fc.Fingerprint
		e.AckedOffset = fc.AckedOffset
		e.Submitted = fc.Submitted
		st := fc.StartTime
		e.StartTime = &st
	case StatusFinished:
		e.Path = fc.Path
		e.AckedOffset = fc.AckedOffset
		e.Submitted = fc.Submitted
		st := fc.StartTime
		e.StartTime = &st
	case StatusLost:
		// only the last-update timestamp is retained
	}
	return e
}

func fromSerialized(job string, e serializedEntry) FileCheckpoint {
	fc := FileCheckpoint{
		Job:         job,
		Path:        e.Path,
		Status:      e.Status,
		AckedOffset: e.AckedOffset,
		Submitted:   e.Submitted,
		UpdateTime:  e.UpdateTime,
	}
	if e.Fingerprint != nil {
		fc.Fingerprint = *e.Fingerprint
	}
	if e.StartTime != nil {
		fc.StartTime = *e.StartTime
	}
	return fc
}

// Dump snapshots all known jobs to stable storage using the
// write-new-then-rename protocol.
func (s *FileStore) Dump(ctx context.Context) error {
	s.mu.Lock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.dumpJob(name); err != nil {
			s.logger.Error("checkpoint dump failed", zap.String("job", name), zap.Error(err))
			return err
		}
	}
	return nil
}

func (s *FileStore) dumpJob(job string) error {
	js := s.job(job)
	js.mu.RLock()
	entries := make(map[string]serializedEntry, len(js.byPath))
	for path, rec := range js.byPath {
		entries[path] = toSerialized(*rec)
	}
	js.mu.RUnlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	live := s.jobPath(job)
	tmp := live + ".new"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, live)
}

// Load restores every job found in Dir from stable storage. A load
// parsing failure for one job discards that job and logs the reason; it
// does not propagate to the caller, matching the failure semantics of
// spec.md §4.1.
func (s *FileStore) Load(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || (!strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".json.new")) {
			continue
		}
		job := strings.TrimSuffix(strings.TrimSuffix(name, ".new"), ".json")
		if strings.HasSuffix(name, ".new") {
			if _, err := os.Stat(s.jobPath(job)); err == nil {
				continue // the live file is present and is loaded instead
			}
		}
		if err := s.loadJob(job); err != nil {
			s.logger.Warn("discarding unreadable checkpoint job", zap.String("job", job), zap.Error(err))
		}
	}
	return nil
}

func (s *FileStore) loadJob(job string) error {
	live := s.jobPath(job)
	data, err := os.ReadFile(live)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		data, err = os.ReadFile(live + ".new")
		if err != nil {
			return err
		}
	}
	var entries map[string]serializedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	js := s.job(job)
	js.mu.Lock()
	defer js.mu.Unlock()
	for path, e := range entries {
		fc := fromSerialized(job, e)
		js.byPath[path] = &fc
	}
	return nil
}

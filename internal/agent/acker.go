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
	"sync"

	"github.com/esteban-alvarez/logtrail-agent/internal/checkpoint"
	"github.com/esteban-alvarez/logtrail-agent/pkg/fingerprint"
)

// checkpointAcker implements driver.Acker, advancing a file's
// AckedOffset in the checkpoint store once its bytes have been
// successfully sent. It tracks the fingerprint each tailed path was
// opened under, since Store keys records by (job, fingerprint) rather
// than path.
type checkpointAcker struct {
	store checkpoint.Store

	mu      sync.Mutex
	fpByKey map[string]fingerprint.Fingerprint // key: job+"|"+path
}

func newCheckpointAcker(store checkpoint.Store) *checkpointAcker {
	return &checkpointAcker{store: store, fpByKey: make(map[string]fingerprint.Fingerprint)}
}

func (a *checkpointAcker) trackFingerprint(job, path string, fp fingerprint.Fingerprint) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fpByKey[job+"|"+path] = fp
}

func (a *checkpointAcker) Ack(job, sourcePath string, offset int64) error {
	a.mu.Lock()
	fp, ok := a.fpByKey[job+"|"+sourcePath]
	a.mu.Unlock()
	if !ok {
		return nil // nothing tracked (e.g. synthetic traffic); ack is a no-op
	}
	rec, err := a.store.GetFileCheckpoint(job, fp)
	if err != nil {
		return err
	}
	if offset > rec.AckedOffset {
		rec.AckedOffset = offset
	}
	if offset > rec.Submitted {
		rec.Submitted = offset
	}
	return a.store.UpdateFileCheckpoint(job, fp, rec)
}

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

	"github.com/esteban-alvarez/logtrail-agent/internal/checkpoint"
)

func TestCheckpointAckerAdvancesAckedOffset(t *testing.T) {
	store := checkpoint.NewMemStore()
	cp, err := store.CreateFileCheckpoint("job", "/var/log/app.log")
	if err != nil {
		t.Fatalf("CreateFileCheckpoint: %v", err)
	}

	a := newCheckpointAcker(store)
	a.trackFingerprint("job", "/var/log/app.log", cp.Fingerprint)

	if err := a.Ack("job", "/var/log/app.log", 128); err != nil {
		t.Fatalf("Ack: %v", err)
	}

	got, err := store.GetFileCheckpoint("job", cp.Fingerprint)
	if err != nil {
		t.Fatalf("GetFileCheckpoint: %v", err)
	}
	if got.AckedOffset != 128 {
		t.Fatalf("expected AckedOffset 128, got %d", got.AckedOffset)
	}
}

func TestCheckpointAckerIgnoresUntrackedPaths(t *testing.T) {
	store := checkpoint.NewMemStore()
	a := newCheckpointAcker(store)
	if err := a.Ack("job", "/never/tracked.log", 1); err != nil {
		t.Fatalf("expected no error for untracked path, got %v", err)
	}
}

func TestCheckpointAckerNeverRegressesOffset(t *testing.T) {
	store := checkpoint.NewMemStore()
	cp, err := store.CreateFileCheckpoint("job", "/var/log/app.log")
	if err != nil {
		t.Fatalf("CreateFileCheckpoint: %v", err)
	}
	a := newCheckpointAcker(store)
	a.trackFingerprint("job", "/var/log/app.log", cp.Fingerprint)

	if err := a.Ack("job", "/var/log/app.log", 256); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	if err := a.Ack("job", "/var/log/app.log", 10); err != nil {
		t.Fatalf("Ack: %v", err)
	}

	got, err := store.GetFileCheckpoint("job", cp.Fingerprint)
	if err != nil {
		t.Fatalf("GetFileCheckpoint: %v", err)
	}
	if got.AckedOffset != 256 {
		t.Fatalf("expected AckedOffset to stay at 256, got %d", got.AckedOffset)
	}
}

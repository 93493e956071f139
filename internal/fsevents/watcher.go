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

package fsevents

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/esteban-alvarez/logtrail-agent/internal/obslog"
)

// RescanFunc is called when the watcher cannot keep up with the kernel
// queue and must resynchronise a directory by full scan (§4.2 overflow
// policy: "never silently drop").
type RescanFunc func(dir string)

// pendingRename remembers a MoveFrom basename waiting for its MoveTo pair
// within renamePairWindow, the heuristic this package uses in place of a
// native rename cookie (fsnotify delivers Rename and Create as distinct,
// uncorrelated events on Linux).
type pendingRename struct {
	basename string
	at       time.Time
	cookie   uint64
}

const renamePairWindow = 250 * time.Millisecond

// Watcher wraps fsnotify.Watcher behind the Event shape this package
// exports, synthesizing rename cookies and routing overflow into a rescan
// callback instead of ever silently dropping an event.
type Watcher struct {
	logger *zap.Logger
	alarms *obslog.AlarmChannel
	rescan RescanFunc

	fsw *fsnotify.Watcher

	mu       sync.Mutex
	dirIDs   map[string]int
	nextID   int
	pendingR map[string]pendingRename // dir -> most recent unpaired MoveFrom
	cookies  uint64

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Watcher. Call Add for each directory to watch, then
// Run to start the event-delivery goroutine.
func New(logger *zap.Logger, alarms *obslog.AlarmChannel, rescan RescanFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		logger:   logger,
		alarms:   alarms,
		rescan:   rescan,
		fsw:      fsw,
		dirIDs:   make(map[string]int),
		pendingR: make(map[string]pendingRename),
		events:   make(chan Event, 1024),
		done:     make(chan struct{}),
	}, nil
}

// Add registers dir for watching and assigns it a stable watched-directory
// id, reused if dir was already added.
func (w *Watcher) Add(dir string) (int, error) {
	dir = filepath.Clean(dir)
	w.mu.Lock()
	id, ok := w.dirIDs[dir]
	if !ok {
		id = w.nextID
		w.nextID++
		w.dirIDs[dir] = id
	}
	w.mu.Unlock()
	if err := w.fsw.Add(dir); err != nil {
		return 0, err
	}
	return id, nil
}

// Remove stops watching dir. The directory id is retained so that any
// late in-flight events from it still resolve correctly.
func (w *Watcher) Remove(dir string) error {
	return w.fsw.Remove(filepath.Clean(dir))
}

// Events returns the channel of synthesized events.
func (w *Watcher) Events() <-chan Event { return w.events }

// Run starts the translation loop. It blocks until ctx is cancelled or
// Close is called.
func (w *Watcher) Run(ctx context.Context) {
	w.wg.Add(1)
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				w.raiseOverflow("fsnotify event channel closed")
				return
			}
			w.translate(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.raiseOverflow(err.Error())
		}
	}
}

// Close stops the watcher and releases the underlying kernel handle.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	close(w.events)
	return err
}

func (w *Watcher) translate(ev fsnotify.Event) {
	dir, base := filepath.Split(ev.Name)
	dir = filepath.Clean(dir)
	w.mu.Lock()
	id := w.dirIDs[dir]
	w.mu.Unlock()

	now := time.Now()

	switch {
	case ev.Has(fsnotify.Create):
		cookie := w.pairCreate(dir, base, now)
		kind := KindCreate
		if cookie != 0 {
			kind = KindMoveTo
		}
		w.emit(Event{WatchedDirID: id, Dir: dir, Basename: base, Kind: kind, Cookie: cookie, Time: now})
	case ev.Has(fsnotify.Remove):
		cookie := w.markMoveFrom(dir, base, now)
		if cookie != 0 {
			w.emit(Event{WatchedDirID: id, Dir: dir, Basename: base, Kind: KindMoveFrom, Cookie: cookie, Time: now})
		} else {
			w.emit(Event{WatchedDirID: id, Dir: dir, Basename: base, Kind: KindDelete, Time: now})
		}
	case ev.Has(fsnotify.Rename):
		cookie := w.markMoveFrom(dir, base, now)
		w.emit(Event{WatchedDirID: id, Dir: dir, Basename: base, Kind: KindMoveFrom, Cookie: cookie, Time: now})
	case ev.Has(fsnotify.Write):
		w.emit(Event{WatchedDirID: id, Dir: dir, Basename: base, Kind: KindModify, Time: now})
	case ev.Has(fsnotify.Chmod):
		w.emit(Event{WatchedDirID: id, Dir: dir, Basename: base, Kind: KindModify, Time: now})
	}
}

// markMoveFrom records an unpaired departure and allocates a cookie for
// it, to be claimed by a Create arriving within renamePairWindow.
func (w *Watcher) markMoveFrom(dir, base string, at time.Time) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cookies++
	w.pendingR[dir] = pendingRename{basename: base, at: at, cookie: w.cookies}
	return w.cookies
}

// pairCreate claims the most recent pending MoveFrom for dir if it is
// still within the pairing window; otherwise this Create is unpaired.
func (w *Watcher) pairCreate(dir, base string, at time.Time) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.pendingR[dir]
	if !ok || at.Sub(p.at) > renamePairWindow {
		return 0
	}
	delete(w.pendingR, dir)
	return p.cookie
}

// emit blocks rather than drops when the consumer is behind: "never
// silently drop" (§4.2) applies to this layer too, at the cost of
// backpressure onto the kernel-event reader.
func (w *Watcher) emit(ev Event) {
	w.events <- ev
}

func (w *Watcher) raiseOverflow(reason string) {
	w.logger.Warn("fsevents overflow, resynchronising", zap.String("reason", reason))
	if w.alarms != nil {
		w.alarms.Raise(obslog.Alarm{
			Category: obslog.CategoryIO,
			Message:  "event listener overflow: " + reason,
		})
	}
	if w.rescan == nil {
		return
	}
	w.mu.Lock()
	dirs := make([]string, 0, len(w.dirIDs))
	for d := range w.dirIDs {
		dirs = append(dirs, d)
	}
	w.mu.Unlock()
	for _, d := range dirs {
		w.rescan(d)
	}
}

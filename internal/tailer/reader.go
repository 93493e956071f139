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

// Package tailer maintains one open handle per live file, reading
// incrementally and emitting byte ranges downstream to the splitter.
package tailer

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/esteban-alvarez/logtrail-agent/internal/checkpoint"
	"github.com/esteban-alvarez/logtrail-agent/internal/obslog"
	"github.com/esteban-alvarez/logtrail-agent/internal/scheduler"
	"github.com/esteban-alvarez/logtrail-agent/pkg/fingerprint"
)

// Range is a contiguous byte range read from a file in one tick, already
// encoding-converted, ready for the splitter.
type Range struct {
	Path       string
	FileOffset int64 // offset of Data[0] within the file, post-conversion byte space is not tracked; this is the source-file offset
	Data       []byte
}

// Sink receives ranges read from the tailed file. Implementations must not
// retain Data past the call (the reader reuses its buffer).
type Sink interface {
	Accept(r Range) (backpressure bool)
}

const (
	defaultBufferSize  = 64 * 1024
	defaultIdleTimeout = 5 * time.Minute
	readPollInterval   = 200 * time.Millisecond
)

// Reader owns one open file handle, a read buffer, and a position. It
// implements the rotation-detection decision tree of spec.md §4.4.
//
// A Reader performs no ticking of its own: spec.md §2/§5 has control flow
// from the Scheduler into Tailing Readers, so Start registers one
// scheduler.Task per tailed file and every read cycle runs as that task's
// RunFunc. mu serializes tick/close against the scheduler's worker pool,
// which — unlike the single goroutine a private ticker would have used —
// makes no promise that a slow tick won't still be running when the next
// one is dispatched.
type Reader struct {
	job    string
	path   string
	store  checkpoint.Store
	sink   Sink
	logger *zap.Logger
	alarms *obslog.AlarmChannel
	enc    Encoding
	sched  *scheduler.Scheduler

	idleTimeout time.Duration

	mu        sync.Mutex
	osFile    *os.File
	offset    atomic.Int64
	identity  fingerprint.Identity
	signature fingerprint.Signature // signature of identity as last observed

	// peer is set while continuing a rotated predecessor file to EOF.
	peer     *os.File
	peerPath string
	peerOff  int64

	heldBytes []byte // partial multi-byte sequence held from the previous tick
	lastIO    atomic.Int64 // unix nanos of the last successful read

	taskName string
	stop     chan struct{}
	wg       sync.WaitGroup

	parked atomic.Bool
}

// Config carries the construction parameters for a Reader.
type Config struct {
	Job         string
	Path        string
	Store       checkpoint.Store
	Sink        Sink
	Logger      *zap.Logger
	Alarms      *obslog.AlarmChannel
	Encoding    Encoding
	IdleTimeout time.Duration

	// Scheduler drives this reader's read cycle via a registered
	// scheduler.Task. A nil Scheduler falls back to a private ticker, so
	// tests and other direct callers of tick() are unaffected.
	Scheduler *scheduler.Scheduler
}

// New constructs a Reader. Call Start to begin tailing.
func New(cfg Config) *Reader {
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		job:         cfg.Job,
		path:        cfg.Path,
		store:       cfg.Store,
		sink:        cfg.Sink,
		logger:      logger,
		alarms:      cfg.Alarms,
		enc:         cfg.Encoding,
		sched:       cfg.Scheduler,
		idleTimeout: idle,
		stop:        make(chan struct{}),
	}
}

// Offset returns the current read offset within the live file.
func (r *Reader) Offset() int64 { return r.offset.Load() }

// Parked reports whether the reader is currently backpressure-parked.
func (r *Reader) Parked() bool { return r.parked.Load() }

// Start opens the file (if closed) at fp and begins the read loop.
func (r *Reader) Start(fp fingerprint.Fingerprint, offset int64) error {
	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	r.osFile = f
	r.identity = fp.Identity
	r.signature = fp.Signature
	r.offset.Store(offset)
	r.lastIO.Store(time.Now().UnixNano())

	if r.sched != nil {
		r.taskName = r.job + "|" + r.path
		return r.sched.AddTask(&scheduler.Task{
			Name:     r.taskName,
			Interval: readPollInterval,
			Run:      r.scheduledTick,
		})
	}

	r.wg.Add(1)
	go r.loop()
	return nil
}

// Stop halts the read loop (or unregisters the scheduled task), waits for
// any tick in flight to finish, and closes the file.
func (r *Reader) Stop() {
	close(r.stop)
	if r.sched != nil {
		r.sched.RemoveTask(r.taskName)
	}
	r.wg.Wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeFile()
}

func (r *Reader) loop() {
	defer r.wg.Done()
	ticker := time.NewTicker(readPollInterval)
	defer ticker.Stop()
	idleTicker := time.NewTicker(r.idleTimeout / 4)
	defer idleTicker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-idleTicker.C:
			if r.isIdle() {
				r.logger.Debug("closing idle reader, checkpoint preserved", zap.String("path", r.path))
				r.mu.Lock()
				r.closeFile()
				r.mu.Unlock()
				return
			}
		case <-ticker.C:
			r.mu.Lock()
			r.tick()
			r.mu.Unlock()
		}
	}
}

// scheduledTick is the RunFunc a scheduler.Task invokes on the Scheduler's
// worker pool. It folds the idle check into the same cycle a private
// ticker would otherwise run on its own interval, since the scheduler
// only grants this reader one callback per due tick.
func (r *Reader) scheduledTick(ctx context.Context) error {
	select {
	case <-r.stop:
		return nil
	default:
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isIdle() {
		r.logger.Debug("closing idle reader, checkpoint preserved", zap.String("path", r.path))
		r.sched.RemoveTask(r.taskName)
		r.closeFile()
		return nil
	}
	r.tick()
	return nil
}

func (r *Reader) isIdle() bool {
	last := time.Unix(0, r.lastIO.Load())
	return time.Since(last) > r.idleTimeout
}

// tick performs one rotation-check-and-read cycle. It detects
// backpressure from the sink and parks (skips reading, advances no
// checkpoint) until capacity returns. Callers hold mu.
func (r *Reader) tick() {
	if r.parked.Load() {
		// Parking is cleared by the downstream queue calling Unpark once
		// it observes capacity has returned; no bytes are read meanwhile
		// and the checkpoint is not advanced.
		return
	}

	cur, err := r.currentFingerprint()
	if err != nil {
		r.logger.Warn("fingerprint probe failed", zap.String("path", r.path), zap.Error(err))
		return
	}

	recorded := fingerprint.Fingerprint{Identity: r.identity, Signature: r.signature}
	kind := r.classifyAgainst(recorded, cur)
	switch kind {
	case fingerprint.KindTruncated:
		r.offset.Store(0)
		r.signature = cur.Signature
	case fingerprint.KindRotated:
		r.beginRotation(cur)
	case fingerprint.KindNew:
		r.beginRotationAsNew(cur)
	case fingerprint.KindUnchanged:
		// fall through to read
	}

	r.readAvailable()
	if r.peer != nil {
		r.drainPeerToEOF()
	}
}

func (r *Reader) classifyAgainst(recorded, cur fingerprint.Fingerprint) fingerprint.Kind {
	var closedPeerSig fingerprint.Signature
	havePeer := false
	if r.store != nil {
		if peer, ok := findClosedPeer(r.store, r.job, cur.Signature); ok {
			closedPeerSig = peer.Fingerprint.Signature
			havePeer = true
		}
	}
	return fingerprint.Classify(recorded, cur, closedPeerSig, havePeer)
}

// findClosedPeer narrows checkpoint.Store to the optional
// FindClosedPeerBySignature capability, which FileStore implements and
// MemStore does not, without widening the Store interface itself.
func findClosedPeer(store checkpoint.Store, job string, sig fingerprint.Signature) (checkpoint.FileCheckpoint, bool) {
	type peerFinder interface {
		FindClosedPeerBySignature(job string, sig fingerprint.Signature) (checkpoint.FileCheckpoint, bool)
	}
	if pf, ok := store.(peerFinder); ok {
		return pf.FindClosedPeerBySignature(job, sig)
	}
	return checkpoint.FileCheckpoint{}, false
}

func (r *Reader) beginRotation(cur fingerprint.Fingerprint) {
	r.peer = r.osFile
	r.peerPath = r.path
	r.peerOff = r.offset.Load()

	f, err := os.Open(r.path)
	if err != nil {
		r.raiseIOAlarm(err)
		r.peer = nil
		return
	}
	r.osFile = f
	r.identity = cur.Identity
	r.signature = cur.Signature
	r.offset.Store(0)
}

// beginRotationAsNew handles fingerprint.KindNew: an identity change with no
// closed peer record to confirm it as a rotation. It sets up the old handle
// as a peer exactly like beginRotation, so tick's shared epilogue drains it
// to EOF, and creates a fresh checkpoint record for the newly observed
// identity so the continuation is tracked from offset 0 rather than silently
// dropped.
func (r *Reader) beginRotationAsNew(cur fingerprint.Fingerprint) {
	r.peer = r.osFile
	r.peerPath = r.path
	r.peerOff = r.offset.Load()

	f, err := os.Open(r.path)
	if err != nil {
		r.raiseIOAlarm(err)
		r.peer = nil
		return
	}

	if r.store != nil {
		if _, err := r.store.CreateFileCheckpoint(r.job, r.path); err != nil {
			r.logger.Warn("failed to create checkpoint for new identity", zap.String("path", r.path), zap.Error(err))
		}
	}

	r.osFile = f
	r.identity = cur.Identity
	r.signature = cur.Signature
	r.offset.Store(0)
}

func (r *Reader) drainPeerToEOF() {
	buf := make([]byte, defaultBufferSize)
	for {
		n, err := r.peer.ReadAt(buf, r.peerOff)
		if n > 0 {
			r.emit(r.peerPath, r.peerOff, buf[:n])
			r.peerOff += int64(n)
		}
		if err == io.EOF || n == 0 {
			break
		}
	}
	r.peer.Close()
	r.peer = nil
}

func (r *Reader) readAvailable() {
	buf := make([]byte, defaultBufferSize)
	off := r.offset.Load()
	n, err := r.osFile.ReadAt(buf, off)
	if n > 0 {
		r.lastIO.Store(time.Now().UnixNano())
		raw := buf[:n]
		if len(r.heldBytes) > 0 {
			raw = append(append([]byte{}, r.heldBytes...), raw...)
			r.heldBytes = nil
		}
		converted, held := convert(r.enc, raw)
		if held > 0 {
			r.heldBytes = append([]byte(nil), raw[len(raw)-held:]...)
		}
		backpressure := false
		if r.sink != nil {
			backpressure = r.sink.Accept(Range{Path: r.path, FileOffset: off, Data: converted})
		}
		r.parked.Store(backpressure)
		if !backpressure {
			r.offset.Store(off + int64(n))
		}
	}
	if err != nil && err != io.EOF {
		r.raiseIOAlarm(err)
	}
}

func (r *Reader) emit(path string, offset int64, data []byte) {
	if r.sink != nil {
		r.sink.Accept(Range{Path: path, FileOffset: offset, Data: data})
	}
}

func (r *Reader) currentFingerprint() (fingerprint.Fingerprint, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	id := identityOf(info)
	f, err := os.Open(r.path)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	defer f.Close()
	buf := make([]byte, fingerprint.DefaultSignatureSize)
	n, _ := f.Read(buf)
	// A file that has grown since its signature was taken is re-hashed over
	// the same leading byte count, so appended bytes do not change it.
	sz := n
	if rs := int(r.signature.Size); rs > 0 && rs < n && id == r.identity {
		sz = rs
	}
	return fingerprint.Fingerprint{Identity: id, Signature: fingerprint.Compute(buf[:sz])}, nil
}

func (r *Reader) raiseIOAlarm(err error) {
	r.logger.Warn("tailer io error", zap.String("path", r.path), zap.Error(err))
	if r.alarms != nil {
		r.alarms.Raise(obslog.Alarm{
			Category: obslog.CategoryIO,
			Pipeline: r.job,
			Key:      r.path,
			Message:  err.Error(),
		})
	}
}

// closeFile is idempotent: both the idle self-close path and Stop may
// call it, and Stop always calls it even if the reader already closed
// itself for idleness. Callers hold mu.
func (r *Reader) closeFile() {
	if r.osFile != nil {
		r.osFile.Close()
		r.osFile = nil
	}
	if r.peer != nil {
		r.peer.Close()
		r.peer = nil
	}
}

// Unpark clears the backpressure-parked state, resuming reads on the next
// tick. Callers invoke this once the downstream queue reports capacity.
func (r *Reader) Unpark() { r.parked.Store(false) }

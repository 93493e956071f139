package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/esteban-alvarez/logtrail-agent/pkg/fingerprint"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestCheckpointRoundTrip is scenario S7: write 100 file checkpoints in
// loading status with distinct identities, dump, restart, load, and expect
// all 100 to come back with identical field values.
func TestCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)

	const job = "job-a"
	want := make(map[string]FileCheckpoint, 100)
	for i := 0; i < 100; i++ {
		path := filepath.Join("/var/log", fmt.Sprintf("app-%03d.log", i))
		rec, err := store.CreateFileCheckpoint(job, path)
		require.NoError(t, err)
		rec.Status = StatusLoading
		rec.Fingerprint = fingerprint.Fingerprint{
			Identity:  fingerprint.Identity{Device: 1, Inode: uint64(1000 + i)},
			Signature: fingerprint.Compute([]byte(path)),
		}
		rec.Submitted = int64(i * 10)
		rec.AckedOffset = int64(i * 5)
		require.NoError(t, store.UpdateFileCheckpoint(job, rec.Fingerprint, rec))
		want[path] = rec
	}

	require.NoError(t, store.Dump(context.Background()))

	// Simulate a restart: fresh store pointed at the same directory.
	restarted, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, restarted.Load(context.Background()))

	got, err := restarted.ListJob(job)
	require.NoError(t, err)
	require.Len(t, got, 100)

	for _, rec := range got {
		w, ok := want[rec.Path]
		require.True(t, ok, "unexpected path %s", rec.Path)
		require.Equal(t, w.Status, rec.Status)
		require.Equal(t, w.Submitted, rec.Submitted)
		require.Equal(t, w.AckedOffset, rec.AckedOffset)
		require.WithinDuration(t, w.StartTime, rec.StartTime, time.Second)
		require.WithinDuration(t, w.UpdateTime, rec.UpdateTime, time.Second)
	}
}

// TestCheckpointFileAtomicity is universal property 7: at any instant the
// live checkpoint path either does not exist or is valid, parseable JSON
// of the last-completed dump.
func TestCheckpointFileAtomicity(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)

	const job = "atomic-job"
	_, err = store.CreateFileCheckpoint(job, "/var/log/app.log")
	require.NoError(t, err)
	require.NoError(t, store.Dump(context.Background()))

	live := filepath.Join(dir, job+".json")
	data, err := os.ReadFile(live)
	require.NoError(t, err)
	var decoded map[string]serializedEntry
	require.NoError(t, json.Unmarshal(data, &decoded))

	// A ".new" staging file must never remain after a completed dump.
	_, err = os.Stat(live + ".new")
	require.True(t, os.IsNotExist(err))
}

// TestMonotoneAckedOffset is universal property 2.
func TestMonotoneAckedOffset(t *testing.T) {
	store := NewMemStore()
	const job = "mono-job"
	rec, err := store.CreateFileCheckpoint(job, "/var/log/app.log")
	require.NoError(t, err)
	fp := fingerprint.Fingerprint{Identity: fingerprint.Identity{Device: 1, Inode: 7}}
	rec.Fingerprint = fp
	rec.Status = StatusLoading

	offsets := []int64{0, 10, 10, 25, 40}
	last := int64(-1)
	for _, off := range offsets {
		rec.AckedOffset = off
		rec.Submitted = off + 100
		require.NoError(t, store.UpdateFileCheckpoint(job, fp, rec))
		got, err := store.GetFileCheckpoint(job, fp)
		require.NoError(t, err)
		require.GreaterOrEqual(t, got.AckedOffset, last)
		last = got.AckedOffset
	}
}

func TestUpdateFileCheckpointRejectsInvariantViolation(t *testing.T) {
	store := NewMemStore()
	fp := fingerprint.Fingerprint{Identity: fingerprint.Identity{Device: 1, Inode: 1}}
	rec := FileCheckpoint{Job: "j", Path: "/x", Fingerprint: fp, AckedOffset: 100, Submitted: 10}
	require.Error(t, store.UpdateFileCheckpoint("j", fp, rec))
}

func TestAdhocJobManagerDoesNotReopenOnOutOfOrderRediscovery(t *testing.T) {
	m := NewAdhocJobManager()
	m.StartJob("job1", []string{"a", "b", "c"})
	require.NoError(t, m.Advance("job1", 2)) // skip a, b -> lost

	job, ok := m.Job("job1")
	require.True(t, ok)
	require.Equal(t, StatusLost, job.Files[0].Status)
	require.Equal(t, StatusLost, job.Files[1].Status)
	require.Equal(t, 2, job.Cursor)

	// Rediscovering "a" (already consumed/lost) must not reopen the job.
	consistent, err := m.CheckFileConsistence("job1", "a")
	require.NoError(t, err)
	require.False(t, consistent)

	consistent, err = m.CheckFileConsistence("job1", "c")
	require.NoError(t, err)
	require.True(t, consistent)
}

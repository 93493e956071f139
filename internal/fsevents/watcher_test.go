package fsevents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := New(nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func TestRenamePairingWithinWindow(t *testing.T) {
	w := newTestWatcher(t)
	now := time.Now()

	cookie := w.markMoveFrom("/var/log", "app.log", now)
	require.NotZero(t, cookie)

	got := w.pairCreate("/var/log", "app.log.new", now.Add(10*time.Millisecond))
	require.Equal(t, cookie, got)

	// The pending entry is consumed; a second Create does not re-pair.
	got2 := w.pairCreate("/var/log", "app.log.other", now.Add(20*time.Millisecond))
	require.Zero(t, got2)
}

func TestRenamePairingOutsideWindowIsUnpaired(t *testing.T) {
	w := newTestWatcher(t)
	now := time.Now()

	w.markMoveFrom("/var/log", "app.log", now)
	got := w.pairCreate("/var/log", "app.log.new", now.Add(renamePairWindow+time.Millisecond))
	require.Zero(t, got)
}

func TestAddAssignsStableDirID(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t)

	id1, err := w.Add(dir)
	require.NoError(t, err)
	id2, err := w.Add(dir)
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventGetSetDelete(t *testing.T) {
	ev := Event{}
	ev.Set("a", "1")
	ev.Set("b", "2")
	v, ok := ev.Get("a")
	require.True(t, ok)
	require.Equal(t, "1", v)

	ev.Set("a", "3")
	v, _ = ev.Get("a")
	require.Equal(t, "3", v)

	ev.Delete("b")
	_, ok = ev.Get("b")
	require.False(t, ok)
}

func TestGroupCloneIsIndependent(t *testing.T) {
	g := NewGroup(KindLog)
	g.Tags["x"] = "y"
	ev := Event{}
	ev.Set("k", "v")
	g.Events = append(g.Events, ev)

	cp := g.Clone()
	cp.Tags["x"] = "changed"
	cp.Events[0].Set("k", "changed")

	require.Equal(t, "y", g.Tags["x"])
	orig, _ := g.Events[0].Get("k")
	require.Equal(t, "v", orig)
}

package router

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/event"
)

func TestRouterAlwaysMatchesEverySink(t *testing.T) {
	r := New([]Row{{SinkIndex: 0, Predicate: PredicateAlways}})
	g := event.NewGroup(event.KindLog)
	require.Equal(t, []int{0}, r.Route(g))
}

func TestRouterEventTypePredicate(t *testing.T) {
	r := New([]Row{
		{SinkIndex: 0, Predicate: PredicateEventType, EventType: event.KindLog},
		{SinkIndex: 1, Predicate: PredicateEventType, EventType: event.KindMetric},
	})
	logGroup := event.NewGroup(event.KindLog)
	require.Equal(t, []int{0}, r.Route(logGroup))

	metricGroup := event.NewGroup(event.KindMetric)
	require.Equal(t, []int{1}, r.Route(metricGroup))
}

func TestRouterTagPredicate(t *testing.T) {
	r := New([]Row{{SinkIndex: 2, Predicate: PredicateTag, TagKey: "env", TagValue: "prod"}})
	g := event.NewGroup(event.KindLog)
	g.Tags["env"] = "staging"
	require.Empty(t, r.Route(g))

	g.Tags["env"] = "prod"
	require.Equal(t, []int{2}, r.Route(g))
}

func TestRouterMultipleSinksAndDedup(t *testing.T) {
	r := New([]Row{
		{SinkIndex: 0, Predicate: PredicateAlways},
		{SinkIndex: 1, Predicate: PredicateEventType, EventType: event.KindLog},
		{SinkIndex: 0, Predicate: PredicateEventType, EventType: event.KindLog},
	})
	g := event.NewGroup(event.KindLog)
	require.Equal(t, []int{0, 1}, r.Route(g))
}

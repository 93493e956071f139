package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/event"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/processor"
)

func TestNewRejectsTagApplyNotFirst(t *testing.T) {
	procs := []processor.Processor{
		processor.NewAddFields(nil),
		processor.NewTagApply(processor.SchemeLegacy, nil),
	}
	_, err := New("p1", procs)
	require.Error(t, err)
}

func TestNewRejectsTwoValueParsers(t *testing.T) {
	p1, err := processor.NewParseRegex("content", `.*`, false, "p1", nil)
	require.NoError(t, err)
	procs := []processor.Processor{p1, processor.NewParseJSON("content", false, "p1", nil)}
	_, err = New("p1", procs)
	require.Error(t, err)
}

func TestNewRejectsTimestampBeforeValueParser(t *testing.T) {
	ts := processor.NewParseTimestamp("ts", "2006-01-02", nil, 0, "p1", nil)
	vp, err := processor.NewParseRegex("content", `.*`, false, "p1", nil)
	require.NoError(t, err)
	_, err = New("p1", []processor.Processor{ts, vp})
	require.Error(t, err)
}

func TestPipelineProcessRunsInOrderAndShortCircuitsOnEmpty(t *testing.T) {
	procs := []processor.Processor{
		processor.NewTagApply(processor.SchemeLegacy, map[processor.SemanticTag]string{processor.TagFilePath: "/x.log"}),
		processor.NewDrop(),
		processor.NewAddFields(map[string]string{"should": "not-run"}),
	}
	p, err := New("p1", procs)
	require.NoError(t, err)

	g := event.NewGroup(event.KindLog)
	g.Events = append(g.Events, event.Event{})
	p.Process(g)

	require.Equal(t, "/x.log", g.Tags["__path__"])
	require.Empty(t, g.Events)
}

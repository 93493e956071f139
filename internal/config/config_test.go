package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const minimalYAML = `
global:
  checkpoint_dir: /var/lib/logtrail-agent
inputs:
  - name: access-logs
    type: file
    paths: ["/var/log/app/*.log"]
    split_mode: whole_line
processors:
  - kind: tag_apply
  - kind: parse_json
flushers:
  - name: primary
    kind: http
    endpoint: https://collector.example.com/v1/logs
`

func TestParseMinimalConfig(t *testing.T) {
	p, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	require.Equal(t, "/var/lib/logtrail-agent", p.Global.CheckpointDir)
	require.Len(t, p.Inputs, 1)
	require.Equal(t, "whole_line", p.Inputs[0].SplitMode)
	require.Len(t, p.Flushers, 1)
}

func TestValidateRejectsNoInputs(t *testing.T) {
	p := &Pipeline{Flushers: []Flusher{{Name: "f", Kind: "http"}}}
	require.Error(t, p.Validate())
}

func TestValidateRejectsNoFlushers(t *testing.T) {
	p := &Pipeline{Inputs: []Input{{Name: "i", SplitMode: "whole_line"}}}
	require.Error(t, p.Validate())
}

func TestValidateRejectsUnknownSplitMode(t *testing.T) {
	p := &Pipeline{
		Inputs:   []Input{{Name: "i", SplitMode: "nonsense"}},
		Flushers: []Flusher{{Name: "f", Kind: "http"}},
	}
	require.Error(t, p.Validate())
}

func TestValidateRequiresBeginPatternWhenSplitModeIsBeginPattern(t *testing.T) {
	p := &Pipeline{
		Inputs:   []Input{{Name: "i", SplitMode: "begin_pattern"}},
		Flushers: []Flusher{{Name: "f", Kind: "http"}},
	}
	require.Error(t, p.Validate())
}

func TestValidateRejectsTagApplyNotFirst(t *testing.T) {
	p := &Pipeline{
		Inputs:     []Input{{Name: "i", SplitMode: "whole_line"}},
		Flushers:   []Flusher{{Name: "f", Kind: "http"}},
		Processors: []Processor{{Kind: "parse_json"}, {Kind: "tag_apply"}},
	}
	require.Error(t, p.Validate())
}

func TestValidateRejectsRouteReferencingUnknownFlusher(t *testing.T) {
	p := &Pipeline{
		Inputs:   []Input{{Name: "i", SplitMode: "whole_line"}},
		Flushers: []Flusher{{Name: "f", Kind: "http"}},
		Route:    []RouteRow{{Flusher: "missing", Predicate: "always"}},
	}
	require.Error(t, p.Validate())
}

func TestValidateRejectsUnknownAggregatorKind(t *testing.T) {
	p := &Pipeline{
		Inputs:      []Input{{Name: "i", SplitMode: "whole_line"}},
		Flushers:    []Flusher{{Name: "f", Kind: "http"}},
		Aggregators: []Aggregator{{Kind: "windowed_sum"}},
	}
	require.Error(t, p.Validate())
}

func TestValidateRejectsMoreThanOneAggregator(t *testing.T) {
	p := &Pipeline{
		Inputs:      []Input{{Name: "i", SplitMode: "whole_line"}},
		Flushers:    []Flusher{{Name: "f", Kind: "http"}},
		Aggregators: []Aggregator{{Kind: "identity"}, {Kind: "count_based"}},
	}
	require.Error(t, p.Validate())
}

func TestValidateAcceptsCountBasedAggregator(t *testing.T) {
	p := &Pipeline{
		Inputs:      []Input{{Name: "i", SplitMode: "whole_line"}},
		Flushers:    []Flusher{{Name: "f", Kind: "http"}},
		Aggregators: []Aggregator{{Kind: "count_based", Config: map[string]any{"count_threshold": 100}}},
	}
	require.NoError(t, p.Validate())
}

package splitter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func recordStrings(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = string(r.Data)
	}
	return out
}

// TestWholeLineSplitter is scenario S1.
func TestWholeLineSplitter(t *testing.T) {
	keep, err := New(Config{Mode: ModeWholeLine, DiscardUnmatch: false})
	require.NoError(t, err)
	records, held := keep.Split([]byte("line1\nline2"), 0, true)
	require.Nil(t, held)
	require.Equal(t, []string{"line1", "line2"}, recordStrings(records))

	discard, err := New(Config{Mode: ModeWholeLine, DiscardUnmatch: true})
	require.NoError(t, err)
	records, held = discard.Split([]byte("line1\nline2"), 0, true)
	require.Equal(t, []string{"line1"}, recordStrings(records))
	require.Equal(t, "line2", string(held))
}

// TestBeginPatternDiscardUnmatched is scenario S2.
func TestBeginPatternDiscardUnmatched(t *testing.T) {
	s, err := New(Config{Mode: ModeBeginPattern, BeginPattern: "line.*", DiscardUnmatch: true})
	require.NoError(t, err)
	records, held := s.Split([]byte("badline1\ncontinue\nline2\ncontinue"), 0, true)
	require.Nil(t, held)
	require.Equal(t, []string{"line2\ncontinue"}, recordStrings(records))
}

// TestBeginPatternKeepUnmatched is scenario S3.
func TestBeginPatternKeepUnmatched(t *testing.T) {
	s, err := New(Config{Mode: ModeBeginPattern, BeginPattern: "line.*", DiscardUnmatch: false})
	require.NoError(t, err)
	records, held := s.Split([]byte("badline1\ncontinue\nline2\ncontinue"), 0, true)
	require.Nil(t, held)
	require.Equal(t, []string{"badline1\ncontinue", "line2\ncontinue"}, recordStrings(records))
}

// TestJSONSplitterRespectsQuotedBrace is scenario S4.
func TestJSONSplitterRespectsQuotedBrace(t *testing.T) {
	s, err := New(Config{Mode: ModeJSON})
	require.NoError(t, err)
	records, held := s.Split([]byte(`{"a":1}` + "\n" + `{"b":"x}y"}`), 0, true)
	require.Nil(t, held)
	require.Equal(t, []string{`{"a":1}`, `{"b":"x}y"}`}, recordStrings(records))
}

func TestJSONSplitterHoldsIncompleteTrailingObject(t *testing.T) {
	s, err := New(Config{Mode: ModeJSON})
	require.NoError(t, err)
	records, held := s.Split([]byte(`{"a":1}`+"\n"+`{"b":2`), 0, false)
	require.Equal(t, []string{`{"a":1}`}, recordStrings(records))
	require.Equal(t, `{"b":2`, string(held))
}

func TestJSONSplitterSkipsGarbageToNextNewline(t *testing.T) {
	s, err := New(Config{Mode: ModeJSON})
	require.NoError(t, err)
	records, held := s.Split([]byte("not json\n"+`{"a":1}`), 0, true)
	require.Nil(t, held)
	require.Equal(t, []string{`{"a":1}`}, recordStrings(records))
}

func TestBeginPatternHoldsOpenTrailingRecordWhenNotFinal(t *testing.T) {
	s, err := New(Config{Mode: ModeBeginPattern, BeginPattern: "line.*"})
	require.NoError(t, err)
	records, held := s.Split([]byte("line1\nmore"), 0, false)
	require.Empty(t, records)
	require.Equal(t, "line1\nmore", string(held))
}

func TestWholeLinePatternNormalizesToWholeLine(t *testing.T) {
	s, err := New(Config{Mode: ModeBeginPattern, BeginPattern: ".*"})
	require.NoError(t, err)
	records, _ := s.Split([]byte("a\nb\n"), 0, true)
	require.Equal(t, []string{"a", "b"}, recordStrings(records))
}

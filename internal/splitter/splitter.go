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

// Package splitter converts a contiguous byte range into a sequence of
// logical record byte ranges, in whole-line, begin-pattern, or JSON mode.
package splitter

import (
	"fmt"

	"github.com/dlclark/regexp2"

	"github.com/esteban-alvarez/logtrail-agent/internal/obslog"
)

// Mode selects the splitting strategy.
type Mode int

const (
	// ModeWholeLine: each newline terminates a record (begin pattern
	// absent or ".*").
	ModeWholeLine Mode = iota
	// ModeBeginPattern: a record starts at the first line matching
	// BeginPattern and ends immediately before the next matching line.
	ModeBeginPattern
	// ModeJSON: a record is a brace-balanced top-level JSON object.
	ModeJSON
)

// Config configures a Splitter.
type Config struct {
	Mode Mode

	// BeginPattern is a regexp2 pattern (PCRE-like) matched against the
	// start of each line; only meaningful in ModeBeginPattern.
	BeginPattern string

	// DiscardUnmatch governs two distinct, mode-specific behaviors named
	// by spec.md §4.5: in ModeWholeLine it decides whether a
	// non-newline-terminated trailing chunk of a final Split is held for
	// the next tick or emitted as a record; in ModeBeginPattern
	// it decides whether lines preceding the first begin-pattern match
	// are dropped or emitted as an unmatched record.
	DiscardUnmatch bool

	Pipeline string
	Alarms   *obslog.AlarmChannel
}

// Record is one logical record extracted from a byte range, carrying its
// byte offset relative to the start of the file (spec.md §4.5 "Offset
// attribution").
type Record struct {
	Offset int64
	Data   []byte
}

// Splitter converts byte ranges into Records per its configured Mode.
type Splitter struct {
	cfg Config
	re  *regexp2.Regexp
}

// New constructs a Splitter. BeginPattern is compiled once, anchored to
// the start of the line it's tested against (the mode's "begins with"
// semantics), when Mode is ModeBeginPattern.
func New(cfg Config) (*Splitter, error) {
	s := &Splitter{cfg: cfg}
	if cfg.Mode == ModeBeginPattern {
		pat := cfg.BeginPattern
		if pat == "" || pat == ".*" {
			s.cfg.Mode = ModeWholeLine
			return s, nil
		}
		re, err := regexp2.Compile(pat, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("splitter: invalid begin pattern: %w", err)
		}
		s.re = re
	}
	return s, nil
}

// Split processes data (a contiguous byte range starting at baseOffset in
// the file) into Records. final indicates no more bytes are expected
// after data in this read cycle (e.g. the reader has caught up to the
// current EOF); when false, a record still open at the end of data is
// held back rather than emitted, returned as held for the caller to
// prepend to the next tick's bytes. In ModeJSON an unterminated object at
// the end of data is held whatever the value of final.
func (s *Splitter) Split(data []byte, baseOffset int64, final bool) (records []Record, held []byte) {
	switch s.cfg.Mode {
	case ModeBeginPattern:
		return s.splitBeginPattern(data, baseOffset, final)
	case ModeJSON:
		return s.splitJSON(data, baseOffset, final)
	default:
		return s.splitWholeLine(data, baseOffset, final)
	}
}

func (s *Splitter) splitWholeLine(data []byte, baseOffset int64, final bool) (records []Record, held []byte) {
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			records = append(records, Record{Offset: baseOffset + int64(start), Data: data[start:i]})
			start = i + 1
		}
	}
	tail := data[start:]
	if len(tail) == 0 {
		return records, nil
	}
	if !final || s.cfg.DiscardUnmatch {
		return records, tail
	}
	records = append(records, Record{Offset: baseOffset + int64(start), Data: tail})
	return records, nil
}

func (s *Splitter) matchesBegin(line []byte) bool {
	m, err := s.re.FindStringMatch(string(line))
	return err == nil && m != nil && m.Index == 0
}

func (s *Splitter) splitBeginPattern(data []byte, baseOffset int64, final bool) (records []Record, held []byte) {
	type lineSpan struct{ start, end int } // end exclusive, not including '\n'
	var lines []lineSpan
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			lines = append(lines, lineSpan{start, i})
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, lineSpan{start, len(data)})
	}

	firstMatch := -1
	for i, ln := range lines {
		if s.matchesBegin(data[ln.start:ln.end]) {
			firstMatch = i
			break
		}
	}

	if firstMatch == -1 {
		// No begin-pattern match anywhere in the buffer: the whole thing
		// is an unmatched leading segment.
		if len(data) == 0 {
			return nil, nil
		}
		if s.cfg.DiscardUnmatch {
			s.raiseGarbage(data)
			return nil, data
		}
		s.raiseWholeBufferUnmatched(data)
		return []Record{{Offset: baseOffset, Data: data}}, nil
	}

	if firstMatch > 0 {
		leadStart := lines[0].start
		leadEnd := lines[firstMatch-1].end
		leading := data[leadStart:leadEnd]
		if s.cfg.DiscardUnmatch {
			s.raiseGarbage(leading)
		} else {
			records = append(records, Record{Offset: baseOffset + int64(leadStart), Data: leading})
		}
	}

	for i := firstMatch; i < len(lines); i++ {
		recEndLineIdx := len(lines) - 1
		for j := i + 1; j < len(lines); j++ {
			if s.matchesBegin(data[lines[j].start:lines[j].end]) {
				recEndLineIdx = j - 1
				break
			}
		}
		recStart := lines[i].start
		recEnd := lines[recEndLineIdx].end
		isLast := recEndLineIdx == len(lines)-1
		if isLast && !final {
			held = data[recStart:]
			return records, held
		}
		records = append(records, Record{Offset: baseOffset + int64(recStart), Data: data[recStart:recEnd]})
		i = recEndLineIdx
	}
	return records, held
}

func (s *Splitter) splitJSON(data []byte, baseOffset int64, final bool) (records []Record, held []byte) {
	i := 0
	for i < len(data) {
		for i < len(data) && isJSONSpace(data[i]) {
			i++
		}
		if i >= len(data) {
			break
		}
		if data[i] != '{' {
			j := i
			for j < len(data) && data[j] != '\n' {
				j++
			}
			if j >= len(data) {
				if !final {
					held = data[i:]
					return records, held
				}
				s.raiseGarbage(data[i:j])
				break
			}
			s.raiseGarbage(data[i:j])
			i = j + 1
			continue
		}

		start := i
		depth := 0
		inStr := false
		esc := false
		end := -1
		for k := i; k < len(data); k++ {
			c := data[k]
			switch {
			case esc:
				esc = false
			case inStr:
				switch c {
				case '\\':
					esc = true
				case '"':
					inStr = false
				}
			case c == '"':
				inStr = true
			case c == '{':
				depth++
			case c == '}':
				depth--
				if depth == 0 {
					end = k + 1
				}
			}
			if end != -1 {
				break
			}
		}
		if end == -1 {
			held = data[start:]
			return records, held
		}
		records = append(records, Record{Offset: baseOffset + int64(start), Data: data[start:end]})
		i = end
	}
	return records, held
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func (s *Splitter) raiseGarbage(sample []byte) {
	if s.cfg.Alarms == nil {
		return
	}
	s.cfg.Alarms.Raise(obslog.Alarm{
		Category:   obslog.CategoryParse,
		Pipeline:   s.cfg.Pipeline,
		Message:    "splitter discarded garbage (no begin-pattern match)",
		FirstBytes: firstKiB(sample),
	})
}

func (s *Splitter) raiseWholeBufferUnmatched(sample []byte) {
	if s.cfg.Alarms == nil {
		return
	}
	s.cfg.Alarms.Raise(obslog.Alarm{
		Category:   obslog.CategoryParse,
		Pipeline:   s.cfg.Pipeline,
		Message:    "whole buffer unmatched by begin-pattern",
		FirstBytes: firstKiB(sample),
	})
}

func firstKiB(b []byte) []byte {
	const limit = 1024
	if len(b) <= limit {
		return append([]byte(nil), b...)
	}
	return append([]byte(nil), b[:limit]...)
}
